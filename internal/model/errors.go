package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")

	// Subject/channel related errors
	ErrUnknownSubject  = errors.New("unknown subject")
	ErrUnknownCategory = errors.New("unknown category")
	ErrChannelNotFound = errors.New("channel not found")

	// File related errors
	ErrFileNotFound   = errors.New("file not found")
	ErrStagedNotFound = errors.New("staged upload not found")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Remote storage errors
	ErrRemoteUnavailable = errors.New("remote storage unavailable")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
