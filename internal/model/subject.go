package model

import "time"

// SubChannel is one named category channel inside a subject's
// directory record. InviteLink is optional and only present for
// channels provisioned with a share link.
type SubChannel struct {
	Name       string `json:"name"`
	ID         int64  `json:"id"`
	InviteLink string `json:"invite_link,omitempty"`
}

// DirectoryRecord maps one subject to its set of storage channels.
// One record per subject; replaced wholesale, never patched.
type DirectoryRecord struct {
	Subject       string       `json:"subject"`
	MainChannelID int64        `json:"main_channel_id"`
	SubChannels   []SubChannel `json:"sub_channels"`
}

// Subscription is the durable server-side counterpart of a directory
// sub-channel: the caller holds (best-effort) membership of ChannelID.
// Unique per (UserID, Subject, Category).
type Subscription struct {
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Category  string    `json:"category"`
	ChannelID int64     `json:"channel_id"`
	CreatedAt time.Time `json:"created_at"`
}
