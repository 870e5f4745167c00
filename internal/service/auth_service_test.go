package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authFixture(t *testing.T) (*AuthService, *fakeUserStore, *fakeTokenStore) {
	t.Helper()

	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	svc, err := NewAuthService("test-secret", 15*time.Minute, 24*time.Hour, users, tokens)
	require.NoError(t, err)
	return svc, users, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := authFixture(t)

	user, err := svc.Register(context.Background(), "alice", "s3cret-pass", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "student", user.Role)
	assert.NotEmpty(t, user.ID)

	pair, err := svc.Login(context.Background(), "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, user.ID, pair.User.ID)

	claims, err := svc.ValidateToken(pair.AccessToken, "access")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _, _ := authFixture(t)

	_, err := svc.Register(context.Background(), "alice", "s3cret-pass", "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "other-pass", "")
	require.Error(t, err)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	svc, _, _ := authFixture(t)

	_, err := svc.Register(context.Background(), "", "s3cret-pass", "")
	require.Error(t, err)

	_, err = svc.Register(context.Background(), "alice", "", "")
	require.Error(t, err)

	_, err = svc.Register(context.Background(), "alice", "s3cret-pass", "superuser")
	require.Error(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := authFixture(t)

	_, err := svc.Register(context.Background(), "alice", "s3cret-pass", "")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)

	_, err = svc.Login(context.Background(), "nobody", "s3cret-pass")
	require.Error(t, err)
}

func TestRefreshTokenIsSingleUse(t *testing.T) {
	svc, _, _ := authFixture(t)

	_, err := svc.Register(context.Background(), "alice", "s3cret-pass", "")
	require.NoError(t, err)

	pair, err := svc.Login(context.Background(), "alice", "s3cret-pass")
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)

	// Replaying the consumed token must fail.
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, _ := authFixture(t)

	_, err := svc.Register(context.Background(), "alice", "s3cret-pass", "")
	require.NoError(t, err)

	pair, err := svc.Login(context.Background(), "alice", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.AccessToken)
	require.Error(t, err)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _, tokens := authFixture(t)

	_, err := svc.Register(context.Background(), "alice", "s3cret-pass", "")
	require.NoError(t, err)

	pair, err := svc.Login(context.Background(), "alice", "s3cret-pass")
	require.NoError(t, err)
	require.Len(t, tokens.tokens, 1)

	svc.Logout(context.Background(), pair.RefreshToken)
	assert.Empty(t, tokens.tokens)

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := authFixture(t)

	_, err := svc.ValidateToken("not-a-token", "access")
	require.Error(t, err)

	_, err = svc.ValidateToken("", "access")
	require.Error(t, err)
}
