package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	ts := NewTokenService("access-secret", "refresh-secret")
	userID := uuid.New()

	token, err := ts.IssueAccessToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := ts.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	ts := NewTokenService("access-secret", "refresh-secret")
	userID := uuid.New()

	token, err := ts.IssueRefreshToken(userID)
	require.NoError(t, err)

	got, err := ts.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	ts := NewTokenService("access-secret", "refresh-secret")
	userID := uuid.New()

	access, err := ts.IssueAccessToken(userID)
	require.NoError(t, err)
	refresh, err := ts.IssueRefreshToken(userID)
	require.NoError(t, err)

	_, err = ts.VerifyRefreshToken(access)
	assert.Error(t, err, "access token accepted as refresh token")

	_, err = ts.VerifyAccessToken(refresh)
	assert.Error(t, err, "refresh token accepted as access token")
}

func TestTokenFromDifferentSecretRejected(t *testing.T) {
	issuer := NewTokenService("one-access", "one-refresh")
	verifier := NewTokenService("other-access", "other-refresh")

	token, err := issuer.IssueAccessToken(uuid.New())
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	ts := NewTokenService("access-secret", "refresh-secret")

	_, err := ts.VerifyAccessToken("not.a.token")
	assert.Error(t, err)

	_, err = ts.VerifyAccessToken("")
	assert.Error(t, err)
}

func TestNewTokenServiceFromEnv(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")
	_, err := NewTokenServiceFromEnv()
	assert.Error(t, err)

	t.Setenv("JWT_ACCESS_SECRET", "a")
	_, err = NewTokenServiceFromEnv()
	assert.Error(t, err, "service built with only one secret set")

	t.Setenv("JWT_REFRESH_SECRET", "b")
	ts, err := NewTokenServiceFromEnv()
	require.NoError(t, err)
	assert.NotNil(t, ts)
}
