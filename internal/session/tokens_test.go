// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quistova/shopfront/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestMintAndParse(t *testing.T) {
	at, err := session.NewAccessTokens(testSecret, 15*time.Minute)
	require.NoError(t, err)

	raw, err := at.Mint(42, "session-1")
	require.NoError(t, err)

	accountID, sessionID, err := at.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), accountID)
	assert.Equal(t, "session-1", sessionID)
}

func TestNewAccessTokensRejectsShortSecret(t *testing.T) {
	_, err := session.NewAccessTokens("short", 15*time.Minute)
	assert.Error(t, err)
}

func TestParseRejectsForgedToken(t *testing.T) {
	at, err := session.NewAccessTokens(testSecret, 15*time.Minute)
	require.NoError(t, err)
	other, err := session.NewAccessTokens("ffffffffffffffffffffffffffffffff", 15*time.Minute)
	require.NoError(t, err)

	raw, err := other.Mint(42, "session-1")
	require.NoError(t, err)

	_, _, err = at.Parse(raw)
	assert.ErrorIs(t, err, session.ErrAccessTokenInvalid)
}

func TestParseRejectsGarbage(t *testing.T) {
	at, err := session.NewAccessTokens(testSecret, 15*time.Minute)
	require.NoError(t, err)

	_, _, err = at.Parse("not-a-token")
	assert.ErrorIs(t, err, session.ErrAccessTokenInvalid)
}

func TestCookiesRoundTrip(t *testing.T) {
	cookies, err := session.NewCookies("", "", false, 15*time.Minute, time.Hour)
	require.NoError(t, err)

	cookie, err := cookies.RefreshCookie("session-1", "secret-value")
	require.NoError(t, err)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, session.RefreshCookieName, cookie.Name)

	sessionID, secret, err := cookies.DecodeRefresh(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "session-1", sessionID)
	assert.Equal(t, "secret-value", secret)
}

func TestDecodeRefreshRejectsTampering(t *testing.T) {
	cookies, err := session.NewCookies("", "", false, 15*time.Minute, time.Hour)
	require.NoError(t, err)

	cookie, err := cookies.RefreshCookie("session-1", "secret-value")
	require.NoError(t, err)

	_, _, err = cookies.DecodeRefresh(cookie.Value + "x")
	assert.Error(t, err)
}

func TestClearExpiresBothCookies(t *testing.T) {
	cookies, err := session.NewCookies("", "", true, 15*time.Minute, time.Hour)
	require.NoError(t, err)

	cleared := cookies.Clear()
	require.Len(t, cleared, 2)
	for _, c := range cleared {
		assert.Equal(t, -1, c.MaxAge)
		assert.True(t, c.Secure)
	}
}
