// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// Cookie names of the two credentials.
const (
	AccessCookieName  = "sf_access"
	RefreshCookieName = "sf_refresh"
)

// refreshPayload is what the refresh cookie carries, signed and encrypted.
type refreshPayload struct {
	SessionID string `json:"sid"`
	Secret    string `json:"sec"`
}

// Cookies encodes the credential cookies: secure, same-site, http-only.
type Cookies struct {
	codec      *securecookie.SecureCookie
	secure     bool
	refreshTTL time.Duration
	accessTTL  time.Duration
}

// NewCookies builds the cookie codec. Empty keys generate ephemeral ones and
// log a warning; fine for development, sessions then die with the process.
func NewCookies(hashKeyHex, blockKeyHex string, secure bool, accessTTL, refreshTTL time.Duration) (*Cookies, error) {
	hashKey, err := keyBytes(hashKeyHex, 32)
	if err != nil {
		return nil, fmt.Errorf("cookie hash key: %w", err)
	}

	var blockKey []byte
	if blockKeyHex != "" {
		blockKey, err = keyBytes(blockKeyHex, 32)
		if err != nil {
			return nil, fmt.Errorf("cookie block key: %w", err)
		}
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &Cookies{
		codec:      codec,
		secure:     secure,
		refreshTTL: refreshTTL,
		accessTTL:  accessTTL,
	}, nil
}

func keyBytes(hexKey string, size int) ([]byte, error) {
	if hexKey == "" {
		key := make([]byte, size)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		slog.Warn("cookie_key_generated", "note", "sessions will not survive a restart")
		return key, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, err
	}
	if len(key) != size {
		return nil, fmt.Errorf("expected %d bytes, got %d", size, len(key))
	}
	return key, nil
}

// AccessCookie wraps a minted access token.
func (c *Cookies) AccessCookie(accessToken string) *http.Cookie {
	return &http.Cookie{
		Name:     AccessCookieName,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(c.accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// RefreshCookie encodes the session id and refresh secret.
func (c *Cookies) RefreshCookie(sessionID, secret string) (*http.Cookie, error) {
	encoded, err := c.codec.Encode(RefreshCookieName, refreshPayload{
		SessionID: sessionID,
		Secret:    secret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh cookie: %w", err)
	}

	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(c.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// DecodeRefresh extracts session id and secret from a refresh cookie value.
func (c *Cookies) DecodeRefresh(value string) (sessionID, secret string, err error) {
	var payload refreshPayload
	if err := c.codec.Decode(RefreshCookieName, value, &payload); err != nil {
		return "", "", fmt.Errorf("failed to decode refresh cookie: %w", err)
	}
	return payload.SessionID, payload.Secret, nil
}

// Clear returns expired cookies that remove both credentials on the client.
func (c *Cookies) Clear() []*http.Cookie {
	expire := func(name string) *http.Cookie {
		return &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.secure,
			SameSite: http.SameSiteStrictMode,
		}
	}
	return []*http.Cookie{expire(AccessCookieName), expire(RefreshCookieName)}
}
