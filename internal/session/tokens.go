// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAccessTokenInvalid is returned for unparsable, forged or expired access
// tokens.
var ErrAccessTokenInvalid = errors.New("access token invalid")

// AccessClaims are the claims carried by an access token. SessionID ties the
// token to its refresh session for auditing.
type AccessClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// AccessTokens mints and parses the short-lived access credentials.
type AccessTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAccessTokens creates the access token codec.
func NewAccessTokens(secret string, ttl time.Duration) (*AccessTokens, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("access secret must be at least 32 bytes")
	}
	return &AccessTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the configured access token lifetime.
func (a *AccessTokens) TTL() time.Duration {
	return a.ttl
}

// Mint creates a signed access token for an account and its session.
func (a *AccessTokens) Mint(accountID int64, sessionID string) (string, error) {
	now := a.now()
	claims := AccessClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", accountID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the account id and session id.
func (a *AccessTokens) Parse(raw string) (accountID int64, sessionID string, err error) {
	var claims AccessClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return 0, "", ErrAccessTokenInvalid
	}

	if _, err := fmt.Sscanf(claims.Subject, "%d", &accountID); err != nil {
		return 0, "", ErrAccessTokenInvalid
	}
	return accountID, claims.SessionID, nil
}
