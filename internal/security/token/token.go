// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package token generates opaque security tokens and their storage digests.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// RawBytes is the entropy of an opaque token: 32 bytes, 256 bits.
const RawBytes = 32

// NewOpaque returns a cryptographically random token, base64url without
// padding. The raw value is handed to its owner exactly once.
func NewOpaque() (string, error) {
	b := make([]byte, RawBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Digest returns sha256(raw) in base64url without padding. Only digests are
// persisted; a database leak does not expose usable tokens.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// DigestEqual compares two digests in constant time.
func DigestEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
