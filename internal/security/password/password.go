// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package password implements the credential store: salted one-way hashing
// and timing-safe verification.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when no account matched, so lookups for
// unknown and known emails take the same time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Hash derives a salted hash from the plaintext. The salt is embedded in the
// output, so the same plaintext yields a different hash on each call.
func Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches storedHash. A malformed or
// unsupported stored hash counts as a mismatch, never as an error.
func Verify(storedHash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}

// VerifyDummy burns one hash comparison without revealing anything. Callers
// use it to keep the unknown-account path in constant time.
func VerifyDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plaintext))
}
