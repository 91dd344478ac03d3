// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package password_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quistova/shopfront/internal/security/password"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := password.Hash("correct-horse-battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse-battery", hash)

	assert.True(t, password.Verify(hash, "correct-horse-battery"))
	assert.False(t, password.Verify(hash, "wrong-password"))
}

func TestVerifyMalformedHash(t *testing.T) {
	assert.False(t, password.Verify("not-a-bcrypt-hash", "anything"))
	assert.False(t, password.Verify("", "anything"))
}

func TestValidatorMinLength(t *testing.T) {
	v := password.DefaultValidator()

	err := v.Validate("short")
	require.Error(t, err)

	var policyErr *password.PolicyError
	require.ErrorAs(t, err, &policyErr)
	assert.NotEmpty(t, policyErr.Messages())
}

func TestValidatorCommonPassword(t *testing.T) {
	v := password.DefaultValidator()
	assert.Error(t, v.Validate("password123"))
}

func TestValidatorEntirelyNumeric(t *testing.T) {
	v := password.DefaultValidator()
	assert.Error(t, v.Validate("1234567890123"))
}

func TestValidatorSimilarToEmail(t *testing.T) {
	v := password.DefaultValidator()
	assert.Error(t, v.Validate("alice@example.com", "alice@example.com"))
}

func TestValidatorAcceptsStrongPassword(t *testing.T) {
	v := password.DefaultValidator()
	assert.NoError(t, v.Validate("correct-horse-battery", "alice@example.com"))
}
