// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quistova/shopfront/internal/security/token"
)

func TestNewOpaqueIsUnique(t *testing.T) {
	a, err := token.NewOpaque()
	require.NoError(t, err)
	b, err := token.NewOpaque()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
}

func TestDigestIsDeterministic(t *testing.T) {
	assert.Equal(t, token.Digest("value"), token.Digest("value"))
	assert.NotEqual(t, token.Digest("value"), token.Digest("other"))
}

func TestDigestEqual(t *testing.T) {
	d := token.Digest("value")
	assert.True(t, token.DigestEqual(d, token.Digest("value")))
	assert.False(t, token.DigestEqual(d, token.Digest("other")))
}
