// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package twofactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeSingleUse(t *testing.T) {
	store := NewChallengeStore()

	id := store.Create(42)
	accountID, err := store.Consume(id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), accountID)

	_, err = store.Consume(id)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestChallengeExpiry(t *testing.T) {
	store := NewChallengeStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	id := store.Create(42)
	now = now.Add(ChallengeTTL + time.Second)

	_, err := store.Consume(id)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestPeekKeepsChallengeAlive(t *testing.T) {
	store := NewChallengeStore()

	id := store.Create(42)
	accountID, err := store.Peek(id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), accountID)

	// Peek does not consume.
	_, err = store.Consume(id)
	assert.NoError(t, err)
}

func TestUnknownChallenge(t *testing.T) {
	store := NewChallengeStore()
	_, err := store.Consume("nope")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestSweepDropsExpired(t *testing.T) {
	store := NewChallengeStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	old := store.Create(1)
	now = now.Add(ChallengeTTL + 2*time.Minute)
	store.Create(2) // triggers the sweep

	_, err := store.Peek(old)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}
