// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package realtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quistova/shopfront/internal/realtime"
)

func TestDelayGrowsExponentially(t *testing.T) {
	p := realtime.ReconnectPolicy{
		Base:        time.Second,
		Cap:         30 * time.Second,
		MaxAttempts: 6,
		Cooldown:    5 * time.Minute,
	}

	assert.Equal(t, 1*time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 8*time.Second, p.Delay(4))
}

func TestDelayIsCapped(t *testing.T) {
	p := realtime.ReconnectPolicy{
		Base:        time.Second,
		Cap:         5 * time.Second,
		MaxAttempts: 10,
		Cooldown:    time.Minute,
	}

	assert.Equal(t, 5*time.Second, p.Delay(4))
	assert.Equal(t, 5*time.Second, p.Delay(10))
}

func TestDelayPastBudgetReturnsCooldown(t *testing.T) {
	p := realtime.DefaultReconnectPolicy()
	p.Jitter = 0

	assert.Equal(t, p.Cooldown, p.Delay(p.MaxAttempts+1))
	assert.False(t, p.Exhausted(p.MaxAttempts))
	assert.True(t, p.Exhausted(p.MaxAttempts+1))
}

func TestDelayJitterStaysInBounds(t *testing.T) {
	p := realtime.ReconnectPolicy{
		Base:        time.Second,
		Cap:         30 * time.Second,
		MaxAttempts: 6,
		Cooldown:    time.Minute,
		Jitter:      0.2,
	}

	for range 100 {
		d := p.Delay(3) // nominal 4s
		assert.GreaterOrEqual(t, d, 3200*time.Millisecond)
		assert.LessOrEqual(t, d, 4800*time.Millisecond)
	}
}

func TestDelayClampsNonPositiveAttempt(t *testing.T) {
	p := realtime.DefaultReconnectPolicy()
	p.Jitter = 0

	assert.Equal(t, p.Base, p.Delay(0))
	assert.Equal(t, p.Base, p.Delay(-3))
}
