// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package realtime

import (
	"math/rand/v2"
	"time"
)

// ReconnectPolicy is the bounded retry schedule clients follow after a
// dropped connection: exponential backoff with jitter up to MaxAttempts,
// then a cooldown before the attempt counter resets. It replaces ad-hoc
// chained timer callbacks with a schedule that can be tested on its own.
type ReconnectPolicy struct {
	Base        time.Duration // delay before the first retry
	Cap         time.Duration // upper bound per delay
	MaxAttempts int           // attempts before entering cooldown
	Cooldown    time.Duration // pause before the counter resets
	Jitter      float64       // fraction of the delay randomized, 0..1
}

// DefaultReconnectPolicy mirrors what the web client ships with.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Base:        time.Second,
		Cap:         30 * time.Second,
		MaxAttempts: 6,
		Cooldown:    5 * time.Minute,
		Jitter:      0.2,
	}
}

// Delay returns the wait before attempt n (1-based). Attempts beyond
// MaxAttempts return the cooldown; callers reset n to 1 afterwards.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > p.MaxAttempts {
		return p.Cooldown
	}

	delay := p.Base << (attempt - 1)
	if delay > p.Cap || delay <= 0 {
		delay = p.Cap
	}
	return p.jittered(delay)
}

// Exhausted reports whether attempt lies past the bounded retry budget.
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return attempt > p.MaxAttempts
}

func (p ReconnectPolicy) jittered(d time.Duration) time.Duration {
	if p.Jitter <= 0 {
		return d
	}
	spread := float64(d) * p.Jitter
	offset := (rand.Float64()*2 - 1) * spread
	return time.Duration(float64(d) + offset)
}
