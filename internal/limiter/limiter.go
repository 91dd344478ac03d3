// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package limiter rate-limits the unauthenticated security endpoints.
package limiter

import (
	"context"
	"sync"
	"time"
)

// Limiter answers whether a caller identified by key may proceed.
type Limiter interface {
	// Allow counts one attempt for key and reports whether it is within the
	// limit. Implementations fail open: an infrastructure error never blocks
	// a legitimate request.
	Allow(ctx context.Context, key string) (bool, error)
}

// Memory is a fixed-window in-process limiter.
type Memory struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	windowStart time.Time
	count       int
}

// NewMemory creates a limiter allowing limit attempts per window per key.
func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || now.Sub(b.windowStart) >= m.window {
		m.buckets[key] = &bucket{windowStart: now, count: 1}
		m.sweepLocked(now)
		return true, nil
	}

	b.count++
	return b.count <= m.limit, nil
}

// sweepLocked drops stale buckets so the map does not grow without bound.
func (m *Memory) sweepLocked(now time.Time) {
	if len(m.buckets) < 4096 {
		return
	}
	for key, b := range m.buckets {
		if now.Sub(b.windowStart) >= m.window {
			delete(m.buckets, key)
		}
	}
}
