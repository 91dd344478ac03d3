// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package twofactor

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChallengeTTL bounds how long the second login step may take.
const ChallengeTTL = 5 * time.Minute

// ErrChallengeNotFound is returned for unknown, expired or already
// consumed challenge IDs.
var ErrChallengeNotFound = errors.New("challenge not found")

type challenge struct {
	accountID int64
	expiresAt time.Time
}

// ChallengeStore keeps pending login challenges between the password step
// and the code step. Challenges are single use and expire after
// ChallengeTTL. Entries are process local, which is fine: a restart only
// forces the user to re-enter the password.
type ChallengeStore struct {
	mu        sync.Mutex
	pending   map[string]challenge
	now       func() time.Time
	lastSweep time.Time
}

// NewChallengeStore creates an empty store.
func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{
		pending: make(map[string]challenge),
		now:     time.Now,
	}
}

// Create registers a challenge for accountID and returns its opaque ID.
func (s *ChallengeStore) Create(accountID int64) string {
	id := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	s.pending[id] = challenge{accountID: accountID, expiresAt: now.Add(ChallengeTTL)}
	return id
}

// Consume removes the challenge and returns its account. A second call
// with the same ID fails.
func (s *ChallengeStore) Consume(id string) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.pending[id]
	if !ok {
		return 0, ErrChallengeNotFound
	}
	delete(s.pending, id)
	if now.After(ch.expiresAt) {
		return 0, ErrChallengeNotFound
	}
	return ch.accountID, nil
}

// Peek reports the account behind a live challenge without consuming it.
// Used when a wrong code should allow another attempt.
func (s *ChallengeStore) Peek(id string) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.pending[id]
	if !ok || now.After(ch.expiresAt) {
		return 0, ErrChallengeNotFound
	}
	return ch.accountID, nil
}

func (s *ChallengeStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < time.Minute {
		return
	}
	s.lastSweep = now
	for id, ch := range s.pending {
		if now.After(ch.expiresAt) {
			delete(s.pending, id)
		}
	}
}
