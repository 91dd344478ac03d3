// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package realtime

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// client is one live connection with its channel and owning account.
type client struct {
	ch        chan string
	accountID int64
}

// Hub manages the live connections grouped per account. Every client is also
// part of the global broadcast group. The hub is constructed explicitly and
// injected; there is no shared package-level instance.
type Hub struct {
	mu       sync.RWMutex
	accounts map[int64][]client
	onCount  func(delta int)
}

// NewHub creates a new hub. onCount may be nil; otherwise it is called with
// +1/-1 as clients connect and disconnect.
func NewHub(onCount func(delta int)) *Hub {
	if onCount == nil {
		onCount = func(int) {}
	}
	return &Hub{
		accounts: make(map[int64][]client),
		onCount:  onCount,
	}
}

// Register adds a connection for the given account and returns the channel
// to stream frames from.
func (h *Hub) Register(accountID int64) chan string {
	ch := make(chan string, 16) // buffered so a slow client never blocks senders

	h.mu.Lock()
	h.accounts[accountID] = append(h.accounts[accountID], client{ch: ch, accountID: accountID})
	h.mu.Unlock()

	h.onCount(1)
	return ch
}

// Unregister removes a connection and closes its channel.
func (h *Hub) Unregister(accountID int64, ch chan string) {
	h.mu.Lock()
	clients := h.accounts[accountID]
	h.accounts[accountID] = lo.Filter(clients, func(c client, _ int) bool {
		return c.ch != ch
	})
	if len(h.accounts[accountID]) == 0 {
		delete(h.accounts, accountID)
	}
	h.mu.Unlock()

	h.onCount(-1)
	close(ch)
}

// NotifyAccount pushes an event to every live connection of an account.
// Invalid events are logged and dropped; a full client buffer skips that
// client rather than blocking.
func (h *Hub) NotifyAccount(accountID int64, event Event) {
	frame, err := Encode(event)
	if err != nil {
		slog.Error("realtime_event_invalid", "event", event.EventName(), "error", err)
		return
	}

	h.mu.RLock()
	clients := h.accounts[accountID]
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.ch <- frame:
		default:
			// Buffer full, skip. The client catches up at its next refresh.
		}
	}
}

// Broadcast pushes an event to every live connection of every account.
func (h *Hub) Broadcast(event Event) {
	frame, err := Encode(event)
	if err != nil {
		slog.Error("realtime_event_invalid", "event", event.EventName(), "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clients := range h.accounts {
		for _, c := range clients {
			select {
			case c.ch <- frame:
			default:
			}
		}
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.SumBy(lo.Values(h.accounts), func(clients []client) int {
		return len(clients)
	})
}

// AccountCount returns the number of accounts with live connections.
func (h *Hub) AccountCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.accounts)
}
