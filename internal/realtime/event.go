// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package realtime pushes security events to the live connections of an
// account. Delivery is fire-and-forget; the session registry stays the
// authoritative security boundary.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is the closed set of push event variants. Each variant knows its SSE
// event name and validates itself at the boundary.
type Event interface {
	EventName() string
	Validate() error
}

// Forced-logout reasons.
const (
	ReasonPasswordChanged   = "password_changed"
	ReasonTwoFactorDisabled = "two_factor_disabled"
	ReasonAdminRevocation   = "admin_revocation"
)

// ForceLogout instructs clients to discard local credentials and
// re-authenticate.
type ForceLogout struct {
	Reason    string    `json:"reason"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (e ForceLogout) EventName() string { return "force_logout" }

func (e ForceLogout) Validate() error {
	switch e.Reason {
	case ReasonPasswordChanged, ReasonTwoFactorDisabled, ReasonAdminRevocation:
	default:
		return fmt.Errorf("unknown force_logout reason %q", e.Reason)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("force_logout without timestamp")
	}
	return nil
}

// SessionJoined announces a new login on another device of the same account.
type SessionJoined struct {
	SessionID      string    `json:"session_id"`
	DeviceMetadata string    `json:"device_metadata"`
	Timestamp      time.Time `json:"timestamp"`
}

func (e SessionJoined) EventName() string { return "session_joined" }

func (e SessionJoined) Validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("session_joined without session id")
	}
	return nil
}

// Encode renders an event as an SSE frame.
func Encode(e Event) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return FormatFrame(e.EventName(), string(payload)), nil
}

// FormatFrame formats data as an SSE frame with an event name. Multiline
// content is prefixed line by line.
func FormatFrame(eventName, data string) string {
	var sb strings.Builder

	if eventName != "" {
		fmt.Fprintf(&sb, "event: %s\n", eventName)
	}

	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&sb, "data: %s\n", line)
	}

	sb.WriteString("\n") // empty line terminates the frame
	return sb.String()
}

// RetryFrame advertises the client reconnect delay in milliseconds.
func RetryFrame(delay time.Duration) string {
	return fmt.Sprintf("retry: %d\n\n", delay.Milliseconds())
}

// Heartbeat is an SSE comment that keeps the connection alive.
const Heartbeat = ": heartbeat\n\n"
