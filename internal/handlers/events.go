// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quistova/shopfront/internal/auth"
	"github.com/quistova/shopfront/internal/realtime"
)

// heartbeatInterval keeps the SSE stream alive through proxies.
const heartbeatInterval = 30 * time.Second

// Events streams security events to the client over Server-Sent Events.
// Missed events are acceptable: the session registry stays authoritative and
// a revoked session fails its next refresh regardless of delivery.
func (h *Handlers) Events(c echo.Context) error {
	ctx := c.Request().Context()
	acct := auth.GetAccount(ctx)

	w := c.Response()
	flusher, ok := w.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)

	ch := h.hub.Register(acct.ID)
	defer h.hub.Unregister(acct.ID, ch)

	// Advertise the reconnect delay, then confirm the stream.
	_, _ = w.Write([]byte(realtime.RetryFrame(realtime.DefaultReconnectPolicy().Base)))
	_, _ = w.Write([]byte(realtime.FormatFrame("connected", "ok")))
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(realtime.Heartbeat)); err != nil {
				return nil // client disconnected
			}
			flusher.Flush()
		case frame, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := w.Write([]byte(frame)); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
