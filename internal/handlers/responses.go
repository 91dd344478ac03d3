// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/quistova/shopfront/internal/i18n"
	"github.com/quistova/shopfront/internal/security/password"
)

// MessageResponse is the uniform API envelope. MessageKey lets clients
// localize on their side; Message is the server-side localization.
type MessageResponse struct {
	Message     string `json:"message"`
	MessageKey  string `json:"message_key"`
	ForceLogout bool   `json:"force_logout,omitempty"`
	ChallengeID string `json:"challenge_id,omitempty"`
}

// message builds a localized response from a message key.
func message(c echo.Context, status int, key string) error {
	return c.JSON(status, MessageResponse{
		Message:    i18n.T(c.Request().Context(), key),
		MessageKey: key,
	})
}

// messageForceLogout marks the response so the client drops its credentials.
func messageForceLogout(c echo.Context, status int, key string) error {
	return c.JSON(status, MessageResponse{
		Message:     i18n.T(c.Request().Context(), key),
		MessageKey:  key,
		ForceLogout: true,
	})
}

// policyErrors renders password-policy violations as a 422 with the list of
// problems.
func policyErrors(c echo.Context, err error) (bool, error) {
	var policyErr *password.PolicyError
	if !errors.As(err, &policyErr) {
		return false, nil
	}
	return true, c.JSON(422, map[string]any{
		"message":     policyErr.Error(),
		"message_key": "password_policy",
		"errors":      policyErr.Messages(),
	})
}
