// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package handlers contains the HTTP layer. Handlers translate between the
// JSON API and the services; validation errors in, localized messages out.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quistova/shopfront/internal/config"
	"github.com/quistova/shopfront/internal/limiter"
	"github.com/quistova/shopfront/internal/metrics"
	"github.com/quistova/shopfront/internal/realtime"
	"github.com/quistova/shopfront/internal/repository"
	"github.com/quistova/shopfront/internal/services/account"
	"github.com/quistova/shopfront/internal/services/security"
	"github.com/quistova/shopfront/internal/session"
	"github.com/quistova/shopfront/internal/twofactor"
)

// Handlers bundles the dependencies shared by all HTTP handlers.
type Handlers struct {
	repo      *repository.Repository
	accounts  *account.Service
	security  *security.Orchestrator
	twoFactor *twofactor.Controller
	sessions  *session.Registry
	access    *session.AccessTokens
	cookies   *session.Cookies
	hub       *realtime.Hub
	limiter   limiter.Limiter
	metrics   *metrics.Metrics
	cfg       *config.Config
}

// New creates a new Handlers instance.
func New(
	repo *repository.Repository,
	accounts *account.Service,
	sec *security.Orchestrator,
	twoFactor *twofactor.Controller,
	sessions *session.Registry,
	access *session.AccessTokens,
	cookies *session.Cookies,
	hub *realtime.Hub,
	lim limiter.Limiter,
	m *metrics.Metrics,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		repo:      repo,
		accounts:  accounts,
		security:  sec,
		twoFactor: twoFactor,
		sessions:  sessions,
		access:    access,
		cookies:   cookies,
		hub:       hub,
		limiter:   lim,
		metrics:   m,
		cfg:       cfg,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
