// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package server wires the application together and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/quistova/shopfront/internal/config"
	"github.com/quistova/shopfront/internal/database"
	"github.com/quistova/shopfront/internal/handlers"
	"github.com/quistova/shopfront/internal/i18n"
	"github.com/quistova/shopfront/internal/limiter"
	"github.com/quistova/shopfront/internal/mailer"
	"github.com/quistova/shopfront/internal/metrics"
	"github.com/quistova/shopfront/internal/models"
	"github.com/quistova/shopfront/internal/realtime"
	"github.com/quistova/shopfront/internal/repository"
	accountsvc "github.com/quistova/shopfront/internal/services/account"
	securitysvc "github.com/quistova/shopfront/internal/services/security"
	"github.com/quistova/shopfront/internal/session"
	"github.com/quistova/shopfront/internal/token"
	"github.com/quistova/shopfront/internal/twofactor"
)

// tokenPurgeInterval drives the expired-token janitor.
const tokenPurgeInterval = time.Hour

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	repo := repository.New(db)
	m := metrics.New()

	// Realtime hub, gauge tracks connected clients
	hub := realtime.NewHub(func(delta int) {
		m.RealtimeClients.Add(float64(delta))
	})

	// Mail, delivered off the request path
	var dispatch mailer.Dispatcher
	if cfg.SMTP.Host != "" {
		smtp, smtpErr := mailer.NewSMTP(&cfg.SMTP)
		if smtpErr != nil {
			return fmt.Errorf("failed to configure SMTP: %w", smtpErr)
		}
		dispatch = smtp
	} else {
		slog.Warn("smtp not configured, security emails disabled")
	}

	var async *mailer.Async
	if dispatch != nil {
		async = mailer.NewAsync(dispatch, 256, func(template, outcome string) {
			m.EmailsDispatched.WithLabelValues(template, outcome).Inc()
		})
		dispatch = async
	}

	// Rate limiter, redis when configured
	var lim limiter.Limiter
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				slog.Error("failed to close redis", "error", closeErr)
			}
		}()
		lim = limiter.NewRedis(client, 10, time.Minute)
	} else {
		lim = limiter.NewMemory(10, time.Minute)
	}

	// Domain services
	tokens := token.NewService(repo, token.WithObserver(func(purpose models.TokenPurpose, outcome string) {
		if outcome == "issued" {
			m.TokensIssued.WithLabelValues(string(purpose)).Inc()
			return
		}
		m.TokensConsumed.WithLabelValues(string(purpose), outcome).Inc()
	}))

	sessions := session.NewRegistry(repo, &cfg.Auth, session.WithRevocationObserver(func(count int64) {
		m.SessionsRevoked.Add(float64(count))
	}))

	access, err := session.NewAccessTokens(cfg.Auth.AccessSecret, cfg.Auth.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to configure access tokens: %w", err)
	}

	cookies, err := session.NewCookies(cfg.Auth.CookieHashKey, cfg.Auth.CookieBlockKey,
		cfg.CookieSecure(), cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTTL)
	if err != nil {
		return fmt.Errorf("failed to configure cookies: %w", err)
	}

	twoFactor := twofactor.NewController(repo, cfg.Auth.TOTPIssuer)
	challenges := twofactor.NewChallengeStore()

	accounts := accountsvc.NewService(repo, tokens, challenges, dispatch, cfg)
	orchestrator := securitysvc.NewOrchestrator(repo, sessions, tokens, twoFactor, hub, dispatch, cfg)

	h := handlers.New(repo, accounts, orchestrator, twoFactor, sessions, access, cookies, hub, lim, m, cfg)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg, h)
	setupRoutes(e, h, m)

	return run(ctx, e, cfg, async, tokens)
}

// run starts the background workers and the HTTP server and blocks until a
// signal or a fatal error stops them.
func run(ctx context.Context, e *echo.Echo, cfg *config.Config, async *mailer.Async, tokens *token.Service) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if async != nil {
		async.Start(ctx)
	}

	// Expired-token janitor
	g.Go(func() error {
		ticker := time.NewTicker(tokenPurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if purged, err := tokens.PurgeExpired(ctx); err != nil {
					slog.Warn("token_purge_failed", "error", err)
				} else if purged > 0 {
					slog.Debug("tokens_purged", "count", purged)
				}
			}
		}
	})

	// HTTP server
	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		slog.Info("server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Shutdown on cancellation
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		return err
	}

	slog.Info("server stopped")
	return nil
}
