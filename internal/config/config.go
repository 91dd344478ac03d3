// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package config builds the service configuration from CLI flags, environment
// variables and an optional TOML file.
package config

import (
	"fmt"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	Auth     AuthConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

// RedisConfig is optional; with an empty Addr the in-memory rate limiter is
// used instead.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical for config structs
	RegistrationOpen bool
	AccessTokenTTL   time.Duration
	RefreshTTL       time.Duration
	AccessSecret     string // HMAC key for access tokens
	CookieHashKey    string // 32-byte hex for refresh cookie signing
	CookieBlockKey   string // 32-byte hex for refresh cookie encryption
	TOTPIssuer       string
	ResetTokenTTL    time.Duration
	VerifyTokenTTL   time.Duration
}

// NewFromCLI assembles the configuration from a parsed CLI command.
func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Redis: RedisConfig{
			Addr:     cmd.String("redis-addr"),
			Password: cmd.String("redis-password"),
			DB:       int(cmd.Int("redis-db")),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Auth: AuthConfig{
			RegistrationOpen: cmd.Bool("registration-open"),
			AccessTokenTTL:   time.Duration(cmd.Int("access-token-ttl")) * time.Minute,
			RefreshTTL:       time.Duration(cmd.Int("refresh-ttl")) * time.Hour,
			AccessSecret:     cmd.String("access-secret"),
			CookieHashKey:    cmd.String("cookie-hash-key"),
			CookieBlockKey:   cmd.String("cookie-block-key"),
			TOTPIssuer:       cmd.String("totp-issuer"),
			ResetTokenTTL:    time.Duration(cmd.Int("reset-token-ttl")) * time.Minute,
			VerifyTokenTTL:   time.Duration(cmd.Int("verify-token-ttl")) * time.Hour,
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	return cfg
}

// CookieSecure reports whether auth cookies must carry the Secure attribute.
func (c *Config) CookieSecure() bool {
	return len(c.Server.BaseURL) >= 8 && c.Server.BaseURL[:8] == "https://"
}

// Flags returns all CLI flags, each backed by an env var and the TOML file.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL used in emailed links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/shopfront.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address for rate limiting (empty: in-memory limiter)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_ADDR"), toml.TOML("redis.addr", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_PASSWORD"), toml.TOML("redis.password", configFile)),
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Redis database number",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_DB"), toml.TOML("redis.db", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address for account emails",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Shopfront",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.BoolFlag{
			Name:    "registration-open",
			Value:   true,
			Usage:   "Allow self-service registration",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REGISTRATION_OPEN"), toml.TOML("auth.registration_open", configFile)),
		},
		&cli.IntFlag{
			Name:    "access-token-ttl",
			Value:   15,
			Usage:   "Access token lifetime in minutes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ACCESS_TOKEN_TTL"), toml.TOML("auth.access_token_ttl", configFile)),
		},
		&cli.IntFlag{
			Name:    "refresh-ttl",
			Value:   720,
			Usage:   "Refresh session lifetime in hours",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REFRESH_TTL"), toml.TOML("auth.refresh_ttl", configFile)),
		},
		&cli.StringFlag{
			Name:    "access-secret",
			Usage:   "HMAC secret for access tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ACCESS_SECRET"), toml.TOML("auth.access_secret", configFile)),
		},
		&cli.StringFlag{
			Name:    "cookie-hash-key",
			Usage:   "Refresh cookie hash key (32-byte hex)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("COOKIE_HASH_KEY"), toml.TOML("auth.cookie_hash_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "cookie-block-key",
			Usage:   "Refresh cookie block key for encryption (32-byte hex)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("COOKIE_BLOCK_KEY"), toml.TOML("auth.cookie_block_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "totp-issuer",
			Value:   "Shopfront",
			Usage:   "Issuer shown in authenticator apps",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TOTP_ISSUER"), toml.TOML("auth.totp_issuer", configFile)),
		},
		&cli.IntFlag{
			Name:    "reset-token-ttl",
			Value:   60,
			Usage:   "Password-reset token lifetime in minutes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RESET_TOKEN_TTL"), toml.TOML("auth.reset_token_ttl", configFile)),
		},
		&cli.IntFlag{
			Name:    "verify-token-ttl",
			Value:   24,
			Usage:   "Email-verification token lifetime in hours",
			Sources: cli.NewValueSourceChain(cli.EnvVar("VERIFY_TOKEN_TTL"), toml.TOML("auth.verify_token_ttl", configFile)),
		},
	}
}
