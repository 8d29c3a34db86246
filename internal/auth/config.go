// Package auth provides server-side authentication: bearer tokens bound to
// revocable sessions, request middleware and server configuration.
package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/evcraddock/estate-crm/internal/db"
)

// DefaultTokenTTL is how long a session stays valid after sign-in.
const DefaultTokenTTL = 30 * 24 * time.Hour

// devSecret signs tokens when dev mode is on and no secret is configured.
const devSecret = "ecrm-dev-secret"

// Config holds API server configuration.
type Config struct {
	Addr          string
	DBDriver      string
	DBDSN         string
	JWTSecret     string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string
	AdminName     string
	DevMode       bool
}

// ConfigFromEnv creates a Config from ECRM_* environment variables. A .env
// file in the working directory is loaded first when present; variables
// already set in the environment win.
func ConfigFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Config{
		Addr:          envOrDefault("ECRM_ADDR", ":8080"),
		DBDriver:      envOrDefault("ECRM_DB_DRIVER", db.DriverSQLite),
		DBDSN:         os.Getenv("ECRM_DB_DSN"),
		JWTSecret:     os.Getenv("ECRM_JWT_SECRET"),
		TokenTTL:      DefaultTokenTTL,
		AdminEmail:    os.Getenv("ECRM_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ECRM_ADMIN_PASSWORD"),
		AdminName:     envOrDefault("ECRM_ADMIN_NAME", "Administrator"),
		DevMode:       os.Getenv("ECRM_DEV_MODE") == "true",
	}

	if v := os.Getenv("ECRM_TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing ECRM_TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = ttl
	}

	if cfg.DBDSN == "" && cfg.DBDriver == db.DriverSQLite {
		path, err := db.DefaultPath()
		if err != nil {
			return Config{}, err
		}
		cfg.DBDSN = path
	}

	if cfg.JWTSecret == "" {
		if !cfg.DevMode {
			return Config{}, fmt.Errorf("ECRM_JWT_SECRET is required unless ECRM_DEV_MODE=true")
		}
		cfg.JWTSecret = devSecret
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
