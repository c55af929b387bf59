// config.go

// Environment variable loading and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// devAdminKey is the admin key used when ADMIN_KEY is unset outside production.
// Never accepted when APP_ENV=production.
const devAdminKey = "feedboard-dev-admin-key"

// Config holds all env configuration vars for feedboard.
type Config struct {
	DatabaseURL string
	RedisURL    string // optional; empty disables rate limiting and the state ledger
	Port        string
	LogLevel    slog.Level

	// Environment is "production" or "development".
	Environment string

	// AppBaseURL is the public origin, without trailing slash. The OAuth callback is AppBaseURL + "/linux".
	AppBaseURL string

	// SessionSecret signs session tokens (HS256).
	SessionSecret []byte
	// SessionTTL defaults to 30 days.
	SessionTTL time.Duration

	// AdminKey is the shared secret for admin escalation.
	AdminKey string
	// AdminKeyIsDefault is true when AdminKey fell back to the development default.
	AdminKeyIsDefault bool

	// Linux DO Connect. Endpoint URLs may be left empty when LinuxDoIssuer is set;
	// discovery fills in whatever is missing.
	LinuxDoClientID     string
	LinuxDoClientSecret string
	LinuxDoAuthURL      string
	LinuxDoTokenURL     string
	LinuxDoUserinfoURL  string
	LinuxDoIssuer       string

	// OAuthTimeout bounds each outbound call to the identity provider.
	OAuthTimeout time.Duration

	// Rate limit policy for admin key attempts per client IP.
	// Defaults: max=5, window=15m, lockout=15m.
	RateAdminMax     int
	RateAdminWindow  time.Duration
	RateAdminLockout time.Duration
}

// LoadConfig reads environment variables and returns a validated Config.
// A .env file in the working directory is loaded first if present; real env vars win.
// Returns an error if required variables (DATABASE_URL, SESSION_SECRET) are missing,
// or if ADMIN_KEY is missing in production.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}

	cfg.DatabaseURL = get("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	secret := get("SESSION_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required (use 32+ random characters)")
	}
	cfg.SessionSecret = []byte(secret)

	cfg.RedisURL = get("REDIS_URL")

	cfg.Port = get("PORT")
	if cfg.Port == "" {
		cfg.Port = "7865"
	}

	// Parse log level, default to info
	switch strings.ToLower(get("LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	switch strings.ToLower(get("APP_ENV")) {
	case "production", "prod":
		cfg.Environment = "production"
	default:
		cfg.Environment = "development"
	}

	cfg.AppBaseURL = strings.TrimRight(get("APP_BASE_URL"), "/")
	if cfg.AppBaseURL == "" {
		cfg.AppBaseURL = "http://localhost:" + cfg.Port
	}

	cfg.AdminKey = get("ADMIN_KEY")
	if cfg.AdminKey == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("ADMIN_KEY is required when APP_ENV=production")
		}
		cfg.AdminKey = devAdminKey
		cfg.AdminKeyIsDefault = true
	}

	cfg.LinuxDoClientID = get("LINUXDO_CLIENT_ID")
	cfg.LinuxDoClientSecret = get("LINUXDO_CLIENT_SECRET")
	cfg.LinuxDoAuthURL = get("LINUXDO_AUTH_URL")
	cfg.LinuxDoTokenURL = get("LINUXDO_TOKEN_URL")
	cfg.LinuxDoUserinfoURL = get("LINUXDO_USERINFO_URL")
	cfg.LinuxDoIssuer = get("LINUXDO_ISSUER")

	cfg.OAuthTimeout = envDuration("OAUTH_TIMEOUT", 10*time.Second)
	cfg.SessionTTL = envDuration("SESSION_TTL", 30*24*time.Hour)

	cfg.RateAdminMax = envInt("RATE_ADMIN_MAX", 5)
	cfg.RateAdminWindow = envDuration("RATE_ADMIN_WINDOW", 15*time.Minute)
	cfg.RateAdminLockout = envDuration("RATE_ADMIN_LOCKOUT", 15*time.Minute)

	return cfg, nil
}

// IsProduction reports whether APP_ENV selected production.
func (c *Config) IsProduction() bool { return c.Environment == "production" }

// CookieSecure reports whether cookies should carry the Secure attribute,
// i.e. whether the public base URL is served over TLS.
func (c *Config) CookieSecure() bool {
	return strings.HasPrefix(strings.ToLower(c.AppBaseURL), "https://")
}

// LinuxDoMissing returns the env var names still needed before Linux DO login can run.
// Endpoint URLs are not reported when an issuer is configured for discovery.
func (c *Config) LinuxDoMissing() []string {
	var missing []string
	if c.LinuxDoClientID == "" {
		missing = append(missing, "LINUXDO_CLIENT_ID")
	}
	if c.LinuxDoClientSecret == "" {
		missing = append(missing, "LINUXDO_CLIENT_SECRET")
	}
	if c.LinuxDoIssuer != "" {
		return missing
	}
	if c.LinuxDoAuthURL == "" {
		missing = append(missing, "LINUXDO_AUTH_URL")
	}
	if c.LinuxDoTokenURL == "" {
		missing = append(missing, "LINUXDO_TOKEN_URL")
	}
	if c.LinuxDoUserinfoURL == "" {
		missing = append(missing, "LINUXDO_USERINFO_URL")
	}
	return missing
}

// get reads an env var with surrounding whitespace trimmed.
func get(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// envInt reads an env var as int, returning def if missing or unparseable.
func envInt(key string, def int) int {
	v := get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

// envDuration reads an env var as time.Duration, returning def if missing or unparseable.
func envDuration(key string, def time.Duration) time.Duration {
	v := get(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
