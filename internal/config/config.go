// Package config loads this service's process configuration from the
// environment (optionally via a .env file for local development).
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is every setting this service needs that isn't itself part of
// the cached, Storage-backed AuthConfig (login-allowed, per-provider
// enablement, token lifetimes — see internal/domain.AuthConfig).
type Config struct {
	Env      string
	HTTPAddr string

	DBAddr        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RabbitURL     string

	ConfigCacheRefreshInterval time.Duration
	OAuthStateTTL              time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	PasswordResetBaseURL string

	GlobusClientID         string
	GlobusClientSecret     string
	GlobusLoginBaseURL     string
	GlobusAPIBaseURL       string
	GlobusImageURI         string
	GlobusLoginRedirectURL string
	GlobusLinkRedirectURL  string

	GoogleClientID         string
	GoogleClientSecret     string
	GoogleImageURI         string
	GoogleLoginRedirectURL string
	GoogleLinkRedirectURL  string

	RootUserName     string
	RootInitPassword string

	DBDebug bool
}

// Load reads a .env file if one is present (missing is not an error,
// real deployments set the environment directly) and then parses
// Config from the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using process environment")
	}

	cfg := &Config{}

	cfg.Env = getEnvFirst([]string{"APP_ENV", "ENV"}, "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.DBAddr = strings.TrimSpace(os.Getenv("DB_ADDR"))
	if cfg.DBAddr == "" {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}
	if err := validatePostgresDSN(cfg.DBAddr); err != nil {
		return nil, fmt.Errorf("invalid DB_ADDR: %w", err)
	}

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("missing required env var: REDIS_ADDR")
	}
	cfg.RedisPassword = strings.TrimSpace(os.Getenv("REDIS_PASSWORD"))

	var err error
	cfg.RedisDB, err = getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg.RabbitURL = strings.TrimSpace(os.Getenv("RABBIT_URL"))
	if cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}

	cfg.ConfigCacheRefreshInterval, err = getDuration("CONFIG_CACHE_REFRESH_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.OAuthStateTTL, err = getDuration("OAUTH_STATE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.PasswordResetBaseURL = strings.TrimSpace(os.Getenv("PASSWORD_RESET_BASE_URL"))
	if cfg.PasswordResetBaseURL == "" {
		return nil, fmt.Errorf("missing required env var: PASSWORD_RESET_BASE_URL")
	}
	if !strings.Contains(cfg.PasswordResetBaseURL, "token=") {
		return nil, fmt.Errorf("PASSWORD_RESET_BASE_URL must contain `token=`")
	}

	// Globus is optional: a deployment with no OAuth provider configured
	// still runs local-password-only.
	cfg.GlobusClientID = getEnv("GLOBUS_CLIENT_ID", "")
	cfg.GlobusClientSecret = getEnv("GLOBUS_CLIENT_SECRET", "")
	cfg.GlobusLoginBaseURL = getEnv("GLOBUS_LOGIN_BASE_URL", "https://auth.globus.org")
	cfg.GlobusAPIBaseURL = getEnv("GLOBUS_API_BASE_URL", "https://auth.globus.org")
	cfg.GlobusImageURI = getEnv("GLOBUS_IMAGE_URI", "")
	cfg.GlobusLoginRedirectURL = getEnv("GLOBUS_LOGIN_REDIRECT_URL", "")
	cfg.GlobusLinkRedirectURL = getEnv("GLOBUS_LINK_REDIRECT_URL", "")

	// Google is a second, simpler identity provider demonstrating the
	// same IdentityProvider interface against an OIDC-shaped wire
	// format; also optional.
	cfg.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", "")
	cfg.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", "")
	cfg.GoogleImageURI = getEnv("GOOGLE_IMAGE_URI", "")
	cfg.GoogleLoginRedirectURL = getEnv("GOOGLE_LOGIN_REDIRECT_URL", "")
	cfg.GoogleLinkRedirectURL = getEnv("GOOGLE_LINK_REDIRECT_URL", "")

	cfg.RootUserName = getEnv("ROOT_USERNAME", "root")
	cfg.RootInitPassword = strings.TrimSpace(os.Getenv("ROOT_INIT_PASSWORD"))
	if cfg.Env == "prod" && cfg.RootInitPassword == "" {
		return nil, fmt.Errorf("ROOT_INIT_PASSWORD must be set in prod")
	}

	cfg.DBDebug = parseBool(getEnv("DB_DEBUG", "false"))

	return cfg, nil
}

// GlobusConfigured reports whether enough Globus settings are present
// to register the provider at all.
func (c *Config) GlobusConfigured() bool {
	return c.GlobusClientID != "" && c.GlobusClientSecret != ""
}

// GoogleConfigured reports whether enough Google settings are present
// to register the provider at all.
func (c *Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFirst(keys []string, def string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("scheme must be postgres/postgresql, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	if strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("missing database name in path, expected /<db>")
	}
	return nil
}
