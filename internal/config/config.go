// Package config loads application configuration from environment variables,
// with an optional YAML overlay file for non-secret settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Env identifies the runtime environment.
type Env string

const (
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
)

// Config holds everything the application needs at startup.
type Config struct {
	Env  Env    `yaml:"env"`
	Port string `yaml:"port"`

	DatabaseURL string `yaml:"-"`

	JWTSecret       string        `yaml:"-"`
	JWTExpiresIn    time.Duration `yaml:"jwt_expires_in"`
	CookieExpiresIn time.Duration `yaml:"cookie_expires_in"`

	EmailHost     string `yaml:"email_host"`
	EmailPort     int    `yaml:"email_port"`
	EmailUsername string `yaml:"-"`
	EmailPassword string `yaml:"-"`
	EmailFrom     string `yaml:"email_from"`

	// Requests per second and burst per client IP on the API subtree.
	RateLimit      float64 `yaml:"rate_limit"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	PhotoDir string `yaml:"photo_dir"`

	CORSOrigins []string `yaml:"cors_origins"`
}

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
)

// LoadFromEnv builds a Config from environment variables with defaults.
//
// If CONFIG_FILE is set, the YAML file it points to is applied first and
// environment variables override it. Secrets (DATABASE_URL, JWT_SECRET,
// EMAIL_USERNAME, EMAIL_PASSWORD) only ever come from the environment.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Env:             EnvDevelopment,
		Port:            "5050",
		JWTExpiresIn:    90 * 24 * time.Hour,
		CookieExpiresIn: 90 * 24 * time.Hour,
		RateLimit:       100.0 / 3600, // 100 requests per hour
		RateLimitBurst:  20,
		PhotoDir:        "public/img",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("NODE_ENV"))); v == "production" {
		cfg.Env = EnvProduction
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if v := os.Getenv("JWT_EXPIRES_IN"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return Config{}, err
		}
		cfg.JWTExpiresIn = d
	}
	if v := os.Getenv("JWT_COOKIE_EXPIRES_IN"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return Config{}, err
		}
		cfg.CookieExpiresIn = d
	}
	if v := os.Getenv("EMAIL_HOST"); v != "" {
		cfg.EmailHost = v
	}
	if v := os.Getenv("EMAIL_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, err
		}
		cfg.EmailPort = p
	}
	cfg.EmailUsername = os.Getenv("EMAIL_USERNAME")
	cfg.EmailPassword = os.Getenv("EMAIL_PASSWORD")
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		cfg.EmailFrom = v
	}
	if v := os.Getenv("PHOTO_DIR"); v != "" {
		cfg.PhotoDir = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	return cfg, nil
}

// Validate checks that required settings are present.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// parseDuration accepts Go durations ("90m", "24h") plus a bare-number
// shorthand meaning days ("90" = 90 days).
func parseDuration(s string) (time.Duration, error) {
	if days, err := strconv.Atoi(s); err == nil {
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
