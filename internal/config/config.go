package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the read-only service configuration, loaded once at startup and
// shared by all requests.
type Config struct {
	ListenAddr  string
	Environment string // "dev" or "production"

	PostgresDSN string

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration

	RateBurst     int
	RatePerSecond int
}

const (
	defaultListenAddr = ":8080"
	defaultAccessTTL  = 4 * time.Hour
	defaultRateBurst  = 20
	defaultRatePerSec = 10
)

// Load reads configuration from CLINICORE_* environment variables and fails
// fast on anything unusable. Both signing secrets are required and must
// differ; issuing interchangeable token classes is a deployment error.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:    envOr("CLINICORE_LISTEN_ADDR", defaultListenAddr),
		Environment:   envOr("CLINICORE_ENV", "dev"),
		PostgresDSN:   strings.TrimSpace(os.Getenv("CLINICORE_PG_DSN")),
		AccessSecret:  strings.TrimSpace(os.Getenv("CLINICORE_AUTH_ACCESS_SECRET")),
		RefreshSecret: strings.TrimSpace(os.Getenv("CLINICORE_AUTH_REFRESH_SECRET")),
		AccessTTL:     defaultAccessTTL,
		RateBurst:     defaultRateBurst,
		RatePerSecond: defaultRatePerSec,
	}

	if cfg.Environment != "dev" && cfg.Environment != "production" && cfg.Environment != "test" {
		return Config{}, fmt.Errorf("config: unknown environment %q", cfg.Environment)
	}
	if cfg.AccessSecret == "" {
		return Config{}, errors.New("config: CLINICORE_AUTH_ACCESS_SECRET is required")
	}
	if cfg.RefreshSecret == "" {
		return Config{}, errors.New("config: CLINICORE_AUTH_REFRESH_SECRET is required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return Config{}, errors.New("config: access and refresh secrets must differ")
	}

	if raw := strings.TrimSpace(os.Getenv("CLINICORE_AUTH_ACCESS_TTL")); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return Config{}, fmt.Errorf("config: invalid CLINICORE_AUTH_ACCESS_TTL %q", raw)
		}
		cfg.AccessTTL = ttl
	}
	if raw := strings.TrimSpace(os.Getenv("CLINICORE_RATE_BURST")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: invalid CLINICORE_RATE_BURST %q", raw)
		}
		cfg.RateBurst = n
	}
	if raw := strings.TrimSpace(os.Getenv("CLINICORE_RATE_PER_SECOND")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: invalid CLINICORE_RATE_PER_SECOND %q", raw)
		}
		cfg.RatePerSecond = n
	}

	return cfg, nil
}

// Production reports whether the service runs with production hardening
// (secure cookies).
func (c Config) Production() bool {
	return c.Environment == "production"
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
