package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata" // Lambda base images ship without zoneinfo

	"github.com/caarlos0/env/v6"
)

type Config struct {
	// Storage
	StateTable  string `env:"STATE_TABLE,required"`
	ParamPrefix string `env:"PARAM_PREFIX,required"`

	// Engine limits
	MaxContextItems  int           `env:"MAX_CONTEXT_ITEMS" envDefault:"20"`
	MaxMessageLength int           `env:"MAX_MESSAGE_LENGTH" envDefault:"1000"`
	UpstreamTimeout  time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"3s"`
	MaxSuggestions   int           `env:"MAX_SUGGESTIONS" envDefault:"3"`
	MealTimezone     string        `env:"MEAL_TIMEZONE" envDefault:"UTC"`
	ProfileCacheTTL  time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"5m"`

	// Optional integrations
	RateLimitRedisURL    string `env:"RATE_LIMIT_REDIS_URL"`
	WeatherLookupEnabled bool   `env:"WEATHER_LOOKUP_ENABLED" envDefault:"false"`

	// Local server
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if strings.TrimSpace(cfg.StateTable) == "" || strings.TrimSpace(cfg.ParamPrefix) == "" {
		return nil, errors.New("config: STATE_TABLE and PARAM_PREFIX must not be empty")
	}
	if cfg.MaxContextItems <= 0 || cfg.MaxMessageLength <= 0 || cfg.MaxSuggestions <= 0 {
		return nil, errors.New("config: limits must be positive")
	}
	if cfg.UpstreamTimeout <= 0 {
		return nil, errors.New("config: UPSTREAM_TIMEOUT must be positive")
	}
	if _, err := time.LoadLocation(cfg.MealTimezone); err != nil {
		return nil, fmt.Errorf("config: MEAL_TIMEZONE: %w", err)
	}
	cfg.ParamPrefix = strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	return cfg, nil
}

// RequireSharedRateLimit fails unless rate-limit windows live in Redis. Each
// Lambda execution environment has its own memory, so in-memory windows
// would give every concurrent environment a fresh budget.
func (c *Config) RequireSharedRateLimit() error {
	if strings.TrimSpace(c.RateLimitRedisURL) == "" {
		return errors.New("config: RATE_LIMIT_REDIS_URL is required when running on Lambda")
	}
	return nil
}

// MealLocation is the timezone the recommendation meal-time fallback uses.
func (c *Config) MealLocation() *time.Location {
	loc, err := time.LoadLocation(c.MealTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(c.LogLevel)))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
