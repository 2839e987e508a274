package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STATE_TABLE", "assistant-state")
	t.Setenv("PARAM_PREFIX", "/assistant/prod/")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "assistant-state", cfg.StateTable)
	require.Equal(t, "/assistant/prod", cfg.ParamPrefix)
	require.Equal(t, 20, cfg.MaxContextItems)
	require.Equal(t, 1000, cfg.MaxMessageLength)
	require.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	require.Equal(t, 3, cfg.MaxSuggestions)
	require.False(t, cfg.WeatherLookupEnabled)
	require.Empty(t, cfg.RateLimitRedisURL)
	require.Equal(t, 8080, cfg.HTTPPort)
	require.Equal(t, time.UTC, cfg.MealLocation())
	require.Equal(t, 5*time.Minute, cfg.ProfileCacheTTL)
	require.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestRequireSharedRateLimit(t *testing.T) {
	cfg := &Config{}
	require.ErrorContains(t, cfg.RequireSharedRateLimit(), "RATE_LIMIT_REDIS_URL")

	cfg.RateLimitRedisURL = " "
	require.Error(t, cfg.RequireSharedRateLimit())

	cfg.RateLimitRedisURL = "redis://cache:6379/0"
	require.NoError(t, cfg.RequireSharedRateLimit())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STATE_TABLE", "t")
	t.Setenv("PARAM_PREFIX", "/p")
	t.Setenv("UPSTREAM_TIMEOUT", "750ms")
	t.Setenv("WEATHER_LOOKUP_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 750*time.Millisecond, cfg.UpstreamTimeout)
	require.True(t, cfg.WeatherLookupEnabled)
	require.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("STATE_TABLE", "")
	t.Setenv("PARAM_PREFIX", "/p")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsNonPositiveLimits(t *testing.T) {
	t.Setenv("STATE_TABLE", "t")
	t.Setenv("PARAM_PREFIX", "/p")
	t.Setenv("MAX_SUGGESTIONS", "0")
	_, err := Load()
	require.Error(t, err)
}

func TestLoad_MealTimezone(t *testing.T) {
	t.Setenv("STATE_TABLE", "t")
	t.Setenv("PARAM_PREFIX", "/p")
	t.Setenv("MEAL_TIMEZONE", "Asia/Ho_Chi_Minh")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Asia/Ho_Chi_Minh", cfg.MealLocation().String())

	t.Setenv("MEAL_TIMEZONE", "Mars/Olympus_Mons")
	_, err = Load()
	require.Error(t, err)
}

func TestSlogLevel_Unknown(t *testing.T) {
	require.Equal(t, slog.LevelInfo, (&Config{LogLevel: "chatty"}).SlogLevel())
}
