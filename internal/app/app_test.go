package app

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"restaurant-assistant/internal/config"
	"restaurant-assistant/internal/metrics"
	"restaurant-assistant/internal/ratelimit"
)

func metricNames(t *testing.T, a *App) []string {
	t.Helper()
	families, err := a.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	return names
}

func hasPrefix(names []string, prefix string) bool {
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

func TestNewRegistry_RuntimeCollectorsOptIn(t *testing.T) {
	bare := &App{Registry: newRegistry(false)}
	require.False(t, hasPrefix(metricNames(t, bare), "go_"))

	served := &App{Registry: newRegistry(true)}
	require.True(t, hasPrefix(metricNames(t, served), "go_"))
}

func TestNewRegistry_ApplicationMetricsRegister(t *testing.T) {
	a := &App{Registry: newRegistry(false)}
	m := metrics.New(a.Registry)
	m.UnpersistedTurns.Inc()
	require.True(t, hasPrefix(metricNames(t, a), "assistant_"))
}

func TestRateLimitStore_InMemoryWithoutRedis(t *testing.T) {
	a := &App{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := a.rateLimitStore(context.Background(), &config.Config{}, logger)
	require.NoError(t, err)
	require.IsType(t, &ratelimit.MemoryStore{}, store)
	require.Empty(t, a.closers)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, nil)
	require.Error(t, err)
}
