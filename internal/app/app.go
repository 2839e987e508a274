// Package app assembles the assistant from configuration. Both binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"restaurant-assistant/handler"
	"restaurant-assistant/internal/config"
	"restaurant-assistant/internal/escalation"
	"restaurant-assistant/internal/faq"
	"restaurant-assistant/internal/integrations/openweather"
	"restaurant-assistant/internal/integrations/paramstore"
	"restaurant-assistant/internal/intent"
	"restaurant-assistant/internal/metrics"
	"restaurant-assistant/internal/ratelimit"
	"restaurant-assistant/internal/recommend"
	"restaurant-assistant/internal/repository"
	"restaurant-assistant/internal/usecase"
)

type App struct {
	Handler  *handler.Handler
	Registry *prometheus.Registry

	closers []func() error
}

type options struct {
	runtimeMetrics bool
}

type Option func(*options)

// WithRuntimeMetrics adds Go runtime and process collectors to the registry.
// Only worth it when something serves the registry.
func WithRuntimeMetrics() Option {
	return func(o *options) { o.runtimeMetrics = true }
}

// New builds every collaborator. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{Registry: newRegistry(o.runtimeMetrics)}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()
	m := metrics.New(a.Registry)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}

	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: create SSM client: %w", err)
	}
	repo, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
	if err != nil {
		return nil, fmt.Errorf("app: create repository: %w", err)
	}
	profiles, err := paramstore.NewProfileStore(ssmClient, cfg.ParamPrefix, cfg.ProfileCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("app: create profile store: %w", err)
	}

	store, err := a.rateLimitStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	limiter, err := ratelimit.New(store, time.Now)
	if err != nil {
		return nil, fmt.Errorf("app: create rate limiter: %w", err)
	}

	responder, err := faq.NewResponder(profiles, time.Now, logger)
	if err != nil {
		return nil, fmt.Errorf("app: create faq responder: %w", err)
	}
	engine, err := recommend.NewEngine(repo,
		recommend.WithLimit(cfg.MaxSuggestions),
		recommend.WithLocation(cfg.MealLocation()),
	)
	if err != nil {
		return nil, fmt.Errorf("app: create recommendation engine: %w", err)
	}

	deps := usecase.ConversationDeps{
		Store:       repo,
		Limiter:     limiter,
		Classifier:  intent.New(),
		FAQ:         responder,
		Recommender: engine,
		Policy:      escalation.NewPolicy(escalation.DefaultLowConfidence, escalation.DefaultStreak),
		Metrics:     m,
		Logger:      logger,
	}
	if cfg.WeatherLookupEnabled {
		weather, err := openweather.NewClient(ssmClient, cfg.ParamPrefix)
		if err != nil {
			return nil, fmt.Errorf("app: create weather client: %w", err)
		}
		deps.Profiles = profiles
		deps.Weather = weather
	}
	conv, err := usecase.NewConversationService(deps, usecase.ConversationLimits{
		MaxContextItems:  cfg.MaxContextItems,
		MaxMessageLength: cfg.MaxMessageLength,
		UpstreamTimeout:  cfg.UpstreamTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("app: create conversation service: %w", err)
	}
	feedback, err := usecase.NewFeedbackService(repo, limiter, m, logger, cfg.UpstreamTimeout)
	if err != nil {
		return nil, fmt.Errorf("app: create feedback service: %w", err)
	}

	a.Handler, err = handler.NewHandler(conv, feedback, logger)
	if err != nil {
		return nil, fmt.Errorf("app: create handler: %w", err)
	}
	return a, nil
}

func newRegistry(runtime bool) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if runtime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return reg
}

// rateLimitStore uses Redis when configured so every instance shares windows;
// otherwise windows are per process.
func (a *App) rateLimitStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ratelimit.Store, error) {
	if cfg.RateLimitRedisURL == "" {
		logger.Warn("rate limiting with in-memory windows; budgets are per process")
		return ratelimit.NewMemoryStore(), nil
	}
	rdb, err := ratelimit.NewRedisClient(ctx, cfg.RateLimitRedisURL)
	if err != nil {
		return nil, fmt.Errorf("app: connect rate-limit redis: %w", err)
	}
	a.closers = append(a.closers, rdb.Close)
	store, err := ratelimit.NewRedisStore(rdb)
	if err != nil {
		return nil, fmt.Errorf("app: create redis rate-limit store: %w", err)
	}
	logger.Info("rate limiting with redis windows")
	return store, nil
}

// Close releases connections opened by New.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
