package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"restaurant-assistant/internal/app"
	"restaurant-assistant/internal/config"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	if err := cfg.RequireSharedRateLimit(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// ---- Wiring ----
	// Nothing scrapes a Lambda environment; the registry only backs the
	// application counters, so runtime collectors stay off.
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to build assistant", "err", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	lambda.Start(a.Handler.Handle)
}
