package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/desertthunder/reeltrack/internal/services"
	"github.com/desertthunder/reeltrack/internal/shared"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	if v := os.Getenv("REELTRACK_CONFIG"); v != "" {
		configPath = v
	}

	config, err := shared.LoadOrDefault(configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		config = shared.DefaultConfig()
		config.ApplyEnv()
	}
	shared.SetLogLevel(logger, shared.ParseLevel(config.Log.Level))

	httpClient := &http.Client{
		Timeout:   config.Backend.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		API:        services.NewAPIService(config.Backend.BaseURL, httpClient),
		HTTPClient: httpClient,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "reeltrack",
		Usage:    "Discover movies and series, read reviews and keep a watchlist",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotAuthenticated):
			logger.Fatal("not signed in", "error", err)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
