// Command healthsweep runs one bulk health sweep and exits. Intended to be
// invoked periodically by cron or any external scheduler; exits non-zero
// when any provider is unhealthy.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/forecaster/internal/control"
	"github.com/vietddude/forecaster/internal/core/config"
	"github.com/vietddude/forecaster/internal/infra/store"
	"github.com/vietddude/forecaster/internal/routing"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	timeout := flag.Duration("timeout", 60*time.Second, "Sweep deadline")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(
		&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})

	redisStore, err := store.NewRedisStore(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	providers, closers, err := control.BuildProviders(ctx, cfg.Providers)
	if err != nil {
		slog.Error("Failed to build providers", "error", err)
		os.Exit(1)
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	registry := routing.NewRegistry(providers...)
	health := routing.NewHealthManager(
		redisStore,
		registry,
		cfg.Routing.RetryInterval.Std(),
		cfg.Routing.FailureMarkTTL.Std(),
		cfg.Routing.DefaultProvider,
	)
	sweeper := routing.NewSweeper(registry, redisStore, health)

	results := sweeper.Run(ctx)

	unhealthy := 0
	for name, ok := range results {
		if ok {
			slog.Info("Provider healthy", "provider", name)
		} else {
			slog.Warn("Provider unhealthy", "provider", name)
			unhealthy++
		}
	}

	if unhealthy > 0 {
		os.Exit(1)
	}
}
