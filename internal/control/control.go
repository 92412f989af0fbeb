// Package control wires the application together and owns its lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vietddude/forecaster/internal/core/config"
	"github.com/vietddude/forecaster/internal/core/domain"
	"github.com/vietddude/forecaster/internal/infra/provider"
	"github.com/vietddude/forecaster/internal/infra/storage/postgres"
	"github.com/vietddude/forecaster/internal/infra/store"
	"github.com/vietddude/forecaster/internal/routing"
	"github.com/vietddude/forecaster/internal/server"
)

// App is the assembled forecast routing service.
type App struct {
	server  *server.Server
	store   *store.RedisStore
	db      *postgres.DB
	sweeper *routing.Sweeper
	closers []io.Closer
}

// New builds the full application from configuration.
func New(cfg *config.AppConfig) (*App, error) {
	redisStore, err := store.NewRedisStore(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("init redis store: %w", err)
	}

	providers, closers, err := BuildProviders(context.Background(), cfg.Providers)
	if err != nil {
		_ = redisStore.Close()
		return nil, err
	}

	registry := routing.NewRegistry(providers...)
	health := routing.NewHealthManager(
		redisStore,
		registry,
		cfg.Routing.RetryInterval.Std(),
		cfg.Routing.FailureMarkTTL.Std(),
		cfg.Routing.DefaultProvider,
	)
	recorder := routing.NewRecorder(redisStore, cfg.Routing.MetricsWindow.Std())
	dispatcher := routing.NewDispatcher(
		registry,
		health,
		redisStore,
		recorder,
		domain.RouteScope(cfg.Routing.Scope),
		cfg.Routing.AssignmentTTL.Std(),
	)
	sweeper := routing.NewSweeper(registry, redisStore, health)

	var (
		db      *postgres.DB
		history *postgres.HistoryRepo
	)
	if cfg.Database.Enabled() {
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			_ = redisStore.Close()
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if err := db.Migrate(context.Background()); err != nil {
			_ = db.Close()
			_ = redisStore.Close()
			return nil, err
		}
		history = postgres.NewHistoryRepo(db)
		slog.Info("Call history persistence enabled")
	}

	srv := server.New(cfg.Server.Port, dispatcher, registry, health, recorder, history)

	return &App{
		server:  srv,
		store:   redisStore,
		db:      db,
		sweeper: sweeper,
		closers: closers,
	}, nil
}

// BuildProviders constructs the configured providers in listed order and
// returns any that need closing.
func BuildProviders(
	ctx context.Context,
	configs []config.ProviderConfig,
) ([]provider.Provider, []io.Closer, error) {
	providers := make([]provider.Provider, 0, len(configs))
	var closers []io.Closer

	for _, pc := range configs {
		switch pc.Type {
		case "scraping":
			providers = append(providers, provider.NewScrapingProvider(pc.Name, pc.URL, pc.Timeout.Std()))
		case "external":
			providers = append(providers, provider.NewExternalProvider(
				pc.Name, pc.URL, pc.APIKey, pc.CostPerCall, pc.Timeout.Std()))
		case "grpc":
			p, err := provider.NewGRPCProvider(ctx, pc.Name, pc.URL, pc.CostPerCall)
			if err != nil {
				for _, c := range closers {
					_ = c.Close()
				}
				return nil, nil, fmt.Errorf("init provider %s: %w", pc.Name, err)
			}
			providers = append(providers, p)
			closers = append(closers, p)
		default:
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, fmt.Errorf("unknown provider type %q", pc.Type)
		}
	}

	return providers, closers, nil
}

// Sweeper exposes the bulk health sweep for out-of-band triggers.
func (a *App) Sweeper() *routing.Sweeper {
	return a.sweeper
}

// Start launches the HTTP server.
func (a *App) Start(ctx context.Context) error {
	go func() {
		slog.Info("HTTP server starting")
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts everything down gracefully.
func (a *App) Stop(ctx context.Context) error {
	var firstErr error

	if err := a.server.Stop(ctx); err != nil {
		firstErr = err
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}
