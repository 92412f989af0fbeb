package routing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/forecaster/internal/core/domain"
	"github.com/vietddude/forecaster/internal/infra/store"
	"github.com/vietddude/forecaster/internal/metrics"
)

// Sweeper is the bulk health sweep, invoked out-of-band by an external
// scheduler. It probes every registered provider, persists a health record
// for each, and invalidates outstanding routing assignments when a
// provider transitions from unhealthy back to healthy so callers re-run
// selection instead of staying stuck on their outage-era assignment.
type Sweeper struct {
	registry *Registry
	store    store.Store
	health   *HealthManager

	now func() time.Time
}

// NewSweeper creates a sweeper over the registry.
func NewSweeper(registry *Registry, s store.Store, health *HealthManager) *Sweeper {
	return &Sweeper{
		registry: registry,
		store:    s,
		health:   health,
		now:      time.Now,
	}
}

// Run probes every provider once and returns the per-provider result map.
func (s *Sweeper) Run(ctx context.Context) map[string]bool {
	slog.Info("Starting health sweep", "providers", s.registry.Len())

	results := make(map[string]bool, s.registry.Len())
	for _, p := range s.registry.All() {
		name := p.Name()
		ok := p.Probe(ctx)
		results[name] = ok

		result := "unhealthy"
		if ok {
			result = "healthy"
		}
		metrics.ProbesTotal.WithLabelValues(name, result).Inc()

		previous := s.health.ReadHealth(ctx, name).Status

		rec := domain.HealthRecord{
			Status:        domain.HealthHealthy,
			LastCheckedAt: s.now(),
		}
		if !ok {
			rec.Status = domain.HealthUnhealthy
			rec.LastError = "probe returned unhealthy"
			slog.Warn("Provider unhealthy", "provider", name)
		}
		s.health.WriteHealth(ctx, name, rec)

		if ok && previous == domain.HealthUnhealthy {
			s.handleRecovery(ctx, name)
		}
	}

	slog.Info("Health sweep completed", "results", results)
	return results
}

// handleRecovery runs when a provider comes back. All assignments are
// invalidated, not just those pointing at the recovered provider:
// assignments are not indexed by provider.
func (s *Sweeper) handleRecovery(ctx context.Context, name string) {
	slog.Info("Recovery detected, invalidating routing assignments", "provider", name)
	s.health.ClearFailed(ctx, name)

	n, err := s.store.DeleteMatching(ctx, assignmentPattern())
	if errors.Is(err, store.ErrPatternUnsupported) {
		slog.Warn("Pattern delete not supported, assignments expire via TTL instead")
		return
	}
	if err != nil {
		slog.Error("Failed to invalidate routing assignments", "error", err)
		return
	}

	metrics.AssignmentInvalidationsTotal.Add(float64(n))
	slog.Info("Routing assignments invalidated", "count", n)
}
