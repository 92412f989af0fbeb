package routing

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/vietddude/forecaster/internal/core/domain"
	"github.com/vietddude/forecaster/internal/infra/provider"
	"github.com/vietddude/forecaster/internal/infra/store"
	"github.com/vietddude/forecaster/internal/metrics"
)

// Dispatcher routes forecast requests across the registered providers,
// failing over synchronously and keeping a sticky assignment in the shared
// store. Selection runs only on cache miss; successful calls refresh the
// assignment.
type Dispatcher struct {
	registry      *Registry
	health        *HealthManager
	store         store.Store
	recorder      *Recorder
	scope         domain.RouteScope
	assignmentTTL time.Duration

	now func() time.Time
}

// NewDispatcher wires a dispatcher. scope decides whether the sticky
// assignment is shared globally or kept per caller.
func NewDispatcher(
	registry *Registry,
	health *HealthManager,
	s store.Store,
	recorder *Recorder,
	scope domain.RouteScope,
	assignmentTTL time.Duration,
) *Dispatcher {
	return &Dispatcher{
		registry:      registry,
		health:        health,
		store:         s,
		recorder:      recorder,
		scope:         scope,
		assignmentTTL: assignmentTTL,
		now:           time.Now,
	}
}

// Route handles one forecast request. It calls the assigned (or freshly
// selected) primary provider and falls back through the remaining
// providers in registry order. It fails only when every provider failed
// for this call.
func (d *Dispatcher) Route(
	ctx context.Context,
	callerID string,
	req *domain.ForecastRequest,
) (*domain.ForecastResponse, error) {
	key := assignmentKey(d.scope, callerID)

	var primary provider.Provider
	if name, ok := d.cachedAssignment(ctx, key); ok {
		p, found := d.registry.Lookup(name)
		if !found {
			return nil, &UnknownProviderError{Name: name}
		}
		slog.Debug("Routing cache hit", "provider", name, "caller", callerID)
		primary = p
	} else {
		p, err := d.health.SelectEligible(ctx)
		if err != nil {
			return nil, err
		}
		slog.Debug("Routing cache miss, selected primary", "provider", p.Name(), "caller", callerID)
		primary = p
	}

	resp, err := d.attempt(ctx, key, primary, req)
	if err == nil {
		return resp, nil
	}
	attempts := []Attempt{{Provider: primary.Name(), Err: err}}

	for _, p := range d.registry.All() {
		if p.Name() == primary.Name() {
			continue
		}
		resp, err := d.attempt(ctx, key, p, req)
		if err == nil {
			slog.Info("Failover succeeded",
				"from", primary.Name(), "to", p.Name(), "caller", callerID)
			metrics.FailoversTotal.WithLabelValues(p.Name()).Inc()
			return resp, nil
		}
		attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
	}

	slog.Error("All providers failed", "caller", callerID, "attempts", len(attempts))
	return nil, &AllProvidersFailedError{Attempts: attempts}
}

// attempt calls one provider and applies the success/failure bookkeeping:
// success makes it the sticky assignment and clears its failure mark,
// failure stamps a fresh mark.
func (d *Dispatcher) attempt(
	ctx context.Context,
	key string,
	p provider.Provider,
	req *domain.ForecastRequest,
) (*domain.ForecastResponse, error) {
	start := time.Now()
	resp, err := p.Fetch(ctx, req)
	latency := time.Since(start)
	metrics.ProviderLatency.WithLabelValues(p.Name()).Observe(latency.Seconds())

	if err != nil {
		slog.Warn("Provider call failed", "provider", p.Name(), "error", err)
		metrics.ProviderRequestsTotal.WithLabelValues(p.Name(), "failure").Inc()
		d.recorder.Failure(ctx, p.Name())
		d.health.MarkFailed(ctx, p.Name())
		return nil, err
	}

	metrics.ProviderRequestsTotal.WithLabelValues(p.Name(), "success").Inc()
	d.recorder.Success(ctx, p.Name())
	d.health.ClearFailed(ctx, p.Name())
	d.storeAssignment(ctx, key, p.Name())
	return resp, nil
}

// cachedAssignment reads the sticky assignment for key. Store errors and
// corrupt values count as a miss.
func (d *Dispatcher) cachedAssignment(ctx context.Context, key string) (string, bool) {
	val, ok, err := d.store.Get(ctx, key)
	if err != nil {
		slog.Warn("Assignment read failed, treating as miss", "key", key, "error", err)
		return "", false
	}
	if !ok {
		return "", false
	}

	var assignment domain.RoutingAssignment
	if err := json.Unmarshal([]byte(val), &assignment); err != nil {
		slog.Warn("Corrupt assignment, treating as miss", "key", key, "error", err)
		return "", false
	}
	return assignment.Provider, true
}

func (d *Dispatcher) storeAssignment(ctx context.Context, key, name string) {
	raw, err := json.Marshal(domain.RoutingAssignment{
		Provider:   name,
		RecordedAt: d.now(),
	})
	if err != nil {
		slog.Warn("Failed to encode assignment", "provider", name, "error", err)
		return
	}
	if err := d.store.Set(ctx, key, string(raw), d.assignmentTTL); err != nil {
		slog.Warn("Failed to write assignment", "key", key, "error", err)
	}
}
