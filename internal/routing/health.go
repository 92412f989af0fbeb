package routing

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/vietddude/forecaster/internal/core/domain"
	"github.com/vietddude/forecaster/internal/infra/provider"
	"github.com/vietddude/forecaster/internal/infra/store"
	"github.com/vietddude/forecaster/internal/metrics"
)

// HealthManager reads and writes per-provider failure state in the shared
// store and computes retry eligibility.
//
// The per-provider state machine:
//
//	no failure mark                  -> healthy, eligible immediately
//	mark younger than retryInterval  -> failed, not eligible, no probe
//	mark at least retryInterval old  -> one synchronous recovery probe;
//	                                    success clears the mark, failure
//	                                    re-stamps it with the current time
//
// A provider with no mark is assumed healthy by default, not verified.
// Store failures are fail-open: a read error counts as "no mark" so the
// request path never dies because the store did.
type HealthManager struct {
	store           store.Store
	registry        *Registry
	retryInterval   time.Duration
	markTTL         time.Duration
	defaultProvider string

	now func() time.Time
}

// NewHealthManager creates a health manager. markTTL caps how long a
// failure mark can survive without explicit clearing; defaultProvider is
// returned by SelectEligible when no provider is eligible.
func NewHealthManager(
	s store.Store,
	registry *Registry,
	retryInterval, markTTL time.Duration,
	defaultProvider string,
) *HealthManager {
	return &HealthManager{
		store:           s,
		registry:        registry,
		retryInterval:   retryInterval,
		markTTL:         markTTL,
		defaultProvider: defaultProvider,
		now:             time.Now,
	}
}

// IsEligible reports whether p may be selected as primary right now. When
// the cooldown has elapsed it triggers exactly one synchronous probe.
func (m *HealthManager) IsEligible(ctx context.Context, p provider.Provider) bool {
	name := p.Name()

	val, ok, err := m.store.Get(ctx, failedKey(name))
	if err != nil {
		slog.Warn("Failure mark read failed, assuming healthy", "provider", name, "error", err)
		return true
	}
	if !ok {
		return true
	}

	failedAt, err := parseMark(val)
	if err != nil {
		slog.Warn("Corrupt failure mark, clearing", "provider", name, "value", val)
		m.ClearFailed(ctx, name)
		return true
	}

	if m.now().Sub(failedAt) < m.retryInterval {
		return false
	}

	// Cooldown elapsed: one recovery probe decides this round.
	if p.Probe(ctx) {
		slog.Info("Provider recovered via lazy probe", "provider", name)
		metrics.ProbesTotal.WithLabelValues(name, "healthy").Inc()
		m.ClearFailed(ctx, name)
		return true
	}

	slog.Info("Recovery probe failed, restarting cooldown", "provider", name)
	metrics.ProbesTotal.WithLabelValues(name, "unhealthy").Inc()
	m.MarkFailed(ctx, name)
	return false
}

// Eligible evaluates every registered provider once and returns the
// eligible ones in registry order. Every provider is checked (not
// short-circuited) because cost preference needs the full candidate set.
func (m *HealthManager) Eligible(ctx context.Context) []provider.Provider {
	var eligible []provider.Provider
	for _, p := range m.registry.All() {
		if m.IsEligible(ctx, p) {
			eligible = append(eligible, p)
		}
	}
	return eligible
}

// SelectEligible picks the primary provider: the cheapest eligible one,
// registry order breaking ties. When nothing is eligible it falls back to
// the configured default rather than refusing service.
func (m *HealthManager) SelectEligible(ctx context.Context) (provider.Provider, error) {
	eligible := m.Eligible(ctx)
	if len(eligible) == 0 {
		slog.Warn("No eligible providers, using default", "provider", m.defaultProvider)
		p, ok := m.registry.Lookup(m.defaultProvider)
		if !ok {
			return nil, &UnknownProviderError{Name: m.defaultProvider}
		}
		return p, nil
	}

	best := eligible[0]
	for _, p := range eligible[1:] {
		if p.CostPerCall() < best.CostPerCall() {
			best = p
		}
	}
	return best, nil
}

// MarkFailed stamps the provider failed as of now. The mark carries a TTL
// so stuck failure state eventually clears even if nothing ever clears it.
func (m *HealthManager) MarkFailed(ctx context.Context, name string) {
	val := strconv.FormatInt(m.now().Unix(), 10)
	if err := m.store.Set(ctx, failedKey(name), val, m.markTTL); err != nil {
		slog.Warn("Failed to write failure mark", "provider", name, "error", err)
	}
}

// ClearFailed removes the provider's failure mark.
func (m *HealthManager) ClearFailed(ctx context.Context, name string) {
	if err := m.store.Delete(ctx, failedKey(name)); err != nil {
		slog.Warn("Failed to clear failure mark", "provider", name, "error", err)
	}
}

// ReadHealth returns the sweep-written health record for a provider. An
// absent or unreadable record defaults to healthy.
func (m *HealthManager) ReadHealth(ctx context.Context, name string) domain.HealthRecord {
	val, ok, err := m.store.Get(ctx, healthKey(name))
	if err != nil {
		slog.Warn("Health record read failed, assuming healthy", "provider", name, "error", err)
	}
	if err != nil || !ok {
		return domain.HealthRecord{Status: domain.HealthHealthy}
	}

	var rec domain.HealthRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		slog.Warn("Corrupt health record, assuming healthy", "provider", name, "error", err)
		return domain.HealthRecord{Status: domain.HealthHealthy}
	}
	return rec
}

// WriteHealth persists a health record with no TTL: it must survive until
// the next sweep overwrites it.
func (m *HealthManager) WriteHealth(ctx context.Context, name string, rec domain.HealthRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		slog.Warn("Failed to encode health record", "provider", name, "error", err)
		return
	}
	if err := m.store.Set(ctx, healthKey(name), string(raw), 0); err != nil {
		slog.Warn("Failed to write health record", "provider", name, "error", err)
	}
}

func parseMark(val string) (time.Time, error) {
	sec, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}
