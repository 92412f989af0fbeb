package routing

import (
	"context"
	"time"

	"github.com/vietddude/forecaster/internal/core/domain"
	"github.com/vietddude/forecaster/internal/infra/provider"
	"github.com/vietddude/forecaster/internal/infra/store"
)

// fakeProvider implements provider.Provider for routing tests.
type fakeProvider struct {
	name       string
	cost       float64
	fetchErr   error
	probeOK    bool
	fetchCalls int
	probeCalls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) CostPerCall() float64 { return f.cost }

func (f *fakeProvider) Fetch(
	ctx context.Context,
	req *domain.ForecastRequest,
) (*domain.ForecastResponse, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, &provider.CallError{Provider: f.name, Err: f.fetchErr}
	}
	return &domain.ForecastResponse{
		City:        req.Location.City,
		Source:      f.name,
		RetrievedAt: time.Now(),
	}, nil
}

func (f *fakeProvider) Probe(ctx context.Context) bool {
	f.probeCalls++
	return f.probeOK
}

const (
	testRetryInterval = 60 * time.Second
	testMarkTTL       = 10 * time.Minute
)

// testEnv wires a routing stack over an in-memory store.
type testEnv struct {
	store      *store.MemoryStore
	registry   *Registry
	health     *HealthManager
	recorder   *Recorder
	dispatcher *Dispatcher
	sweeper    *Sweeper
}

func newTestEnv(providers ...provider.Provider) *testEnv {
	st := store.NewMemoryStore()
	reg := NewRegistry(providers...)

	defaultName := ""
	if len(providers) > 0 {
		best := providers[0]
		for _, p := range providers[1:] {
			if p.CostPerCall() < best.CostPerCall() {
				best = p
			}
		}
		defaultName = best.Name()
	}

	health := NewHealthManager(st, reg, testRetryInterval, testMarkTTL, defaultName)
	recorder := NewRecorder(st, time.Hour)
	dispatcher := NewDispatcher(reg, health, st, recorder, domain.ScopeGlobal, time.Hour)
	sweeper := NewSweeper(reg, st, health)

	return &testEnv{
		store:      st,
		registry:   reg,
		health:     health,
		recorder:   recorder,
		dispatcher: dispatcher,
		sweeper:    sweeper,
	}
}

func testRequest() *domain.ForecastRequest {
	return &domain.ForecastRequest{
		Location: domain.Location{City: "Seoul", CountryCode: "KR"},
		Range:    domain.DateRange{Start: "2026-08-23", End: "2026-08-25"},
		Options:  domain.ForecastOptions{Units: "metric"},
	}
}

// hasFailureMark reports whether a failure mark exists for name.
func (e *testEnv) hasFailureMark(name string) bool {
	_, ok, _ := e.store.Get(context.Background(), failedKey(name))
	return ok
}
