package routing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/forecaster/internal/core/domain"
)

func (e *testEnv) cachedProvider(t *testing.T, key string) string {
	t.Helper()
	val, ok, err := e.store.Get(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("expected a cached assignment at %s", key)
	}
	var assignment domain.RoutingAssignment
	if err := json.Unmarshal([]byte(val), &assignment); err != nil {
		t.Fatalf("corrupt assignment: %v", err)
	}
	return assignment.Provider
}

func TestRoute_SuccessRoundTrip(t *testing.T) {
	ctx := context.Background()
	free := &fakeProvider{name: "scraping", cost: 0.0}
	paid := &fakeProvider{name: "external", cost: 0.01}
	env := newTestEnv(free, paid)

	resp, err := env.dispatcher.Route(ctx, "user-1", testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Source != "scraping" {
		t.Errorf("expected the zero-cost provider to serve, got %s", resp.Source)
	}

	key := assignmentKey(domain.ScopeGlobal, "user-1")
	if got := env.cachedProvider(t, key); got != "scraping" {
		t.Errorf("assignment must point at the provider that succeeded, got %s", got)
	}
	if env.hasFailureMark("scraping") {
		t.Error("no failure mark may remain after a success")
	}
	if success, _ := env.recorder.Counts(ctx, "scraping"); success != 1 {
		t.Errorf("expected 1 success recorded, got %d", success)
	}
}

func TestRoute_StickyAssignmentSkipsSelection(t *testing.T) {
	ctx := context.Background()
	free := &fakeProvider{name: "scraping", cost: 0.0}
	paid := &fakeProvider{name: "external", cost: 0.01, probeOK: true}
	env := newTestEnv(free, paid)

	// Stale failure mark on the paid provider: any selection pass would
	// trigger a recovery probe against it.
	base := time.Now()
	env.health.now = func() time.Time { return base.Add(-2 * testRetryInterval) }
	env.health.MarkFailed(ctx, paid.name)
	env.health.now = func() time.Time { return base }

	if _, err := env.dispatcher.Route(ctx, "user-1", testRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	probesAfterFirst := paid.probeCalls

	for i := 0; i < 3; i++ {
		if _, err := env.dispatcher.Route(ctx, "user-1", testRequest()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if paid.probeCalls != probesAfterFirst {
		t.Errorf("sticky assignment must skip selection, got %d extra probes",
			paid.probeCalls-probesAfterFirst)
	}
	if paid.fetchCalls != 0 {
		t.Errorf("fallback provider must not be invoked on success, got %d calls", paid.fetchCalls)
	}
	if free.fetchCalls != 4 {
		t.Errorf("expected 4 primary calls, got %d", free.fetchCalls)
	}
}

func TestRoute_FailoverToFallback(t *testing.T) {
	ctx := context.Background()
	free := &fakeProvider{name: "scraping", cost: 0.0, fetchErr: errors.New("connection refused")}
	paid := &fakeProvider{name: "external", cost: 0.01}
	env := newTestEnv(free, paid)

	resp, err := env.dispatcher.Route(ctx, "user-1", testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Source != "external" {
		t.Errorf("expected the fallback to serve, got %s", resp.Source)
	}
	if paid.fetchCalls != 1 {
		t.Errorf("fallback must be invoked exactly once, got %d", paid.fetchCalls)
	}

	if !env.hasFailureMark("scraping") {
		t.Error("failed primary must carry a failure mark")
	}
	if _, failure := env.recorder.Counts(ctx, "scraping"); failure != 1 {
		t.Errorf("expected 1 failure recorded for primary, got %d", failure)
	}
	if success, _ := env.recorder.Counts(ctx, "external"); success != 1 {
		t.Errorf("expected 1 success recorded for fallback, got %d", success)
	}

	key := assignmentKey(domain.ScopeGlobal, "user-1")
	if got := env.cachedProvider(t, key); got != "external" {
		t.Errorf("next lookup must return the fallback, got %s", got)
	}
}

func TestRoute_AllProvidersFail(t *testing.T) {
	ctx := context.Background()
	free := &fakeProvider{name: "scraping", fetchErr: errors.New("timeout")}
	paid := &fakeProvider{name: "external", cost: 0.01, fetchErr: errors.New("500 internal")}
	env := newTestEnv(free, paid)

	_, err := env.dispatcher.Route(ctx, "user-1", testRequest())
	if err == nil {
		t.Fatal("expected an aggregate failure")
	}

	var allFailed *AllProvidersFailedError
	if !errors.As(err, &allFailed) {
		t.Fatalf("expected *AllProvidersFailedError, got %T", err)
	}
	if len(allFailed.Attempts) != 2 {
		t.Errorf("expected 2 attempts in the aggregate, got %d", len(allFailed.Attempts))
	}

	if !env.hasFailureMark("scraping") || !env.hasFailureMark("external") {
		t.Error("every attempted provider must carry a failure mark")
	}
}

func TestRoute_UnknownCachedProvider(t *testing.T) {
	ctx := context.Background()
	free := &fakeProvider{name: "scraping"}
	env := newTestEnv(free)

	key := assignmentKey(domain.ScopeGlobal, "user-1")
	raw, _ := json.Marshal(domain.RoutingAssignment{Provider: "retired", RecordedAt: time.Now()})
	if err := env.store.Set(ctx, key, string(raw), time.Hour); err != nil {
		t.Fatal(err)
	}

	_, err := env.dispatcher.Route(ctx, "user-1", testRequest())
	var unknown *UnknownProviderError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *UnknownProviderError, got %v", err)
	}
	if unknown.Name != "retired" {
		t.Errorf("expected the retired name in the error, got %s", unknown.Name)
	}
	if free.fetchCalls != 0 {
		t.Error("configuration errors must not be retried against other providers")
	}
}

func TestRoute_SingleProviderNoFallback(t *testing.T) {
	ctx := context.Background()
	only := &fakeProvider{name: "scraping", fetchErr: errors.New("down")}
	env := newTestEnv(only)

	_, err := env.dispatcher.Route(ctx, "user-1", testRequest())
	var allFailed *AllProvidersFailedError
	if !errors.As(err, &allFailed) {
		t.Fatalf("expected *AllProvidersFailedError, got %v", err)
	}
	if len(allFailed.Attempts) != 1 {
		t.Errorf("expected 1 attempt, got %d", len(allFailed.Attempts))
	}
}

func TestRoute_PerCallerScope(t *testing.T) {
	ctx := context.Background()
	free := &fakeProvider{name: "scraping"}
	env := newTestEnv(free)
	env.dispatcher.scope = domain.ScopePerCaller

	if _, err := env.dispatcher.Route(ctx, "alice", testRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	aliceKey := assignmentKey(domain.ScopePerCaller, "alice")
	if got := env.cachedProvider(t, aliceKey); got != "scraping" {
		t.Errorf("expected per-caller assignment, got %s", got)
	}

	bobKey := assignmentKey(domain.ScopePerCaller, "bob")
	if _, ok, _ := env.store.Get(ctx, bobKey); ok {
		t.Error("other callers must not share a per-caller assignment")
	}
}
