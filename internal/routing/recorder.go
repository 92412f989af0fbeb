package routing

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/vietddude/forecaster/internal/infra/store"
)

// Recorder increments per-provider success/failure counters in the shared
// store. Best-effort and purely observational: the dispatcher never reads
// them, and accuracy under concurrent increments is whatever the store's
// increment primitive guarantees.
type Recorder struct {
	store  store.Store
	window time.Duration
}

// NewRecorder creates a recorder whose counters reset after window.
func NewRecorder(s store.Store, window time.Duration) *Recorder {
	return &Recorder{store: s, window: window}
}

// Success increments the success counter for a provider.
func (r *Recorder) Success(ctx context.Context, name string) {
	r.increment(ctx, name, "success")
}

// Failure increments the failure counter for a provider.
func (r *Recorder) Failure(ctx context.Context, name string) {
	r.increment(ctx, name, "failure")
}

func (r *Recorder) increment(ctx context.Context, name, kind string) {
	if _, err := r.store.Increment(ctx, metricKey(name, kind), r.window); err != nil {
		slog.Warn("Failed to increment metric", "provider", name, "kind", kind, "error", err)
	}
}

// Counts reads the current success and failure counters for a provider.
// Absent counters read as zero.
func (r *Recorder) Counts(ctx context.Context, name string) (success, failure int64) {
	return r.read(ctx, name, "success"), r.read(ctx, name, "failure")
}

func (r *Recorder) read(ctx context.Context, name, kind string) int64 {
	val, ok, err := r.store.Get(ctx, metricKey(name, kind))
	if err != nil || !ok {
		return 0
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
