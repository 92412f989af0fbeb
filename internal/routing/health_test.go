package routing

import (
	"context"
	"testing"
	"time"
)

func TestIsEligible_NoMark(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{name: "scraping", probeOK: false}
	env := newTestEnv(p)

	if !env.health.IsEligible(ctx, p) {
		t.Error("provider without a failure mark must be eligible")
	}
	if p.probeCalls != 0 {
		t.Errorf("healthy provider must not be probed, got %d probes", p.probeCalls)
	}
}

func TestIsEligible_FreshMark(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{name: "scraping", probeOK: true}
	env := newTestEnv(p)

	env.health.MarkFailed(ctx, p.name)

	if env.health.IsEligible(ctx, p) {
		t.Error("provider inside the cooldown must not be eligible")
	}
	if p.probeCalls != 0 {
		t.Errorf("provider inside the cooldown must not be probed, got %d probes", p.probeCalls)
	}
}

func TestIsEligible_RecoveryProbeSucceeds(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{name: "scraping", probeOK: true}
	env := newTestEnv(p)

	// Mark failed 120s ago with a 60s retry interval.
	base := time.Now()
	env.health.now = func() time.Time { return base.Add(-120 * time.Second) }
	env.health.MarkFailed(ctx, p.name)
	env.health.now = func() time.Time { return base }

	if !env.health.IsEligible(ctx, p) {
		t.Error("provider with an elapsed cooldown and a passing probe must be eligible")
	}
	if p.probeCalls != 1 {
		t.Errorf("expected exactly one probe, got %d", p.probeCalls)
	}
	if env.hasFailureMark(p.name) {
		t.Error("failure mark must be cleared after a passing probe")
	}
}

func TestIsEligible_RecoveryProbeFails(t *testing.T) {
	ctx := context.Background()
	p := &fakeProvider{name: "scraping", probeOK: false}
	env := newTestEnv(p)

	base := time.Now()
	env.health.now = func() time.Time { return base.Add(-120 * time.Second) }
	env.health.MarkFailed(ctx, p.name)
	env.health.now = func() time.Time { return base }

	if env.health.IsEligible(ctx, p) {
		t.Error("provider with a failing probe must stay ineligible")
	}
	if p.probeCalls != 1 {
		t.Errorf("expected exactly one probe, got %d", p.probeCalls)
	}

	// The mark was re-stamped with the current time, so the next check is
	// back inside the cooldown and must not probe again.
	if env.health.IsEligible(ctx, p) {
		t.Error("provider must stay ineligible inside the restarted cooldown")
	}
	if p.probeCalls != 1 {
		t.Errorf("restarted cooldown must suppress further probes, got %d", p.probeCalls)
	}
}

func TestSelectEligible_PrefersZeroCost(t *testing.T) {
	ctx := context.Background()
	paid := &fakeProvider{name: "external", cost: 0.01}
	free := &fakeProvider{name: "scraping", cost: 0.0}
	// Paid listed first: cost must win over registry order.
	env := newTestEnv(paid, free)

	selected, err := env.health.SelectEligible(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selected.Name() != "scraping" {
		t.Errorf("expected zero-cost provider, got %s", selected.Name())
	}
}

func TestSelectEligible_TieBreaksOnRegistryOrder(t *testing.T) {
	ctx := context.Background()
	first := &fakeProvider{name: "alpha", cost: 0.01}
	second := &fakeProvider{name: "beta", cost: 0.01}
	env := newTestEnv(first, second)

	selected, err := env.health.SelectEligible(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selected.Name() != "alpha" {
		t.Errorf("expected first-listed provider on cost tie, got %s", selected.Name())
	}
}

func TestSelectEligible_FallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	free := &fakeProvider{name: "scraping", cost: 0.0, probeOK: false}
	paid := &fakeProvider{name: "external", cost: 0.01, probeOK: false}
	env := newTestEnv(free, paid)

	env.health.MarkFailed(ctx, free.name)
	env.health.MarkFailed(ctx, paid.name)

	selected, err := env.health.SelectEligible(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selected.Name() != "scraping" {
		t.Errorf("expected the default (cheapest) provider when nothing is eligible, got %s", selected.Name())
	}
}

func TestEligible_EvaluatesEveryProvider(t *testing.T) {
	ctx := context.Background()
	a := &fakeProvider{name: "a", probeOK: true}
	b := &fakeProvider{name: "b", probeOK: true}
	c := &fakeProvider{name: "c", probeOK: true}
	env := newTestEnv(a, b, c)

	base := time.Now()
	env.health.now = func() time.Time { return base.Add(-2 * testRetryInterval) }
	env.health.MarkFailed(ctx, a.name)
	env.health.MarkFailed(ctx, c.name)
	env.health.now = func() time.Time { return base }

	eligible := env.health.Eligible(ctx)
	if len(eligible) != 3 {
		t.Fatalf("expected 3 eligible providers after recovery probes, got %d", len(eligible))
	}
	if a.probeCalls != 1 || c.probeCalls != 1 {
		t.Errorf("every cooled-down provider must be probed once, got a=%d c=%d",
			a.probeCalls, c.probeCalls)
	}
	if b.probeCalls != 0 {
		t.Errorf("unmarked provider must not be probed, got %d", b.probeCalls)
	}
}
