// Package provider implements the redundant forecast backends.
//
// This package contains:
//   - Provider interface: core abstraction over interchangeable backends
//   - ScrapingProvider: zero-cost HTTP backend
//   - ExternalProvider: paid HTTP backend with payload translation
//   - GRPCProvider: paid gRPC backend using structpb payloads
package provider

import (
	"context"
	"fmt"

	"github.com/vietddude/forecaster/internal/core/domain"
)

// Provider is one redundant backend for forecast retrieval. Implementations
// differ in cost and reliability but expose the same capability.
type Provider interface {
	// Name returns the provider identifier (e.g. "scraping", "external").
	Name() string

	// CostPerCall returns the USD cost of one fetch. 0 means free.
	CostPerCall() float64

	// Fetch retrieves a forecast. Any network, protocol, or validation
	// problem is a *CallError.
	Fetch(ctx context.Context, req *domain.ForecastRequest) (*domain.ForecastResponse, error)

	// Probe checks whether the backend currently works. It never returns
	// an error: any failure is reported as false.
	Probe(ctx context.Context) bool
}

// CallError wraps any fetch failure with the provider that produced it.
type CallError struct {
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}
