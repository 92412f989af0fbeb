package routing

import (
	"fmt"
	"strings"
)

// UnknownProviderError reports a cached assignment naming a provider that
// is no longer registered. This is a configuration error, not retried.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("assigned provider %q is not registered", e.Name)
}

// Attempt is one failed provider call within a routing attempt.
type Attempt struct {
	Provider string
	Err      error
}

// AllProvidersFailedError is the terminal failure for one request: every
// registered provider was tried and failed. Store state is left consistent
// (each attempted provider carries a fresh failure mark).
type AllProvidersFailedError struct {
	Attempts []Attempt
}

func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the per-provider errors for errors.Is/As.
func (e *AllProvidersFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}
