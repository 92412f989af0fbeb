// Package routing implements the failover dispatcher with lazy health
// recovery: provider registry, failure-mark state machine, route-with-
// fallback, store-backed call counters, and the bulk health sweep.
//
// The package holds no mutable state of its own. Every routing decision
// re-reads and re-writes the shared store, so any number of stateless
// instances coordinate through the same view of provider health.
package routing

import (
	"github.com/vietddude/forecaster/internal/infra/provider"
)

// Registry is the fixed, ordered collection of providers known to the
// dispatcher. Registration order is the fallback order and the tie-break
// between equal-cost providers.
type Registry struct {
	order  []provider.Provider
	byName map[string]provider.Provider
}

// NewRegistry builds a registry from providers in the given order.
// A duplicate name keeps the first registration.
func NewRegistry(providers ...provider.Provider) *Registry {
	r := &Registry{
		byName: make(map[string]provider.Provider, len(providers)),
	}
	for _, p := range providers {
		if _, exists := r.byName[p.Name()]; exists {
			continue
		}
		r.order = append(r.order, p)
		r.byName[p.Name()] = p
	}
	return r
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (provider.Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// All returns the providers in registration order.
func (r *Registry) All() []provider.Provider {
	out := make([]provider.Provider, len(r.order))
	copy(out, r.order)
	return out
}

// Names returns the provider names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, p := range r.order {
		names = append(names, p.Name())
	}
	return names
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	return len(r.order)
}
