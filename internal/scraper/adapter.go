// Package scraper defines the roster source seam. Each facility names an
// adapter; adapters fetch and parse one source format and hand back raw
// records plus the completeness flag the reconciler requires before it may
// infer releases.
package scraper

import (
	"context"
	"fmt"

	"rosterwatch/internal/models"
)

// Adapter fetches one facility's current roster.
//
// An adapter must only set Complete on the returned snapshot when the fetch
// genuinely succeeded and the record list is the whole roster — an empty
// list with Complete set means "nobody is in custody", which triggers
// release inference downstream.
type Adapter interface {
	Fetch(ctx context.Context, facility *models.Facility) (models.RosterSnapshot, error)
}

// Registry maps adapter names from the facility table to implementations.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under a name.
func (r *Registry) Register(name string, adapter Adapter) {
	r.adapters[name] = adapter
}

// For resolves a facility's adapter.
func (r *Registry) For(name string) (Adapter, error) {
	adapter, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for %q", name)
	}
	return adapter, nil
}
