// Package capability defines the provider contract for the analysis
// services the engine dispatches to, plus HTTP clients for each.
package capability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Capability names used for registry lookup.
const (
	Transcription = "transcription"
	Vision        = "vision"
	Generation    = "generation"
	Language      = "language"
)

// Invoker is the single contract every capability provider exposes.
type Invoker interface {
	// Name identifies the capability this invoker serves.
	Name() string

	// Invoke runs one named operation with the given parameters and
	// returns the provider's result payload.
	Invoke(ctx context.Context, operation string, params map[string]any) (map[string]any, error)
}

// ErrNotConfigured reports a lookup of a capability that was never
// registered. Dispatch records it per action instead of failing the turn.
var ErrNotConfigured = errors.New("capability not configured")

// Registry maps capability names to invokers. An absent entry is a
// checked state surfaced by Lookup, never a nil dereference downstream.
type Registry struct {
	mu       sync.RWMutex
	invokers map[string]Invoker
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{invokers: make(map[string]Invoker)}
}

// Register adds an invoker under its own name, replacing any previous one.
func (r *Registry) Register(inv Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invokers[inv.Name()] = inv
}

// Lookup returns the invoker for a capability name.
// Unregistered names return ErrNotConfigured.
func (r *Registry) Lookup(name string) (Invoker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, ok := r.invokers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}
	return inv, nil
}

// Configured reports whether a capability is registered.
func (r *Registry) Configured(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.invokers[name]
	return ok
}

// Names lists registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.invokers))
	for name := range r.invokers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
