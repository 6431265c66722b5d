// Package render projects registered records onto concrete storage schemas.
// Each Renderer handles one schema.Target; fields excluded from that target
// are left out.
package render

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zdb/zschema/core/schema"
)

// Renderer converts a record into the schema document of one target.
type Renderer interface {
	// Target returns the target this renderer produces.
	Target() schema.Target

	// Description returns a human-readable description.
	Description() string

	// Render returns a JSON-encodable schema for the record registered as name.
	Render(name string, rec *schema.Record) (any, error)
}

// Registry holds one renderer per target.
type Registry struct {
	mu        sync.RWMutex
	renderers map[schema.Target]Renderer
}

// NewRegistry creates an empty renderer registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[schema.Target]Renderer)}
}

// Register adds a renderer.
func (r *Registry) Register(rd Renderer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.renderers[rd.Target()]; exists {
		return fmt.Errorf("renderer for %q already registered", rd.Target())
	}
	r.renderers[rd.Target()] = rd
	return nil
}

// Get returns the renderer for target t.
func (r *Registry) Get(t schema.Target) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rd, ok := r.renderers[t]
	return rd, ok
}

// Render renders rec for target t.
func (r *Registry) Render(t schema.Target, name string, rec *schema.Record) (any, error) {
	rd, ok := r.Get(t)
	if !ok {
		return nil, fmt.Errorf("%w: no renderer for %q", schema.ErrUnknownTarget, t)
	}
	return rd.Render(name, rec)
}

// Targets returns the registered targets, sorted.
func (r *Registry) Targets() []schema.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]schema.Target, 0, len(r.renderers))
	for t := range r.renderers {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

// DefaultRegistry holds the built-in renderers.
var DefaultRegistry = NewRegistry()

// Get returns a renderer from the default registry.
func Get(t schema.Target) (Renderer, bool) {
	return DefaultRegistry.Get(t)
}

// Render renders rec with the default registry.
func Render(t schema.Target, name string, rec *schema.Record) (any, error) {
	return DefaultRegistry.Render(t, name, rec)
}
