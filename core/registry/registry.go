// Package registry holds the durable schema names that documents and
// exports refer to.
//
// A registry is populated once during startup, then finalized and used
// read-only. Reads are safe for concurrent use at any time. Entries added
// with RegisterLazy are built on first access, at most once per name.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zdb/zschema/core/schema"
)

var (
	ErrDuplicateSchemaName = errors.New("schema name already registered")
	ErrUnknownSchema       = errors.New("unknown schema")
	ErrRegistryFinalized   = errors.New("registry is finalized")
	ErrCyclicSchema        = errors.New("schema depends on itself")
)

// BuildFunc constructs a lazily registered schema. It may look up other
// schemas through r; a lookup that leads back to a schema still being
// built fails with ErrCyclicSchema.
type BuildFunc func(r *Registry) (*schema.Record, error)

type entry struct {
	build BuildFunc
	done  atomic.Bool
	rec   *schema.Record
	err   error
}

// get returns the entry's record, building it first if needed. Builds are
// serialized per registry: the outermost build holds the build lock and
// nested lookups run on the same goroutine through a view carrying the
// chain of names being built.
func (e *entry) get(r *Registry, name string) (*schema.Record, error) {
	if e.build == nil || e.done.Load() {
		return e.rec, e.err
	}
	if slices.Contains(r.chain, name) {
		return nil, fmt.Errorf("%w: %s", ErrCyclicSchema, strings.Join(append(slices.Clone(r.chain), name), " -> "))
	}
	if len(r.chain) == 0 {
		r.building.Lock()
		defer r.building.Unlock()
		if e.done.Load() {
			return e.rec, e.err
		}
	}

	rec, err := e.build(&Registry{state: r.state, chain: append(slices.Clone(r.chain), name)})
	if err != nil {
		e.err = fmt.Errorf("build schema %q: %w", name, err)
	} else {
		e.rec = rec.Named(name)
	}
	e.done.Store(true)
	return e.rec, e.err
}

// Registry maps schema names to records.
type Registry struct {
	*state

	// chain lists the lazy schemas being built when the registry is
	// handed to a BuildFunc.
	chain []string
}

type state struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	finalized bool

	building sync.Mutex
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{state: &state{entries: make(map[string]*entry)}}
}

// Register stores rec under name. The stored record carries the name.
func (r *Registry) Register(name string, rec *schema.Record) error {
	if rec == nil {
		return fmt.Errorf("register %q: nil record", name)
	}
	return r.add(name, &entry{rec: rec.Named(name)})
}

// RegisterLazy stores a builder that runs on the first Get of name.
func (r *Registry) RegisterLazy(name string, build BuildFunc) error {
	if build == nil {
		return fmt.Errorf("register %q: nil builder", name)
	}
	return r.add(name, &entry{build: build})
}

func (r *Registry) add(name string, e *entry) error {
	if name == "" {
		return fmt.Errorf("register: empty schema name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return fmt.Errorf("register %q: %w", name, ErrRegistryFinalized)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateSchemaName, name)
	}
	r.entries[name] = e
	return nil
}

// Get returns the record registered under name.
func (r *Registry) Get(name string) (*schema.Record, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	return e.get(r, name)
}

// Resolve adapts Get to schema.Parser.Resolve.
func (r *Registry) Resolve(name string) (schema.FieldType, error) {
	rec, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Has reports whether name is registered, without building it.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Extend derives a record from the registered schema base. The registry is
// not modified. An unregistered base fails with schema.ErrUnknownBaseSchema.
func (r *Registry) Extend(base string, own *schema.Record) (*schema.Record, error) {
	parent, err := r.Get(base)
	if err != nil {
		if errors.Is(err, ErrUnknownSchema) {
			return nil, fmt.Errorf("%w: %q", schema.ErrUnknownBaseSchema, base)
		}
		return nil, err
	}
	return schema.Extend(parent, own)
}

// Define extends base with own and registers the result under name. On
// error nothing is registered.
func (r *Registry) Define(name, base string, own *schema.Record) (*schema.Record, error) {
	rec, err := r.Extend(base, own.Named(name))
	if err != nil {
		return nil, fmt.Errorf("define %q: %w", name, err)
	}
	if err := r.Register(name, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered record sorted by name, building lazy
// entries as needed.
func (r *Registry) All() ([]*schema.Record, error) {
	names := r.Names()
	recs := make([]*schema.Record, 0, len(names))
	for _, name := range names {
		rec, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Summaries returns the listing form of every registered schema.
func (r *Registry) Summaries() ([]schema.Summary, error) {
	recs, err := r.All()
	if err != nil {
		return nil, err
	}
	out := make([]schema.Summary, len(recs))
	for i, rec := range recs {
		out[i] = schema.Summarize(rec)
	}
	return out, nil
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Finalize ends the initialization phase. Later writes fail with
// ErrRegistryFinalized.
func (r *Registry) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalized = true
}

func (r *Registry) Finalized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finalized
}
