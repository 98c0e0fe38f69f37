// Package collectors names the collection operations of the host and keeps
// them in a registry for consumers that drive them generically.
package collectors

import "errors"

// Collector is one collection operation already bound to the buffers it
// fills.
type Collector interface {
	// Name returns the name of the resource being collected (e.g., "CPU", "Memory").
	Name() string

	// Collect runs one collection pass into the bound buffers.
	Collect() error
}

// Func adapts a closure to the Collector interface.
type Func struct {
	name string
	fn   func() error
}

// Bind returns a Collector named name that runs fn.
func Bind(name string, fn func() error) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the collector name.
func (f *Func) Name() string {
	return f.name
}

// Collect runs the bound closure.
func (f *Func) Collect() error {
	return f.fn()
}

// ErrDuplicate is returned when a collector name is registered twice.
var ErrDuplicate = errors.New("collector already registered")

// Registry holds collectors in registration order.
type Registry struct {
	collectors []Collector
}

// NewRegistry creates a new collector registry.
func NewRegistry() *Registry {
	return &Registry{
		collectors: make([]Collector, 0),
	}
}

// Register adds a collector to the registry.
func (r *Registry) Register(c Collector) error {
	if r.GetByName(c.Name()) != nil {
		return ErrDuplicate
	}
	r.collectors = append(r.collectors, c)
	return nil
}

// Collectors returns all registered collectors.
func (r *Registry) Collectors() []Collector {
	return r.collectors
}

// GetByName returns a collector by name, or nil if not found.
func (r *Registry) GetByName(name string) Collector {
	for _, c := range r.collectors {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Names returns the collector names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.collectors))
	for i, c := range r.collectors {
		names[i] = c.Name()
	}
	return names
}
