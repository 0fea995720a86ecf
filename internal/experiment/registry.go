package experiment

import (
	"sort"

	"github.com/san-kum/ecosim/internal/components"
	"github.com/san-kum/ecosim/internal/model"
)

// Factory builds a fresh component instance.
type Factory func() model.Component

// Registry maps extension points to their variants. Lookups never mutate it.
type Registry struct {
	points map[string]map[string]Factory
}

// NewRegistry returns a registry holding every bundled variant.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for point, variants := range components.Variants() {
		for key, f := range variants {
			r.Register(point, key, Factory(f))
		}
	}
	return r
}

func NewEmptyRegistry() *Registry {
	return &Registry{points: make(map[string]map[string]Factory)}
}

// Register adds or replaces a variant.
func (r *Registry) Register(point, key string, f Factory) {
	if r.points[point] == nil {
		r.points[point] = make(map[string]Factory)
	}
	r.points[point][key] = f
}

// Resolve looks up the variant key of an extension point.
func (r *Registry) Resolve(point, key string) (model.Component, error) {
	variants, ok := r.points[point]
	if !ok {
		return nil, model.Configf(point, "unknown extension point")
	}
	f, ok := variants[key]
	if !ok {
		return nil, model.Configf(point, "unknown variant %q (available: %v)", key, r.Variants(point))
	}
	return f(), nil
}

// Points lists the extension points, sorted.
func (r *Registry) Points() []string {
	names := make([]string, 0, len(r.points))
	for name := range r.points {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variants lists the keys registered for point, sorted.
func (r *Registry) Variants(point string) []string {
	names := make([]string, 0, len(r.points[point]))
	for name := range r.points[point] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
