package control

import (
	"sort"

	"github.com/san-kum/ecosim/internal/model"
)

// Set maps control names to sources for one run.
type Set struct {
	dims       model.Dimensions
	sources    map[string]Source
	def        float64
	hasDefault bool
}

func NewSet(dims model.Dimensions) *Set {
	return &Set{dims: dims, sources: make(map[string]Source)}
}

// Zero returns a set that supplies 0 for every control.
func Zero(dims model.Dimensions) *Set { return NewSet(dims).WithDefault(0) }

func (s *Set) Add(name string, src Source) *Set {
	s.sources[name] = src
	return s
}

// WithDefault supplies v for every control or cell without a value.
func (s *Set) WithDefault(v float64) *Set {
	s.def = v
	s.hasDefault = true
	return s
}

func (s *Set) Lookup(name string, ix model.Index) (float64, bool) {
	if src, ok := s.sources[name]; ok {
		if v, ok := src.Value(ix, s.dims); ok {
			return v, true
		}
	}
	if s.hasDefault {
		return s.def, true
	}
	return 0, false
}

// Names returns the controls with an explicit source, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.sources))
	for n := range s.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
