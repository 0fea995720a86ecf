package model

import "math"

// Decl holds the attributes shared by variables and parameters.
type Decl struct {
	Name   string
	Shape  Shape
	Unit   string
	Doc    string
	Domain Domain
	Lower  float64
	Upper  float64

	// Set by the builder.
	Owner    string // declaring component
	Seq      int    // declaration sequence
	Position int    // relations registered before this declaration
}

// InBounds reports whether v satisfies the domain and the declared bounds.
func (d Decl) InBounds(v float64) bool {
	return d.Domain.Contains(v) && v >= d.Lower && v <= d.Upper
}

// Variable is an unknown of the system. A control variable has no equation;
// its values are supplied per run.
type Variable struct {
	Decl
	Control bool
}

// Parameter is an input value bound before evaluation.
type Parameter struct {
	Decl
	Default    float64
	HasDefault bool
}

// Option configures a declaration.
type Option func(*declOptions)

type declOptions struct {
	decl       Decl
	def        float64
	hasDefault bool
}

func newDecl(name string, shape Shape, opts []Option) declOptions {
	o := declOptions{decl: Decl{
		Name:  name,
		Shape: shape,
		Lower: math.Inf(-1),
		Upper: math.Inf(1),
	}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func Unit(u string) Option {
	return func(o *declOptions) { o.decl.Unit = u }
}

func Doc(s string) Option {
	return func(o *declOptions) { o.decl.Doc = s }
}

func Within(d Domain) Option {
	return func(o *declOptions) { o.decl.Domain = d }
}

// Bounds restricts values to [lo, hi]. Values outside raise a numerical warning
// during simulation and a configuration error during binding.
func Bounds(lo, hi float64) Option {
	return func(o *declOptions) {
		o.decl.Lower = lo
		o.decl.Upper = hi
	}
}

// Default makes a parameter optional: the binder falls back to v.
func Default(v float64) Option {
	return func(o *declOptions) {
		o.def = v
		o.hasDefault = true
	}
}
