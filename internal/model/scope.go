package model

import "math"

// ParamScope gives read access to bound parameters at explicit indices.
// Constraint rules receive only this view, so omission can never depend on
// computed values.
type ParamScope interface {
	Dims() Dimensions
	ParamAt(name string, ix Index) float64
}

// ValueScope extends ParamScope with computed variable values. Constraint
// residuals are evaluated against it.
type ValueScope interface {
	ParamScope
	ValueAt(name string, ix Index) float64
}

// Scope is what an equation rule sees while its target is evaluated at one
// index. Every read must be covered by the equation's Deps: same-time reads
// by a Lag 0 ref, Lag/LagAt by a Lag 1 ref, LagN by a Lag k ref.
type Scope interface {
	Index() Index
	Time() int
	// Region is NoRegion for targets without a region dimension.
	Region() int
	Year() float64
	Dims() Dimensions

	// Param reads a parameter at the current index, projected on its shape.
	Param(name string) float64
	// ParamAt reads a parameter at an explicit index.
	ParamAt(name string, ix Index) float64

	// Value reads a same-time value at the current index.
	Value(name string) float64
	// ValueAt reads a same-time value of a regional variable for region r.
	ValueAt(name string, r int) float64
	// Sum adds a same-time regional variable over all regions.
	Sum(name string) float64

	// Lag reads name at t-1 for the current region.
	Lag(name string) Lagged
	// LagN reads name at t-k for the current region.
	LagN(name string, k int) Lagged
	// LagAt reads name at t-1 for region r.
	LagAt(name string, r int) Lagged
}

// Lagged is a value from an earlier time step that may not exist. At the
// first step there is no previous value: Get on such a Lagged aborts the
// evaluation, so rules must check Ok or supply a fallback through Or.
type Lagged struct {
	value   float64
	ok      bool
	missing func()
}

// Present wraps an existing earlier value.
func Present(v float64) Lagged { return Lagged{value: v, ok: true} }

// Absent marks a missing earlier value; onGet is called if it is dereferenced.
func Absent(onGet func()) Lagged { return Lagged{missing: onGet} }

func (l Lagged) Ok() bool { return l.ok }

// Or returns the value, or fallback when there is no earlier step.
func (l Lagged) Or(fallback float64) float64 {
	if !l.ok {
		return fallback
	}
	return l.value
}

// Get returns the value. Without an earlier step it reports the unguarded
// dereference and returns NaN.
func (l Lagged) Get() float64 {
	if !l.ok {
		if l.missing != nil {
			l.missing()
		}
		return math.NaN()
	}
	return l.value
}
