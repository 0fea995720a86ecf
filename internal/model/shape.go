package model

import "fmt"

// Shape is the index shape of a declaration.
type Shape int

const (
	Scalar Shape = iota
	Time
	Region
	TimeRegion
)

func (s Shape) String() string {
	switch s {
	case Scalar:
		return "scalar"
	case Time:
		return "time"
	case Region:
		return "region"
	case TimeRegion:
		return "time×region"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// HasTime reports whether values vary over time steps.
func (s Shape) HasTime() bool { return s == Time || s == TimeRegion }

// HasRegion reports whether values vary over regions.
func (s Shape) HasRegion() bool { return s == Region || s == TimeRegion }

// Static reports whether the shape has no time dimension.
func (s Shape) Static() bool { return !s.HasTime() }

// NoRegion marks an index without a region component.
const NoRegion = -1

// Index addresses one cell of a declaration. R is NoRegion for shapes
// without a region dimension.
type Index struct {
	T int
	R int
}

func At(t, r int) Index { return Index{T: t, R: r} }

func AtTime(t int) Index { return Index{T: t, R: NoRegion} }

func (ix Index) String() string {
	if ix.R == NoRegion {
		return fmt.Sprintf("[t=%d]", ix.T)
	}
	return fmt.Sprintf("[t=%d,r=%d]", ix.T, ix.R)
}

// Domain restricts the admissible values of a variable or parameter.
type Domain int

const (
	Reals Domain = iota
	NonNegative
	Fraction
)

func (d Domain) String() string {
	switch d {
	case NonNegative:
		return "nonnegative"
	case Fraction:
		return "fraction"
	default:
		return "real"
	}
}

// Contains reports whether v lies in the domain.
func (d Domain) Contains(v float64) bool {
	switch d {
	case NonNegative:
		return v >= 0
	case Fraction:
		return v >= 0 && v <= 1
	default:
		return true
	}
}
