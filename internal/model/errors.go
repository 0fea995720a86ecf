package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every typed error below matches one of these through errors.Is.
var (
	// ErrConfiguration covers unknown variant keys, missing parameters and
	// out-of-range inputs. Raised before any evaluation.
	ErrConfiguration = errors.New("ecosim: configuration error")

	// ErrStructural covers duplicate names, undeclared targets and cycles.
	ErrStructural = errors.New("ecosim: structural error")

	// ErrUnresolvedVariable marks a non-control variable without an equation.
	ErrUnresolvedVariable = errors.New("ecosim: unresolved variable")

	// ErrMissingControlValue marks a control without a supplied value or default.
	ErrMissingControlValue = errors.New("ecosim: missing control value")

	// ErrNoPreviousValue marks an unguarded read of t-k before the first step.
	ErrNoPreviousValue = errors.New("ecosim: no previous value")

	// ErrNumerical marks non-finite or out-of-range computed values.
	ErrNumerical = errors.New("ecosim: numerical warning")

	// ErrFrozen is returned when a frozen builder is mutated.
	ErrFrozen = errors.New("ecosim: structure is frozen")
)

// ConfigurationError reports a bad selection key or parameter input.
type ConfigurationError struct {
	Field   string
	Message string
	Wrapped error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Wrapped != nil {
		if msg == "" {
			msg = e.Wrapped.Error()
		} else {
			msg += ": " + e.Wrapped.Error()
		}
	}
	if e.Field == "" {
		return "configuration: " + msg
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, msg)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func (e *ConfigurationError) Unwrap() error { return e.Wrapped }

// Configf builds a ConfigurationError for field.
func Configf(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StructuralKind classifies a StructuralError.
type StructuralKind int

const (
	DuplicateName StructuralKind = iota
	UndeclaredTarget
	UndeclaredReference
	DuplicateEquation
	ControlTargeted
	ShapeMismatch
	Cycle
	StaticDependency
	UndeclaredDependency
	InvalidComponent
)

func (k StructuralKind) String() string {
	switch k {
	case DuplicateName:
		return "duplicate name"
	case UndeclaredTarget:
		return "undeclared target"
	case UndeclaredReference:
		return "undeclared reference"
	case DuplicateEquation:
		return "duplicate equation"
	case ControlTargeted:
		return "equation targets control"
	case ShapeMismatch:
		return "shape mismatch"
	case Cycle:
		return "dependency cycle"
	case StaticDependency:
		return "invalid static dependency"
	case UndeclaredDependency:
		return "undeclared dependency"
	default:
		return "invalid component"
	}
}

// StructuralError reports an inconsistency in the composed system. Names
// lists the offending entities; for a Cycle it is the full path, first name
// repeated at the end.
type StructuralError struct {
	Kind    StructuralKind
	Names   []string
	Message string
}

func (e *StructuralError) Error() string {
	var b strings.Builder
	b.WriteString("structure: ")
	b.WriteString(e.Kind.String())
	if len(e.Names) > 0 {
		sep := ", "
		if e.Kind == Cycle {
			sep = " -> "
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Names, sep))
	}
	if e.Message != "" {
		b.WriteString(" (")
		b.WriteString(e.Message)
		b.WriteString(")")
	}
	return b.String()
}

func (e *StructuralError) Is(target error) bool { return target == ErrStructural }

func structural(kind StructuralKind, msg string, names ...string) *StructuralError {
	return &StructuralError{Kind: kind, Names: names, Message: msg}
}

// NewStructuralError is used by packages outside model that detect
// structural problems (the graph builder, the evaluator).
func NewStructuralError(kind StructuralKind, msg string, names ...string) *StructuralError {
	return structural(kind, msg, names...)
}

type UnresolvedVariableError struct {
	Variable string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("unresolved variable %q: no equation and not a control", e.Variable)
}

func (e *UnresolvedVariableError) Is(target error) bool { return target == ErrUnresolvedVariable }

type MissingControlValueError struct {
	Control string
	Index   Index
}

func (e *MissingControlValueError) Error() string {
	return fmt.Sprintf("missing control value for %s%s", e.Control, e.Index)
}

func (e *MissingControlValueError) Is(target error) bool { return target == ErrMissingControlValue }

// NoPreviousValueError is raised when a rule calls Lagged.Get at a step
// where t-Lag does not exist.
type NoPreviousValueError struct {
	Equation string
	Variable string
	Lag      int
	Index    Index
}

func (e *NoPreviousValueError) Error() string {
	return fmt.Sprintf("equation %s read %s[t-%d] at %s before the first step",
		e.Equation, e.Variable, e.Lag, e.Index)
}

func (e *NoPreviousValueError) Is(target error) bool { return target == ErrNoPreviousValue }

// NumericalWarning describes a non-finite or out-of-range value.
type NumericalWarning struct {
	Variable string
	Index    Index
	Value    float64
	Reason   string
}

func (w *NumericalWarning) Error() string {
	return fmt.Sprintf("%s%s = %g: %s", w.Variable, w.Index, w.Value, w.Reason)
}

func (w *NumericalWarning) Is(target error) bool { return target == ErrNumerical }
