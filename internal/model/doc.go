// Package model defines the structural vocabulary of an ecosim equation system.
//
// A system is declared, not executed:
//
//   - [Variable]: an unknown of the system, optionally marked as a control
//   - [Parameter]: an input bound once per run by a binder
//   - [Equation]: defines one variable from a rule and an explicit dependency list
//   - [Constraint]: a relation without target, emitted or omitted per index
//   - [Objective]: the variable an external solver optimises
//
// Components declare entities on a [Builder] and return their relations. The
// builder is frozen into an immutable [Structure], which is combined with
// parameter values into a [Bound] model. Evaluation produces a [Table].
//
// # Index shapes
//
// Every declaration has one of four shapes: [Scalar], [Time], [Region] or
// [TimeRegion]. Scalar and Region declarations are static: they do not vary
// with the time step.
//
// # Thread Safety
//
// A Builder is single-goroutine. Structure and Bound are read-only after
// creation and may be shared by concurrent runs; a Table belongs to one run.
package model
