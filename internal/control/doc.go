// Package control supplies control-variable trajectories to the simulator.
//
// A [Set] maps control names to a [Source]:
//
//   - [Constant]: one value everywhere
//   - [Ramp]: linear from one level to another over a number of years
//   - [Schedule]: piecewise linear through (year, value) points
//   - [Series]: one value per time step
//   - [Regional]: a source per region
//
// # Usage
//
//	set := control.NewSet(dims).
//		Add("relative_abatement", control.Ramp{From: 0, To: 1, Years: 50}).
//		WithDefault(0)
//	res, err := simulator.Run(ctx, set, sim.Config{})
package control
