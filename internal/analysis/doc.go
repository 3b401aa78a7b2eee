// Package analysis provides accuracy and dynamics analysis on top of the
// solver.
//
//   - [StepStudy] and [ConvergenceOrder]: empirical order of a stepper
//   - [PhasePortrait] and [PoincareSection]: 2D views of a recorded trajectory
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory separation
//   - [BifurcationDiagram]: parameter sweep of long-run values
//   - [PowerSpectrum] and [DominantFrequency]: spectra of sampled components
//
// # Order verification
//
// The global error of a p-th order method scales as h^p, so the slope of
// log(err) against log(h) recovers p:
//
//	errs, _ := analysis.StepStudy(ctx, integrators.NewRK4(), sys, x0, 1, exact, steps)
//	p, _ := analysis.ConvergenceOrder(steps, errs)
package analysis
