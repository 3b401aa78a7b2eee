// Package dynamo provides the core primitives shared by the solver stack.
//
// The package defines the fundamental types for numerical integration of
// ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state at an instant
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [SystemFunc]: adapter turning a plain function into a [System]
//   - [IntegrationError]: error wrapper carrying step, time and state
//
// # Example
//
//	decay := dynamo.SystemFunc(func(x dynamo.State, t float64) dynamo.State {
//	    return dynamo.State{-x[0]}
//	})
//	s, _ := solver.New(solver.NoLog, solver.RungeKutta4, 0.01, 0, 0)
//	sol, _ := s.IntegrateDuration(ctx, dynamo.State{1}, 1.0, decay)
//
// # Immutability
//
// A [State] handed to a [System] or a stepper is never mutated by it; every
// step produces a fresh State.
package dynamo
