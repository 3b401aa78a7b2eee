// Package solver implements NumericalSolver, a reusable and steppable ODE
// integrator.
//
// A solver is built from an immutable [Settings] value (stepper type, time
// step magnitude, tolerances, log type) and owns an observation history that
// grows across integration calls:
//
//	s, err := solver.New(solver.LogAdaptive, solver.RungeKuttaDopri5, 0.1, 1e-10, 1e-10)
//	sol, err := s.IntegrateTime(ctx, x0, 0, 10, sys)
//	history, _ := s.ObservedStateVectors()
//
// # Step control
//
// Embedded-pair steppers use an infinity-norm error checker
//
//	err = max_i |e_i| / (absTol + relTol*(|x_i| + |dt|*|dxdt_i|))
//
// A step is accepted when err <= 1. Rejected steps shrink by
// max(0.9*err^(-1/(q-1)), 0.2) where q is the error order; accepted steps with
// err < 0.5 grow by at most 5x. The last step towards a target time is clipped
// so the solver lands on it exactly.
//
// # Thread Safety
//
// NumericalSolver instances are NOT thread-safe: integration mutates the
// observation history and stepper scratch buffers. Run concurrent
// integrations on independent clones, or use [Ensemble].
package solver
