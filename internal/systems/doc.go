// Package systems provides named ordinary differential equations used by the
// command line tool, the analysis helpers and the tests.
//
// Each system implements [dynamo.System] and [dynamo.Dimensioned]. Most also
// implement [dynamo.Configurable] and [dynamo.Defaulted]; conservative
// systems implement [dynamo.Hamiltonian] and systems with a closed-form
// solution implement [dynamo.Solvable]:
//
//   - [Decay]: dx/dt = -k x
//   - [Oscillator]: x'' = -w^2 x
//   - [Pendulum]: damped nonlinear pendulum
//   - [VanDerPol]: relaxation oscillator with a limit cycle
//   - [Lorenz]: butterfly attractor
//   - [Kepler]: planar two-body problem in relative coordinates
//
// Derive never mutates its input and keeps no per-call state, so a single
// instance can be shared by concurrent integrations.
package systems
