package integrators

import "github.com/san-kum/odesolve/internal/dynamo"

// Euler is the explicit first-order method. It is not registered by default;
// it exists for convergence comparisons and as an example of extending the
// registry.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }
func (e *Euler) Order() int   { return 1 }

func (e *Euler) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	result := x.Clone()
	result.AddScaled(dt, sys.Derive(x, t))
	return result
}
