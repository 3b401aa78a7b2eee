package systems

import (
	"fmt"

	"github.com/san-kum/odesolve/internal/dynamo"
)

type Lorenz struct{ Sigma, Rho, Beta float64 }

func NewLorenz() *Lorenz        { return &Lorenz{10.0, 28.0, 8.0 / 3.0} }
func (l *Lorenz) StateDim() int { return 3 }

// Derive calculates the Lorenz attractor derivatives.
func (l *Lorenz) Derive(s dynamo.State, _ float64) dynamo.State {
	return dynamo.State{l.Sigma * (s[1] - s[0]), s[0]*(l.Rho-s[2]) - s[1], s[0]*s[1] - l.Beta*s[2]}
}
func (l *Lorenz) DefaultState() dynamo.State { return dynamo.State{1.0, 1.0, 1.0} }
func (l *Lorenz) Params() map[string]float64 {
	return map[string]float64{"sigma": l.Sigma, "rho": l.Rho, "beta": l.Beta}
}
func (l *Lorenz) SetParam(n string, v float64) error {
	switch n {
	case "sigma":
		l.Sigma = v
	case "rho":
		l.Rho = v
	case "beta":
		l.Beta = v
	default:
		return fmt.Errorf("%w: lorenz has no %q", ErrUnknownParam, n)
	}
	return nil
}
