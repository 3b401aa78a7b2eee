package systems

import (
	"fmt"
	"math"

	"github.com/san-kum/odesolve/internal/dynamo"
)

// Oscillator is the undamped harmonic oscillator.
// State: [x, v]
type Oscillator struct {
	Omega float64
}

func NewOscillator() *Oscillator { return &Oscillator{Omega: 1.0} }

func (o *Oscillator) StateDim() int { return 2 }

func (o *Oscillator) Derive(x dynamo.State, _ float64) dynamo.State {
	return dynamo.State{x[1], -o.Omega * o.Omega * x[0]}
}

func (o *Oscillator) Energy(x dynamo.State) float64 {
	return 0.5*x[1]*x[1] + 0.5*o.Omega*o.Omega*x[0]*x[0]
}

func (o *Oscillator) Exact(x0 dynamo.State, t float64) dynamo.State {
	w := o.Omega
	c, s := math.Cos(w*t), math.Sin(w*t)
	return dynamo.State{
		x0[0]*c + x0[1]/w*s,
		-x0[0]*w*s + x0[1]*c,
	}
}

func (o *Oscillator) DefaultState() dynamo.State { return dynamo.State{1.0, 0.0} }

func (o *Oscillator) Params() map[string]float64 {
	return map[string]float64{"omega": o.Omega}
}

func (o *Oscillator) SetParam(name string, value float64) error {
	if name != "omega" {
		return fmt.Errorf("%w: oscillator has no %q", ErrUnknownParam, name)
	}
	o.Omega = value
	return nil
}
