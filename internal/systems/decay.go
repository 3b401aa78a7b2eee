package systems

import (
	"fmt"
	"math"

	"github.com/san-kum/odesolve/internal/dynamo"
)

// Decay is exponential decay with rate K.
type Decay struct {
	K float64
}

func NewDecay() *Decay { return &Decay{K: 1.0} }

func (d *Decay) StateDim() int { return 1 }

func (d *Decay) Derive(x dynamo.State, _ float64) dynamo.State {
	return dynamo.State{-d.K * x[0]}
}

func (d *Decay) Exact(x0 dynamo.State, t float64) dynamo.State {
	return dynamo.State{x0[0] * math.Exp(-d.K*t)}
}

func (d *Decay) DefaultState() dynamo.State { return dynamo.State{1.0} }

func (d *Decay) Params() map[string]float64 {
	return map[string]float64{"k": d.K}
}

func (d *Decay) SetParam(name string, value float64) error {
	if name != "k" {
		return fmt.Errorf("%w: decay has no %q", ErrUnknownParam, name)
	}
	d.K = value
	return nil
}
