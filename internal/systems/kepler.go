package systems

import (
	"fmt"
	"math"

	"github.com/san-kum/odesolve/internal/dynamo"
)

// Kepler is the planar two-body problem in relative coordinates.
// State: [x, y, vx, vy]
type Kepler struct {
	Mu float64 // gravitational parameter G*(m1+m2)
}

func NewKepler() *Kepler { return &Kepler{Mu: 1.0} }

func (k *Kepler) StateDim() int { return 4 }

func (k *Kepler) Derive(s dynamo.State, _ float64) dynamo.State {
	x, y, vx, vy := s[0], s[1], s[2], s[3]

	r := math.Hypot(x, y)
	r3 := r * r * r

	return dynamo.State{vx, vy, -k.Mu * x / r3, -k.Mu * y / r3}
}

// Energy is the specific orbital energy.
func (k *Kepler) Energy(s dynamo.State) float64 {
	v2 := s[2]*s[2] + s[3]*s[3]
	return 0.5*v2 - k.Mu/math.Hypot(s[0], s[1])
}

// AngularMomentum is the specific angular momentum about the origin.
func (k *Kepler) AngularMomentum(s dynamo.State) float64 {
	return s[0]*s[3] - s[1]*s[2]
}

// Period is the orbital period of a bound orbit, or +Inf.
func (k *Kepler) Period(s dynamo.State) float64 {
	e := k.Energy(s)
	if e >= 0 {
		return math.Inf(1)
	}
	a := -k.Mu / (2 * e)
	return 2 * math.Pi * math.Sqrt(a*a*a/k.Mu)
}

// DefaultState is an orbit with eccentricity 0.5 starting at periapsis.
func (k *Kepler) DefaultState() dynamo.State {
	const ecc = 0.5
	return dynamo.State{1 - ecc, 0, 0, math.Sqrt(k.Mu * (1 + ecc) / (1 - ecc))}
}

func (k *Kepler) Params() map[string]float64 {
	return map[string]float64{"mu": k.Mu}
}

func (k *Kepler) SetParam(name string, value float64) error {
	if name != "mu" {
		return fmt.Errorf("%w: kepler has no %q", ErrUnknownParam, name)
	}
	k.Mu = value
	return nil
}
