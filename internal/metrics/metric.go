package metrics

import (
	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
)

// Metric accumulates a scalar summary of a trajectory.
type Metric interface {
	Name() string
	Observe(x dynamo.State, t float64)
	Value() float64
	Reset()
}

type observer []Metric

func (o observer) OnStep(x dynamo.State, t float64) {
	for _, m := range o {
		m.Observe(x, t)
	}
}

// Observer feeds every accepted solver step to the given metrics.
func Observer(ms ...Metric) solver.Observer {
	return observer(ms)
}

// Replay feeds a recorded trajectory to the given metrics.
func Replay(solutions []solver.Solution, ms ...Metric) {
	for _, sol := range solutions {
		for _, m := range ms {
			m.Observe(sol.State, sol.Time)
		}
	}
}

// Values collects metric values by name.
func Values(ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// Defaults returns the metrics that apply to sys.
func Defaults(sys dynamo.System) []Metric {
	ms := []Metric{NewStability(1e6), NewStepSize()}
	if _, ok := sys.(dynamo.Hamiltonian); ok {
		ms = append(ms, NewEnergy(sys), NewEnergyDrift(sys))
	}
	return ms
}
