package solver_test

import (
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
)

func TestSolver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Solver Suite")
}

var quiet = solver.WithLogger(slog.New(slog.DiscardHandler))

// decay is dx/dt = -x.
var decay = dynamo.SystemFunc(func(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{-x[0]}
})

// oscillator is x'' = -x with state (x, v).
type oscillator struct{}

func (oscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (oscillator) StateDim() int { return 2 }

// ramp is dx/dt = t.
var ramp = dynamo.SystemFunc(func(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{t}
})

func mustNew(log solver.LogType, st solver.StepperType, h, rel, abs float64, opts ...solver.Option) *solver.NumericalSolver {
	GinkgoHelper()
	s, err := solver.New(log, st, h, rel, abs, append([]solver.Option{quiet}, opts...)...)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func stages(st solver.StepperType) int {
	switch st {
	case solver.RungeKuttaCashKarp54:
		return 6
	case solver.RungeKuttaFehlberg78:
		return 13
	case solver.RungeKuttaDopri5:
		return 7
	default:
		return 4
	}
}
