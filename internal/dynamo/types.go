package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// State is an ordered vector of real values describing a system at an instant.
type State []float64

func (s State) Clone() State {
	if s == nil {
		return nil
	}
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Norm returns the euclidean norm.
func (s State) Norm() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Norm(s, 2)
}

// MaxAbs returns the infinity norm.
func (s State) MaxAbs() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Norm(s, math.Inf(1))
}

// Distance returns the infinity-norm distance between two states of equal length.
func (s State) Distance(other State) float64 {
	if len(s) != len(other) {
		return math.Inf(1)
	}
	if len(s) == 0 {
		return 0
	}
	return floats.Distance(s, other, math.Inf(1))
}

func (s State) Add(other State) State {
	result := s.Clone()
	n := min(len(s), len(other))
	floats.Add(result[:n], other[:n])
	return result
}

func (s State) Sub(other State) State {
	result := s.Clone()
	n := min(len(s), len(other))
	floats.Sub(result[:n], other[:n])
	return result
}

func (s State) Scale(factor float64) State {
	result := s.Clone()
	floats.Scale(factor, result)
	return result
}

// AddScaled performs s += alpha*v in place. Both vectors must have the same length.
func (s State) AddScaled(alpha float64, v State) {
	floats.AddScaled(s, alpha, v)
}

// System is a system of ordinary differential equations dX/dt = f(X, t).
// Derive must not retain or modify x.
type System interface {
	Derive(x State, t float64) State
}

// SystemFunc adapts an ordinary function to the System interface.
type SystemFunc func(x State, t float64) State

func (f SystemFunc) Derive(x State, t float64) State {
	return f(x, t)
}

// Dimensioned is implemented by systems with a fixed state size.
type Dimensioned interface {
	StateDim() int
}

// Hamiltonian is implemented by systems with a conserved energy.
type Hamiltonian interface {
	Energy(x State) float64
}

// Configurable exposes named scalar parameters.
type Configurable interface {
	Params() map[string]float64
	SetParam(name string, value float64) error
}

// Defaulted supplies a representative initial state.
type Defaulted interface {
	DefaultState() State
}

// Solvable is implemented by systems with a closed-form solution. Exact
// returns the state reached from x0 after elapsed time t.
type Solvable interface {
	Exact(x0 State, t float64) State
}

// CheckDimension reports ErrDimensionMismatch when sys declares a state size
// different from len(x).
func CheckDimension(sys System, x State) error {
	d, ok := sys.(Dimensioned)
	if !ok {
		return nil
	}
	if d.StateDim() != len(x) {
		return &DimensionError{Want: d.StateDim(), Got: len(x)}
	}
	return nil
}
