package metrics

import (
	"math"

	"github.com/san-kum/odesolve/internal/dynamo"
)

// Energy is the mean energy over the observed states.
type Energy struct {
	name        string
	samples     int
	totalEnergy float64
	dyn         dynamo.System
}

func NewEnergy(dyn dynamo.System) *Energy {
	return &Energy{
		name: "energy",
		dyn:  dyn,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x dynamo.State, t float64) {
	ec, ok := e.dyn.(dynamo.Hamiltonian)
	if !ok {
		return
	}
	e.totalEnergy += ec.Energy(x)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation from the first observed
// energy. Absolute deviation is used when the initial energy is zero.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
	dyn           dynamo.System
}

func NewEnergyDrift(dyn dynamo.System) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		dyn:  dyn,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, t float64) {
	ec, ok := e.dyn.(dynamo.Hamiltonian)
	if !ok {
		return
	}

	energy := ec.Energy(x)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	drift := math.Abs(energy - e.initialEnergy)
	if e.initialEnergy != 0 {
		drift /= math.Abs(e.initialEnergy)
	}
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

// Current is the last observed energy.
func (e *EnergyDrift) Current() float64 { return e.currentEnergy }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
