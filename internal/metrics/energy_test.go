package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/systems"
)

func TestEnergyConservation(t *testing.T) {
	p := systems.NewPendulum()
	m := NewEnergy(p)

	theta := math.Pi / 4
	omega := 0.0

	x := dynamo.State{theta, omega}

	m.Observe(x, 0)
	e1 := m.Value()

	m.Reset()

	ke := 0.5 * omega * omega
	pe := 9.81 * (1 - math.Cos(theta))
	expected := ke + pe

	m.Observe(x, 0)
	e2 := m.Value()

	if math.Abs(e1-expected) > 1e-6 {
		t.Errorf("expected energy %f, got %f", expected, e1)
	}

	if math.Abs(e2-expected) > 1e-6 {
		t.Errorf("expected energy %f after reset, got %f", expected, e2)
	}
}

func TestEnergyReset(t *testing.T) {
	m := NewEnergy(systems.NewPendulum())

	m.Observe(dynamo.State{1.0, 1.0}, 0)
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyIgnoresNonHamiltonian(t *testing.T) {
	m := NewEnergyDrift(systems.NewLorenz())
	m.Observe(dynamo.State{1, 1, 1}, 0)
	m.Observe(dynamo.State{5, 5, 5}, 1)
	if m.Value() != 0 {
		t.Errorf("expected no drift for a system without energy, got %v", m.Value())
	}
}

func TestEnergyDrift(t *testing.T) {
	o := systems.NewOscillator()
	m := NewEnergyDrift(o)

	m.Observe(dynamo.State{1, 0}, 0)
	m.Observe(dynamo.State{0, 1.1}, 1)
	m.Observe(dynamo.State{1, 0}, 2)

	// 0.5*1.21 vs 0.5: relative drift 0.21
	if got := m.Value(); math.Abs(got-0.21) > 1e-12 {
		t.Errorf("max drift = %v, want 0.21", got)
	}
	if got := m.Current(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("current energy = %v, want 0.5", got)
	}
}

func TestEnergyDriftFromZero(t *testing.T) {
	m := NewEnergyDrift(systems.NewOscillator())
	m.Observe(dynamo.State{0, 0}, 0)
	m.Observe(dynamo.State{0, 0.1}, 1)
	if got := m.Value(); math.Abs(got-0.005) > 1e-15 {
		t.Errorf("absolute drift = %v, want 0.005", got)
	}
}

func TestStability(t *testing.T) {
	s := NewStability(10)
	if s.Value() != 1 {
		t.Errorf("empty stability = %v, want 1", s.Value())
	}

	s.Observe(dynamo.State{1, 2}, 0)
	s.Observe(dynamo.State{11, 0}, 1)
	s.Observe(dynamo.State{math.NaN(), 0}, 2)
	s.Observe(dynamo.State{-3, 4}, 3)

	if got := s.Value(); got != 0.5 {
		t.Errorf("stability = %v, want 0.5", got)
	}
}

func TestStepSize(t *testing.T) {
	s := NewStepSize()
	for _, tt := range []float64{0, 0.1, 0.3, 0.6} {
		s.Observe(nil, tt)
	}
	if got := s.Value(); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("mean step = %v, want 0.2", got)
	}
	if math.Abs(s.Min()-0.1) > 1e-12 || math.Abs(s.Max()-0.3) > 1e-12 {
		t.Errorf("min/max = %v/%v", s.Min(), s.Max())
	}

	s.Reset()
	if s.Value() != 0 || s.Name() != "step_size" {
		t.Error("reset should clear samples and keep the name")
	}
}

func TestDefaults(t *testing.T) {
	if n := len(Defaults(systems.NewLorenz())); n != 2 {
		t.Errorf("lorenz: expected 2 metrics, got %d", n)
	}
	vals := Values(Defaults(systems.NewKepler())...)
	for _, name := range []string{"stability", "step_size", "energy", "energy_drift"} {
		if _, ok := vals[name]; !ok {
			t.Errorf("kepler metrics missing %s", name)
		}
	}
}
