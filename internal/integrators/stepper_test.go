package integrators

import (
	"errors"
	"testing"

	"github.com/san-kum/odesolve/internal/dynamo"
)

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name     string
		order    int
		adaptive bool
	}{
		{NameRK4, 4, false},
		{NameCashKarp54, 5, true},
		{NameFehlberg78, 8, true},
		{NameDopri5, 5, true},
	}

	for _, tt := range tests {
		s, err := r.New(tt.name)
		if err != nil {
			t.Fatalf("New(%s): %v", tt.name, err)
		}
		if s.Name() != tt.name {
			t.Errorf("Name() = %s, want %s", s.Name(), tt.name)
		}
		if s.Order() != tt.order {
			t.Errorf("%s: Order() = %d, want %d", tt.name, s.Order(), tt.order)
		}
		if _, ok := s.(ErrorStepper); ok != tt.adaptive {
			t.Errorf("%s: ErrorStepper = %v, want %v", tt.name, ok, tt.adaptive)
		}
	}
}

func TestRegistryUnknown(t *testing.T) {
	_, err := NewRegistry().New("leapfrog")
	if !errors.Is(err, dynamo.ErrUnknownStepper) {
		t.Errorf("expected ErrUnknownStepper, got %v", err)
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	r.Register("euler", func() Stepper { return NewEuler() })

	s, err := r.New("euler")
	if err != nil {
		t.Fatalf("New(euler): %v", err)
	}
	if s.Order() != 1 {
		t.Errorf("unexpected order %d", s.Order())
	}

	names := r.Names()
	if len(names) != 5 || names[0] != NameCashKarp54 {
		t.Errorf("unexpected names %v", names)
	}
}

func TestFactoriesReturnFreshInstances(t *testing.T) {
	a, _ := New(NameDopri5)
	b, _ := New(NameDopri5)
	if a == b {
		t.Error("factories must not share stepper instances")
	}
}
