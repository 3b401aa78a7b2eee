package integrators

import (
	"fmt"
	"sort"
	"sync"

	"github.com/san-kum/odesolve/internal/dynamo"
)

// Stepper advances a state by one step of size dt.
type Stepper interface {
	Name() string
	Order() int
	Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State
}

// ErrorStepper is an embedded-pair stepper. StepWithError takes the
// derivative at (x, t) so that a controller can reuse it across rejected
// trials, and returns the higher-order solution with the local error estimate.
type ErrorStepper interface {
	Stepper
	ErrorOrder() int
	StepWithError(sys dynamo.System, x, dxdt dynamo.State, t, dt float64) (next, xerr dynamo.State)
}

// Factory builds a fresh stepper. Steppers keep scratch buffers, so every
// solver gets its own instance.
type Factory func() Stepper

const (
	NameRK4        = "rk4"
	NameCashKarp54 = "cashkarp54"
	NameFehlberg78 = "fehlberg78"
	NameDopri5     = "dopri5"
)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.factories[NameRK4] = func() Stepper { return NewRK4() }
	r.factories[NameCashKarp54] = func() Stepper { return NewCashKarp54() }
	r.factories[NameFehlberg78] = func() Stepper { return NewFehlberg78() }
	r.factories[NameDopri5] = func() Stepper { return NewDopri5() }

	return r
}

// Register adds or replaces a stepper factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) New(name string) (Stepper, error) {
	r.mu.RLock()
	fn, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", dynamo.ErrUnknownStepper, name)
	}
	return fn(), nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

// Register adds a factory to the package registry.
func Register(name string, f Factory) { defaultRegistry.Register(name, f) }

// New builds a stepper from the package registry.
func New(name string) (Stepper, error) { return defaultRegistry.New(name) }

// Names lists the steppers in the package registry.
func Names() []string { return defaultRegistry.Names() }
