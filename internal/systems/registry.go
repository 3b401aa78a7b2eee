package systems

import (
	"fmt"
	"sort"

	"github.com/san-kum/odesolve/internal/dynamo"
)

var factories = map[string]func() dynamo.System{
	"decay":      func() dynamo.System { return NewDecay() },
	"oscillator": func() dynamo.System { return NewOscillator() },
	"pendulum":   func() dynamo.System { return NewPendulum() },
	"vanderpol":  func() dynamo.System { return NewVanDerPol() },
	"lorenz":     func() dynamo.System { return NewLorenz() },
	"kepler":     func() dynamo.System { return NewKepler() },
}

// Lookup returns a fresh instance of the named system with default
// parameters.
func Lookup(name string) (dynamo.System, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSystem, name)
	}
	return fn(), nil
}

// Build looks up a system and applies parameter overrides.
func Build(name string, params map[string]float64) (dynamo.System, error) {
	sys, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return sys, nil
	}

	c, ok := sys.(dynamo.Configurable)
	if !ok {
		return nil, fmt.Errorf("%w: %s takes no parameters", ErrUnknownParam, name)
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.SetParam(k, params[k]); err != nil {
			return nil, err
		}
	}
	return sys, nil
}

func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultState returns the system's representative initial state, or zeros.
func DefaultState(sys dynamo.System) dynamo.State {
	if d, ok := sys.(dynamo.Defaulted); ok {
		return d.DefaultState()
	}
	if d, ok := sys.(dynamo.Dimensioned); ok {
		return make(dynamo.State, d.StateDim())
	}
	return nil
}
