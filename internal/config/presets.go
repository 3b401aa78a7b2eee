package config

import "sort"

func preset(system, stepper, log string, dt, duration float64, x0 []float64, params map[string]float64) *Config {
	return &Config{
		System: system, Stepper: stepper, Log: log,
		TimeStep: dt, RelTol: DefaultTol, AbsTol: DefaultTol,
		Duration: duration, InitialState: x0, Params: params,
	}
}

var Presets = map[string]map[string]*Config{
	"decay": {
		"unit": preset("decay", "rk4", "constant", 0.01, 5.0, []float64{1.0}, nil),
		"slow": preset("decay", "cashkarp54", "adaptive", 0.1, 50.0, []float64{1.0}, map[string]float64{"k": 0.1}),
	},
	"oscillator": {
		"unit":  preset("oscillator", "dopri5", "adaptive", 0.1, 20.0, []float64{1.0, 0.0}, nil),
		"fast":  preset("oscillator", "fehlberg78", "adaptive", 0.1, 10.0, []float64{1.0, 0.0}, map[string]float64{"omega": 10}),
		"fixed": preset("oscillator", "rk4", "constant", 0.01, 20.0, []float64{0.0, 1.0}, nil),
	},
	"pendulum": {
		"small":    preset("pendulum", "dopri5", "adaptive", 0.01, 20.0, []float64{0.2, 0.0}, nil),
		"large":    preset("pendulum", "dopri5", "adaptive", 0.01, 20.0, []float64{2.5, 0.0}, nil),
		"spinning": preset("pendulum", "fehlberg78", "constant", 0.01, 30.0, []float64{0.1, 8.0}, nil),
		"damped":   preset("pendulum", "rk4", "constant", 0.01, 30.0, []float64{1.5, 0.0}, map[string]float64{"damping": 0.3}),
	},
	"vanderpol": {
		"classic":    preset("vanderpol", "dopri5", "adaptive", 0.01, 30.0, []float64{2.0, 0.0}, nil),
		"relaxation": preset("vanderpol", "cashkarp54", "adaptive", 0.01, 60.0, []float64{2.0, 0.0}, map[string]float64{"mu": 10}),
	},
	"lorenz": {
		"butterfly": preset("lorenz", "dopri5", "constant", 0.01, 50.0, []float64{1.0, 1.0, 1.0}, nil),
		"stable":    preset("lorenz", "dopri5", "adaptive", 0.01, 30.0, []float64{1.0, 1.0, 1.0}, map[string]float64{"rho": 14}),
	},
	"kepler": {
		"eccentric": preset("kepler", "fehlberg78", "adaptive", 0.01, 6.283185307179586, []float64{0.5, 0.0, 0.0, 1.7320508075688772}, nil),
		"circular":  preset("kepler", "dopri5", "constant", 0.05, 12.566370614359172, []float64{1.0, 0.0, 0.0, 1.0}, nil),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(system, name string) *Config {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	cfg, ok := systemPresets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// ListPresets returns the preset names of a system in sorted order.
func ListPresets(system string) []string {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(systemPresets))
	for name := range systemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
