package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
	"github.com/san-kum/odesolve/internal/systems"
)

const (
	DefaultSystem   = "pendulum"
	DefaultStepper  = "dopri5"
	DefaultLog      = "adaptive"
	DefaultTimeStep = 0.01
	DefaultTol      = 1e-10
	DefaultDuration = 10.0
)

// Config describes one integration run.
type Config struct {
	System       string             `yaml:"system"`
	Stepper      string             `yaml:"stepper"`
	Log          string             `yaml:"log"`
	TimeStep     float64            `yaml:"time_step"`
	RelTol       float64            `yaml:"rel_tol"`
	AbsTol       float64            `yaml:"abs_tol"`
	Start        float64            `yaml:"start"`
	Duration     float64            `yaml:"duration"`
	InitialState []float64          `yaml:"initial_state,omitempty"`
	MaxSteps     int                `yaml:"max_steps,omitempty"`
	Params       map[string]float64 `yaml:"params,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		System:   DefaultSystem,
		Stepper:  DefaultStepper,
		Log:      DefaultLog,
		TimeStep: DefaultTimeStep,
		RelTol:   DefaultTol,
		AbsTol:   DefaultTol,
		Duration: DefaultDuration,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	if c.InitialState != nil {
		cp.InitialState = append([]float64(nil), c.InitialState...)
	}
	if c.Params != nil {
		cp.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			cp.Params[k] = v
		}
	}
	return &cp
}

// Validate checks every field that can be checked without integrating.
func (c *Config) Validate() error {
	settings, err := c.Settings()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if math.IsNaN(c.Start) || math.IsInf(c.Start, 0) {
		return fmt.Errorf("%w: start must be finite", dynamo.ErrConfiguration)
	}
	if math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("%w: duration must be finite", dynamo.ErrConfiguration)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must not be negative", dynamo.ErrConfiguration)
	}

	sys, err := c.BuildSystem()
	if err != nil {
		return fmt.Errorf("%w: %w", dynamo.ErrConfiguration, err)
	}
	if c.InitialState != nil {
		if err := dynamo.CheckDimension(sys, c.InitialState); err != nil {
			return fmt.Errorf("%w: initial_state: %w", dynamo.ErrConfiguration, err)
		}
	}
	return nil
}

// Settings converts the solver fields.
func (c *Config) Settings() (solver.Settings, error) {
	st, err := solver.ParseStepperType(c.Stepper)
	if err != nil {
		return solver.Settings{}, fmt.Errorf("%w: %w", dynamo.ErrConfiguration, err)
	}
	lt, err := solver.ParseLogType(c.Log)
	if err != nil {
		return solver.Settings{}, fmt.Errorf("%w: %w", dynamo.ErrConfiguration, err)
	}
	return solver.Settings{
		LogType:           lt,
		StepperType:       st,
		TimeStep:          c.TimeStep,
		RelativeTolerance: c.RelTol,
		AbsoluteTolerance: c.AbsTol,
	}, nil
}

// NewSolver builds the configured solver. MaxSteps is applied when set.
func (c *Config) NewSolver(opts ...solver.Option) (*solver.NumericalSolver, error) {
	settings, err := c.Settings()
	if err != nil {
		return nil, err
	}
	if c.MaxSteps > 0 {
		opts = append(opts, solver.WithMaxSteps(c.MaxSteps))
	}
	return solver.NewFromSettings(settings, opts...)
}

func (c *Config) BuildSystem() (dynamo.System, error) {
	return systems.Build(c.System, c.Params)
}

// GetInitState returns InitialState, falling back to the system's default
// state.
func (c *Config) GetInitState() (dynamo.State, error) {
	if len(c.InitialState) > 0 {
		return dynamo.State(c.InitialState).Clone(), nil
	}
	sys, err := c.BuildSystem()
	if err != nil {
		return nil, err
	}
	return systems.DefaultState(sys), nil
}
