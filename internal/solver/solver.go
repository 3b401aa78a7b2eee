package solver

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/integrators"
)

const (
	DefaultMaxSteps      = 1_000_000
	DefaultMaxRejections = 64
)

// Settings is the immutable configuration of a solver.
type Settings struct {
	LogType           LogType
	StepperType       StepperType
	TimeStep          float64
	RelativeTolerance float64
	AbsoluteTolerance float64
}

// Validate reports an ErrConfiguration for settings no solver can be built from.
func (s Settings) Validate() error {
	switch {
	case !s.LogType.valid():
		return fmt.Errorf("%w: log type: %w", dynamo.ErrConfiguration, fmt.Errorf("%w: %s", dynamo.ErrUnknownLogType, s.LogType))
	case math.IsNaN(s.TimeStep) || math.IsInf(s.TimeStep, 0) || s.TimeStep <= 0:
		return fmt.Errorf("%w: time step must be positive and finite, got %g", dynamo.ErrConfiguration, s.TimeStep)
	case math.IsNaN(s.RelativeTolerance) || s.RelativeTolerance < 0:
		return fmt.Errorf("%w: relative tolerance must be non-negative, got %g", dynamo.ErrConfiguration, s.RelativeTolerance)
	case math.IsNaN(s.AbsoluteTolerance) || s.AbsoluteTolerance < 0:
		return fmt.Errorf("%w: absolute tolerance must be non-negative, got %g", dynamo.ErrConfiguration, s.AbsoluteTolerance)
	}
	if _, err := s.StepperType.registryName(); err != nil {
		return fmt.Errorf("%w: stepper type: %w", dynamo.ErrConfiguration, err)
	}
	return nil
}

// Option configures optional solver behavior.
type Option func(*NumericalSolver)

func WithLogger(logger *slog.Logger) Option {
	return func(s *NumericalSolver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxSteps bounds the accepted steps of a single integration call.
func WithMaxSteps(n int) Option {
	return func(s *NumericalSolver) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

// WithMaxRejections bounds consecutive rejected trials of one controlled step.
func WithMaxRejections(n int) Option {
	return func(s *NumericalSolver) {
		if n > 0 {
			s.maxRejections = n
		}
	}
}

// WithMinTimeStep sets the smallest step magnitude the controller may try.
func WithMinTimeStep(h float64) Option {
	return func(s *NumericalSolver) {
		if h >= 0 && !math.IsNaN(h) {
			s.minTimeStep = h
		}
	}
}

// Observer is notified of the initial state and of every accepted step,
// whatever the log type.
type Observer interface {
	OnStep(x dynamo.State, t float64)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(x dynamo.State, t float64)

func (f ObserverFunc) OnStep(x dynamo.State, t float64) { f(x, t) }

// WithObserver registers an observer. Observers must not retain x.
func WithObserver(o Observer) Option {
	return func(s *NumericalSolver) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// NumericalSolver integrates initial value problems with a Runge-Kutta
// stepper and keeps a history of observed states.
type NumericalSolver struct {
	settings Settings
	defined  bool

	stepper integrators.Stepper
	history []Solution

	logger        *slog.Logger
	observers     []Observer
	maxSteps      int
	maxRejections int
	minTimeStep   float64
}

func New(logType LogType, stepperType StepperType, timeStep, relTol, absTol float64, opts ...Option) (*NumericalSolver, error) {
	settings := Settings{
		LogType:           logType,
		StepperType:       stepperType,
		TimeStep:          timeStep,
		RelativeTolerance: relTol,
		AbsoluteTolerance: absTol,
	}
	return NewFromSettings(settings, opts...)
}

func NewFromSettings(settings Settings, opts ...Option) (*NumericalSolver, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	name, _ := settings.StepperType.registryName()
	stepper, err := integrators.New(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dynamo.ErrConfiguration, err)
	}

	s := &NumericalSolver{
		settings:      settings,
		defined:       true,
		stepper:       stepper,
		logger:        slog.Default(),
		maxSteps:      DefaultMaxSteps,
		maxRejections: DefaultMaxRejections,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Default returns a NoLog Fehlberg 7(8) solver with a 5.0 initial step and
// 1e-12 tolerances.
func Default(opts ...Option) *NumericalSolver {
	s, err := New(NoLog, RungeKuttaFehlberg78, 5.0, 1e-12, 1e-12, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Undefined returns a placeholder solver that fails every operation.
func Undefined() *NumericalSolver {
	return &NumericalSolver{
		settings: Settings{
			LogType:           NoLog,
			StepperType:       RungeKuttaCashKarp54,
			TimeStep:          math.NaN(),
			RelativeTolerance: math.NaN(),
			AbsoluteTolerance: math.NaN(),
		},
		logger: slog.Default(),
	}
}

func (s *NumericalSolver) IsDefined() bool {
	return s != nil && s.defined
}

func (s *NumericalSolver) Settings() (Settings, error) {
	if !s.IsDefined() {
		return Settings{}, dynamo.ErrUndefined
	}
	return s.settings, nil
}

func (s *NumericalSolver) LogType() (LogType, error) {
	if !s.IsDefined() {
		return 0, dynamo.ErrUndefined
	}
	return s.settings.LogType, nil
}

func (s *NumericalSolver) StepperType() (StepperType, error) {
	if !s.IsDefined() {
		return 0, dynamo.ErrUndefined
	}
	return s.settings.StepperType, nil
}

func (s *NumericalSolver) TimeStep() (float64, error) {
	if !s.IsDefined() {
		return 0, dynamo.ErrUndefined
	}
	return s.settings.TimeStep, nil
}

func (s *NumericalSolver) RelativeTolerance() (float64, error) {
	if !s.IsDefined() {
		return 0, dynamo.ErrUndefined
	}
	return s.settings.RelativeTolerance, nil
}

func (s *NumericalSolver) AbsoluteTolerance() (float64, error) {
	if !s.IsDefined() {
		return 0, dynamo.ErrUndefined
	}
	return s.settings.AbsoluteTolerance, nil
}

// Equal compares configuration only. Undefined solvers are never equal.
func (s *NumericalSolver) Equal(other *NumericalSolver) bool {
	if !s.IsDefined() || !other.IsDefined() {
		return false
	}
	return s.settings == other.settings
}

// Clone returns an independent solver with the same settings, options and a
// deep copy of the history.
func (s *NumericalSolver) Clone() *NumericalSolver {
	if s == nil {
		return nil
	}
	c := &NumericalSolver{
		settings:      s.settings,
		defined:       s.defined,
		logger:        s.logger,
		observers:     append([]Observer(nil), s.observers...),
		maxSteps:      s.maxSteps,
		maxRejections: s.maxRejections,
		minTimeStep:   s.minTimeStep,
	}
	if s.defined {
		name, _ := s.settings.StepperType.registryName()
		c.stepper, _ = integrators.New(name)
	}
	if len(s.history) > 0 {
		c.history = make([]Solution, len(s.history))
		for i, sol := range s.history {
			c.history[i] = sol.clone()
		}
	}
	return c
}

// AccessObservedStateVectors returns the live history. Callers must not
// modify it.
func (s *NumericalSolver) AccessObservedStateVectors() ([]Solution, error) {
	if !s.IsDefined() {
		return nil, dynamo.ErrUndefined
	}
	if s.history == nil {
		return []Solution{}, nil
	}
	return s.history, nil
}

// ObservedStateVectors returns a deep copy of the history.
func (s *NumericalSolver) ObservedStateVectors() ([]Solution, error) {
	if !s.IsDefined() {
		return nil, dynamo.ErrUndefined
	}
	out := make([]Solution, len(s.history))
	for i, sol := range s.history {
		out[i] = sol.clone()
	}
	return out, nil
}

func (s *NumericalSolver) observe(x dynamo.State, t float64) {
	s.history = append(s.history, Solution{State: x.Clone(), Time: t, Status: StatusConverged})
	s.logger.Debug("observed state", "t", t, "state", []float64(x))
}

func (s *NumericalSolver) Print(w io.Writer, decorated bool) error {
	return printSolver(w, s, decorated)
}

func (s *NumericalSolver) String() string {
	return renderString(s)
}
