package solver

import (
	"fmt"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/integrators"
)

// StepperType selects the Runge-Kutta method.
type StepperType int

const (
	RungeKutta4 StepperType = iota
	RungeKuttaCashKarp54
	RungeKuttaFehlberg78
	RungeKuttaDopri5
)

var stepperTypes = []StepperType{RungeKutta4, RungeKuttaCashKarp54, RungeKuttaFehlberg78, RungeKuttaDopri5}

// StepperTypes lists every stepper type in declaration order.
func StepperTypes() []StepperType {
	return append([]StepperType(nil), stepperTypes...)
}

func (s StepperType) String() string {
	switch s {
	case RungeKutta4:
		return "RungeKutta4"
	case RungeKuttaCashKarp54:
		return "RungeKuttaCashKarp54"
	case RungeKuttaFehlberg78:
		return "RungeKuttaFehlberg78"
	case RungeKuttaDopri5:
		return "RungeKuttaDopri5"
	default:
		return fmt.Sprintf("StepperType(%d)", int(s))
	}
}

// IsAdaptive reports whether the stepper is an embedded pair.
func (s StepperType) IsAdaptive() bool {
	return s == RungeKuttaCashKarp54 || s == RungeKuttaFehlberg78 || s == RungeKuttaDopri5
}

// registryName maps the type to its integrators registry entry.
func (s StepperType) registryName() (string, error) {
	switch s {
	case RungeKutta4:
		return integrators.NameRK4, nil
	case RungeKuttaCashKarp54:
		return integrators.NameCashKarp54, nil
	case RungeKuttaFehlberg78:
		return integrators.NameFehlberg78, nil
	case RungeKuttaDopri5:
		return integrators.NameDopri5, nil
	default:
		return "", fmt.Errorf("%w: %s", dynamo.ErrUnknownStepper, s)
	}
}

// ParseStepperType accepts the type name ("RungeKuttaDopri5") or the
// registry name ("dopri5").
func ParseStepperType(name string) (StepperType, error) {
	for _, st := range stepperTypes {
		reg, _ := st.registryName()
		if name == st.String() || name == reg {
			return st, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", dynamo.ErrUnknownStepper, name)
}

// LogType selects which intermediate states are recorded.
type LogType int

const (
	NoLog LogType = iota
	LogConstant
	LogAdaptive
)

func (l LogType) String() string {
	switch l {
	case NoLog:
		return "NoLog"
	case LogConstant:
		return "LogConstant"
	case LogAdaptive:
		return "LogAdaptive"
	default:
		return fmt.Sprintf("LogType(%d)", int(l))
	}
}

func (l LogType) valid() bool {
	return l == NoLog || l == LogConstant || l == LogAdaptive
}

// ParseLogType accepts "NoLog", "LogConstant", "LogAdaptive" or the short
// forms "none", "constant", "adaptive".
func ParseLogType(name string) (LogType, error) {
	switch name {
	case "NoLog", "none", "":
		return NoLog, nil
	case "LogConstant", "constant":
		return LogConstant, nil
	case "LogAdaptive", "adaptive":
		return LogAdaptive, nil
	default:
		return 0, fmt.Errorf("%w: %q", dynamo.ErrUnknownLogType, name)
	}
}

// Status describes how an integration call ended.
type Status int

const (
	StatusConverged Status = iota
	StatusDiverged
	StatusAborted
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusDiverged:
		return "diverged"
	case StatusAborted:
		return "aborted"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Stats counts the work done by one integration call.
type Stats struct {
	Steps       int
	Rejected    int
	Evaluations int
	LastStep    float64
}

// Solution pairs a state with the time it was reached.
type Solution struct {
	State  dynamo.State
	Time   float64
	Status Status
	Stats  Stats
}

func (s Solution) clone() Solution {
	s.State = s.State.Clone()
	return s
}
