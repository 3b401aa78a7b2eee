package metrics

import (
	"math"

	"github.com/san-kum/odesolve/internal/dynamo"
)

// Stability is the fraction of observed states whose components all stay
// within the threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x dynamo.State, t float64) {
	s.samples++
	if !x.IsValid() || x.MaxAbs() > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// StepSize is the mean time between consecutive observations.
type StepSize struct {
	name     string
	sum      float64
	min, max float64
	last     float64
	samples  int
}

func NewStepSize() *StepSize {
	return &StepSize{
		name: "step_size",
	}
}

func (s *StepSize) Name() string {
	return s.name
}

func (s *StepSize) Observe(x dynamo.State, t float64) {
	if s.samples > 0 {
		h := math.Abs(t - s.last)
		s.sum += h
		if s.samples == 1 || h < s.min {
			s.min = h
		}
		s.max = math.Max(s.max, h)
	}
	s.last = t
	s.samples++
}

func (s *StepSize) Value() float64 {
	if s.samples < 2 {
		return 0
	}
	return s.sum / float64(s.samples-1)
}

func (s *StepSize) Min() float64 { return s.min }
func (s *StepSize) Max() float64 { return s.max }

func (s *StepSize) Reset() {
	*s = StepSize{name: s.name}
}
