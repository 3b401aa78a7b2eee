package integrators

import "github.com/san-kum/odesolve/internal/dynamo"

// Tableau is an explicit Runge-Kutta Butcher tableau with an embedded error
// row E = B - Bhat.
type Tableau struct {
	Name       string
	Order      int
	ErrorOrder int
	C          []float64
	A          [][]float64
	B          []float64
	E          []float64
}

func (tab *Tableau) Stages() int { return len(tab.C) }

// TableauStepper evaluates an embedded tableau. Not safe for concurrent use.
type TableauStepper struct {
	tab     *Tableau
	k       []dynamo.State
	scratch dynamo.State
}

func NewTableauStepper(tab *Tableau) *TableauStepper {
	return &TableauStepper{tab: tab}
}

func (s *TableauStepper) Name() string    { return s.tab.Name }
func (s *TableauStepper) Order() int      { return s.tab.Order }
func (s *TableauStepper) ErrorOrder() int { return s.tab.ErrorOrder }

func (s *TableauStepper) ensureScratch(n int) {
	if len(s.scratch) == n && len(s.k) == s.tab.Stages() {
		return
	}
	s.k = make([]dynamo.State, s.tab.Stages())
	for i := range s.k {
		s.k[i] = make(dynamo.State, n)
	}
	s.scratch = make(dynamo.State, n)
}

func (s *TableauStepper) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	next, _ := s.StepWithError(sys, x, sys.Derive(x, t), t, dt)
	return next
}

func (s *TableauStepper) StepWithError(sys dynamo.System, x, dxdt dynamo.State, t, dt float64) (dynamo.State, dynamo.State) {
	n := len(x)
	s.ensureScratch(n)
	tab := s.tab

	copy(s.k[0], dxdt)
	for i := 1; i < tab.Stages(); i++ {
		copy(s.scratch, x)
		for j, a := range tab.A[i] {
			if a != 0 {
				s.scratch.AddScaled(dt*a, s.k[j])
			}
		}
		copy(s.k[i], sys.Derive(s.scratch, t+tab.C[i]*dt))
	}

	next := x.Clone()
	xerr := make(dynamo.State, n)
	for i := 0; i < tab.Stages(); i++ {
		if tab.B[i] != 0 {
			next.AddScaled(dt*tab.B[i], s.k[i])
		}
		if tab.E[i] != 0 {
			xerr.AddScaled(dt*tab.E[i], s.k[i])
		}
	}

	return next, xerr
}
