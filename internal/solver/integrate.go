package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/integrators"
)

const (
	safety      = 0.9
	minShrink   = 0.2
	maxGrowth   = 5.0
	growthBelow = 0.5

	// Relative slack used to stretch a step, or a constant-grid point, onto
	// the target.
	gridEps = 1e-12

	// Units in the last place within which a target time counts as reached.
	reachedULPs = 4
)

// countingSystem counts right-hand-side evaluations and catches derivatives
// whose length differs from the state. A bad derivative is replaced by NaNs
// of the right length so steppers never index past it.
type countingSystem struct {
	sys      dynamo.System
	n        *int
	mismatch *error
}

func (c countingSystem) Derive(x dynamo.State, t float64) dynamo.State {
	*c.n++
	dx := c.sys.Derive(x, t)
	if len(dx) == len(x) {
		return dx
	}
	if *c.mismatch == nil {
		*c.mismatch = &dynamo.DimensionError{Want: len(x), Got: len(dx)}
	}
	bad := make(dynamo.State, len(x))
	for i := range bad {
		bad[i] = math.NaN()
	}
	return bad
}

// run carries the mutable state of one integration call.
type run struct {
	s      *NumericalSolver
	ctx    context.Context
	sys    dynamo.System
	x      dynamo.State
	t      float64
	dir    float64
	dt     float64
	status Status
	stats  Stats

	mismatch error
}

func (s *NumericalSolver) begin(ctx context.Context, x0 dynamo.State, t0 float64, sys dynamo.System) (*run, error) {
	if !s.IsDefined() {
		return nil, dynamo.ErrUndefined
	}
	if sys == nil {
		return nil, fmt.Errorf("%w: nil system", dynamo.ErrConfiguration)
	}
	if len(x0) == 0 || !x0.IsValid() {
		return nil, fmt.Errorf("%w: initial state %v", dynamo.ErrInvalidState, []float64(x0))
	}
	if !finite(t0) {
		return nil, fmt.Errorf("%w: initial time %g", dynamo.ErrInvalidState, t0)
	}
	if err := dynamo.CheckDimension(sys, x0); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r := &run{s: s, ctx: ctx, x: x0.Clone(), t: t0}
	r.sys = countingSystem{sys: sys, n: &r.stats.Evaluations, mismatch: &r.mismatch}
	return r, nil
}

func (r *run) setDirection(dir float64) {
	r.dir = dir
	r.dt = dir * r.s.settings.TimeStep
}

func (r *run) notify() {
	for _, o := range r.s.observers {
		o.OnStep(r.x, r.t)
	}
}

func (r *run) solution() Solution {
	return Solution{State: r.x.Clone(), Time: r.t, Status: r.status, Stats: r.stats}
}

// eps is the slack within which te counts as reached. It depends only on
// the magnitude of the times involved, never on the step size.
func (r *run) eps(te float64) float64 {
	return reachedULPs * ulp(math.Max(math.Abs(te), math.Abs(r.t)))
}

func (r *run) fail(status Status, cause error) error {
	r.status = status
	r.s.logger.Warn("integration stopped",
		"status", status,
		"t", r.t,
		"steps", r.stats.Steps,
		"rejected", r.stats.Rejected,
		"error", cause)
	return &dynamo.IntegrationError{Step: r.stats.Steps, Time: r.t, State: r.x.Clone(), Wrapped: cause}
}

// IntegrateTime integrates x0 from t0 to t1. Integration runs backwards when
// t1 < t0.
func (s *NumericalSolver) IntegrateTime(ctx context.Context, x0 dynamo.State, t0, t1 float64, sys dynamo.System) (Solution, error) {
	r, err := s.begin(ctx, x0, t0, sys)
	if err != nil {
		return Solution{State: x0.Clone(), Time: t0, Status: StatusAborted}, err
	}
	if !finite(t1) {
		return Solution{State: x0.Clone(), Time: t0, Status: StatusAborted},
			fmt.Errorf("%w: end time %g", dynamo.ErrInvalidState, t1)
	}
	if t1 == t0 {
		return r.solution(), nil
	}

	r.setDirection(math.Copysign(1, t1-t0))
	s.logger.Debug("integrating",
		"stepper", s.settings.StepperType,
		"log", s.settings.LogType,
		"t0", t0,
		"t1", t1)

	r.notify()
	if err := r.integrate(t1); err != nil {
		return r.solution(), err
	}

	s.logger.Debug("integration complete",
		"steps", r.stats.Steps,
		"rejected", r.stats.Rejected,
		"evaluations", r.stats.Evaluations)
	return r.solution(), nil
}

// IntegrateDuration integrates x0 from t = 0 over duration.
func (s *NumericalSolver) IntegrateDuration(ctx context.Context, x0 dynamo.State, duration float64, sys dynamo.System) (Solution, error) {
	return s.IntegrateTime(ctx, x0, 0, duration, sys)
}

// IntegrateDurationFrom integrates x0 from t0 to t0 + duration.
func (s *NumericalSolver) IntegrateDurationFrom(ctx context.Context, x0 dynamo.State, t0, duration float64, sys dynamo.System) (Solution, error) {
	return s.IntegrateTime(ctx, x0, t0, t0+duration, sys)
}

// IntegrateTimes returns the state at each requested instant. The instants
// must move monotonically away from t0. With LogConstant the requested
// instants are the recorded grid.
func (s *NumericalSolver) IntegrateTimes(ctx context.Context, x0 dynamo.State, t0 float64, times []float64, sys dynamo.System) ([]Solution, error) {
	if !s.IsDefined() {
		return nil, dynamo.ErrUndefined
	}
	if len(times) == 0 {
		return nil, dynamo.ErrEmptyTimes
	}

	r, err := s.begin(ctx, x0, t0, sys)
	if err != nil {
		return nil, err
	}

	dir, err := timesDirection(t0, times)
	if err != nil {
		return nil, err
	}
	if dir == 0 {
		out := make([]Solution, len(times))
		for i := range out {
			out[i] = r.solution()
		}
		return out, nil
	}
	r.setDirection(dir)
	r.notify()

	logType := s.settings.LogType
	if logType != NoLog {
		s.observe(r.x, r.t)
	}

	out := make([]Solution, 0, len(times))
	for _, ti := range times {
		if err := r.advance(ti, logType == LogAdaptive); err != nil {
			return append(out, r.solution()), err
		}
		if logType == LogConstant {
			s.observe(r.x, r.t)
		}
		out = append(out, r.solution())
	}
	return out, nil
}

// IntegrateDurations is IntegrateTimes with t0 = 0.
func (s *NumericalSolver) IntegrateDurations(ctx context.Context, x0 dynamo.State, durations []float64, sys dynamo.System) ([]Solution, error) {
	return s.IntegrateTimes(ctx, x0, 0, durations, sys)
}

func timesDirection(t0 float64, times []float64) (float64, error) {
	var dir float64
	prev := t0
	for i, ti := range times {
		if !finite(ti) {
			return 0, fmt.Errorf("%w: time[%d] = %g", dynamo.ErrInvalidState, i, ti)
		}
		d := ti - prev
		if d != 0 {
			sign := math.Copysign(1, d)
			if dir == 0 {
				dir = sign
			} else if sign != dir {
				return 0, fmt.Errorf("%w: time[%d] = %g after %g", dynamo.ErrNonMonotonicTimes, i, ti, prev)
			}
		}
		prev = ti
	}
	return dir, nil
}

// integrate drives the run to te according to the log type.
func (r *run) integrate(te float64) error {
	switch r.s.settings.LogType {
	case LogConstant:
		r.s.observe(r.x, r.t)
		h := r.s.settings.TimeStep
		start := r.t
		for k := 1; ; k++ {
			tk := start + r.dir*float64(k)*h
			last := r.dir*(tk-te) >= -gridEps*math.Max(math.Max(math.Abs(te), math.Abs(start)), h)
			if last {
				tk = te
			}
			if err := r.advance(tk, false); err != nil {
				return err
			}
			r.s.observe(r.x, r.t)
			if last {
				return nil
			}
		}
	case LogAdaptive:
		r.s.observe(r.x, r.t)
		return r.advance(te, true)
	default:
		return r.advance(te, false)
	}
}

// advance steps from the current time to te, clipping the last step so the
// run lands on te exactly.
func (r *run) advance(te float64, observeEach bool) error {
	s := r.s
	es, controlled := s.stepper.(integrators.ErrorStepper)
	controlled = controlled && s.settings.StepperType.IsAdaptive()

	for {
		if r.dir*(te-r.t) <= r.eps(te) {
			r.t = te
			return nil
		}
		if err := r.ctx.Err(); err != nil {
			return r.fail(StatusAborted, fmt.Errorf("%w: %w", dynamo.ErrCanceled, err))
		}
		if r.stats.Steps >= s.maxSteps {
			return r.fail(StatusAborted, dynamo.ErrMaxSteps)
		}

		h := r.dt
		clipped := false
		if r.dir*(r.t+h-te) >= -math.Max(r.eps(te), gridEps*math.Abs(h)) {
			h = te - r.t
			clipped = true
		}

		var (
			next        dynamo.State
			used, hNext = h, r.dt
		)
		if controlled {
			var err error
			next, used, hNext, err = r.controlledStep(es, h)
			if err != nil {
				return err
			}
		} else {
			next = s.stepper.Step(r.sys, r.x, r.t, h)
		}

		if r.mismatch != nil {
			return r.fail(StatusAborted, r.mismatch)
		}
		if !next.IsValid() {
			return r.fail(StatusDiverged, dynamo.ErrInvalidState)
		}

		r.x = next
		if clipped && used == h {
			r.t = te
		} else {
			r.t += used
			r.dt = hNext
		}
		r.stats.Steps++
		r.stats.LastStep = used
		r.notify()

		if observeEach {
			s.observe(r.x, r.t)
		}
	}
}

// controlledStep tries h, shrinking it until the error estimate is within
// tolerance. It returns the accepted state, the step used and the proposal
// for the next step.
func (r *run) controlledStep(es integrators.ErrorStepper, h float64) (dynamo.State, float64, float64, error) {
	s := r.s
	dxdt := r.sys.Derive(r.x, r.t)
	if r.mismatch != nil {
		return nil, 0, 0, r.fail(StatusAborted, r.mismatch)
	}
	order := float64(es.Order())
	shrinkExp := -1 / math.Max(float64(es.ErrorOrder()-1), 1)

	for rejections := 0; ; {
		next, xerr := es.StepWithError(r.sys, r.x, dxdt, r.t, h)
		if r.mismatch != nil {
			return nil, 0, 0, r.fail(StatusAborted, r.mismatch)
		}
		e := r.errorNorm(dxdt, xerr, h)

		if e <= 1 {
			hNext := h
			if e < growthBelow {
				e = math.Max(e, math.Pow(maxGrowth, -order))
				hNext = h * safety * math.Pow(e, -1/order)
			}
			return next, h, hNext, nil
		}

		rejections++
		r.stats.Rejected++

		factor := minShrink
		if finite(e) {
			factor = math.Max(safety*math.Pow(e, shrinkExp), minShrink)
		}
		s.logger.Debug("step rejected", "t", r.t, "dt", h, "error", e)
		h *= factor

		if rejections > s.maxRejections || math.Abs(h) < s.minTimeStep || r.t+h == r.t {
			return nil, 0, 0, r.fail(StatusRejected, dynamo.ErrStepRejection)
		}
	}
}

// errorNorm is the infinity norm of the local error relative to the mixed
// absolute/relative tolerance.
func (r *run) errorNorm(dxdt, xerr dynamo.State, h float64) float64 {
	abs := r.s.settings.AbsoluteTolerance
	rel := r.s.settings.RelativeTolerance

	var worst float64
	for i, ei := range xerr {
		ei = math.Abs(ei)
		if math.IsNaN(ei) {
			return math.NaN()
		}
		scale := abs + rel*(math.Abs(r.x[i])+math.Abs(h)*math.Abs(dxdt[i]))
		if scale == 0 {
			if ei == 0 {
				continue
			}
			return math.Inf(1)
		}
		if ratio := ei / scale; ratio > worst {
			worst = ratio
		}
	}
	return worst
}

func ulp(v float64) float64 {
	return math.Nextafter(v, math.Inf(1)) - v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
