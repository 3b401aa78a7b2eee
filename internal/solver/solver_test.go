package solver_test

import (
	"bytes"
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
)

var _ = Describe("NumericalSolver", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("construction", func() {
		DescribeTable("rejects invalid settings",
			func(st solver.StepperType, h, rel, abs float64) {
				s, err := solver.New(solver.NoLog, st, h, rel, abs)
				Expect(err).To(MatchError(dynamo.ErrConfiguration))
				Expect(s).To(BeNil())
			},
			Entry("zero time step", solver.RungeKutta4, 0.0, 1e-8, 1e-8),
			Entry("negative time step", solver.RungeKutta4, -0.1, 1e-8, 1e-8),
			Entry("NaN time step", solver.RungeKutta4, math.NaN(), 1e-8, 1e-8),
			Entry("infinite time step", solver.RungeKutta4, math.Inf(1), 1e-8, 1e-8),
			Entry("negative relative tolerance", solver.RungeKuttaDopri5, 0.1, -1e-8, 1e-8),
			Entry("NaN absolute tolerance", solver.RungeKuttaDopri5, 0.1, 1e-8, math.NaN()),
			Entry("unknown stepper", solver.StepperType(42), 0.1, 1e-8, 1e-8),
		)

		It("rejects an unknown log type", func() {
			_, err := solver.New(solver.LogType(9), solver.RungeKutta4, 0.1, 0, 0)
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
			Expect(err).To(MatchError(dynamo.ErrUnknownLogType))
		})

		It("builds the default solver", func() {
			s := solver.Default(quiet)
			Expect(s.IsDefined()).To(BeTrue())

			lt, err := s.LogType()
			Expect(err).NotTo(HaveOccurred())
			Expect(lt).To(Equal(solver.NoLog))

			st, err := s.StepperType()
			Expect(err).NotTo(HaveOccurred())
			Expect(st).To(Equal(solver.RungeKuttaFehlberg78))

			h, _ := s.TimeStep()
			rel, _ := s.RelativeTolerance()
			abs, _ := s.AbsoluteTolerance()
			Expect(h).To(Equal(5.0))
			Expect(rel).To(Equal(1e-12))
			Expect(abs).To(Equal(1e-12))
		})
	})

	Describe("the undefined solver", func() {
		var u *solver.NumericalSolver

		BeforeEach(func() {
			u = solver.Undefined()
		})

		It("is not defined", func() {
			Expect(u.IsDefined()).To(BeFalse())
		})

		It("fails every getter", func() {
			_, err := u.LogType()
			Expect(err).To(MatchError(dynamo.ErrUndefined))
			_, err = u.StepperType()
			Expect(err).To(MatchError(dynamo.ErrUndefined))
			_, err = u.TimeStep()
			Expect(err).To(MatchError(dynamo.ErrUndefined))
			_, err = u.RelativeTolerance()
			Expect(err).To(MatchError(dynamo.ErrUndefined))
			_, err = u.AbsoluteTolerance()
			Expect(err).To(MatchError(dynamo.ErrUndefined))
			_, err = u.ObservedStateVectors()
			Expect(err).To(MatchError(dynamo.ErrUndefined))
			_, err = u.AccessObservedStateVectors()
			Expect(err).To(MatchError(dynamo.ErrUndefined))
		})

		It("fails every integration", func() {
			_, err := u.IntegrateTime(ctx, dynamo.State{1}, 0, 1, decay)
			Expect(err).To(MatchError(dynamo.ErrUndefined))
			_, err = u.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
			Expect(err).To(MatchError(dynamo.ErrUndefined))
			_, err = u.IntegrateTimes(ctx, dynamo.State{1}, 0, []float64{1}, decay)
			Expect(err).To(MatchError(dynamo.ErrUndefined))
		})

		It("is never equal, not even to itself", func() {
			Expect(u.Equal(u)).To(BeFalse())
			Expect(u.Equal(solver.Default())).To(BeFalse())
			Expect(solver.Default().Equal(u)).To(BeFalse())
		})

		It("clones to an undefined solver", func() {
			Expect(u.Clone().IsDefined()).To(BeFalse())
		})
	})

	Describe("equality and cloning", func() {
		It("compares configuration only", func() {
			a := mustNew(solver.LogAdaptive, solver.RungeKuttaDopri5, 0.1, 1e-9, 1e-9)
			b := mustNew(solver.LogAdaptive, solver.RungeKuttaDopri5, 0.1, 1e-9, 1e-9)

			_, err := a.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Equal(b)).To(BeTrue())

			c := mustNew(solver.LogAdaptive, solver.RungeKuttaDopri5, 0.1, 1e-8, 1e-9)
			Expect(a.Equal(c)).To(BeFalse())
		})

		It("deep copies the history", func() {
			s := mustNew(solver.LogAdaptive, solver.RungeKuttaDopri5, 0.1, 1e-9, 1e-9)
			_, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
			Expect(err).NotTo(HaveOccurred())
			before, _ := s.ObservedStateVectors()

			c := s.Clone()
			Expect(c.Equal(s)).To(BeTrue())

			cloned, _ := c.AccessObservedStateVectors()
			Expect(cloned).To(HaveLen(len(before)))
			cloned[0].State[0] = 42

			_, err = c.IntegrateDuration(ctx, dynamo.State{2}, 1, decay)
			Expect(err).NotTo(HaveOccurred())

			after, _ := s.ObservedStateVectors()
			Expect(after).To(HaveLen(len(before)))
			Expect(after[0].State[0]).To(Equal(1.0))
		})
	})

	Describe("integration accuracy", func() {
		DescribeTable("decays to exp(-1)",
			func(st solver.StepperType, h float64) {
				s := mustNew(solver.NoLog, st, h, 1e-10, 1e-10)
				sol, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
				Expect(err).NotTo(HaveOccurred())
				Expect(sol.Status).To(Equal(solver.StatusConverged))
				Expect(sol.Time).To(Equal(1.0))
				Expect(sol.State[0]).To(BeNumerically("~", math.Exp(-1), 1e-7))
			},
			Entry("RungeKutta4", solver.RungeKutta4, 0.01),
			Entry("RungeKuttaCashKarp54", solver.RungeKuttaCashKarp54, 0.1),
			Entry("RungeKuttaFehlberg78", solver.RungeKuttaFehlberg78, 0.5),
			Entry("RungeKuttaDopri5", solver.RungeKuttaDopri5, 0.1),
		)

		It("lands exactly on a target that is not a multiple of the step", func() {
			s := mustNew(solver.NoLog, solver.RungeKutta4, 0.1, 0, 0)
			sol, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1.05, decay)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Time).To(Equal(1.05))
			Expect(sol.Stats.Steps).To(Equal(11))
			Expect(sol.State[0]).To(BeNumerically("~", math.Exp(-1.05), 1e-6))
		})

		It("returns the initial state for a zero duration", func() {
			s := mustNew(solver.LogAdaptive, solver.RungeKuttaDopri5, 0.1, 1e-9, 1e-9)
			sol, err := s.IntegrateTime(ctx, dynamo.State{3, 4}, 2, 2, oscillator{})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.State).To(Equal(dynamo.State{3, 4}))
			Expect(sol.Time).To(Equal(2.0))
			Expect(sol.Stats.Evaluations).To(BeZero())
		})

		It("uses the given initial time", func() {
			s := mustNew(solver.NoLog, solver.RungeKutta4, 0.1, 0, 0)
			sol, err := s.IntegrateDurationFrom(ctx, dynamo.State{0}, 2, 1, ramp)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Time).To(Equal(3.0))
			Expect(sol.State[0]).To(BeNumerically("~", 2.5, 1e-12))
		})

		It("integrates backwards in time", func() {
			s := mustNew(solver.LogAdaptive, solver.RungeKutta4, 0.1, 0, 0)
			sol, err := s.IntegrateTime(ctx, dynamo.State{0}, 2, 0, ramp)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Time).To(Equal(0.0))
			Expect(sol.State[0]).To(BeNumerically("~", -2, 1e-12))
			Expect(sol.Stats.LastStep).To(BeNumerically("<", 0))

			history, _ := s.ObservedStateVectors()
			for i := 1; i < len(history); i++ {
				Expect(history[i].Time).To(BeNumerically("<", history[i-1].Time))
			}
		})

		It("returns to the initial state after a forward and backward pass", func() {
			s := mustNew(solver.NoLog, solver.RungeKuttaDopri5, 0.1, 1e-12, 1e-12)
			x0 := dynamo.State{1, 0}

			fwd, err := s.IntegrateTime(ctx, x0, 0, 2, oscillator{})
			Expect(err).NotTo(HaveOccurred())
			Expect(fwd.State[0]).To(BeNumerically("~", math.Cos(2), 1e-9))

			back, err := s.IntegrateTime(ctx, fwd.State, 2, 0, oscillator{})
			Expect(err).NotTo(HaveOccurred())
			Expect(back.State.Distance(x0)).To(BeNumerically("<", 1e-8))
		})

		It("does not mutate the initial state", func() {
			s := mustNew(solver.NoLog, solver.RungeKuttaCashKarp54, 0.1, 1e-8, 1e-8)
			x0 := dynamo.State{1, 0}
			_, err := s.IntegrateDuration(ctx, x0, 3, oscillator{})
			Expect(err).NotTo(HaveOccurred())
			Expect(x0).To(Equal(dynamo.State{1, 0}))
		})

		DescribeTable("integrates a span far shorter than the time step",
			func(st solver.StepperType, h, t0, t1 float64) {
				unit := dynamo.SystemFunc(func(x dynamo.State, t float64) dynamo.State {
					return dynamo.State{1}
				})
				s := mustNew(solver.NoLog, st, h, 1e-9, 1e-9)
				sol, err := s.IntegrateTime(ctx, dynamo.State{0}, t0, t1, unit)
				Expect(err).NotTo(HaveOccurred())
				Expect(sol.Time).To(Equal(t1))
				Expect(sol.Stats.Steps).To(Equal(1))
				Expect(sol.State[0]).To(BeNumerically("~", t1-t0, 1e-20))
			},
			Entry("RungeKutta4 from zero", solver.RungeKutta4, 1e6, 0.0, 1e-7),
			Entry("RungeKuttaDopri5 at a large time", solver.RungeKuttaDopri5, 1e3, 1e6, 1e6+5e-7),
		)

		DescribeTable("never decreases accuracy as the tolerance tightens",
			func(st solver.StepperType) {
				exact := dynamo.State{math.Cos(10), -math.Sin(10)}
				prev := math.Inf(1)
				for _, tol := range []float64{1e-4, 1e-6, 1e-8, 1e-10} {
					s := mustNew(solver.NoLog, st, 0.1, tol, tol)
					sol, err := s.IntegrateDuration(ctx, dynamo.State{1, 0}, 10, oscillator{})
					Expect(err).NotTo(HaveOccurred())

					e := sol.State.Distance(exact)
					Expect(e).To(BeNumerically("<=", prev), "tolerance %g", tol)
					prev = e
				}
			},
			Entry("RungeKuttaCashKarp54", solver.RungeKuttaCashKarp54),
			Entry("RungeKuttaFehlberg78", solver.RungeKuttaFehlberg78),
			Entry("RungeKuttaDopri5", solver.RungeKuttaDopri5),
		)

		It("rejects a state of the wrong dimension", func() {
			s := mustNew(solver.NoLog, solver.RungeKutta4, 0.1, 0, 0)
			_, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, oscillator{})
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("rejects a non-finite initial state", func() {
			s := mustNew(solver.NoLog, solver.RungeKutta4, 0.1, 0, 0)
			_, err := s.IntegrateDuration(ctx, dynamo.State{math.NaN()}, 1, decay)
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
		})
	})

	Describe("step accounting", func() {
		It("counts four evaluations per RK4 step", func() {
			s := mustNew(solver.NoLog, solver.RungeKutta4, 0.1, 0, 0)
			sol, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Stats.Steps).To(Equal(10))
			Expect(sol.Stats.Rejected).To(BeZero())
			Expect(sol.Stats.Evaluations).To(Equal(40))
		})

		DescribeTable("reuses the start derivative across rejected trials",
			func(st solver.StepperType) {
				s := mustNew(solver.NoLog, st, 2.0, 1e-10, 1e-10)
				sol, err := s.IntegrateDuration(ctx, dynamo.State{1, 0}, 5, oscillator{})
				Expect(err).NotTo(HaveOccurred())
				Expect(sol.Stats.Rejected).To(BeNumerically(">", 0))

				want := sol.Stats.Steps + (stages(st)-1)*(sol.Stats.Steps+sol.Stats.Rejected)
				Expect(sol.Stats.Evaluations).To(Equal(want))
			},
			Entry("RungeKuttaCashKarp54", solver.RungeKuttaCashKarp54),
			Entry("RungeKuttaFehlberg78", solver.RungeKuttaFehlberg78),
			Entry("RungeKuttaDopri5", solver.RungeKuttaDopri5),
		)

		It("grows the step by at most five times", func() {
			s := mustNew(solver.LogAdaptive, solver.RungeKuttaDopri5, 1e-3, 1e-6, 1e-6)
			_, err := s.IntegrateDuration(ctx, dynamo.State{1}, 10, decay)
			Expect(err).NotTo(HaveOccurred())

			history, _ := s.ObservedStateVectors()
			Expect(len(history)).To(BeNumerically(">", 3))

			var largest float64
			for i := 2; i < len(history); i++ {
				prev := history[i-1].Time - history[i-2].Time
				cur := history[i].Time - history[i-1].Time
				Expect(cur / prev).To(BeNumerically("<=", 5+1e-9))
				largest = math.Max(largest, cur)
			}
			Expect(largest).To(BeNumerically(">", 4e-3))
		})
	})

	Describe("observation", func() {
		It("records nothing with NoLog", func() {
			s := mustNew(solver.NoLog, solver.RungeKuttaDopri5, 0.1, 1e-9, 1e-9)
			_, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
			Expect(err).NotTo(HaveOccurred())

			history, err := s.ObservedStateVectors()
			Expect(err).NotTo(HaveOccurred())
			Expect(history).NotTo(BeNil())
			Expect(history).To(BeEmpty())

			live, err := s.AccessObservedStateVectors()
			Expect(err).NotTo(HaveOccurred())
			Expect(live).To(BeEmpty())
		})

		DescribeTable("records the start and every grid point with LogConstant",
			func(st solver.StepperType, tol float64) {
				s := mustNew(solver.LogConstant, st, 0.1, 1e-10, 1e-10)
				sol, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
				Expect(err).NotTo(HaveOccurred())

				history, _ := s.ObservedStateVectors()
				Expect(history).To(HaveLen(11))
				for k, obs := range history {
					Expect(obs.Time).To(BeNumerically("~", 0.1*float64(k), 1e-12))
					Expect(obs.State[0]).To(BeNumerically("~", math.Exp(-obs.Time), tol))
				}
				Expect(history[10].Time).To(Equal(sol.Time))
			},
			// RK4 runs at the fixed grid step, so its error is O(h^4).
			Entry("RungeKutta4", solver.RungeKutta4, 1e-6),
			Entry("RungeKuttaCashKarp54", solver.RungeKuttaCashKarp54, 1e-7),
			Entry("RungeKuttaFehlberg78", solver.RungeKuttaFehlberg78, 1e-7),
			Entry("RungeKuttaDopri5", solver.RungeKuttaDopri5, 1e-7),
		)

		It("records the start and every accepted step with LogAdaptive", func() {
			s := mustNew(solver.LogAdaptive, solver.RungeKuttaDopri5, 2.0, 1e-10, 1e-10)
			sol, err := s.IntegrateDuration(ctx, dynamo.State{1, 0}, 5, oscillator{})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Stats.Rejected).To(BeNumerically(">", 0))

			history, _ := s.ObservedStateVectors()
			Expect(history).To(HaveLen(sol.Stats.Steps + 1))
			Expect(history[0].Time).To(Equal(0.0))
			Expect(history[len(history)-1].Time).To(Equal(5.0))
			for i := 1; i < len(history); i++ {
				Expect(history[i].Time).To(BeNumerically(">", history[i-1].Time))
			}
		})

		It("accumulates history across calls", func() {
			s := mustNew(solver.LogAdaptive, solver.RungeKuttaCashKarp54, 0.1, 1e-8, 1e-8)
			first, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
			Expect(err).NotTo(HaveOccurred())
			second, err := s.IntegrateDuration(ctx, dynamo.State{2}, 2, decay)
			Expect(err).NotTo(HaveOccurred())

			history, _ := s.ObservedStateVectors()
			Expect(history).To(HaveLen(first.Stats.Steps + second.Stats.Steps + 2))
		})

		It("hands out copies that do not alias the history", func() {
			s := mustNew(solver.LogAdaptive, solver.RungeKutta4, 0.5, 0, 0)
			_, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
			Expect(err).NotTo(HaveOccurred())

			cp, _ := s.ObservedStateVectors()
			cp[0].State[0] = -1

			live, _ := s.AccessObservedStateVectors()
			Expect(live[0].State[0]).To(Equal(1.0))
		})

		It("notifies observers of every accepted step", func() {
			var times []float64
			obs := solver.ObserverFunc(func(x dynamo.State, t float64) {
				times = append(times, t)
			})
			s := mustNew(solver.NoLog, solver.RungeKutta4, 0.25, 0, 0, solver.WithObserver(obs))
			sol, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
			Expect(err).NotTo(HaveOccurred())
			Expect(times).To(HaveLen(sol.Stats.Steps + 1))
			Expect(times[0]).To(Equal(0.0))
			Expect(times[len(times)-1]).To(Equal(1.0))
		})
	})

	Describe("failures", func() {
		It("stops on step rejection exhaustion", func() {
			s := mustNew(solver.NoLog, solver.RungeKuttaDopri5, 0.1, 0, 0, solver.WithMaxRejections(3))
			sol, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
			Expect(err).To(MatchError(dynamo.ErrStepRejection))
			Expect(sol.Status).To(Equal(solver.StatusRejected))
			Expect(sol.Stats.Rejected).To(Equal(4))
			Expect(sol.Time).To(Equal(0.0))
			Expect(sol.State).To(Equal(dynamo.State{1}))

			var ie *dynamo.IntegrationError
			Expect(err).To(BeAssignableToTypeOf(ie))
		})

		It("stops when the step falls below the minimum", func() {
			s := mustNew(solver.NoLog, solver.RungeKuttaDopri5, 0.1, 0, 0, solver.WithMinTimeStep(0.05))
			sol, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
			Expect(err).To(MatchError(dynamo.ErrStepRejection))
			Expect(sol.Stats.Rejected).To(Equal(1))
		})

		It("reports divergence with the last accepted state", func() {
			blowup := dynamo.SystemFunc(func(x dynamo.State, t float64) dynamo.State {
				if t > 0.55 {
					return dynamo.State{math.NaN()}
				}
				return dynamo.State{-x[0]}
			})
			s := mustNew(solver.NoLog, solver.RungeKutta4, 0.1, 0, 0)
			sol, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, blowup)
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
			Expect(sol.Status).To(Equal(solver.StatusDiverged))
			Expect(sol.Stats.Steps).To(Equal(5))
			Expect(sol.Time).To(BeNumerically("~", 0.5, 1e-12))
			Expect(sol.State.IsValid()).To(BeTrue())
		})

		DescribeTable("aborts on a derivative of the wrong length",
			func(st solver.StepperType) {
				short := dynamo.SystemFunc(func(x dynamo.State, t float64) dynamo.State {
					return dynamo.State{-x[0]}
				})
				s := mustNew(solver.NoLog, st, 0.1, 1e-8, 1e-8)
				sol, err := s.IntegrateDuration(ctx, dynamo.State{1, 5}, 1, short)
				Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
				Expect(sol.Status).To(Equal(solver.StatusAborted))
				Expect(sol.Stats.Steps).To(BeZero())
				Expect(sol.State).To(Equal(dynamo.State{1, 5}))

				var de *dynamo.DimensionError
				Expect(errors.As(err, &de)).To(BeTrue())
				Expect(de.Want).To(Equal(2))
				Expect(de.Got).To(Equal(1))
			},
			Entry("RungeKutta4", solver.RungeKutta4),
			Entry("RungeKuttaDopri5", solver.RungeKuttaDopri5),
		)

		It("aborts on a canceled context", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			s := mustNew(solver.NoLog, solver.RungeKutta4, 0.1, 0, 0)
			sol, err := s.IntegrateDuration(cctx, dynamo.State{1}, 1, decay)
			Expect(err).To(MatchError(dynamo.ErrCanceled))
			Expect(err).To(MatchError(context.Canceled))
			Expect(sol.Status).To(Equal(solver.StatusAborted))
			Expect(sol.Stats.Steps).To(BeZero())
		})

		It("aborts mid-run when the context is canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()
			obs := solver.ObserverFunc(func(x dynamo.State, t float64) {
				if t >= 0.3 {
					cancel()
				}
			})
			s := mustNew(solver.NoLog, solver.RungeKutta4, 0.1, 0, 0, solver.WithObserver(obs))
			sol, err := s.IntegrateDuration(cctx, dynamo.State{1}, 1, decay)
			Expect(err).To(MatchError(dynamo.ErrCanceled))
			Expect(sol.Stats.Steps).To(Equal(3))
			Expect(sol.Time).To(BeNumerically("~", 0.3, 1e-12))
		})

		It("aborts when the step budget runs out", func() {
			s := mustNew(solver.NoLog, solver.RungeKutta4, 0.1, 0, 0, solver.WithMaxSteps(5))
			sol, err := s.IntegrateDuration(ctx, dynamo.State{1}, 1, decay)
			Expect(err).To(MatchError(dynamo.ErrMaxSteps))
			Expect(sol.Status).To(Equal(solver.StatusAborted))
			Expect(sol.Stats.Steps).To(Equal(5))
			Expect(sol.Time).To(BeNumerically("~", 0.5, 1e-12))
		})
	})

	Describe("IntegrateTimes", func() {
		var s *solver.NumericalSolver

		BeforeEach(func() {
			s = mustNew(solver.NoLog, solver.RungeKuttaDopri5, 0.1, 1e-10, 1e-10)
		})

		It("fails on an empty time list", func() {
			_, err := s.IntegrateTimes(ctx, dynamo.State{1}, 0, nil, decay)
			Expect(err).To(MatchError(dynamo.ErrEmptyTimes))
			_, err = s.IntegrateDurations(ctx, dynamo.State{1}, []float64{}, decay)
			Expect(err).To(MatchError(dynamo.ErrEmptyTimes))
		})

		It("returns the initial state for a single start time", func() {
			out, err := s.IntegrateTimes(ctx, dynamo.State{1}, 0.5, []float64{0.5}, decay)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(1))
			Expect(out[0].State).To(Equal(dynamo.State{1}))
			Expect(out[0].Time).To(Equal(0.5))
		})

		It("reports the state at each requested time", func() {
			times := []float64{0, 0.5, 1, 2}
			out, err := s.IntegrateTimes(ctx, dynamo.State{1}, 0, times, decay)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(len(times)))
			for i, sol := range out {
				Expect(sol.Time).To(Equal(times[i]))
				Expect(sol.State[0]).To(BeNumerically("~", math.Exp(-times[i]), 1e-7))
			}
		})

		It("supports decreasing times", func() {
			out, err := s.IntegrateTimes(ctx, dynamo.State{1}, 0, []float64{-0.5, -1}, decay)
			Expect(err).NotTo(HaveOccurred())
			Expect(out[1].State[0]).To(BeNumerically("~", math.E, 1e-7))
		})

		It("rejects times that change direction", func() {
			_, err := s.IntegrateTimes(ctx, dynamo.State{1}, 0, []float64{1, 0.5}, decay)
			Expect(err).To(MatchError(dynamo.ErrNonMonotonicTimes))
		})

		It("records the requested instants with LogConstant", func() {
			c := mustNew(solver.LogConstant, solver.RungeKuttaDopri5, 0.1, 1e-10, 1e-10)
			_, err := c.IntegrateDurations(ctx, dynamo.State{1}, []float64{0.5, 1, 2}, decay)
			Expect(err).NotTo(HaveOccurred())

			history, _ := c.ObservedStateVectors()
			Expect(history).To(HaveLen(4))
			Expect(history[3].Time).To(Equal(2.0))
		})
	})

	Describe("printing", func() {
		It("renders deterministically", func() {
			s := mustNew(solver.LogAdaptive, solver.RungeKuttaDopri5, 0.25, 1e-9, 1e-11)

			var a, b bytes.Buffer
			Expect(s.Print(&a, true)).To(Succeed())
			Expect(s.Print(&b, true)).To(Succeed())
			Expect(a.String()).To(Equal(b.String()))
			Expect(a.String()).To(ContainSubstring("Numerical Solver"))
			Expect(a.String()).To(ContainSubstring("LogAdaptive"))
			Expect(a.String()).To(ContainSubstring("RungeKuttaDopri5"))
			Expect(a.String()).To(ContainSubstring("0.25"))
			Expect(a.String()).To(ContainSubstring("1e-11"))
			Expect(s.String()).To(Equal(a.String()))
		})

		It("omits the header when undecorated", func() {
			s := mustNew(solver.NoLog, solver.RungeKutta4, 0.1, 0, 0)
			var buf bytes.Buffer
			Expect(s.Print(&buf, false)).To(Succeed())
			Expect(buf.String()).NotTo(ContainSubstring("Numerical Solver"))
			Expect(buf.String()).To(ContainSubstring("RungeKutta4"))
		})

		It("prints an undefined solver", func() {
			var buf bytes.Buffer
			Expect(solver.Undefined().Print(&buf, false)).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("false"))
		})
	})
})

var _ = Describe("Ensemble", func() {
	It("integrates every member independently and in order", func() {
		base := mustNew(solver.NoLog, solver.RungeKuttaDopri5, 0.1, 1e-10, 1e-10)
		states := make([]dynamo.State, 8)
		for i := range states {
			states[i] = dynamo.State{float64(i + 1)}
		}

		out, err := solver.NewEnsemble(base, 3).IntegrateDuration(context.Background(), states, 1, decay)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HaveLen(len(states)))
		for i, sol := range out {
			Expect(sol.State[0]).To(BeNumerically("~", float64(i+1)*math.Exp(-1), 1e-7))
		}

		history, _ := base.ObservedStateVectors()
		Expect(history).To(BeEmpty())
	})

	It("reports the first member failure", func() {
		base := mustNew(solver.NoLog, solver.RungeKuttaDopri5, 0.1, 0, 0)
		_, err := solver.NewEnsemble(base, 2).IntegrateDuration(context.Background(),
			[]dynamo.State{{1}, {2}}, 1, decay)
		Expect(err).To(MatchError(dynamo.ErrStepRejection))
	})

	It("starts every member at the given time", func() {
		base := mustNew(solver.NoLog, solver.RungeKutta4, 0.1, 0, 0)
		out, err := solver.NewEnsemble(base, 2).IntegrateDurationFrom(context.Background(),
			[]dynamo.State{{0}, {1}}, 2, 1, ramp)
		Expect(err).NotTo(HaveOccurred())
		for i, sol := range out {
			Expect(sol.Time).To(Equal(3.0))
			Expect(sol.State[0]).To(BeNumerically("~", float64(i)+2.5, 1e-12))
		}
	})

	It("treats a nil context as background", func() {
		var noCtx context.Context
		out, err := solver.NewEnsemble(mustNew(solver.NoLog, solver.RungeKutta4, 0.1, 0, 0), 1).
			IntegrateDuration(noCtx, []dynamo.State{{1}}, 1, decay)
		Expect(err).NotTo(HaveOccurred())
		Expect(out[0].State[0]).To(BeNumerically("~", math.Exp(-1), 1e-6))
	})

	It("defaults to GOMAXPROCS workers", func() {
		Expect(solver.NewEnsemble(solver.Default(), 0).Workers()).To(BeNumerically(">=", 1))
	})

	It("refuses an undefined base", func() {
		_, err := solver.NewEnsemble(solver.Undefined(), 2).IntegrateDuration(context.Background(),
			[]dynamo.State{{1}}, 1, decay)
		Expect(err).To(MatchError(dynamo.ErrUndefined))
	})
})
