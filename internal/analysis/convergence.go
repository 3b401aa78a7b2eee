package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/integrators"
)

var ErrInsufficientData = errors.New("analysis: need at least two positive samples")

// ConvergenceOrder fits log(err) = p*log(h) + c by least squares and returns
// p. Pairs with a non-positive step or error are skipped.
func ConvergenceOrder(steps, errs []float64) (float64, error) {
	if len(steps) != len(errs) {
		return 0, fmt.Errorf("analysis: %d steps but %d errors", len(steps), len(errs))
	}

	var xs, ys []float64
	for i := range steps {
		if steps[i] > 0 && errs[i] > 0 && !math.IsInf(errs[i], 0) {
			xs = append(xs, math.Log(steps[i]))
			ys = append(ys, math.Log(errs[i]))
		}
	}
	if len(xs) < 2 {
		return 0, ErrInsufficientData
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope, nil
}

// StepStudy integrates x0 over duration with fixed steps of each size and
// returns the infinity-norm distance to the exact solution. Each step size
// is rounded so that a whole number of steps covers the duration.
func StepStudy(ctx context.Context, stepper integrators.Stepper, sys dynamo.System, x0 dynamo.State, duration float64, exact dynamo.State, steps []float64) ([]float64, error) {
	if err := dynamo.CheckDimension(sys, x0); err != nil {
		return nil, err
	}

	errs := make([]float64, len(steps))
	for i, h := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", dynamo.ErrCanceled, err)
		}
		if h <= 0 || math.IsNaN(h) {
			return nil, fmt.Errorf("%w: step %g", dynamo.ErrConfiguration, h)
		}

		n := int(math.Max(1, math.Round(math.Abs(duration)/h)))
		dt := duration / float64(n)

		x := x0.Clone()
		for k := 0; k < n; k++ {
			x = stepper.Step(sys, x, float64(k)*dt, dt)
		}
		if !x.IsValid() {
			return nil, &dynamo.IntegrationError{Step: n, Time: duration, State: x, Wrapped: dynamo.ErrInvalidState}
		}
		errs[i] = x.Distance(exact)
	}
	return errs, nil
}
