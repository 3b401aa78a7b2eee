package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
)

// LyapunovExponent estimates the largest Lyapunov exponent using the
// trajectory separation method. A positive value indicates chaos.
//
// Algorithm:
// 1. Run two nearby trajectories for one interval
// 2. Accumulate ln(|δx|/δ0) and rescale the perturbed state back to δ0
// 3. λ ≈ Σ ln(|δx|/δ0) / duration
//
// s is used for both trajectories; its log type should be NoLog.
func LyapunovExponent(ctx context.Context, s *solver.NumericalSolver, sys dynamo.System, x0 dynamo.State, interval, duration, perturbation float64) (float64, error) {
	if len(x0) == 0 || interval <= 0 || duration <= 0 || perturbation <= 0 {
		return 0, fmt.Errorf("%w: lyapunov needs a state, positive interval, duration and perturbation", dynamo.ErrConfiguration)
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += perturbation

	sumLog := 0.0
	t := 0.0
	for t < duration {
		h := math.Min(interval, duration-t)

		a, err := s.IntegrateTime(ctx, x, t, t+h, sys)
		if err != nil {
			return 0, err
		}
		b, err := s.IntegrateTime(ctx, xp, t, t+h, sys)
		if err != nil {
			return 0, err
		}
		t += h

		sep := b.State.Sub(a.State).Norm()
		if sep == 0 {
			return math.Inf(-1), nil
		}
		sumLog += math.Log(sep / perturbation)

		// Renormalize to stay in the linear regime
		x = a.State
		xp = a.State.Clone()
		xp.AddScaled(perturbation/sep, b.State.Sub(a.State))
	}

	return sumLog / duration, nil
}
