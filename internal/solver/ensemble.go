package solver

import (
	"context"
	"fmt"
	"runtime"

	"github.com/san-kum/odesolve/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// Ensemble integrates many initial states in parallel, each on its own clone
// of a base solver. The system must be safe for concurrent Derive calls.
type Ensemble struct {
	base    *NumericalSolver
	workers int
}

// NewEnsemble uses GOMAXPROCS workers when workers <= 0.
func NewEnsemble(base *NumericalSolver, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{base: base, workers: workers}
}

func (e *Ensemble) Workers() int { return e.workers }

// IntegrateDuration integrates every member from t = 0 over duration.
func (e *Ensemble) IntegrateDuration(ctx context.Context, states []dynamo.State, duration float64, sys dynamo.System) ([]Solution, error) {
	return e.IntegrateDurationFrom(ctx, states, 0, duration, sys)
}

// IntegrateDurationFrom returns one solution per initial state, in input
// order, each integrated from t0 to t0 + duration. The first failure cancels
// the remaining members; solutions of members that already finished are
// still returned.
func (e *Ensemble) IntegrateDurationFrom(ctx context.Context, states []dynamo.State, t0, duration float64, sys dynamo.System) ([]Solution, error) {
	if !e.base.IsDefined() {
		return nil, dynamo.ErrUndefined
	}
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]Solution, len(states))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, x0 := range states {
		g.Go(func() error {
			s := e.base.Clone()
			sol, err := s.IntegrateDurationFrom(ctx, x0, t0, duration, sys)
			results[i] = sol
			if err != nil {
				return fmt.Errorf("ensemble member %d: %w", i, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
