package metrics

import (
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
	"github.com/san-kum/odesolve/internal/systems"
)

func find(samples []Sample, name, labels string) (float64, bool) {
	for _, s := range samples {
		if s.Name == name && s.Labels == labels {
			return s.Value, true
		}
	}
	return 0, false
}

func TestRecorderObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	sol := solver.Solution{
		Status: solver.StatusConverged,
		Stats:  solver.Stats{Steps: 10, Rejected: 2, Evaluations: 84},
	}
	rec.Observe(solver.RungeKuttaDopri5, sol, 3*time.Millisecond)
	rec.Observe(solver.RungeKuttaDopri5, sol, 5*time.Millisecond)

	sol.Status = solver.StatusRejected
	rec.Observe(solver.RungeKuttaDopri5, sol, time.Millisecond)

	samples, err := Snapshot(reg)
	require.NoError(t, err)

	v, ok := find(samples, "odesolve_steps_total", "stepper=RungeKuttaDopri5")
	require.True(t, ok)
	assert.Equal(t, 30.0, v)

	v, _ = find(samples, "odesolve_rejected_steps_total", "stepper=RungeKuttaDopri5")
	assert.Equal(t, 6.0, v)

	v, _ = find(samples, "odesolve_evaluations_total", "stepper=RungeKuttaDopri5")
	assert.Equal(t, 252.0, v)

	v, _ = find(samples, "odesolve_integrations_total", "status=converged,stepper=RungeKuttaDopri5")
	assert.Equal(t, 2.0, v)
	v, _ = find(samples, "odesolve_integrations_total", "status=rejected,stepper=RungeKuttaDopri5")
	assert.Equal(t, 1.0, v)

	v, _ = find(samples, "odesolve_integration_seconds_count", "stepper=RungeKuttaDopri5")
	assert.Equal(t, 3.0, v)
	v, _ = find(samples, "odesolve_integration_seconds_sum", "stepper=RungeKuttaDopri5")
	assert.InDelta(t, 0.009, v, 1e-12)
}

func TestRecorderDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)
	assert.Panics(t, func() { NewRecorder(reg) })
}

func TestObserverDrivesMetrics(t *testing.T) {
	osc := systems.NewOscillator()
	drift := NewEnergyDrift(osc)
	steps := NewStepSize()

	s, err := solver.New(solver.NoLog, solver.RungeKuttaDopri5, 0.1, 1e-10, 1e-10,
		solver.WithLogger(slog.New(slog.DiscardHandler)),
		solver.WithObserver(Observer(drift, steps)))
	require.NoError(t, err)

	sol, err := s.IntegrateDuration(context.Background(), dynamo.State{1, 0}, 2*math.Pi, osc)
	require.NoError(t, err)

	assert.Less(t, drift.Value(), 1e-8)
	assert.InDelta(t, 2*math.Pi/float64(sol.Stats.Steps), steps.Value(), 1e-9)
}

func TestReplay(t *testing.T) {
	steps := NewStepSize()
	Replay([]solver.Solution{{Time: 0}, {Time: 0.5}, {Time: 1.5}}, steps)
	assert.InDelta(t, 0.75, steps.Value(), 1e-12)
}
