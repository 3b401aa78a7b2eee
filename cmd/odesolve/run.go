package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/odesolve/internal/config"
	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/metrics"
	"github.com/san-kum/odesolve/internal/solver"
	"github.com/san-kum/odesolve/internal/storage"
	"github.com/san-kum/odesolve/internal/viz"
)

// runFlags are the integration flags shared by run, live, ensemble and the
// analyze commands.
type runFlags struct {
	configFile string
	preset     string
	stepper    string
	logType    string
	dt         float64
	rtol       float64
	atol       float64
	start      float64
	duration   float64
	state      []float64
	params     map[string]string
	maxSteps   int
}

func (f *runFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.configFile, "config", "", "config file path (yaml)")
	fs.StringVar(&f.preset, "preset", "", "use preset configuration")
	fs.StringVar(&f.stepper, "stepper", config.DefaultStepper, "stepper (rk4, cashkarp54, fehlberg78, dopri5)")
	fs.StringVar(&f.logType, "log", config.DefaultLog, "observation mode (none, constant, adaptive)")
	fs.Float64Var(&f.dt, "dt", config.DefaultTimeStep, "time step (initial step for adaptive steppers)")
	fs.Float64Var(&f.rtol, "rtol", config.DefaultTol, "relative tolerance")
	fs.Float64Var(&f.atol, "atol", config.DefaultTol, "absolute tolerance")
	fs.Float64Var(&f.start, "start", 0, "start time")
	fs.Float64Var(&f.duration, "time", config.DefaultDuration, "duration (negative integrates backwards)")
	fs.Float64SliceVar(&f.state, "state", nil, "initial state (default: the system's default state)")
	fs.StringToStringVar(&f.params, "param", nil, "system parameter, e.g. --param rho=28")
	fs.IntVar(&f.maxSteps, "max-steps", 0, "maximum accepted steps per call (0 = solver default)")
}

// resolve layers preset, config file and explicitly set flags, in that order.
func (f *runFlags) resolve(cmd *cobra.Command, system string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.System = system

	if f.preset != "" {
		p := config.GetPreset(system, f.preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", f.preset, config.ListPresets(system))
		}
		cfg = p
	}

	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if system != "" && loaded.System != system {
			logger.Info("system argument overrides config file", "file", loaded.System, "arg", system)
			loaded.System = system
		}
		cfg = loaded
	}

	fs := cmd.Flags()
	if fs.Changed("stepper") || (f.preset == "" && f.configFile == "") {
		cfg.Stepper = f.stepper
	}
	if fs.Changed("log") || (f.preset == "" && f.configFile == "") {
		cfg.Log = f.logType
	}
	if fs.Changed("dt") {
		cfg.TimeStep = f.dt
	}
	if fs.Changed("rtol") {
		cfg.RelTol = f.rtol
	}
	if fs.Changed("atol") {
		cfg.AbsTol = f.atol
	}
	if fs.Changed("start") {
		cfg.Start = f.start
	}
	if fs.Changed("time") {
		cfg.Duration = f.duration
	}
	if fs.Changed("state") {
		cfg.InitialState = f.state
	}
	if fs.Changed("max-steps") {
		cfg.MaxSteps = f.maxSteps
	}
	for k, raw := range f.params {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("--param %s: %w", k, err)
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		cfg.Params[k] = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRunCmd() *cobra.Command {
	var (
		f           runFlags
		dumpMetrics bool
	)
	cmd := &cobra.Command{
		Use:   "run [system]",
		Short: "integrate a system and store the run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			return runIntegration(cmd.Context(), cfg, dumpMetrics)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "print solver counters after the run")
	return cmd
}

func runIntegration(ctx context.Context, cfg *config.Config, dumpMetrics bool) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	sys, err := cfg.BuildSystem()
	if err != nil {
		return err
	}
	x0, err := cfg.GetInitState()
	if err != nil {
		return err
	}

	ms := metrics.Defaults(sys)
	s, err := cfg.NewSolver(solver.WithLogger(logger), solver.WithObserver(metrics.Observer(ms...)))
	if err != nil {
		return err
	}
	settings, _ := s.Settings()

	fmt.Printf("running %s simulation...\n", cfg.System)
	started := time.Now()
	sol, runErr := s.IntegrateTime(ctx, x0, cfg.Start, cfg.Start+cfg.Duration, sys)
	elapsed := time.Since(started)
	if runErr != nil && sol.State == nil {
		return runErr
	}

	reg := prometheus.NewRegistry()
	metrics.NewRecorder(reg).Observe(settings.StepperType, sol, elapsed)

	history, err := s.ObservedStateVectors()
	if err != nil {
		return err
	}
	if len(history) == 0 {
		history = []solver.Solution{{State: x0, Time: cfg.Start}}
		if sol.State != nil {
			history = append(history, sol)
		}
	}

	meta := storage.RunMetadata{
		System:      cfg.System,
		Stepper:     settings.StepperType.String(),
		Log:         settings.LogType.String(),
		TimeStep:    cfg.TimeStep,
		RelTol:      cfg.RelTol,
		AbsTol:      cfg.AbsTol,
		Start:       cfg.Start,
		Duration:    cfg.Duration,
		Status:      sol.Status.String(),
		Steps:       sol.Stats.Steps,
		Rejected:    sol.Stats.Rejected,
		Evaluations: sol.Stats.Evaluations,
		Params:      cfg.Params,
		Metrics:     metrics.Values(ms...),
	}
	runID, err := st.Save(meta, history)
	if err != nil {
		return err
	}
	meta.ID = runID
	if err := recordRun(ctx, st, meta); err != nil {
		logger.Warn("catalog update failed", "run", runID, "err", err)
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("status: %s\n", sol.Status)
	fmt.Printf("steps: %d (rejected %d, evaluations %d)\n", sol.Stats.Steps, sol.Stats.Rejected, sol.Stats.Evaluations)
	fmt.Printf("final state at t=%g: %v\n", sol.Time, []float64(sol.State))
	printMetrics(meta.Metrics)

	if dumpMetrics {
		samples, err := metrics.Snapshot(reg)
		if err != nil {
			return err
		}
		fmt.Println("\ncounters:")
		for _, smp := range samples {
			fmt.Printf("  %s{%s} %g\n", smp.Name, smp.Labels, smp.Value)
		}
	}

	return runErr
}

// recordRun reloads the saved metadata so the catalog row carries the
// timestamp written to disk.
func recordRun(ctx context.Context, st *storage.Store, meta storage.RunMetadata) error {
	cat, err := openCatalog(ctx)
	if err != nil || cat == nil {
		return err
	}
	defer cat.Close()

	saved, err := st.Load(meta.ID)
	if err != nil {
		return err
	}
	return cat.Record(ctx, *saved)
}

func printMetrics(values map[string]float64) {
	if len(values) == 0 {
		return
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, values[name])
	}
}

func newCompareCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "compare [system] [stepper1] [stepper2] ...",
		Short: "compare steppers on the same system",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			return compareSteppers(cmd.Context(), cfg, args[1:])
		},
	}
	f.register(cmd)
	return cmd
}

func compareSteppers(ctx context.Context, cfg *config.Config, steppers []string) error {
	sys, err := cfg.BuildSystem()
	if err != nil {
		return err
	}
	x0, err := cfg.GetInitState()
	if err != nil {
		return err
	}
	t1 := cfg.Start + cfg.Duration

	var exact dynamo.State
	if solvable, ok := sys.(dynamo.Solvable); ok {
		exact = solvable.Exact(x0, cfg.Duration)
	}

	fmt.Printf("%-22s %10s %9s %12s %12s %14s\n", "STEPPER", "STEPS", "REJECTED", "EVALUATIONS", "TIME", "ERROR")
	fmt.Println(strings.Repeat("-", 84))

	var errs []error
	for _, name := range steppers {
		c := cfg.Clone()
		c.Stepper = name
		c.Log = solver.NoLog.String()
		s, err := c.NewSolver(solver.WithLogger(logger))
		if err != nil {
			errs = append(errs, err)
			continue
		}

		started := time.Now()
		sol, err := s.IntegrateTime(ctx, x0, cfg.Start, t1, sys)
		elapsed := time.Since(started)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}

		errCol := "-"
		if exact != nil && sol.State != nil {
			errCol = fmt.Sprintf("%.3e", sol.State.Distance(exact))
		}
		fmt.Printf("%-22s %10d %9d %12d %12v %14s\n", name, sol.Stats.Steps, sol.Stats.Rejected, sol.Stats.Evaluations, elapsed.Round(time.Microsecond), errCol)
	}
	return errors.Join(errs...)
}

func newEnsembleCmd() *cobra.Command {
	var (
		f       runFlags
		members int
		spread  float64
		workers int
	)
	cmd := &cobra.Command{
		Use:   "ensemble [system]",
		Short: "integrate perturbed copies of the initial state in parallel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			cfg.Log = solver.NoLog.String()
			return runEnsemble(cmd.Context(), cfg, members, spread, workers)
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&members, "members", 8, "number of ensemble members")
	cmd.Flags().Float64Var(&spread, "spread", 1e-6, "offset added to the first component per member")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0 = GOMAXPROCS)")
	return cmd
}

func runEnsemble(ctx context.Context, cfg *config.Config, members int, spread float64, workers int) error {
	if members < 1 {
		return fmt.Errorf("--members must be positive")
	}
	sys, err := cfg.BuildSystem()
	if err != nil {
		return err
	}
	x0, err := cfg.GetInitState()
	if err != nil {
		return err
	}
	base, err := cfg.NewSolver(solver.WithLogger(logger))
	if err != nil {
		return err
	}

	states := make([]dynamo.State, members)
	for i := range states {
		states[i] = x0.Clone()
		states[i][0] += float64(i) * spread
	}

	ens := solver.NewEnsemble(base, workers)
	sols, err := ens.IntegrateDurationFrom(ctx, states, cfg.Start, cfg.Duration, sys)

	for i, sol := range sols {
		if sol.State == nil {
			continue
		}
		fmt.Printf("member %3d  %-10s t=%-10g steps=%-7d %v\n", i, sol.Status, sol.Time, sol.Stats.Steps, []float64(sol.State))
	}
	if err != nil {
		return err
	}

	var maxDist float64
	for _, sol := range sols[1:] {
		maxDist = max(maxDist, sol.State.Distance(sols[0].State))
	}
	fmt.Printf("\n%d members on %d workers, max distance from member 0: %.6g\n", members, ens.Workers(), maxDist)
	return nil
}

func newLiveCmd() *cobra.Command {
	var (
		f     runFlags
		frame float64
	)
	cmd := &cobra.Command{
		Use:   "live [system]",
		Short: "integrate with live terminal visualization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, args[0])
			if err != nil {
				return err
			}
			cfg.Log = solver.NoLog.String()
			return runLive(cmd.Context(), cfg, frame)
		},
	}
	f.register(cmd)
	cmd.Flags().Float64Var(&frame, "frame", 0.05, "simulated time per frame")
	return cmd
}

func runLive(ctx context.Context, cfg *config.Config, frame float64) error {
	if frame <= 0 {
		return fmt.Errorf("--frame must be positive")
	}
	sys, err := cfg.BuildSystem()
	if err != nil {
		return err
	}
	x0, err := cfg.GetInitState()
	if err != nil {
		return err
	}

	// Logging to stderr would corrupt the alt screen.
	s, err := cfg.NewSolver(solver.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		return err
	}
	return viz.RunLive(viz.NewModel(ctx, s, sys, x0, frame, cfg.System))
}

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run every configuration of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := config.LoadScenario(args[0])
			if err != nil {
				return err
			}
			if sc.Name != "" {
				fmt.Printf("scenario: %s\n", sc.Name)
			}

			var errs []error
			for i, cfg := range sc.Runs {
				fmt.Printf("\n[%d/%d] ", i+1, len(sc.Runs))
				if err := runIntegration(cmd.Context(), cfg, false); err != nil {
					logger.Warn("scenario run failed", "run", i+1, "system", cfg.System, "err", err)
					errs = append(errs, fmt.Errorf("run %d: %w", i+1, err))
				}
			}
			return errors.Join(errs...)
		},
	}
}
