package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/san-kum/odesolve/internal/storage"
)

const noCatalog = "none"

var (
	dataDir     string
	logLevel    string
	catalogPath string

	logger = slog.Default()
)

// main registers commands and flags and executes the root command.
// It exits the process with status 1 if command execution returns an error.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ODESOLVE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:          "odesolve",
		Short:        "numerical ODE integration lab",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dataDir = v.GetString("data")
			catalogPath = v.GetString("catalog")
			logLevel = v.GetString("log-level")

			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("data", ".odesolve", "data directory")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("catalog", "", "sqlite run catalog (default <data>/catalog.db, \"none\" disables)")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newBatchCmd(),
		newListCmd(),
		newShowCmd(),
		newDeleteCmd(),
		newPlotCmd(),
		newPhaseCmd(),
		newExportCSVCmd(),
		newExportJSONCmd(),
		newCompareCmd(),
		newConvergeCmd(),
		newEnsembleCmd(),
		newAnalyzeCmd(),
		newPresetsCmd(),
		newSystemsCmd(),
		newLiveCmd(),
	)
	return rootCmd
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

// openCatalog returns nil when the catalog is disabled.
func openCatalog(ctx context.Context) (*storage.Catalog, error) {
	path := catalogPath
	switch path {
	case noCatalog:
		return nil, nil
	case "":
		path = filepath.Join(dataDir, "catalog.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return storage.Open(ctx, path)
}
