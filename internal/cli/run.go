package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/souissim/gridpath/internal/compose"
	"github.com/souissim/gridpath/internal/definition"
	"github.com/souissim/gridpath/internal/metrics"
	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/solver"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Scenarios    []string
	FromDB       bool
	StageResults bool

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs compose.RunIDGenerator
}

// RunReport is the output of the run command.
type RunReport struct {
	Scenarios []ScenarioReport `json:"scenarios"`
}

// ScenarioReport is the outcome of one scenario.
type ScenarioReport struct {
	Name    string              `json:"name"`
	ID      int64               `json:"id"`
	Results []compose.KeyResult `json:"results"`
}

// Failed counts failed keys across every scenario.
func (r RunReport) Failed() int {
	n := 0
	for _, s := range r.Scenarios {
		for _, k := range s.Results {
			if !k.Succeeded() {
				n++
			}
		}
	}
	return n
}

// String renders the report for text output.
func (r RunReport) String() string {
	var b strings.Builder
	for i, s := range r.Scenarios {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "scenario %s (id %d)\n", s.Name, s.ID)
		for _, k := range s.Results {
			if k.Succeeded() {
				fmt.Fprintf(&b, "  ✓ %s %s objective %g (%d tables)\n", k.Key, k.SolverStatus, deref(k.Objective), len(k.Tables))
				continue
			}
			fmt.Fprintf(&b, "  ✗ %s %s", k.Key, k.Status)
			if k.Phase != "" {
				fmt.Fprintf(&b, " at %s", k.Phase)
			}
			if k.Message != "" {
				fmt.Fprintf(&b, ": %s", k.Message)
			}
			b.WriteByte('\n')
			for _, is := range k.Issues {
				fmt.Fprintf(&b, "      %s\n", is)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <definitions-dir>",
		Short: "Solve scenarios and persist their results",
		Long: `Solve every iteration of the defined scenarios and persist the results.

Inputs are read from each scenario's staged inputs directory, or from the
database with --from-db. Keys run concurrently up to --workers. With --trace-file,
run, key, and phase spans are written to the file as JSON lines. A key that
fails validation, loading, or solving is recorded as failed and leaves no
results; the other keys continue.

Exit codes:
  0 - All keys succeeded
  1 - One or more keys failed, or a scenario did not compose
  2 - Command error (invalid definitions, database not found, etc.)

Example:
  gridpath run --db ./gridpath.db ./scenarios
  gridpath run --db ./gridpath.db --scenario base --workers 4 ./scenarios`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().String("db", "", "path to SQLite database")
	cmd.Flags().Int("workers", 1, "concurrent scenario keys")
	cmd.Flags().Duration("solver-timeout", 0, "per-key solver timeout when a scenario sets none")
	cmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file after the run")
	cmd.Flags().String("trace-file", "", "write OpenTelemetry spans to this file as JSON lines")
	cmd.Flags().StringSliceVar(&opts.Scenarios, "scenario", nil, "scenario to run (repeatable; default all)")
	cmd.Flags().BoolVar(&opts.FromDB, "from-db", false, "read inputs from the database instead of staged files")
	cmd.Flags().BoolVar(&opts.StageResults, "stage-results", false, "also write result tables under each key's results directory")

	return cmd
}

func runScenarios(opts *RunOptions, defsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	v, err := opts.bindFlags(cmd, map[string]string{
		KeyDatabase:      "db",
		KeyWorkers:       "workers",
		KeySolverTimeout: "solver-timeout",
		KeyMetricsFile:   "metrics-file",
		KeyTraceFile:     "trace-file",
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}
	settings, err := readRunSettings(v)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	logger := opts.logger(cmd.ErrOrStderr())

	scenarios, err := opts.loadScenarios(formatter, defsDir, opts.Scenarios)
	if err != nil {
		return err
	}

	st, err := openStore(settings.Database)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	tp := otel.GetTracerProvider()
	if settings.TraceFile != "" {
		sdk, shutdown, err := newTraceFile(settings.TraceFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid settings", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to flush traces", "path", settings.TraceFile, "error", err)
			}
		}()
		tp = sdk
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := metrics.New()
	report := RunReport{Scenarios: make([]ScenarioReport, 0, len(scenarios))}
	for i := range scenarios {
		s := &scenarios[i]
		var src scenario.InputSource = scenario.NewStage(s.Inputs)
		if opts.FromDB {
			src = st.Inputs(s.ID)
		}
		timeout := s.Solver.Timeout
		if timeout == 0 {
			timeout = settings.SolverTimeout
		}
		slv, err := solver.New(s.Solver.Backend, solver.Options{NodeLimit: s.Solver.NodeLimit})
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid solver", err)
		}
		cfg := compose.Config{
			ScenarioID:     s.ID,
			Workers:        settings.Workers,
			SolveTimeout:   timeout,
			Logger:         logger.With("scenario", s.Name),
			Metrics:        rec,
			RunIDs:         opts.RunIDs,
			TracerProvider: tp,
		}
		if opts.StageResults {
			cfg.ResultsStage = scenario.NewStage(s.Inputs)
		}

		comp, err := compose.New(opts.registry(), moduleNames(s), src, slv, st, cfg)
		if err != nil {
			_ = formatter.Error(definition.ErrComposition, err.Error(), nil)
			return WrapExitError(ExitFailure, fmt.Sprintf("scenario %s does not compose", s.Name), err)
		}

		keys := s.Structure.Keys()
		logger.Info("running scenario", "scenario", s.Name, "scenario_id", s.ID, "keys", len(keys), "modules", len(comp.Order()))
		sum, err := comp.Run(ctx, keys)
		if err != nil {
			_ = formatter.Error(definition.ErrComposition, err.Error(), nil)
			return WrapExitError(ExitFailure, fmt.Sprintf("scenario %s aborted", s.Name), err)
		}
		report.Scenarios = append(report.Scenarios, ScenarioReport{Name: s.Name, ID: s.ID, Results: sum.Results})
		if ctx.Err() != nil {
			break
		}
	}

	if settings.MetricsFile != "" {
		if err := rec.WriteTextfile(settings.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "path", settings.MetricsFile, "error", err)
		}
	}

	if err := formatter.Success(report); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return WrapExitError(ExitFailure, "run interrupted", ctx.Err())
	}
	if n := report.Failed(); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d key(s) failed", n))
	}
	logger.Debug("run finished", "scenarios", len(report.Scenarios))
	return nil
}
