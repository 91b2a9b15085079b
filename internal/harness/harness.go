package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/souissim/gridpath/internal/compose"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/modules"
	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/solver"
	"github.com/souissim/gridpath/internal/store"
)

// scenarioID is the id every case persists under. Each case has its own
// store, so ids never collide.
const scenarioID = 1

// Harness runs cases. The zero value is not usable; use New.
type Harness struct {
	registry *compose.Registry
	logger   *slog.Logger
	golden   *goldenDir
}

// Option configures a Harness.
type Option func(*Harness)

// WithRegistry replaces the built-in module registry.
func WithRegistry(r *compose.Registry) Option {
	return func(h *Harness) { h.registry = r }
}

// WithLogger sets the logger handed to the composer. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		registry: modules.Registry(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a case with the built-in modules.
func Run(ctx context.Context, c *Case) (*Result, error) {
	return New().Run(ctx, c)
}

// Run executes a case and evaluates its assertions.
//
// Each case runs in a fresh in-memory database. A run aborted by a
// composition error is not an error here: it is recorded in the result for
// run_error assertions. Errors are returned only when the case itself cannot
// be set up.
func (h *Harness) Run(ctx context.Context, c *Case) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	timeout, err := c.Solver.Duration()
	if err != nil {
		return nil, fmt.Errorf("case %s: solver timeout: %w", c.Name, err)
	}
	slv, err := solver.New(c.Solver.Backend, solver.Options{NodeLimit: c.Solver.NodeLimit})
	if err != nil {
		return nil, fmt.Errorf("case %s: %w", c.Name, err)
	}

	names := c.Modules
	if len(names) == 0 {
		names = modules.Default()
	}
	keys := c.Structure.Keys()
	runIDs := make([]string, len(keys))
	for i := range keys {
		runIDs[i] = fmt.Sprintf("%s-%d", c.Name, i+1)
	}

	result := NewResult()
	comp, err := compose.New(h.registry, names, scenario.NewStage(c.Inputs), slv, st, compose.Config{
		ScenarioID:   scenarioID,
		SolveTimeout: timeout,
		Logger:       h.logger,
		RunIDs:       compose.NewFixedGenerator(runIDs...),
	})
	if err == nil {
		_, err = comp.Run(ctx, keys)
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		result.RunError = err.Error()
		var ce *compose.CompositionError
		if errors.As(err, &ce) {
			result.RunErrorCode = string(ce.Code)
		}
	}

	for _, key := range keys {
		outcome, err := readOutcome(ctx, st, key)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		result.Keys = append(result.Keys, outcome)
	}

	for _, msg := range EvaluateAssertions(result, c.Assertions, c.tolerance()) {
		result.AddError(msg)
	}
	return result, nil
}

// readOutcome reads back what the run persisted for a key. A key the run
// never reached has status "skipped" and no tables.
func readOutcome(ctx context.Context, st *store.Store, key scenario.Key) (KeyOutcome, error) {
	scope := store.Scope{ScenarioID: scenarioID, Key: key}
	out := KeyOutcome{Key: key, Status: compose.StatusSkipped}

	run, ok, err := st.GetRun(ctx, scope)
	if err != nil {
		return out, err
	}
	if ok {
		out.Status = run.Status
		out.SolverStatus = run.SolverStatus
		out.Objective = run.Objective
		out.Message = run.Message
	}

	issues, err := st.ValidationIssues(ctx, scope)
	if err != nil {
		return out, err
	}
	for _, is := range issues {
		out.Issues = append(out.Issues, module.ValidationIssue{
			Module:   is.Module,
			Table:    is.Table,
			Column:   is.Column,
			Severity: module.Severity(is.Severity),
			Message:  is.Message,
		})
	}

	infos, err := st.ResultTables(ctx, scope)
	if err != nil {
		return out, err
	}
	for _, info := range infos {
		rows, err := st.GetRows(ctx, scope, info.Name)
		if err != nil {
			return out, err
		}
		out.Tables = append(out.Tables, TableSnapshot{
			Name:         info.Name,
			IndexColumns: info.IndexColumns,
			Columns:      info.Columns,
			Rows:         rows,
		})
	}
	return out, nil
}
