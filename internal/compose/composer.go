// Package compose drives plugin modules through the scenario lifecycle.
//
// A Composer resolves a module set once (dependency order, cycle check,
// probe declare) and then runs every scenario key through:
//
//	declare → validate → load → contribute → assemble → solve → export → persist
//
// Each phase runs for every module before the next phase starts. Keys are
// independent and run concurrently on a bounded worker pool; each key builds
// its own module values, model, and ledger. A failed key records its failure
// and leaves no results behind; sibling keys continue. Composition and
// ledger errors abort the whole run.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/souissim/gridpath/internal/ledger"
	"github.com/souissim/gridpath/internal/metrics"
	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/solver"
	"github.com/souissim/gridpath/internal/store"
)

// Lifecycle phase names.
const (
	PhaseDeclare    = "declare"
	PhaseValidate   = "validate"
	PhaseLoad       = "load"
	PhaseContribute = "contribute"
	PhaseAssemble   = "assemble"
	PhaseSolve      = "solve"
	PhaseExport     = "export"
	PhasePersist    = "persist"
)

// Persister stores per-key results, run status, and validation issues.
// *store.Store implements it.
type Persister interface {
	ReplaceResults(ctx context.Context, run store.Run, tables []*results.Table) error
	RecordFailure(ctx context.Context, run store.Run) error
	ReplaceValidationIssues(ctx context.Context, scope store.Scope, issues []store.Issue) error
}

// Config configures a Composer. Zero values select defaults.
type Config struct {
	ScenarioID int64

	// Workers bounds concurrent scenario keys. Default 1.
	Workers int

	// SolveTimeout is the deadline placed on the context of each solver
	// call. It is the only wall-clock limit on a solve. Zero means no limit.
	SolveTimeout time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Recorder
	RunIDs  RunIDGenerator

	// TracerProvider receives the run, key, and phase spans. Defaults to
	// the global provider.
	TracerProvider trace.TracerProvider

	// ResultsStage, if set, also receives every merged result table as a
	// staging file under the key's results directory.
	ResultsStage *scenario.Stage
}

// Composer runs a resolved module set over scenario keys.
type Composer struct {
	reg    *Registry
	order  []string
	inputs scenario.InputSource
	solver solver.Solver
	store  Persister
	cfg    Config
	tracer trace.Tracer
}

// New resolves the named modules and returns a Composer. The store may be
// nil, in which case nothing is persisted.
func New(reg *Registry, names []string, inputs scenario.InputSource, slv solver.Solver, st Persister, cfg Config) (*Composer, error) {
	mods, err := reg.Resolve(names)
	if err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.RunIDs == nil {
		cfg.RunIDs = UUIDv7Generator{}
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}

	c := &Composer{
		reg:    reg,
		inputs: inputs,
		solver: slv,
		store:  st,
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer("github.com/souissim/gridpath/internal/compose"),
	}
	for _, m := range mods {
		c.order = append(c.order, m.Name())
	}
	return c, nil
}

// Order returns the module names in composition order.
func (c *Composer) Order() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// instantiate builds fresh module values in composition order.
func (c *Composer) instantiate() []module.Module {
	mods := make([]module.Module, len(c.order))
	for i, name := range c.order {
		// Resolved in New, so the name is registered.
		m, _ := c.reg.New(name)
		mods[i] = m
	}
	return mods
}

// Run plans the module set and then runs every key. The returned error is
// non-nil only for errors that abort the whole run; per-key failures are
// reported in the Summary.
func (c *Composer) Run(ctx context.Context, keys []scenario.Key) (*Summary, error) {
	ctx, span := c.tracer.Start(ctx, "compose.Run", trace.WithAttributes(
		attribute.Int64("scenario_id", c.cfg.ScenarioID),
		attribute.Int("keys", len(keys)),
	))
	defer span.End()

	if _, err := c.Plan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sum := &Summary{ScenarioID: c.cfg.ScenarioID, Results: make([]KeyResult, len(keys))}
	for i, key := range keys {
		sum.Results[i] = KeyResult{Key: key, Status: StatusSkipped}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, key := range keys {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// The slot may free up only after the run was aborted; such a
			// key stays skipped and its stored results are left alone.
			if gctx.Err() != nil {
				return nil
			}
			res := c.RunKey(gctx, key)
			sum.Results[i] = res
			if res.Err != nil && fatal(res.Err) {
				return res.Err
			}
			return nil
		})
	}
	err := g.Wait()

	sort.SliceStable(sum.Results, func(i, j int) bool { return sum.Results[i].Key.Less(sum.Results[j].Key) })
	c.cfg.Logger.Info("run complete",
		"scenario_id", c.cfg.ScenarioID,
		"keys", len(keys),
		"succeeded", sum.Succeeded(),
		"failed", len(sum.Failed()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return sum, err
}

// RunKey runs the full lifecycle for one key and records its outcome.
func (c *Composer) RunKey(ctx context.Context, key scenario.Key) KeyResult {
	start := time.Now()
	runID := c.cfg.RunIDs.Generate()
	log := c.cfg.Logger.With("scenario_id", c.cfg.ScenarioID, "key", key.String(), "run_id", runID)

	ctx, span := c.tracer.Start(ctx, "compose.RunKey", trace.WithAttributes(
		attribute.Int64("scenario_id", c.cfg.ScenarioID),
		attribute.String("key", key.String()),
		attribute.String("run_id", runID),
	))
	defer span.End()
	defer c.cfg.Metrics.Start()()

	inst := module.NewInstance(c.cfg.ScenarioID, key, log)
	res := KeyResult{Key: key, RunID: runID}
	run := store.Run{Scope: store.Scope{ScenarioID: c.cfg.ScenarioID, Key: key}, RunID: runID}

	sol, tables, issues, err := c.lifecycle(ctx, inst, c.instantiate())
	res.Issues = issues
	if err == nil {
		obj := sol.Objective
		res.SolverStatus = sol.Status
		res.Objective = &obj
		run.Status = store.RunSucceeded
		run.SolverStatus = string(sol.Status)
		run.Objective = &obj
		err = c.phase(ctx, inst, PhasePersist, func(ctx context.Context) error {
			return c.persist(ctx, inst, run, tables)
		})
	}
	res.Duration = time.Since(start)

	if err != nil {
		res.Status = store.RunFailed
		res.Err = err
		res.Message = err.Error()
		var ke *KeyError
		if errors.As(err, &ke) {
			res.Phase = ke.Phase
		}
		if solver.IsFailure(err) {
			res.SolverStatus = solver.FailureStatus(err)
		}
		res.Objective = nil
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if cancelled(ctx, err) {
			res.Status = StatusSkipped
			log.Warn("scenario key interrupted", "phase", res.Phase, "error", err)
			return res
		}
		c.cfg.Metrics.Run(store.RunFailed)

		if fatal(err) {
			log.Error("run aborted", "phase", res.Phase, "error", err)
			return res
		}
		log.Error("scenario key failed", "phase", res.Phase, "error", err)

		if c.store != nil {
			run.Status = store.RunFailed
			run.SolverStatus = string(res.SolverStatus)
			run.Objective = nil
			run.Message = res.Message
			// Bookkeeping must land even if the run is being cancelled.
			if rerr := c.store.RecordFailure(context.WithoutCancel(ctx), run); rerr != nil {
				log.Error("record failure", "error", rerr)
			}
		}
		return res
	}

	res.Status = store.RunSucceeded
	for _, t := range tables {
		res.Tables = append(res.Tables, t.Name)
	}
	c.cfg.Metrics.Run(store.RunSucceeded)
	log.Info("scenario key solved",
		"objective", *res.Objective,
		"tables", len(tables),
		"duration", res.Duration,
	)
	return res
}

// lifecycle runs every phase up to export.
func (c *Composer) lifecycle(ctx context.Context, inst *module.Instance, mods []module.Module) (*model.Solution, []*results.Table, []module.ValidationIssue, error) {
	err := c.phase(ctx, inst, PhaseDeclare, func(ctx context.Context) error {
		return eachModule(ctx, mods, func(m module.Module) error {
			if d, ok := m.(module.Declarer); ok {
				return declareError(m, d.Declare(ctx, inst))
			}
			return nil
		})
	})
	if err != nil {
		return nil, nil, nil, err
	}

	var issues []module.ValidationIssue
	err = c.phase(ctx, inst, PhaseValidate, func(ctx context.Context) error {
		issues = c.validate(ctx, inst, mods)
		if module.HasHigh(issues) {
			return &module.ValidationError{Issues: issues}
		}
		return nil
	})
	if err != nil {
		return nil, nil, issues, err
	}

	err = c.phase(ctx, inst, PhaseLoad, func(ctx context.Context) error {
		return eachModule(ctx, mods, func(m module.Module) error {
			if l, ok := m.(module.Loader); ok {
				return l.Load(ctx, inst, c.inputs)
			}
			return nil
		})
	})
	if err != nil {
		return nil, nil, issues, err
	}

	err = c.phase(ctx, inst, PhaseContribute, func(ctx context.Context) error {
		return eachModule(ctx, mods, func(m module.Module) error {
			if ct, ok := m.(module.Contributor); ok {
				return ct.Contribute(ctx, inst)
			}
			return nil
		})
	})
	if err != nil {
		return nil, nil, issues, err
	}

	err = c.phase(ctx, inst, PhaseAssemble, func(ctx context.Context) error {
		return eachModule(ctx, mods, func(m module.Module) error {
			if a, ok := m.(module.Assembler); ok {
				return a.Assemble(ctx, inst)
			}
			return nil
		})
	})
	if err != nil {
		return nil, nil, issues, err
	}

	stats := inst.Model.Stats()
	c.cfg.Metrics.ModelSize(stats.Columns, stats.Rows)
	inst.Logger.Debug("model assembled",
		"entities", stats.Entities,
		"columns", stats.Columns,
		"integer", stats.Integer,
		"rows", stats.Rows,
	)

	var sol *model.Solution
	err = c.phase(ctx, inst, PhaseSolve, func(ctx context.Context) error {
		var err error
		sol, err = c.solve(ctx, inst)
		return err
	})
	if err != nil {
		return nil, nil, issues, err
	}

	pipe := results.NewPipeline()
	err = c.phase(ctx, inst, PhaseExport, func(ctx context.Context) error {
		return eachModule(ctx, mods, func(m module.Module) error {
			e, ok := m.(module.Exporter)
			if !ok {
				return nil
			}
			rows, err := e.Export(ctx, inst, sol)
			if err != nil {
				return err
			}
			if after := inst.Model.Stats(); after.Columns != stats.Columns || after.Rows != stats.Rows || after.Entities != stats.Entities {
				return fmt.Errorf("export changed the model")
			}
			for _, rs := range rows {
				if err := pipe.Merge(m.Name(), rs); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, nil, issues, err
	}

	return sol, pipe.Tables(), issues, nil
}

// validate runs every validator and persists the batch of issues.
func (c *Composer) validate(ctx context.Context, inst *module.Instance, mods []module.Module) []module.ValidationIssue {
	issues := []module.ValidationIssue{}
	for _, m := range mods {
		if v, ok := m.(module.Validator); ok {
			issues = append(issues, v.Validate(ctx, inst.Key, c.inputs)...)
		}
	}
	for _, is := range issues {
		c.cfg.Metrics.Issue(is.Module, string(is.Severity))
		if is.Severity == module.SeverityLow {
			inst.Logger.Warn("validation issue", "module", is.Module, "table", is.Table, "column", is.Column, "message", is.Message)
		}
	}
	if c.store != nil {
		scope := store.Scope{ScenarioID: inst.ScenarioID, Key: inst.Key}
		if err := c.store.ReplaceValidationIssues(ctx, scope, storeIssues(issues)); err != nil {
			inst.Logger.Error("persist validation issues", "error", err)
		}
	}
	return issues
}

type solveResult struct {
	sol *model.Solution
	err error
}

// solve hands the model to the solver. The call is abandoned when the
// timeout expires or ctx is cancelled, even if the solver ignores ctx.
func (c *Composer) solve(ctx context.Context, inst *module.Instance) (*model.Solution, error) {
	if c.cfg.SolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.SolveTimeout)
		defer cancel()
	}

	start := time.Now()
	ch := make(chan solveResult, 1)
	go func() {
		sol, err := c.solver.Solve(ctx, inst.Model)
		ch <- solveResult{sol: sol, err: err}
	}()

	var r solveResult
	select {
	case r = <-ch:
		if r.err != nil && !solver.IsFailure(r.err) && ctx.Err() != nil {
			r.err = interrupted(ctx)
		}
	case <-ctx.Done():
		r.err = interrupted(ctx)
	}

	status := model.StatusOptimal
	switch {
	case r.err != nil:
		status = solver.FailureStatus(r.err)
		if !solver.IsFailure(r.err) {
			r.err = &solver.Failure{Status: model.StatusError, Err: r.err}
		}
	case r.sol == nil:
		status = model.StatusError
		r.err = &solver.Failure{Status: status, Reason: "no solution returned"}
	case r.sol.Status != model.StatusOptimal:
		status = r.sol.Status
		r.err = &solver.Failure{Status: status}
	}
	c.cfg.Metrics.Solve(string(status), time.Since(start))
	if r.err != nil {
		return nil, r.err
	}
	inst.Logger.Debug("solved", "objective", r.sol.Objective, "duration", time.Since(start))
	return r.sol, nil
}

// cancelled reports whether err stems from the run's own ctx being
// cancelled, as opposed to a solve deadline or a module failure.
func cancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// interrupted describes a solve cut short by ctx.
func interrupted(ctx context.Context) error {
	status := model.StatusError
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		status = model.StatusTimeout
	}
	return &solver.Failure{Status: status, Reason: "solver interrupted", Err: ctx.Err()}
}

func (c *Composer) persist(ctx context.Context, inst *module.Instance, run store.Run, tables []*results.Table) error {
	if c.store != nil {
		if err := c.store.ReplaceResults(ctx, run, tables); err != nil {
			return err
		}
	}
	if c.cfg.ResultsStage != nil {
		for _, t := range tables {
			if err := c.cfg.ResultsStage.WriteResult(ctx, inst.Key, t.Tab()); err != nil {
				return err
			}
		}
	}
	return nil
}

// phase runs fn as one traced, timed lifecycle phase.
func (c *Composer) phase(ctx context.Context, inst *module.Instance, name string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "compose.phase."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)
	c.cfg.Metrics.Phase(name, d)
	inst.Logger.Debug("phase complete", "phase", name, "duration", d)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &KeyError{Key: inst.Key, Phase: name, Err: err}
	}
	return nil
}

// eachModule calls fn for every module in order, stopping at the first
// error or at cancellation.
func eachModule(ctx context.Context, mods []module.Module, fn func(module.Module) error) error {
	for _, m := range mods {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return fmt.Errorf("%s: %w", m.Name(), err)
		}
	}
	return nil
}

// declareError turns structural declare failures into composition errors.
// Other errors are returned unchanged.
func declareError(m module.Module, err error) error {
	if err == nil {
		return nil
	}
	var me *model.MissingEntityError
	if errors.As(err, &me) {
		return &CompositionError{Code: ErrCodeMissingEntity, Module: m.Name(), Entity: me.Name, Err: err}
	}
	var de *model.DuplicateEntityError
	if errors.As(err, &de) {
		return &CompositionError{Code: ErrCodeDuplicateEntity, Module: m.Name(), Entity: de.Name, Err: err}
	}
	if ledger.IsLedgerError(err) {
		return &CompositionError{Code: ErrCodeLedger, Module: m.Name(), Err: err}
	}
	return err
}

func storeIssues(issues []module.ValidationIssue) []store.Issue {
	out := make([]store.Issue, len(issues))
	for i, is := range issues {
		out[i] = store.Issue{
			Module:   is.Module,
			Table:    is.Table,
			Column:   is.Column,
			Severity: string(is.Severity),
			Message:  is.Message,
		}
	}
	return out
}
