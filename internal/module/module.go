// Package module defines the capability contract every plugin module
// satisfies and the scenario-scoped Instance threaded through each phase.
//
// A module implements Module plus any subset of the capability interfaces.
// The composer checks each capability with a type assertion before running
// a phase; a module without the capability is skipped for that phase.
//
// Phase order for one scenario key:
//
//	Declare → Validate → Load → Contribute → Assemble → (solve) → Export
//
// Every phase runs for all modules before the next phase starts.
package module

import (
	"context"
	"errors"
	"log/slog"

	"github.com/souissim/gridpath/internal/ledger"
	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/tabfile"
	"github.com/souissim/gridpath/internal/temporal"
)

// Module is the minimum every plugin provides.
type Module interface {
	// Name is unique within a registry and owns the module's entities.
	Name() string

	// Dependencies names the modules whose entities this module references.
	Dependencies() []string
}

// Declarer adds entity families to the model. Declare must be idempotent for
// the same key, and may only look up entities declared by dependencies.
type Declarer interface {
	Declare(ctx context.Context, inst *Instance) error
}

// Loader populates sets and parameters from scenario inputs and
// materializes the module's columns, expressions, and constraint rows.
// A required table or row that is absent with no default is a
// scenario.MissingInputError.
type Loader interface {
	Load(ctx context.Context, inst *Instance, src scenario.InputSource) error
}

// Contributor appends entity names to ledger lists.
type Contributor interface {
	Contribute(ctx context.Context, inst *Instance) error
}

// Assembler folds ledger lists into system-level constraints or the
// objective. Assemble runs after every module has contributed.
type Assembler interface {
	Assemble(ctx context.Context, inst *Instance) error
}

// Validator checks a module's inputs without side effects.
type Validator interface {
	Validate(ctx context.Context, key scenario.Key, src scenario.InputSource) []ValidationIssue
}

// Exporter reads solved values into result rows. Export must not mutate the
// model.
type Exporter interface {
	Export(ctx context.Context, inst *Instance, sol *model.Solution) ([]results.Rows, error)
}

// InputReader reads a module's scenario inputs from a source.
type InputReader interface {
	ReadInputs(ctx context.Context, key scenario.Key, src scenario.InputSource) (map[string]*tabfile.Table, error)
}

// InputWriter writes a module's scenario inputs in the staging format.
type InputWriter interface {
	WriteInputs(ctx context.Context, key scenario.Key, tables map[string]*tabfile.Table, sink scenario.InputSink) error
}

// Capabilities lists the capability names a module implements, in phase
// order.
func Capabilities(m Module) []string {
	var out []string
	if _, ok := m.(Declarer); ok {
		out = append(out, "declare")
	}
	if _, ok := m.(Validator); ok {
		out = append(out, "validate")
	}
	if _, ok := m.(Loader); ok {
		out = append(out, "load")
	}
	if _, ok := m.(Contributor); ok {
		out = append(out, "contribute")
	}
	if _, ok := m.(Assembler); ok {
		out = append(out, "assemble")
	}
	if _, ok := m.(Exporter); ok {
		out = append(out, "export")
	}
	if _, ok := m.(InputReader); ok {
		out = append(out, "read_inputs")
	}
	if _, ok := m.(InputWriter); ok {
		out = append(out, "write_inputs")
	}
	return out
}

// ErrNoCalendar is returned when a module needs the period calendar before
// it has been loaded.
var ErrNoCalendar = errors.New("period calendar not loaded")

// Instance is the state of one scenario key. Nothing in it outlives the
// scenario's solve and export.
type Instance struct {
	ScenarioID int64
	Key        scenario.Key
	Model      *model.Model
	Ledger     *ledger.Ledger
	Logger     *slog.Logger

	calendar *temporal.Calendar
}

// NewInstance creates an empty instance for a key.
func NewInstance(scenarioID int64, key scenario.Key, logger *slog.Logger) *Instance {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Instance{
		ScenarioID: scenarioID,
		Key:        key,
		Model:      model.New(),
		Ledger:     ledger.New(),
		Logger:     logger,
	}
}

// Scope returns the declaration scope of a module.
func (in *Instance) Scope(m Module) *model.Scope {
	return in.Model.Scope(m.Name())
}

// SetCalendar installs the period calendar. Only the module that loads
// periods calls it.
func (in *Instance) SetCalendar(c *temporal.Calendar) {
	in.calendar = c
}

// Calendar returns the loaded period calendar or ErrNoCalendar.
func (in *Instance) Calendar() (*temporal.Calendar, error) {
	if in.calendar == nil {
		return nil, ErrNoCalendar
	}
	return in.calendar, nil
}
