// Package definition compiles scenario definitions written in CUE.
//
// A definition directory holds one or more .cue files with a top-level
// scenario struct:
//
//	scenario: base: {
//		id:      1
//		inputs:  "inputs"
//		modules: ["temporal", "objective", "load_zones"]
//		structure: weather: ["1", "2"]
//		solver: {backend: "gonum", timeout: "30s"}
//	}
//
// Every scenario is checked against the embedded #Scenario schema before it
// is decoded.
package definition

import (
	_ "embed"
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/souissim/gridpath/internal/scenario"
)

//go:embed schema.cue
var schemaSource []byte

// Scenario is a compiled scenario definition.
type Scenario struct {
	Name        string             `json:"name"`
	ID          int64              `json:"id"`
	Description string             `json:"description,omitempty"`
	Inputs      string             `json:"inputs,omitempty"`
	Modules     []string           `json:"modules,omitempty"`
	Structure   scenario.Structure `json:"structure"`
	Solver      Solver             `json:"solver"`
}

// Solver holds the solver settings of a scenario.
type Solver struct {
	Backend   string        `json:"backend,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
	NodeLimit int           `json:"node_limit,omitempty"`
}

// rawScenario mirrors #Scenario for decoding.
type rawScenario struct {
	ID          int64              `json:"id"`
	Description string             `json:"description"`
	Inputs      string             `json:"inputs"`
	Modules     []string           `json:"modules"`
	Structure   scenario.Structure `json:"structure"`
	Solver      struct {
		Backend   string `json:"backend"`
		Timeout   string `json:"timeout"`
		NodeLimit int    `json:"node_limit"`
	} `json:"solver"`
}

// schema returns #Scenario compiled in ctx. Values from different contexts
// cannot be unified, so the schema is compiled per context.
func schema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, err
	}
	return v.LookupPath(cue.ParsePath("#Scenario")), nil
}

// CompileScenario checks a CUE value against #Scenario and decodes it. The
// scenario name is the value's last path selector, e.g. "base" for
// scenario.base.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`scenario: base: {id: 1}`)
//	s, err := CompileScenario(v.LookupPath(cue.ParsePath("scenario.base")))
func CompileScenario(v cue.Value) (*Scenario, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &Scenario{}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		s.Name = sels[len(sels)-1].String()
	}

	def, err := schema(v.Context())
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var raw rawScenario
	if err := unified.Decode(&raw); err != nil {
		return nil, formatCUEError(err)
	}

	s.ID = raw.ID
	s.Description = raw.Description
	s.Inputs = raw.Inputs
	s.Modules = raw.Modules
	s.Structure = raw.Structure
	s.Solver.Backend = raw.Solver.Backend
	s.Solver.NodeLimit = raw.Solver.NodeLimit
	if raw.Solver.Timeout != "" {
		d, err := time.ParseDuration(raw.Solver.Timeout)
		if err != nil {
			return nil, &CompileError{
				Field:   "solver.timeout",
				Message: fmt.Sprintf("invalid duration %q", raw.Solver.Timeout),
				Pos:     v.LookupPath(cue.ParsePath("solver.timeout")).Pos(),
			}
		}
		s.Solver.Timeout = d
	}
	return s, nil
}

// CompileString compiles a single scenario from CUE source. It is a
// convenience for tests and generated definitions.
func CompileString(src, name string) (*Scenario, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileScenario(v.LookupPath(cue.MakePath(cue.Str("scenario"), cue.Str(name))))
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &CompileError{Field: "cue", Message: first.Error()}
}
