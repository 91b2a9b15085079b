package definition

import (
	"fmt"
	"strings"

	"github.com/souissim/gridpath/internal/compose"
	"github.com/souissim/gridpath/internal/solver"
)

// Validation error codes (E201-E299)
const (
	ErrInvalidID          = "E201" // id must be positive
	ErrDuplicateModule    = "E202" // module listed twice
	ErrUnknownModule      = "E203" // module not registered
	ErrInvalidIteration   = "E204" // empty or duplicate iteration name
	ErrUnknownBackend     = "E205" // solver backend not registered
	ErrInvalidSolverLimit = "E206" // negative timeout or node limit
	ErrDuplicateID        = "E207" // two scenarios share an id
	ErrComposition        = "E208" // module set does not compose
	ErrMissingInputs      = "E209" // inputs directory not set
)

// ValidationError is one problem with a scenario definition.
type ValidationError struct {
	Scenario string `json:"scenario"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Scenario, e.Field, e.Message)
}

// Validate checks a compiled scenario against the module registry and the
// solver backends. It returns every problem found.
//
// An empty module list selects defaults, which are checked as given.
func Validate(s *Scenario, reg *compose.Registry, defaults []string) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Scenario: s.Name,
			Field:    field,
			Message:  fmt.Sprintf(format, args...),
			Code:     code,
		})
	}

	if s.ID <= 0 {
		add("id", ErrInvalidID, "id must be positive, got %d", s.ID)
	}
	if strings.TrimSpace(s.Inputs) == "" {
		add("inputs", ErrMissingInputs, "inputs directory is required")
	}

	names := s.Modules
	if len(names) == 0 {
		names = defaults
	}
	known := make(map[string]bool)
	for _, n := range reg.Names() {
		known[n] = true
	}
	seen := make(map[string]bool, len(names))
	resolvable := true
	for i, n := range names {
		if seen[n] {
			add(fmt.Sprintf("modules[%d]", i), ErrDuplicateModule, "duplicate module %q", n)
			resolvable = false
		}
		seen[n] = true
		if !known[n] {
			add(fmt.Sprintf("modules[%d]", i), ErrUnknownModule, "unknown module %q", n)
			resolvable = false
		}
	}
	if resolvable {
		if _, err := reg.Resolve(names); err != nil {
			add("modules", ErrComposition, "%v", err)
		}
	}

	dims := []struct {
		field  string
		values []string
	}{
		{"structure.weather", s.Structure.Weather},
		{"structure.hydro", s.Structure.Hydro},
		{"structure.availability", s.Structure.Availability},
		{"structure.subproblems", s.Structure.Subproblems},
		{"structure.stages", s.Structure.Stages},
	}
	for _, d := range dims {
		iters := make(map[string]bool, len(d.values))
		for i, v := range d.values {
			switch {
			case strings.TrimSpace(v) == "":
				add(fmt.Sprintf("%s[%d]", d.field, i), ErrInvalidIteration, "iteration name must be non-empty")
			case strings.ContainsAny(v, `/\`):
				add(fmt.Sprintf("%s[%d]", d.field, i), ErrInvalidIteration, "iteration name %q must not contain a path separator", v)
			case iters[v]:
				add(fmt.Sprintf("%s[%d]", d.field, i), ErrInvalidIteration, "duplicate iteration %q", v)
			}
			iters[v] = true
		}
	}

	if s.Solver.Backend != "" {
		if _, err := solver.New(s.Solver.Backend, solver.Options{}); err != nil {
			add("solver.backend", ErrUnknownBackend, "%v", err)
		}
	}
	if s.Solver.Timeout < 0 {
		add("solver.timeout", ErrInvalidSolverLimit, "timeout must be non-negative")
	}
	if s.Solver.NodeLimit < 0 {
		add("solver.node_limit", ErrInvalidSolverLimit, "node_limit must be non-negative")
	}

	return errs
}

// ValidateAll validates every scenario and checks ids are unique.
func ValidateAll(scenarios []Scenario, reg *compose.Registry, defaults []string) []ValidationError {
	var errs []ValidationError
	owner := make(map[int64]string, len(scenarios))
	for i := range scenarios {
		s := &scenarios[i]
		errs = append(errs, Validate(s, reg, defaults)...)
		if prev, ok := owner[s.ID]; ok {
			errs = append(errs, ValidationError{
				Scenario: s.Name,
				Field:    "id",
				Message:  fmt.Sprintf("id %d already used by scenario %q", s.ID, prev),
				Code:     ErrDuplicateID,
			})
			continue
		}
		owner[s.ID] = s.Name
	}
	return errs
}
