package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souissim/gridpath/internal/compose"
	"github.com/souissim/gridpath/internal/modules"
	"github.com/souissim/gridpath/internal/scenario"
)

func validScenario() *Scenario {
	return &Scenario{Name: "base", ID: 1, Inputs: "in"}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_DefaultsPass(t *testing.T) {
	errs := Validate(validScenario(), modules.Registry(), modules.Default())
	assert.Empty(t, errs)
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scenario)
		want   []string
	}{
		{"id", func(s *Scenario) { s.ID = 0 }, []string{ErrInvalidID}},
		{"inputs", func(s *Scenario) { s.Inputs = " " }, []string{ErrMissingInputs}},
		{"duplicate module", func(s *Scenario) { s.Modules = []string{"temporal", "temporal"} }, []string{ErrDuplicateModule}},
		{"unknown module", func(s *Scenario) { s.Modules = []string{"temporal", "hydro_storage"} }, []string{ErrUnknownModule}},
		{"missing dependency", func(s *Scenario) { s.Modules = []string{"objective"} }, []string{ErrComposition}},
		{"empty iteration", func(s *Scenario) { s.Structure = scenario.Structure{Weather: []string{""}} }, []string{ErrInvalidIteration}},
		{"duplicate iteration", func(s *Scenario) { s.Structure = scenario.Structure{Stages: []string{"1", "1"}} }, []string{ErrInvalidIteration}},
		{"path iteration", func(s *Scenario) { s.Structure = scenario.Structure{Hydro: []string{"a/b"}} }, []string{ErrInvalidIteration}},
		{"backend", func(s *Scenario) { s.Solver.Backend = "cplex" }, []string{ErrUnknownBackend}},
		{"limits", func(s *Scenario) { s.Solver.Timeout = -1; s.Solver.NodeLimit = -1 }, []string{ErrInvalidSolverLimit, ErrInvalidSolverLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validScenario()
			tt.mutate(s)
			errs := Validate(s, modules.Registry(), modules.Default())
			assert.Equal(t, tt.want, codes(errs))
			for _, e := range errs {
				assert.Equal(t, "base", e.Scenario)
			}
		})
	}
}

func TestValidate_CompositionMessageNamesCode(t *testing.T) {
	s := validScenario()
	s.Modules = []string{"objective"}
	errs := Validate(s, modules.Registry(), nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, string(compose.ErrCodeMissingDependency))
	assert.Equal(t, "[E208] base.modules: "+errs[0].Message, errs[0].Error())
}

func TestValidateAll_DuplicateIDs(t *testing.T) {
	a, b := *validScenario(), *validScenario()
	b.Name = "copy"

	errs := ValidateAll([]Scenario{a, b}, modules.Registry(), modules.Default())
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateID, errs[0].Code)
	assert.Equal(t, "copy", errs[0].Scenario)
	assert.Contains(t, errs[0].Message, `"base"`)
}
