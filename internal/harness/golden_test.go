package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/scenario"
)

func TestRender_RoundsAndMarksMissing(t *testing.T) {
	obj := 12.0000000004
	r := &Result{
		RunError:     "composition: DEPENDENCY_CYCLE",
		RunErrorCode: "DEPENDENCY_CYCLE",
		Keys: []KeyOutcome{{
			Key:          scenario.Key{},
			Status:       "succeeded",
			SolverStatus: "optimal",
			Objective:    &obj,
			Tables: []TableSnapshot{{
				Name:         "period",
				IndexColumns: []string{"period"},
				Columns:      []string{"a", "b"},
				Rows: []results.Row{
					{Index: []string{"2020"}, Values: map[string]float64{"a": -0.0000000001}},
				},
			}},
		}},
	}

	want := "run_error DEPENDENCY_CYCLE\n" +
		"key default status succeeded solver optimal objective 12\n" +
		"table period\n" +
		"period\ta\tb\n" +
		"2020\t0\t.\n"
	assert.Equal(t, want, string(Render(r)))
}

func TestRender_SkippedKeyHasNoSolverFields(t *testing.T) {
	r := &Result{Keys: []KeyOutcome{{Key: scenario.Key{Weather: "low"}, Status: "skipped"}}}
	assert.Equal(t, "key weather=low status skipped\n", string(Render(r)))
}
