package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/scenario"
)

func ptr[T any](v T) *T { return &v }

func sampleResult() *Result {
	r := NewResult()
	r.Keys = []KeyOutcome{
		{
			Key:          scenario.Key{Weather: "1"},
			Status:       "succeeded",
			SolverStatus: "optimal",
			Objective:    ptr(100.0),
			Tables: []TableSnapshot{{
				Name:         "project_period",
				IndexColumns: []string{"project", "period"},
				Columns:      []string{"energy_mwh"},
				Rows: []results.Row{
					{Index: []string{"coal", "2020"}, Values: map[string]float64{"energy_mwh": 10}},
					{Index: []string{"wind", "2020"}, Values: map[string]float64{}},
				},
			}},
		},
		{
			Key:    scenario.Key{Weather: "2"},
			Status: "failed",
			Issues: []module.ValidationIssue{{Module: "carbon_cap", Table: "carbon_cap", Severity: module.SeverityHigh, Message: "unknown period"}},
		},
	}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	r := sampleResult()
	k1, k2 := &scenario.Key{Weather: "1"}, &scenario.Key{Weather: "2"}
	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertStatus, Key: k1, Status: "succeeded", SolverStatus: "optimal"},
		{Type: AssertObjective, Key: k1, Value: ptr(100.00001)},
		{Type: AssertResultValue, Key: k1, Table: "project_period",
			Where: map[string]string{"project": "coal", "period": "2020"}, Column: "energy_mwh", Value: ptr(10.0)},
		{Type: AssertRowCount, Key: k1, Table: "project_period", Count: ptr(2)},
		{Type: AssertRowCount, Key: k2, Table: "project_period", Count: ptr(0)},
		{Type: AssertValidationIssue, Key: k2, Module: "carbon_cap", Severity: "High"},
	}, 1e-6)
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	r := sampleResult()
	k1, k2 := &scenario.Key{Weather: "1"}, &scenario.Key{Weather: "2"}
	tests := []struct {
		name string
		a    Assertion
		want string
	}{
		{"status", Assertion{Type: AssertStatus, Key: k2, Status: "succeeded"}, "status failed"},
		{"objective", Assertion{Type: AssertObjective, Key: k1, Value: ptr(99.0)}, "objective 100"},
		{"missing objective", Assertion{Type: AssertObjective, Key: k2, Value: ptr(1.0)}, "no objective"},
		{"missing table", Assertion{Type: AssertResultValue, Key: k2, Table: "project_period",
			Where: map[string]string{"project": "coal"}, Column: "energy_mwh", Value: ptr(1.0)}, "table not persisted"},
		{"partial where", Assertion{Type: AssertResultValue, Key: k1, Table: "project_period",
			Where: map[string]string{"project": "coal"}, Column: "energy_mwh", Value: ptr(1.0)}, "where project=coal"},
		{"missing row", Assertion{Type: AssertResultValue, Key: k1, Table: "project_period",
			Where: map[string]string{"project": "gas", "period": "2020"}, Column: "energy_mwh", Value: ptr(1.0)}, "row not found"},
		{"unset value", Assertion{Type: AssertResultValue, Key: k1, Table: "project_period",
			Where: map[string]string{"project": "wind", "period": "2020"}, Column: "energy_mwh", Value: ptr(1.0)}, "no value"},
		{"row count", Assertion{Type: AssertRowCount, Key: k1, Table: "project_period", Count: ptr(3)}, "2 rows"},
		{"issue", Assertion{Type: AssertValidationIssue, Key: k1, Module: "carbon_cap"}, "issues []"},
		{"run error", Assertion{Type: AssertRunError, Code: "UNKNOWN_MODULE"}, "run completed"},
		{"unknown key", Assertion{Type: AssertStatus, Key: &scenario.Key{Weather: "9"}, Status: "succeeded"}, "no such key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(r, []Assertion{tt.a}, 1e-6)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestEvaluateAssertions_UnkeyedAppliesToEveryKey(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{{Type: AssertStatus, Status: "succeeded"}}, 1e-6)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "weather=2")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: AssertObjective, Key: "default", Expected: "objective 1", Actual: "objective 2"}
	assert.Equal(t, "Assertion failed: objective [default]\n  Expected: objective 1\n  Actual: objective 2", err.Error())
}

func TestFormatWhere_SortsKeys(t *testing.T) {
	assert.Equal(t, "a=1, b=2", formatWhere(map[string]string{"b": "2", "a": "1"}))
}
