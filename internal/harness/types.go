package harness

import (
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/results"
	"github.com/souissim/gridpath/internal/scenario"
)

// Result is the outcome of a case.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Errors lists failed assertions. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RunError is set when the run aborted before solving any key.
	RunError string `json:"run_error,omitempty"`

	// RunErrorCode is the composition error code of RunError, if any.
	RunErrorCode string `json:"run_error_code,omitempty"`

	// Keys holds the persisted outcome of every key, in key order.
	Keys []KeyOutcome `json:"keys"`
}

// KeyOutcome is what the store holds for one key after the run.
type KeyOutcome struct {
	Key          scenario.Key             `json:"key"`
	Status       string                   `json:"status"`
	SolverStatus string                   `json:"solver_status,omitempty"`
	Objective    *float64                 `json:"objective,omitempty"`
	Message      string                   `json:"message,omitempty"`
	Issues       []module.ValidationIssue `json:"issues,omitempty"`
	Tables       []TableSnapshot          `json:"tables,omitempty"`
}

// Table returns the snapshot of a result table.
func (k KeyOutcome) Table(name string) (TableSnapshot, bool) {
	for _, t := range k.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableSnapshot{}, false
}

// TableSnapshot is one persisted result table.
type TableSnapshot struct {
	Name         string        `json:"name"`
	IndexColumns []string      `json:"index_columns"`
	Columns      []string      `json:"columns"`
	Rows         []results.Row `json:"rows"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Keys:   []KeyOutcome{},
	}
}

// AddError records a failed assertion and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
