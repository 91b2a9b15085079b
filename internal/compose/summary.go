package compose

import (
	"time"

	"github.com/souissim/gridpath/internal/model"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/store"
)

// StatusSkipped marks keys never started because the run was aborted.
const StatusSkipped = "skipped"

// KeyResult is the outcome of one scenario key.
type KeyResult struct {
	Key          scenario.Key             `json:"key"`
	RunID        string                   `json:"run_id,omitempty"`
	Status       string                   `json:"status"`
	Phase        string                   `json:"phase,omitempty"`
	SolverStatus model.Status             `json:"solver_status,omitempty"`
	Objective    *float64                 `json:"objective,omitempty"`
	Tables       []string                 `json:"tables,omitempty"`
	Issues       []module.ValidationIssue `json:"issues,omitempty"`
	Message      string                   `json:"message,omitempty"`
	Duration     time.Duration            `json:"-"`
	Err          error                    `json:"-"`
}

// Succeeded reports whether the key's results were persisted.
func (r KeyResult) Succeeded() bool {
	return r.Status == store.RunSucceeded
}

// Summary collects the results of a run in key order.
type Summary struct {
	ScenarioID int64       `json:"scenario_id"`
	Results    []KeyResult `json:"results"`
}

// Succeeded counts keys whose results were persisted.
func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the keys that failed or were skipped.
func (s *Summary) Failed() []KeyResult {
	out := []KeyResult{}
	for _, r := range s.Results {
		if !r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}
