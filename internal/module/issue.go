package module

import (
	"fmt"
	"strings"
)

// Severity grades a validation issue.
type Severity string

const (
	// SeverityHigh aborts the scenario's load phase.
	SeverityHigh Severity = "High"
	// SeverityLow is logged and the run proceeds with defaults.
	SeverityLow Severity = "Low"
)

// ValidationIssue is one problem found in a module's inputs.
type ValidationIssue struct {
	Module   string   `json:"module"`
	Table    string   `json:"table,omitempty"`
	Column   string   `json:"column,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (v ValidationIssue) String() string {
	loc := v.Module
	if v.Table != "" {
		loc += " " + v.Table
		if v.Column != "" {
			loc += "." + v.Column
		}
	}
	return fmt.Sprintf("[%s] %s: %s", v.Severity, loc, v.Message)
}

// HasHigh reports whether any issue is high severity.
func HasHigh(issues []ValidationIssue) bool {
	for _, is := range issues {
		if is.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// ValidationError is returned when high-severity issues abort a scenario.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	var high []string
	for _, is := range e.Issues {
		if is.Severity == SeverityHigh {
			high = append(high, is.String())
		}
	}
	if len(high) == 1 {
		return "validation failed: " + high[0]
	}
	return fmt.Sprintf("validation failed with %d high severity issues:\n  %s", len(high), strings.Join(high, "\n  "))
}
