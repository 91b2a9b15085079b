package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/scenario"
)

// DefaultTolerance bounds numeric comparisons when a case sets none.
const DefaultTolerance = 1e-6

// Case defines a conformance case.
type Case struct {
	// Name uniquely identifies this case and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this case validates.
	Description string `yaml:"description"`

	// Inputs is the staged scenario directory. LoadCase resolves it
	// relative to the case file.
	Inputs string `yaml:"inputs"`

	// Modules lists the module set. Empty selects every built-in module.
	Modules []string `yaml:"modules,omitempty"`

	// Structure enumerates the scenario keys. Empty runs the default key.
	Structure scenario.Structure `yaml:"structure,omitempty"`

	Solver SolverSettings `yaml:"solver,omitempty"`

	// Tolerance bounds numeric comparisons. Zero uses DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Assertions validate the persisted outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// SolverSettings selects and bounds the solver backend.
type SolverSettings struct {
	Backend   string `yaml:"backend,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
	NodeLimit int    `yaml:"node_limit,omitempty"`
}

// Duration parses Timeout. An empty timeout is zero.
func (s SolverSettings) Duration() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(s.Timeout)
}

// Assertion validates one aspect of the outcome.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Key restricts the assertion to one key. Nil applies it to every key.
	Key *scenario.Key `yaml:"key,omitempty"`

	// Status is the expected run status (status).
	Status string `yaml:"status,omitempty"`

	// SolverStatus is the expected solver status (status, optional).
	SolverStatus string `yaml:"solver_status,omitempty"`

	// Value is the expected number (objective, result_value).
	Value *float64 `yaml:"value,omitempty"`

	// Table is the result table (result_value, row_count).
	Table string `yaml:"table,omitempty"`

	// Where locates a row by its index columns (result_value).
	Where map[string]string `yaml:"where,omitempty"`

	// Column is the value column (result_value).
	Column string `yaml:"column,omitempty"`

	// Count is the expected row count (row_count).
	Count *int `yaml:"count,omitempty"`

	// Module and Severity select validation issues (validation_issue).
	Module   string `yaml:"module,omitempty"`
	Severity string `yaml:"severity,omitempty"`

	// Code is the expected composition error code (run_error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertStatus          = "status"
	AssertObjective       = "objective"
	AssertResultValue     = "result_value"
	AssertRowCount        = "row_count"
	AssertValidationIssue = "validation_issue"
	AssertRunError        = "run_error"
)

// LoadCase reads and parses a case YAML file, resolving its inputs
// directory relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}

	// Reject unknown fields so a typo like "assertion:" fails loudly.
	var c Case
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if c.Inputs != "" && !filepath.IsAbs(c.Inputs) {
		c.Inputs = filepath.Join(filepath.Dir(path), c.Inputs)
	}

	if err := validateCase(&c); err != nil {
		return nil, fmt.Errorf("invalid case: %w", err)
	}
	return &c, nil
}

// tolerance returns the case tolerance or the default.
func (c *Case) tolerance() float64 {
	if c.Tolerance > 0 {
		return c.Tolerance
	}
	return DefaultTolerance
}

// validateCase checks that required fields are present and valid.
func validateCase(c *Case) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	if c.Inputs == "" {
		return fmt.Errorf("inputs is required")
	}
	if info, err := os.Stat(c.Inputs); err != nil || !info.IsDir() {
		return fmt.Errorf("inputs directory not found: %s", c.Inputs)
	}
	if _, err := c.Solver.Duration(); err != nil {
		return fmt.Errorf("solver.timeout: %w", err)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative")
	}
	if len(c.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range c.Assertions {
		if err := validateAssertion(i, &c.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for status", index)
		}
	case AssertObjective:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for objective", index)
		}
	case AssertResultValue:
		if a.Table == "" || a.Column == "" {
			return fmt.Errorf("assertions[%d]: table and column are required for result_value", index)
		}
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for result_value", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for result_value", index)
		}
	case AssertRowCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for row_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertValidationIssue:
		if a.Module == "" {
			return fmt.Errorf("assertions[%d]: module is required for validation_issue", index)
		}
		switch module.Severity(a.Severity) {
		case "", module.SeverityHigh, module.SeverityLow:
		default:
			return fmt.Errorf("assertions[%d]: unknown severity %q", index, a.Severity)
		}
	case AssertRunError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for run_error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
