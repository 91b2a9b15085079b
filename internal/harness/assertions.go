package harness

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string
	Key      string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Key != "" {
		fmt.Fprintf(&buf, " [%s]", e.Key)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion, tol float64) []string {
	var errs []string
	for _, a := range assertions {
		if a.Type == AssertRunError {
			if err := assertRunError(result, a); err != nil {
				errs = append(errs, err.Error())
			}
			continue
		}
		matched := false
		for _, k := range result.Keys {
			if a.Key != nil && *a.Key != k.Key {
				continue
			}
			matched = true
			if err := evaluate(k, a, tol); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if !matched {
			errs = append(errs, (&AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("key %v in the run", a.Key),
				Actual:   "no such key",
			}).Error())
		}
	}
	return errs
}

func evaluate(k KeyOutcome, a Assertion, tol float64) error {
	switch a.Type {
	case AssertStatus:
		return assertStatus(k, a)
	case AssertObjective:
		return assertObjective(k, a, tol)
	case AssertResultValue:
		return assertResultValue(k, a, tol)
	case AssertRowCount:
		return assertRowCount(k, a)
	case AssertValidationIssue:
		return assertValidationIssue(k, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertStatus(k KeyOutcome, a Assertion) error {
	if k.Status != a.Status || (a.SolverStatus != "" && k.SolverStatus != a.SolverStatus) {
		return &AssertionError{
			Type:     AssertStatus,
			Key:      k.Key.String(),
			Expected: fmt.Sprintf("status %s solver %s", a.Status, orAny(a.SolverStatus)),
			Actual:   fmt.Sprintf("status %s solver %s (%s)", k.Status, orAny(k.SolverStatus), k.Message),
		}
	}
	return nil
}

func assertObjective(k KeyOutcome, a Assertion, tol float64) error {
	if k.Objective == nil {
		return &AssertionError{
			Type:     AssertObjective,
			Key:      k.Key.String(),
			Expected: fmt.Sprintf("objective %g", *a.Value),
			Actual:   fmt.Sprintf("no objective (status %s)", k.Status),
		}
	}
	if !near(*k.Objective, *a.Value, tol) {
		return &AssertionError{
			Type:     AssertObjective,
			Key:      k.Key.String(),
			Expected: fmt.Sprintf("objective %g", *a.Value),
			Actual:   fmt.Sprintf("objective %g", *k.Objective),
		}
	}
	return nil
}

// assertResultValue locates exactly one row by its index columns and checks
// one value column.
func assertResultValue(k KeyOutcome, a Assertion, tol float64) error {
	t, ok := k.Table(a.Table)
	if !ok {
		return &AssertionError{
			Type:     AssertResultValue,
			Key:      k.Key.String(),
			Expected: fmt.Sprintf("result table %s", a.Table),
			Actual:   "table not persisted",
		}
	}
	want := make([]string, len(t.IndexColumns))
	for i, col := range t.IndexColumns {
		v, ok := a.Where[col]
		if !ok {
			return &AssertionError{
				Type:     AssertResultValue,
				Key:      k.Key.String(),
				Expected: fmt.Sprintf("where naming every index column of %s %v", a.Table, t.IndexColumns),
				Actual:   fmt.Sprintf("where %s", formatWhere(a.Where)),
			}
		}
		want[i] = v
	}
	for _, r := range t.Rows {
		if strings.Join(r.Index, "\x1f") != strings.Join(want, "\x1f") {
			continue
		}
		got, ok := r.Values[a.Column]
		if !ok || !near(got, *a.Value, tol) {
			actual := "no value"
			if ok {
				actual = fmt.Sprintf("%g", got)
			}
			return &AssertionError{
				Type:     AssertResultValue,
				Key:      k.Key.String(),
				Expected: fmt.Sprintf("%s.%s = %g where %s", a.Table, a.Column, *a.Value, formatWhere(a.Where)),
				Actual:   actual,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertResultValue,
		Key:      k.Key.String(),
		Expected: fmt.Sprintf("row in %s where %s", a.Table, formatWhere(a.Where)),
		Actual:   "row not found",
	}
}

func assertRowCount(k KeyOutcome, a Assertion) error {
	n := 0
	if t, ok := k.Table(a.Table); ok {
		n = len(t.Rows)
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Key:      k.Key.String(),
			Expected: fmt.Sprintf("%d rows in %s", *a.Count, a.Table),
			Actual:   fmt.Sprintf("%d rows", n),
		}
	}
	return nil
}

func assertValidationIssue(k KeyOutcome, a Assertion) error {
	for _, is := range k.Issues {
		if is.Module == a.Module && (a.Severity == "" || string(is.Severity) == a.Severity) {
			return nil
		}
	}
	found := make([]string, len(k.Issues))
	for i, is := range k.Issues {
		found[i] = is.String()
	}
	return &AssertionError{
		Type:     AssertValidationIssue,
		Key:      k.Key.String(),
		Expected: fmt.Sprintf("%s issue from %s", orAny(a.Severity), a.Module),
		Actual:   fmt.Sprintf("issues %v", found),
	}
}

func assertRunError(result *Result, a Assertion) error {
	if result.RunErrorCode != a.Code {
		actual := "run completed"
		if result.RunError != "" {
			actual = fmt.Sprintf("%s (%s)", orAny(result.RunErrorCode), result.RunError)
		}
		return &AssertionError{
			Type:     AssertRunError,
			Expected: fmt.Sprintf("run aborted with %s", a.Code),
			Actual:   actual,
		}
	}
	return nil
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Abs(b))
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}

// formatWhere renders a where map with sorted keys for deterministic
// messages.
func formatWhere(where map[string]string) string {
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, where[k])
	}
	return strings.Join(parts, ", ")
}
