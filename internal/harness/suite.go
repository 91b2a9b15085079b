package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// CasesNotFoundError is returned when a suite directory holds no cases.
type CasesNotFoundError struct {
	Dir string
}

// Error implements the error interface.
func (e *CasesNotFoundError) Error() string {
	return fmt.Sprintf("no case files (*.yaml) found in %s", e.Dir)
}

// FindCases returns the case files in dir, sorted by name.
func FindCases(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, m...)
	}
	if len(paths) == 0 {
		return nil, &CasesNotFoundError{Dir: dir}
	}
	sort.Strings(paths)
	return paths, nil
}

// SuiteResult summarizes a suite run.
type SuiteResult struct {
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Case   string   `json:"case"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// Failures returns the failed cases.
func (r *SuiteResult) Failures() []CaseResult {
	var out []CaseResult
	for _, c := range r.Cases {
		if !c.Pass {
			out = append(out, c)
		}
	}
	return out
}

func (r *SuiteResult) add(c CaseResult) {
	r.Total++
	if c.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
	r.Cases = append(r.Cases, c)
}

// RunSuite loads and runs every case in paths. A case that fails to load
// or run counts as failed; the suite continues with the next case. With a
// golden directory configured, each result is also compared against (or,
// when updating, written to) its golden file.
func (h *Harness) RunSuite(ctx context.Context, paths []string) (*SuiteResult, error) {
	result := &SuiteResult{Cases: []CaseResult{}}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		c, err := LoadCase(path)
		if err != nil {
			result.add(CaseResult{
				Case:   filepath.Base(path),
				Path:   path,
				Errors: []string{fmt.Sprintf("failed to load case: %v", err)},
			})
			continue
		}

		run, err := h.Run(ctx, c)
		if err != nil {
			result.add(CaseResult{
				Case:   c.Name,
				Path:   path,
				Errors: []string{fmt.Sprintf("case execution failed: %v", err)},
			})
			continue
		}

		errs := run.Errors
		if h.golden != nil {
			if err := h.golden.check(c.Name, run); err != nil {
				errs = append(errs, err.Error())
			}
		}
		result.add(CaseResult{Case: c.Name, Path: path, Pass: len(errs) == 0, Errors: errs})
	}
	return result, nil
}
