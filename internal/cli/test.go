package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/souissim/gridpath/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // case filter (glob pattern)
	Golden string // golden directory
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <cases-dir>",
		Short: "Run conformance cases",
		Long: `Run conformance cases using the harness framework.

Each case solves a staged scenario in a fresh in-memory database and checks
its assertions against the persisted outcome. When a golden file
<golden-dir>/<case>.golden exists, the rendered results must also match it.
The golden directory defaults to the "golden" directory next to the cases
directory.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed
  2 - Command error (invalid paths, etc.)

Examples:
  gridpath test ./testdata/cases
  gridpath test ./testdata/cases --filter "carbon_*"
  gridpath test ./testdata/cases --update
  gridpath test ./testdata/cases --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter cases by glob pattern")
	cmd.Flags().StringVar(&opts.Golden, "golden-dir", "", "golden file directory")

	return cmd
}

func runTests(opts *TestOptions, casesDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(casesDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("cases directory not found: %s", casesDir))
	}

	paths, err := harness.FindCases(casesDir)
	var notFound *harness.CasesNotFoundError
	switch {
	case errors.As(err, &notFound):
		paths = nil
	case err != nil:
		return WrapExitError(ExitCommandError, "failed to find cases", err)
	}
	paths, err = filterCases(paths, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	if len(paths) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(opts.formatter(cmd), &harness.SuiteResult{Cases: []harness.CaseResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No cases found.")
		return nil
	}

	golden := opts.Golden
	if golden == "" {
		golden = filepath.Join(filepath.Dir(filepath.Clean(casesDir)), "golden")
	}
	h := harness.New(
		harness.WithRegistry(opts.registry()),
		harness.WithLogger(opts.logger(cmd.ErrOrStderr())),
		harness.WithGolden(golden, opts.Update),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := h.RunSuite(ctx, paths)
	if err != nil {
		return WrapExitError(ExitFailure, "test run interrupted", err)
	}

	if opts.Format == "json" {
		return outputTestJSON(opts.formatter(cmd), result)
	}
	return outputTestText(cmd, result, opts.Update)
}

// filterCases keeps the case files whose base name, without extension,
// matches the glob pattern.
func filterCases(paths []string, filter string) ([]string, error) {
	if filter == "" {
		return paths, nil
	}
	var out []string
	for _, p := range paths {
		base := filepath.Base(p)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		matched, err := filepath.Match(filter, name)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out = append(out, p)
		}
	}
	return out, nil
}

// errCodeTestFailed reports failed conformance cases.
const errCodeTestFailed = "E_TEST_FAILED"

// outputTestJSON outputs the suite result as JSON.
func outputTestJSON(f *OutputFormatter, result *harness.SuiteResult) error {
	if result.Failed == 0 {
		return f.Success(result)
	}
	msg := fmt.Sprintf("%d case(s) failed", result.Failed)
	if err := f.Failure(errCodeTestFailed, msg, result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

// outputTestText outputs the suite result as text.
func outputTestText(cmd *cobra.Command, result *harness.SuiteResult, updated bool) error {
	w := cmd.OutOrStdout()

	for _, c := range result.Cases {
		if c.Pass {
			if updated {
				fmt.Fprintf(w, "✓ %s (golden updated)\n", c.Case)
			} else {
				fmt.Fprintf(w, "✓ %s\n", c.Case)
			}
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", c.Case)
		for _, e := range c.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d case(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All cases passed")
	return nil
}
