package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/souissim/gridpath/internal/compose"
	"github.com/souissim/gridpath/internal/definition"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/modules"
	"github.com/souissim/gridpath/internal/scenario"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Inputs bool
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                         `json:"valid"`
	Errors []definition.ValidationError `json:"errors,omitempty"`
	Issues []InputIssue                 `json:"issues,omitempty"`
}

// InputIssue is a module validation issue found in a scenario's inputs.
type InputIssue struct {
	Scenario string `json:"scenario"`
	Key      string `json:"key"`
	module.ValidationIssue
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <definitions-dir>",
		Short: "Validate scenario definitions without solving",
		Long: `Validate CUE scenario definitions without solving.

Checks the definitions against the scenario schema, the module registry,
and the solver backends. With --inputs, also runs every module's input
validation on each scenario key's staged inputs. High severity issues fail
validation; Low severity issues are reported only.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Inputs, "inputs", false, "also validate staged inputs")

	return cmd
}

func runValidate(opts *ValidateOptions, defsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := definition.Load(defsDir, definition.LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *definition.LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, definition.ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, defsDir)

	var errs []definition.ValidationError
	for _, err := range loadErrors {
		ve := definition.ValidationError{Field: "load", Message: err.Error(), Code: definition.ErrCodeGeneric}
		var loadErr *definition.LoadError
		if errors.As(err, &loadErr) {
			ve.Code = loadErr.Code
			ve.Message = loadErr.Message
		}
		errs = append(errs, ve)
	}
	errs = append(errs, definition.ValidateAll(loadResult.Scenarios, opts.registry(), modules.Default())...)

	var issues []InputIssue
	if opts.Inputs {
		bad := make(map[string]bool)
		for _, e := range errs {
			bad[e.Scenario] = true
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		for i := range loadResult.Scenarios {
			s := &loadResult.Scenarios[i]
			if bad[s.Name] {
				continue
			}
			formatter.VerboseLog("Validating inputs of scenario: %s", s.Name)
			found, err := validateInputs(ctx, opts.RootOptions, s)
			if err != nil {
				return outputValidateError(formatter, definition.ErrComposition, err.Error(), nil)
			}
			issues = append(issues, found...)
		}
	}

	high := 0
	for _, is := range issues {
		if is.Severity == module.SeverityHigh {
			high++
		}
	}
	if len(errs) > 0 || high > 0 {
		return outputValidationErrors(formatter, ValidationResult{Errors: errs, Issues: issues})
	}
	return outputValidateSuccess(formatter, ValidationResult{Valid: true, Issues: issues})
}

// validateInputs runs module validation for every key of a scenario.
func validateInputs(ctx context.Context, opts *RootOptions, s *definition.Scenario) ([]InputIssue, error) {
	comp, err := compose.New(opts.registry(), moduleNames(s), scenario.NewStage(s.Inputs), nil, nil, compose.Config{
		ScenarioID: s.ID,
		Logger:     opts.logger(io.Discard),
	})
	if err != nil {
		return nil, err
	}
	keys := s.Structure.Keys()
	byKey, err := comp.Validate(ctx, keys)
	if err != nil {
		return nil, err
	}
	var out []InputIssue
	for _, key := range keys {
		for _, is := range byKey[key] {
			out = append(out, InputIssue{Scenario: s.Name, Key: key.String(), ValidationIssue: is})
		}
	}
	return out, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ All scenarios valid")
	for _, is := range result.Issues {
		fmt.Fprintf(formatter.Writer, "  %s %s %s\n", is.Scenario, is.Key, is.ValidationIssue)
	}
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs definition errors and input issues.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	n := len(result.Errors)
	for _, is := range result.Issues {
		if is.Severity == module.SeverityHigh {
			n++
		}
	}

	if formatter.Format == "json" {
		code, message := definition.ErrCodeGeneric, "input validation failed"
		if len(result.Errors) > 0 {
			code, message = result.Errors[0].Code, result.Errors[0].Message
		}
		if err := formatter.Failure(code, message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", n))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range result.Errors {
		if err.Scenario != "" {
			fmt.Fprintf(formatter.Writer, "scenario %s\n", err.Scenario)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	for _, is := range result.Issues {
		fmt.Fprintf(formatter.Writer, "  %s %s %s\n", is.Scenario, is.Key, is.ValidationIssue)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", n))
}
