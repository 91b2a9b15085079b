package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/souissim/gridpath/internal/compose"
	"github.com/souissim/gridpath/internal/scenario"
)

// TransferOptions holds flags for the stage and import commands.
type TransferOptions struct {
	*RootOptions
	Scenario string
	Out      string
}

// TransferReport is the output of the stage and import commands.
type TransferReport struct {
	Scenario string                `json:"scenario"`
	ID       int64                 `json:"id"`
	Target   string                `json:"target"`
	Keys     []compose.Transferred `json:"keys"`
}

// String renders the report for text output.
func (r TransferReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s (id %d) → %s", r.Scenario, r.ID, r.Target)
	for _, k := range r.Keys {
		fmt.Fprintf(&b, "\n  %s: %s", k.Key, strings.Join(k.Tables, ", "))
	}
	return b.String()
}

// NewStageCommand creates the stage command.
func NewStageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransferOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stage <definitions-dir>",
		Short: "Write a scenario's inputs from the database as .tab files",
		Long: `Write a scenario's inputs from the database as staged .tab files.

Every module writes the tables it reads, in its own column order, under
<out>/<key path>/inputs/. The output directory defaults to the scenario's
inputs directory.

Example:
  gridpath stage --db ./gridpath.db --scenario base ./scenarios
  gridpath stage --db ./gridpath.db --scenario base --out /tmp/base ./scenarios`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(opts, args[0], cmd, true)
		},
	}

	cmd.Flags().String("db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario to stage (required)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output directory (default: the scenario's inputs)")
	_ = cmd.MarkFlagRequired("scenario")

	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransferOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <definitions-dir>",
		Short: "Load a scenario's staged .tab inputs into the database",
		Long: `Load a scenario's staged .tab inputs into the database.

Every module reads its tables from the scenario's inputs directory and
stores them under the scenario id, replacing earlier imports. Use
"gridpath run --from-db" to solve from the imported tables.

Example:
  gridpath import --db ./gridpath.db --scenario base ./scenarios`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(opts, args[0], cmd, false)
		},
	}

	cmd.Flags().String("db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario to import (required)")
	_ = cmd.MarkFlagRequired("scenario")

	return cmd
}

// runTransfer stages from the database when toFiles is set, and imports
// into it otherwise.
func runTransfer(opts *TransferOptions, defsDir string, cmd *cobra.Command, toFiles bool) error {
	formatter := opts.formatter(cmd)
	v, err := opts.bindFlags(cmd, map[string]string{KeyDatabase: "db"})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}

	scenarios, err := opts.loadScenarios(formatter, defsDir, []string{opts.Scenario})
	if err != nil {
		return err
	}
	s := &scenarios[0]

	st, err := openStore(v.GetString(KeyDatabase))
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		src    scenario.InputSource
		sink   scenario.InputSink
		target string
	)
	if toFiles {
		target = s.Inputs
		if opts.Out != "" {
			target = opts.Out
		}
		src, sink = st.Inputs(s.ID), scenario.NewStage(target)
	} else {
		target = v.GetString(KeyDatabase)
		src, sink = scenario.NewStage(s.Inputs), st.Inputs(s.ID)
	}

	keys, err := compose.Transfer(ctx, opts.registry(), moduleNames(s), s.Structure.Keys(), src, sink)
	if err != nil {
		_ = formatter.Error(errCodeTransfer, err.Error(), nil)
		return WrapExitError(ExitFailure, "transfer failed", err)
	}
	return formatter.Success(TransferReport{Scenario: s.Name, ID: s.ID, Target: target, Keys: keys})
}

// errCodeTransfer reports a failed stage or import.
const errCodeTransfer = "E010"
