package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/souissim/gridpath/internal/compose"
	"github.com/souissim/gridpath/internal/definition"
	"github.com/souissim/gridpath/internal/ledger"
	"github.com/souissim/gridpath/internal/module"
	"github.com/souissim/gridpath/internal/modules"
)

// ModulesOptions holds flags for the modules command.
type ModulesOptions struct {
	*RootOptions
	Plan bool
}

// ModuleInfo describes one registered module.
type ModuleInfo struct {
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies"`
	Capabilities []string `json:"capabilities"`
}

// ModulesReport is the output of the modules command.
type ModulesReport struct {
	Modules []ModuleInfo  `json:"modules"`
	Plan    *compose.Plan `json:"plan,omitempty"`
}

// String renders the report for text output.
func (r ModulesReport) String() string {
	var b strings.Builder
	for _, m := range r.Modules {
		fmt.Fprintf(&b, "%s\n", m.Name)
		if len(m.Dependencies) > 0 {
			fmt.Fprintf(&b, "  depends on: %s\n", strings.Join(m.Dependencies, ", "))
		}
		fmt.Fprintf(&b, "  capabilities: %s\n", strings.Join(m.Capabilities, ", "))
	}
	if r.Plan != nil {
		fmt.Fprintf(&b, "\nplan: %s\n", strings.Join(r.Plan.Modules, " → "))
		for _, e := range r.Plan.Entities {
			fmt.Fprintf(&b, "  %-10s %s(%s) [%s]\n", e.Kind, e.Name, strings.Join(e.Dims, ", "), e.Owner)
		}
		lists := make([]ledger.List, 0, len(r.Plan.Lists))
		for l := range r.Plan.Lists {
			lists = append(lists, l)
		}
		sort.Slice(lists, func(i, j int) bool { return lists[i] < lists[j] })
		for _, l := range lists {
			fmt.Fprintf(&b, "  list %s: %s\n", l, strings.Join(r.Plan.Lists[l], ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewModulesCommand creates the modules command.
func NewModulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ModulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "modules [module...]",
		Short: "List registered modules",
		Long: `List registered modules with their dependencies and capabilities.

With --plan, compose the given modules (default: the built-in set) and
print every entity they declare and every ledger list they register and
fill.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModules(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Plan, "plan", false, "print the composed declaration plan")

	return cmd
}

func runModules(opts *ModulesOptions, names []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	reg := opts.registry()

	report := ModulesReport{}
	for _, name := range reg.Names() {
		m, err := reg.New(name)
		if err != nil {
			return WrapExitError(ExitCommandError, "registry", err)
		}
		report.Modules = append(report.Modules, ModuleInfo{
			Name:         name,
			Dependencies: m.Dependencies(),
			Capabilities: module.Capabilities(m),
		})
	}

	if opts.Plan {
		if len(names) == 0 {
			names = modules.Default()
		}
		comp, err := compose.New(reg, names, nil, nil, nil, compose.Config{Logger: opts.logger(cmd.ErrOrStderr())})
		if err == nil {
			report.Plan, err = comp.Plan(cmd.Context())
		}
		if err != nil {
			_ = formatter.Error(definition.ErrComposition, err.Error(), nil)
			return WrapExitError(ExitFailure, "modules do not compose", err)
		}
	}
	return formatter.Success(report)
}
