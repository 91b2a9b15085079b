package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/souissim/gridpath/internal/definition"
	"github.com/souissim/gridpath/internal/modules"
	"github.com/souissim/gridpath/internal/store"
)

// loadScenarios loads the definitions in dir and returns the named
// scenarios, or all of them when names is empty. Definitions that fail to
// compile or validate are a command error.
func (o *RootOptions) loadScenarios(f *OutputFormatter, dir string, names []string) ([]definition.Scenario, error) {
	res, errs := definition.Load(dir, definition.LoadModeFailFast)
	if len(errs) > 0 {
		code := definition.ErrCodeGeneric
		var le *definition.LoadError
		if errors.As(errs[0], &le) {
			code = le.Code
		}
		_ = f.Error(code, errs[0].Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load definitions", errs[0])
	}
	f.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, dir)

	selected := res.Scenarios
	if len(names) > 0 {
		selected = make([]definition.Scenario, 0, len(names))
		for _, name := range names {
			s, ok := res.Scenario(name)
			if !ok {
				msg := fmt.Sprintf("scenario %q not defined in %s", name, dir)
				_ = f.Error(definition.ErrCodeNotFound, msg, nil)
				return nil, NewExitError(ExitCommandError, msg)
			}
			selected = append(selected, *s)
		}
	}

	if verrs := definition.ValidateAll(selected, o.registry(), modules.Default()); len(verrs) > 0 {
		_ = f.Error(verrs[0].Code, "invalid scenario definition", verrs)
		msgs := make([]string, len(verrs))
		for i, e := range verrs {
			msgs[i] = e.Error()
		}
		return nil, NewExitError(ExitCommandError, strings.Join(msgs, "; "))
	}
	return selected, nil
}

// moduleNames returns the module set a scenario composes.
func moduleNames(s *definition.Scenario) []string {
	if len(s.Modules) > 0 {
		return s.Modules
	}
	return modules.Default()
}

// openStore opens the configured database.
func openStore(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no database: set --db, GRIDPATH_DATABASE, or database in the config file")
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
