package definition

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Load error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeSchema      = "E200" // Scenario does not match #Scenario
)

// LoadResult contains the scenarios loaded from a directory.
type LoadResult struct {
	Scenarios []Scenario
	Value     cue.Value // the raw CUE value
	FileCount int
}

// Scenario returns the loaded scenario with the given name.
func (r *LoadResult) Scenario(name string) (*Scenario, bool) {
	for i := range r.Scenarios {
		if r.Scenarios[i].Name == name {
			return &r.Scenarios[i], true
		}
	}
	return nil, false
}

// LoadError represents an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func loadErr(code, format string, args ...any) []error {
	return []error{&LoadError{Code: code, Message: fmt.Sprintf(format, args...)}}
}

// Load loads and compiles every scenario in dir. Relative inputs
// directories are resolved against dir. Scenarios are returned sorted by
// name.
func Load(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, loadErr(ErrCodeNotFound, "definition directory not found: %s", dir)
	case err != nil:
		return nil, loadErr(ErrCodeNotFound, "error accessing definition directory: %v", err)
	case !info.IsDir():
		return nil, loadErr(ErrCodeNotFound, "not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, loadErr(ErrCodeScanError, "error scanning directory: %v", err)
	}
	if len(files) == 0 {
		return nil, loadErr(ErrCodeNoFiles, "no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, loadErr(ErrCodeLoadFailed, "no CUE instances loaded")
	}
	if err := instances[0].Err; err != nil {
		return nil, loadErr(ErrCodeLoadFailed, "loading CUE files: %v", err)
	}
	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return nil, loadErr(ErrCodeBuildFailed, "building CUE value: %v", err)
	}

	result := &LoadResult{Value: value, FileCount: len(files)}
	scenarios := value.LookupPath(cue.ParsePath("scenario"))
	if !scenarios.Exists() {
		return result, loadErr(ErrCodeGeneric, "no scenario struct found")
	}
	iter, err := scenarios.Fields()
	if err != nil {
		return result, loadErr(ErrCodeGeneric, "iterating scenarios: %v", err)
	}

	var errs []error
	for iter.Next() {
		s, err := CompileScenario(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "scenario."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		if s.Inputs != "" && !filepath.IsAbs(s.Inputs) {
			s.Inputs = filepath.Join(dir, s.Inputs)
		}
		result.Scenarios = append(result.Scenarios, *s)
	}
	sort.Slice(result.Scenarios, func(i, j int) bool { return result.Scenarios[i].Name < result.Scenarios[j].Name })

	if len(result.Scenarios) == 0 && len(errs) == 0 {
		errs = loadErr(ErrCodeGeneric, "no scenarios found in definitions")
	}
	return result, errs
}

// FindCUEFiles returns the .cue files directly in dir, the files that form
// its package.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertCompileError converts a compile error to a LoadError with position
// info.
func convertCompileError(err error, context string) *LoadError {
	var ce *CompileError
	if errors.As(err, &ce) {
		return &LoadError{
			Code:    ErrCodeSchema,
			Message: fmt.Sprintf("%s: %s", context, ce.Message),
			Pos:     ce.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
