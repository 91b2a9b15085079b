package scenario

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/souissim/gridpath/internal/tabfile"
)

const (
	inputsDir  = "inputs"
	resultsDir = "results"
)

// InputSource supplies input tables for a scenario key.
type InputSource interface {
	Table(ctx context.Context, key Key, name string) (*tabfile.Table, error)
}

// InputSink receives input tables for a scenario key.
type InputSink interface {
	WriteTable(ctx context.Context, key Key, t *tabfile.Table) error
}

// MissingInputError is returned when a required input table or row is
// absent and no default applies.
type MissingInputError struct {
	Key    Key
	Table  string
	Path   string
	Detail string
}

func (e *MissingInputError) Error() string {
	msg := fmt.Sprintf("missing input %s for %s", e.Table, e.Key)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsMissingInput returns true if err is or wraps a MissingInputError.
func IsMissingInput(err error) bool {
	var me *MissingInputError
	return errors.As(err, &me)
}

// Stage is a directory tree of staged scenario files.
type Stage struct {
	Root string
}

// NewStage returns a Stage rooted at dir.
func NewStage(dir string) *Stage {
	return &Stage{Root: dir}
}

// InputPath returns the path of an input file for a key.
func (s *Stage) InputPath(key Key, file string) string {
	return filepath.Join(s.Root, key.Dir(), inputsDir, file)
}

// ResultsPath returns the path of a results file for a key.
func (s *Stage) ResultsPath(key Key, file string) string {
	return filepath.Join(s.Root, key.Dir(), resultsDir, file)
}

// Table reads <name>.tab for a key. An absent file is a MissingInputError.
func (s *Stage) Table(ctx context.Context, key Key, name string) (*tabfile.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.InputPath(key, name+tabfile.Ext)
	t, err := tabfile.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &MissingInputError{Key: key, Table: name, Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}
	return t, nil
}

// WriteTable writes <name>.tab for a key.
func (s *Stage) WriteTable(ctx context.Context, key Key, t *tabfile.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return tabfile.WriteFile(s.InputPath(key, t.FileName()), t)
}

// WriteResult writes a results table for a key.
func (s *Stage) WriteResult(ctx context.Context, key Key, t *tabfile.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return tabfile.WriteFile(s.ResultsPath(key, t.FileName()), t)
}

// Exists reports whether the key's inputs directory exists.
func (s *Stage) Exists(key Key) bool {
	info, err := os.Stat(filepath.Join(s.Root, key.Dir(), inputsDir))
	return err == nil && info.IsDir()
}
