package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/souissim/gridpath/internal/tabfile"
)

// goldenDecimals is the rounding applied to values in snapshots, so solver
// noise below it never changes a golden file.
const goldenDecimals = 6

// Render renders a result as a text snapshot: one block per key with its
// status, objective, and every persisted result table in the staging format.
func Render(r *Result) []byte {
	var buf bytes.Buffer
	if r.RunError != "" {
		fmt.Fprintf(&buf, "run_error %s\n", orAny(r.RunErrorCode))
	}
	for _, k := range r.Keys {
		fmt.Fprintf(&buf, "key %s status %s", k.Key, k.Status)
		if k.SolverStatus != "" {
			fmt.Fprintf(&buf, " solver %s", k.SolverStatus)
		}
		if k.Objective != nil {
			fmt.Fprintf(&buf, " objective %s", formatValue(*k.Objective))
		}
		buf.WriteByte('\n')
		for _, is := range k.Issues {
			fmt.Fprintf(&buf, "issue %s\n", is)
		}
		for _, t := range k.Tables {
			fmt.Fprintf(&buf, "table %s\n", t.Name)
			buf.WriteString(strings.Join(append(append([]string(nil), t.IndexColumns...), t.Columns...), "\t"))
			buf.WriteByte('\n')
			for _, row := range t.Rows {
				cells := append([]string(nil), row.Index...)
				for _, c := range t.Columns {
					if v, ok := row.Values[c]; ok {
						cells = append(cells, formatValue(v))
					} else {
						cells = append(cells, tabfile.Null)
					}
				}
				buf.WriteString(strings.Join(cells, "\t"))
				buf.WriteByte('\n')
			}
		}
	}
	return buf.Bytes()
}

func formatValue(v float64) string {
	scale := math.Pow(10, goldenDecimals)
	v = math.Round(v*scale) / scale
	if v == 0 {
		// Normalizes -0.
		v = 0
	}
	return tabfile.FormatFloat(v)
}

// RunWithGolden executes a case and compares its rendering against a golden
// file. The golden file is stored in testdata/golden/{case.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check assertions too.
func RunWithGolden(t *testing.T, c *Case) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), c)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, c.Name, result)
	return result, nil
}

// AssertGolden compares a result's rendering against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Render(result))
}

// goldenDir compares suite results against <dir>/<case>.golden.
type goldenDir struct {
	dir    string
	update bool
}

// WithGolden makes RunSuite compare each case against <dir>/<case>.golden.
// A case without a golden file is checked by its assertions only. With
// update set, golden files are rewritten instead of compared.
func WithGolden(dir string, update bool) Option {
	return func(h *Harness) { h.golden = &goldenDir{dir: dir, update: update} }
}

func (g *goldenDir) check(name string, r *Result) error {
	path := filepath.Join(g.dir, name+".golden")
	got := Render(r)
	if g.update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}
	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(want, got) {
		return fmt.Errorf("result does not match golden file %s (run with --update to regenerate)", path)
	}
	return nil
}
