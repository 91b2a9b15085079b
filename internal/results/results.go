// Package results merges module exports into shared per-grain result tables.
//
// Each module exports Rows for a grain (e.g. one row per project-period).
// Rows for the same grain are merged into one Table keyed by the index
// columns. Every value column is owned by exactly one module; a module
// exporting a column another module already owns is a conflict, so modules
// never overwrite each other's results.
package results

import (
	"fmt"
	"sort"
	"strings"

	"github.com/souissim/gridpath/internal/canon"
	"github.com/souissim/gridpath/internal/tabfile"
)

// Row is one exported row. Values omits columns with no value.
type Row struct {
	Index  []string
	Values map[string]float64
}

// Rows is a module's export for one grain table.
type Rows struct {
	Table        string
	IndexColumns []string
	Columns      []string
	Data         []Row
}

// Add appends a row.
func (r *Rows) Add(index []string, values map[string]float64) {
	r.Data = append(r.Data, Row{Index: index, Values: values})
}

// ColumnConflictError is returned when two modules export the same column
// of a table.
type ColumnConflictError struct {
	Table         string
	Column        string
	Module        string
	ExistingOwner string
}

func (e *ColumnConflictError) Error() string {
	return fmt.Sprintf("results %s: column %s exported by %s already owned by %s", e.Table, e.Column, e.Module, e.ExistingOwner)
}

// ShapeError is returned when rows do not match their table's index shape.
type ShapeError struct {
	Table   string
	Message string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("results %s: %s", e.Table, e.Message)
}

// Table is a merged result table.
type Table struct {
	Name         string
	IndexColumns []string
	Columns      []string
	owners       map[string]string
	rows         map[string]*Row
}

// Owner returns the module that owns a column.
func (t *Table) Owner(column string) string {
	return t.owners[column]
}

// Rows returns the rows sorted by index.
func (t *Table) Rows() []Row {
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		vals := make(map[string]float64, len(r.Values))
		for k, v := range r.Values {
			vals[k] = v
		}
		out = append(out, Row{Index: append([]string(nil), r.Index...), Values: vals})
	}
	sort.Slice(out, func(i, j int) bool { return lessIndex(out[i].Index, out[j].Index) })
	return out
}

// Value returns the value of a column at an index.
func (t *Table) Value(column string, index ...string) (float64, bool) {
	r, ok := t.rows[strings.Join(index, "\x1f")]
	if !ok {
		return 0, false
	}
	v, ok := r.Values[column]
	return v, ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Tab renders the table in the staging format, index columns first.
func (t *Table) Tab() *tabfile.Table {
	out := tabfile.New(t.Name, append(append([]string(nil), t.IndexColumns...), t.Columns...)...)
	for _, r := range t.Rows() {
		vals := append([]string(nil), r.Index...)
		for _, c := range t.Columns {
			if v, ok := r.Values[c]; ok {
				vals = append(vals, tabfile.FormatFloat(v))
			} else {
				vals = append(vals, tabfile.Null)
			}
		}
		// Row width always matches the header.
		_ = out.Append(vals...)
	}
	return out
}

// Fingerprint returns a content hash of the table's columns and rows.
func (t *Table) Fingerprint() (string, error) {
	rows := make([]any, 0, len(t.rows))
	for _, r := range t.Rows() {
		vals := make(map[string]any, len(r.Values))
		for k, v := range r.Values {
			vals[k] = v
		}
		rows = append(rows, map[string]any{"index": r.Index, "values": vals})
	}
	return canon.Hash(canon.DomainResultTable, map[string]any{
		"table":   t.Name,
		"index":   t.IndexColumns,
		"columns": t.Columns,
		"rows":    rows,
	})
}

// Pipeline collects the merged tables of one scenario instance.
type Pipeline struct {
	tables map[string]*Table
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{tables: make(map[string]*Table)}
}

// Merge adds a module's rows to the shared table for their grain.
//
// The first merge for a table fixes its index columns. Columns are claimed
// by the exporting module before any value is written, so a conflicting
// export leaves the table unchanged. Each index appears at most once in rs.
func (p *Pipeline) Merge(module string, rs Rows) error {
	if rs.Table == "" {
		return &ShapeError{Table: "?", Message: fmt.Sprintf("%s exported rows without a table name", module)}
	}
	t, ok := p.tables[rs.Table]
	if !ok {
		t = &Table{
			Name:         rs.Table,
			IndexColumns: append([]string(nil), rs.IndexColumns...),
			owners:       make(map[string]string),
			rows:         make(map[string]*Row),
		}
	} else if strings.Join(t.IndexColumns, ",") != strings.Join(rs.IndexColumns, ",") {
		return &ShapeError{
			Table:   rs.Table,
			Message: fmt.Sprintf("%s indexed by (%s), table indexed by (%s)", module, strings.Join(rs.IndexColumns, ","), strings.Join(t.IndexColumns, ",")),
		}
	}

	declared := make(map[string]bool, len(rs.Columns))
	for _, c := range rs.Columns {
		if owner, taken := t.owners[c]; taken {
			return &ColumnConflictError{Table: rs.Table, Column: c, Module: module, ExistingOwner: owner}
		}
		for _, ix := range t.IndexColumns {
			if ix == c {
				return &ShapeError{Table: rs.Table, Message: fmt.Sprintf("%s exports index column %s as a value", module, c)}
			}
		}
		declared[c] = true
	}
	seen := make(map[string]bool, len(rs.Data))
	for _, r := range rs.Data {
		if len(r.Index) != len(t.IndexColumns) {
			return &ShapeError{Table: rs.Table, Message: fmt.Sprintf("%s row %v has %d index values, want %d", module, r.Index, len(r.Index), len(t.IndexColumns))}
		}
		k := strings.Join(r.Index, "\x1f")
		if seen[k] {
			return &ShapeError{Table: rs.Table, Message: fmt.Sprintf("%s exports row %v twice", module, r.Index)}
		}
		seen[k] = true
		for c := range r.Values {
			if !declared[c] {
				return &ShapeError{Table: rs.Table, Message: fmt.Sprintf("%s row %v sets undeclared column %s", module, r.Index, c)}
			}
		}
	}

	for _, c := range rs.Columns {
		t.owners[c] = module
		t.Columns = append(t.Columns, c)
	}
	for _, r := range rs.Data {
		k := strings.Join(r.Index, "\x1f")
		row, ok := t.rows[k]
		if !ok {
			row = &Row{Index: append([]string(nil), r.Index...), Values: make(map[string]float64)}
			t.rows[k] = row
		}
		for c, v := range r.Values {
			row.Values[c] = v
		}
	}
	p.tables[rs.Table] = t
	return nil
}

// Table returns a merged table by name.
func (p *Pipeline) Table(name string) (*Table, bool) {
	t, ok := p.tables[name]
	return t, ok
}

// Tables returns every table sorted by name.
func (p *Pipeline) Tables() []*Table {
	out := make([]*Table, 0, len(p.tables))
	for _, t := range p.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func lessIndex(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
