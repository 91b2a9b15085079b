// Package tabfile reads and writes the tab-delimited staging format used for
// scenario inputs and results.
//
// A file has one header row naming the columns followed by data rows. A
// missing value is written as the null sentinel ".".
package tabfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Null is the sentinel for a missing value.
const Null = "."

// Ext is the staging file extension.
const Ext = ".tab"

// Table is an in-memory tab-delimited table.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given columns.
func New(name string, columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols, Rows: [][]string{}}
}

// FileName returns the staging file name of the table.
func (t *Table) FileName() string {
	return t.Name + Ext
}

// Append adds a row. The row must have one value per column.
func (t *Table) Append(values ...string) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("table %s: row has %d values, want %d", t.Name, len(values), len(t.Columns))
	}
	row := make([]string, len(values))
	for i, v := range values {
		if v == "" {
			v = Null
		}
		row[i] = v
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Column returns the position of a column.
func (t *Table) Column(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Missing returns the required columns absent from the header.
func (t *Table) Missing(required ...string) []string {
	var out []string
	for _, c := range required {
		if _, ok := t.Column(c); !ok {
			out = append(out, c)
		}
	}
	return out
}

// Records returns a Record view of every row.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = Record{t: t, row: row, line: i + 2}
	}
	return out
}

// Record is one data row with column access by name.
type Record struct {
	t    *Table
	row  []string
	line int
}

// Line returns the 1-based file line of the record.
func (r Record) Line() int { return r.line }

// String returns the raw value of a column and false if the column is
// absent or null.
func (r Record) String(col string) (string, bool) {
	i, ok := r.t.Column(col)
	if !ok || i >= len(r.row) || r.row[i] == Null {
		return "", false
	}
	return r.row[i], true
}

// Float parses a numeric column. A null or absent column returns ok=false.
func (r Record) Float(col string) (v float64, ok bool, err error) {
	s, ok := r.String(col)
	if !ok {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, true, fmt.Errorf("%s line %d column %s: %q is not a number", r.t.Name, r.line, col, s)
	}
	return v, true, nil
}

// Read parses a table from r.
func Read(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = 0
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("table %s: missing header row", name)
	}
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}

	t := New(name, header...)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		if err := t.Append(rec...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ReadFile reads a table from a .tab file. The table name is the file's base
// name without extension.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, strings.TrimSuffix(filepath.Base(path), Ext))
}

// Write serializes a table to w.
func Write(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write %s header: %w", t.Name, err)
	}
	for _, row := range t.Rows {
		out := make([]string, len(row))
		for i, v := range row {
			if v == "" {
				v = Null
			}
			out[i] = v
		}
		if err := cw.Write(out); err != nil {
			return fmt.Errorf("write %s: %w", t.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes a table to path, creating parent directories.
func WriteFile(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FormatFloat renders a number the way the staging format stores it.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
