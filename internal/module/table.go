package module

import (
	"context"
	"fmt"
	"strings"

	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/tabfile"
)

// Column describes one input column.
type Column struct {
	Name string
	// Required columns may not be null.
	Required bool
	// Numeric columns must parse as numbers when present.
	Numeric bool
	// NonNegative numeric columns must be >= 0.
	NonNegative bool
}

// TableSpec describes an input table a module consumes. Column order is the
// order the staging file is written in.
type TableSpec struct {
	Name    string
	Columns []Column
	// Key columns must be unique together.
	Key []string
	// Optional tables may be absent; their defaults then apply.
	Optional bool
}

// ColumnNames returns the column names in staging order.
func (s TableSpec) ColumnNames() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

func (s TableSpec) requiredColumns() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Required {
			out = append(out, c.Name)
		}
	}
	return out
}

// Base implements Module, Validator, InputReader, and InputWriter from a
// module's table specs. Plugin modules embed it and add the phases they need.
type Base struct {
	ModuleName string
	Deps       []string
	Tables     []TableSpec
}

// Name implements Module.
func (b Base) Name() string { return b.ModuleName }

// Dependencies implements Module.
func (b Base) Dependencies() []string {
	out := make([]string, len(b.Deps))
	copy(out, b.Deps)
	return out
}

// Spec returns the spec of a named table.
func (b Base) Spec(name string) (TableSpec, bool) {
	for _, s := range b.Tables {
		if s.Name == name {
			return s, true
		}
	}
	return TableSpec{}, false
}

// Table reads one of the module's tables and checks its required columns.
// An absent optional table returns (nil, nil).
func (b Base) Table(ctx context.Context, key scenario.Key, src scenario.InputSource, name string) (*tabfile.Table, error) {
	spec, ok := b.Spec(name)
	if !ok {
		return nil, fmt.Errorf("%s: no table spec %q", b.ModuleName, name)
	}
	t, err := src.Table(ctx, key, name)
	if err != nil {
		if spec.Optional && scenario.IsMissingInput(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", b.ModuleName, err)
	}
	if missing := t.Missing(spec.requiredColumns()...); len(missing) > 0 {
		return nil, &scenario.MissingInputError{
			Key:    key,
			Table:  name,
			Detail: "missing columns " + strings.Join(missing, ", "),
		}
	}
	return t, nil
}

// Validate implements Validator. It checks table presence, required
// columns, null and numeric values, and key uniqueness.
func (b Base) Validate(ctx context.Context, key scenario.Key, src scenario.InputSource) []ValidationIssue {
	issues := []ValidationIssue{}
	for _, spec := range b.Tables {
		issues = append(issues, b.validateTable(ctx, key, src, spec)...)
	}
	return issues
}

func (b Base) validateTable(ctx context.Context, key scenario.Key, src scenario.InputSource, spec TableSpec) []ValidationIssue {
	issue := func(sev Severity, col, msg string) ValidationIssue {
		return ValidationIssue{Module: b.ModuleName, Table: spec.Name, Column: col, Severity: sev, Message: msg}
	}

	t, err := src.Table(ctx, key, spec.Name)
	if err != nil {
		if scenario.IsMissingInput(err) {
			if spec.Optional {
				return nil
			}
			return []ValidationIssue{issue(SeverityHigh, "", "required table is missing")}
		}
		return []ValidationIssue{issue(SeverityHigh, "", err.Error())}
	}

	var out []ValidationIssue
	for _, col := range t.Missing(spec.requiredColumns()...) {
		out = append(out, issue(SeverityHigh, col, "required column is missing"))
	}
	if len(out) > 0 {
		return out
	}
	if len(t.Rows) == 0 && !spec.Optional {
		out = append(out, issue(SeverityLow, "", "table has no rows"))
	}

	seen := make(map[string]int)
	for _, rec := range t.Records() {
		for _, c := range spec.Columns {
			raw, present := rec.String(c.Name)
			if !present {
				if c.Required {
					out = append(out, issue(SeverityHigh, c.Name, fmt.Sprintf("line %d: value is null", rec.Line())))
				}
				continue
			}
			if !c.Numeric {
				continue
			}
			v, _, err := rec.Float(c.Name)
			if err != nil {
				out = append(out, issue(SeverityHigh, c.Name, err.Error()))
				continue
			}
			if c.NonNegative && v < 0 {
				out = append(out, issue(SeverityHigh, c.Name, fmt.Sprintf("line %d: %s is negative", rec.Line(), raw)))
			}
		}
		if len(spec.Key) > 0 {
			parts := make([]string, len(spec.Key))
			for i, k := range spec.Key {
				parts[i], _ = rec.String(k)
			}
			k := strings.Join(parts, ",")
			if first, dup := seen[k]; dup {
				out = append(out, issue(SeverityHigh, strings.Join(spec.Key, ","),
					fmt.Sprintf("line %d: duplicate key (%s), first on line %d", rec.Line(), k, first)))
			} else {
				seen[k] = rec.Line()
			}
		}
	}
	return out
}

// ReadInputs implements InputReader. Absent optional tables are omitted.
func (b Base) ReadInputs(ctx context.Context, key scenario.Key, src scenario.InputSource) (map[string]*tabfile.Table, error) {
	out := make(map[string]*tabfile.Table, len(b.Tables))
	for _, spec := range b.Tables {
		t, err := b.Table(ctx, key, src, spec.Name)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out[spec.Name] = t
		}
	}
	return out, nil
}

// WriteInputs implements InputWriter. Each table is written with the spec's
// column order; spec columns absent from the table are written as null and
// extra columns are dropped. Tables the module does not own are ignored.
func (b Base) WriteInputs(ctx context.Context, key scenario.Key, tables map[string]*tabfile.Table, sink scenario.InputSink) error {
	for _, spec := range b.Tables {
		t, ok := tables[spec.Name]
		if !ok {
			if spec.Optional {
				continue
			}
			return &scenario.MissingInputError{Key: key, Table: spec.Name, Detail: "nothing to write"}
		}
		out, err := project(t, spec)
		if err != nil {
			return fmt.Errorf("%s: %w", b.ModuleName, err)
		}
		if err := sink.WriteTable(ctx, key, out); err != nil {
			return fmt.Errorf("%s: write %s: %w", b.ModuleName, spec.Name, err)
		}
	}
	return nil
}

// project reorders a table's columns to the spec order.
func project(t *tabfile.Table, spec TableSpec) (*tabfile.Table, error) {
	cols := spec.ColumnNames()
	pos := make([]int, len(cols))
	for i, c := range cols {
		j, ok := t.Column(c)
		if !ok {
			j = -1
		}
		pos[i] = j
	}
	out := tabfile.New(spec.Name, cols...)
	for _, row := range t.Rows {
		vals := make([]string, len(cols))
		for i, j := range pos {
			if j < 0 || j >= len(row) {
				vals[i] = tabfile.Null
				continue
			}
			vals[i] = row[j]
		}
		if err := out.Append(vals...); err != nil {
			return nil, err
		}
	}
	return out, nil
}
