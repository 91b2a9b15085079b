package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/souissim/gridpath/internal/canon"
	"github.com/souissim/gridpath/internal/scenario"
	"github.com/souissim/gridpath/internal/tabfile"
)

// PutInputTable stores a table for a scope, replacing any previous version.
func (s *Store) PutInputTable(ctx context.Context, scope Scope, t *tabfile.Table) error {
	columnsJSON, err := canon.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("put input %s: %w", t.Name, err)
	}
	rows := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r
	}
	hash, err := canon.Hash(canon.DomainInputTable, map[string]any{"columns": t.Columns, "rows": rows})
	if err != nil {
		return fmt.Errorf("put input %s: %w", t.Name, err)
	}

	return s.withTx(ctx, scope, func(tx *sql.Tx) error {
		args := append(scope.args(), t.Name)
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM input_tables WHERE `+scopeWhere+` AND table_name = ?`, args...); err != nil {
			return fmt.Errorf("put input %s: delete: %w", t.Name, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO input_tables (`+scopeColumns+`, table_name, columns, content_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, append(args, string(columnsJSON), hash)...); err != nil {
			return fmt.Errorf("put input %s: %w", t.Name, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO input_rows (`+scopeColumns+`, table_name, seq, row_values)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("put input %s: prepare: %w", t.Name, err)
		}
		defer stmt.Close()

		for i, row := range t.Rows {
			valuesJSON, err := canon.Marshal(row)
			if err != nil {
				return fmt.Errorf("put input %s row %d: %w", t.Name, i, err)
			}
			if _, err := stmt.ExecContext(ctx, append(args, i, string(valuesJSON))...); err != nil {
				return fmt.Errorf("put input %s row %d: %w", t.Name, i, err)
			}
		}
		return nil
	})
}

// InputTable reads a stored table. An absent table is a
// scenario.MissingInputError.
func (s *Store) InputTable(ctx context.Context, scope Scope, name string) (*tabfile.Table, error) {
	args := append(scope.args(), name)

	var columnsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT columns FROM input_tables WHERE `+scopeWhere+` AND table_name = ?`, args...,
	).Scan(&columnsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &scenario.MissingInputError{Key: scope.Key, Table: name, Detail: fmt.Sprintf("not in database for scenario %d", scope.ScenarioID)}
	}
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", name, err)
	}

	var columns []string
	if err := json.Unmarshal([]byte(columnsJSON), &columns); err != nil {
		return nil, fmt.Errorf("read input %s: columns: %w", name, err)
	}
	t := tabfile.New(name, columns...)

	rows, err := s.db.QueryContext(ctx,
		`SELECT row_values FROM input_rows WHERE `+scopeWhere+` AND table_name = ? ORDER BY seq ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var valuesJSON string
		if err := rows.Scan(&valuesJSON); err != nil {
			return nil, fmt.Errorf("read input %s: scan: %w", name, err)
		}
		var values []string
		if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
			return nil, fmt.Errorf("read input %s: row: %w", name, err)
		}
		if err := t.Append(values...); err != nil {
			return nil, fmt.Errorf("read input %s: %w", name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read input %s: iterate: %w", name, err)
	}
	return t, nil
}

// InputTableNames lists the stored table names for a scope.
func (s *Store) InputTableNames(ctx context.Context, scope Scope) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT table_name FROM input_tables WHERE `+scopeWhere+` ORDER BY table_name COLLATE BINARY ASC`, scope.args()...)
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("list inputs: scan: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// InputHash returns the content hash of a stored table.
func (s *Store) InputHash(ctx context.Context, scope Scope, name string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM input_tables WHERE `+scopeWhere+` AND table_name = ?`, append(scope.args(), name)...,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &scenario.MissingInputError{Key: scope.Key, Table: name}
	}
	if err != nil {
		return "", fmt.Errorf("input hash %s: %w", name, err)
	}
	return hash, nil
}

// Inputs adapts the store to scenario.InputSource and scenario.InputSink for
// one scenario ID.
type Inputs struct {
	s          *Store
	scenarioID int64
}

// Inputs returns the input adapter for a scenario.
func (s *Store) Inputs(scenarioID int64) *Inputs {
	return &Inputs{s: s, scenarioID: scenarioID}
}

// Table implements scenario.InputSource.
func (in *Inputs) Table(ctx context.Context, key scenario.Key, name string) (*tabfile.Table, error) {
	return in.s.InputTable(ctx, Scope{ScenarioID: in.scenarioID, Key: key}, name)
}

// WriteTable implements scenario.InputSink.
func (in *Inputs) WriteTable(ctx context.Context, key scenario.Key, t *tabfile.Table) error {
	return in.s.PutInputTable(ctx, Scope{ScenarioID: in.scenarioID, Key: key}, t)
}
