package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/souissim/gridpath/internal/canon"
	"github.com/souissim/gridpath/internal/results"
)

// Run status values.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is the persisted outcome of one scenario key.
type Run struct {
	Scope        Scope
	RunID        string
	Status       string
	SolverStatus string
	Objective    *float64
	Message      string
}

// TableInfo describes a stored result table.
type TableInfo struct {
	Name         string
	IndexColumns []string
	Columns      []string
	Fingerprint  string
}

// GetRows returns the stored rows of a result table, ordered by index.
// Returns an empty slice (not nil) if the table has no rows.
func (s *Store) GetRows(ctx context.Context, scope Scope, table string) ([]results.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT index_values, row_values FROM result_rows
		WHERE `+scopeWhere+` AND table_name = ?
		ORDER BY index_key COLLATE BINARY ASC
	`, append(scope.args(), table)...)
	if err != nil {
		return nil, fmt.Errorf("get rows %s: %w", table, err)
	}
	defer rows.Close()

	out := []results.Row{}
	for rows.Next() {
		var indexJSON, valuesJSON string
		if err := rows.Scan(&indexJSON, &valuesJSON); err != nil {
			return nil, fmt.Errorf("get rows %s: scan: %w", table, err)
		}
		var r results.Row
		if err := json.Unmarshal([]byte(indexJSON), &r.Index); err != nil {
			return nil, fmt.Errorf("get rows %s: index: %w", table, err)
		}
		if err := json.Unmarshal([]byte(valuesJSON), &r.Values); err != nil {
			return nil, fmt.Errorf("get rows %s: values: %w", table, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get rows %s: iterate: %w", table, err)
	}
	return out, nil
}

// ResultTables lists the stored result tables of a scope.
func (s *Store) ResultTables(ctx context.Context, scope Scope) ([]TableInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, index_columns, columns, fingerprint FROM result_tables
		WHERE `+scopeWhere+`
		ORDER BY table_name COLLATE BINARY ASC
	`, scope.args()...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	out := []TableInfo{}
	for rows.Next() {
		var info TableInfo
		var indexJSON, columnsJSON string
		if err := rows.Scan(&info.Name, &indexJSON, &columnsJSON, &info.Fingerprint); err != nil {
			return nil, fmt.Errorf("list results: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(indexJSON), &info.IndexColumns); err != nil {
			return nil, fmt.Errorf("list results: %w", err)
		}
		if err := json.Unmarshal([]byte(columnsJSON), &info.Columns); err != nil {
			return nil, fmt.Errorf("list results: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteRows deletes every stored result of a scope.
func (s *Store) DeleteRows(ctx context.Context, scope Scope) error {
	return s.withTx(ctx, scope, func(tx *sql.Tx) error {
		return deleteResults(ctx, tx, scope)
	})
}

// BulkInsert stores one merged result table for a scope. The table must not
// already be stored for the scope.
func (s *Store) BulkInsert(ctx context.Context, scope Scope, t *results.Table) error {
	return s.withTx(ctx, scope, func(tx *sql.Tx) error {
		return insertTable(ctx, tx, scope, t)
	})
}

// ReplaceResults deletes the scope's previous results, inserts the new
// tables, and records the run, all in one transaction.
func (s *Store) ReplaceResults(ctx context.Context, run Run, tables []*results.Table) error {
	return s.withTx(ctx, run.Scope, func(tx *sql.Tx) error {
		if err := deleteResults(ctx, tx, run.Scope); err != nil {
			return err
		}
		for _, t := range tables {
			if err := insertTable(ctx, tx, run.Scope, t); err != nil {
				return err
			}
		}
		return upsertRun(ctx, tx, run)
	})
}

// RecordFailure records a failed run and removes the scope's stale results.
func (s *Store) RecordFailure(ctx context.Context, run Run) error {
	return s.withTx(ctx, run.Scope, func(tx *sql.Tx) error {
		if err := deleteResults(ctx, tx, run.Scope); err != nil {
			return err
		}
		return upsertRun(ctx, tx, run)
	})
}

// GetRun returns the latest run of a scope.
func (s *Store) GetRun(ctx context.Context, scope Scope) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, status, solver_status, objective, message FROM scenario_runs
		WHERE `+scopeWhere, scope.args()...)
	run := Run{Scope: scope}
	var obj sql.NullFloat64
	err := row.Scan(&run.RunID, &run.Status, &run.SolverStatus, &obj, &run.Message)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("get run: %w", err)
	}
	if obj.Valid {
		run.Objective = &obj.Float64
	}
	return run, true, nil
}

// Runs returns every run of a scenario ordered by key.
func (s *Store) Runs(ctx context.Context, scenarioID int64) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT weather, hydro, availability, subproblem, stage, run_id, status, solver_status, objective, message
		FROM scenario_runs
		WHERE scenario_id = ?
		ORDER BY weather, hydro, availability, subproblem, stage
	`, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		run := Run{Scope: Scope{ScenarioID: scenarioID}}
		k := &run.Scope.Key
		var obj sql.NullFloat64
		if err := rows.Scan(&k.Weather, &k.Hydro, &k.Availability, &k.Subproblem, &k.Stage,
			&run.RunID, &run.Status, &run.SolverStatus, &obj, &run.Message); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		if obj.Valid {
			v := obj.Float64
			run.Objective = &v
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func deleteResults(ctx context.Context, tx *sql.Tx, scope Scope) error {
	// result_rows cascade from result_tables.
	if _, err := tx.ExecContext(ctx, `DELETE FROM result_tables WHERE `+scopeWhere, scope.args()...); err != nil {
		return fmt.Errorf("delete results for %s: %w", scope, err)
	}
	return nil
}

func insertTable(ctx context.Context, tx *sql.Tx, scope Scope, t *results.Table) error {
	fingerprint, err := t.Fingerprint()
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.Name, err)
	}
	indexJSON, err := canon.Marshal(t.IndexColumns)
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.Name, err)
	}
	columnsJSON, err := canon.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.Name, err)
	}

	args := append(scope.args(), t.Name)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO result_tables (`+scopeColumns+`, table_name, index_columns, columns, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, append(args, string(indexJSON), string(columnsJSON), fingerprint)...); err != nil {
		return fmt.Errorf("insert %s: %w", t.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO result_rows (`+scopeColumns+`, table_name, index_key, index_values, row_values)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert %s: prepare: %w", t.Name, err)
	}
	defer stmt.Close()

	for _, r := range t.Rows() {
		idxJSON, err := canon.Marshal(r.Index)
		if err != nil {
			return fmt.Errorf("insert %s %v: %w", t.Name, r.Index, err)
		}
		valJSON, err := canon.Marshal(r.Values)
		if err != nil {
			return fmt.Errorf("insert %s %v: %w", t.Name, r.Index, err)
		}
		key := strings.Join(r.Index, "\x1f")
		if _, err := stmt.ExecContext(ctx, append(args, key, string(idxJSON), string(valJSON))...); err != nil {
			return fmt.Errorf("insert %s %v: %w", t.Name, r.Index, err)
		}
	}
	return nil
}

func upsertRun(ctx context.Context, tx *sql.Tx, run Run) error {
	var obj any
	if run.Objective != nil {
		obj = *run.Objective
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO scenario_runs (`+scopeColumns+`, run_id, status, solver_status, objective, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (`+scopeColumns+`) DO UPDATE SET
			run_id = excluded.run_id,
			status = excluded.status,
			solver_status = excluded.solver_status,
			objective = excluded.objective,
			message = excluded.message
	`, append(run.Scope.args(), run.RunID, run.Status, run.SolverStatus, obj, run.Message)...)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.Scope, err)
	}
	return nil
}
