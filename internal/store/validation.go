package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Issue is a persisted validation issue.
type Issue struct {
	Module   string
	Table    string
	Column   string
	Severity string
	Message  string
}

// ReplaceValidationIssues replaces the stored issues of a scope.
func (s *Store) ReplaceValidationIssues(ctx context.Context, scope Scope, issues []Issue) error {
	return s.withTx(ctx, scope, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM validation_issues WHERE `+scopeWhere, scope.args()...); err != nil {
			return fmt.Errorf("replace validation issues: %w", err)
		}
		for _, is := range issues {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO validation_issues (`+scopeColumns+`, module, table_name, column_name, severity, message)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, append(scope.args(), is.Module, is.Table, is.Column, is.Severity, is.Message)...)
			if err != nil {
				return fmt.Errorf("replace validation issues: %w", err)
			}
		}
		return nil
	})
}

// ValidationIssues returns the stored issues of a scope in insertion order.
func (s *Store) ValidationIssues(ctx context.Context, scope Scope) ([]Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT module, table_name, column_name, severity, message FROM validation_issues
		WHERE `+scopeWhere+`
		ORDER BY id ASC
	`, scope.args()...)
	if err != nil {
		return nil, fmt.Errorf("read validation issues: %w", err)
	}
	defer rows.Close()

	out := []Issue{}
	for rows.Next() {
		var is Issue
		if err := rows.Scan(&is.Module, &is.Table, &is.Column, &is.Severity, &is.Message); err != nil {
			return nil, fmt.Errorf("read validation issues: scan: %w", err)
		}
		out = append(out, is)
	}
	return out, rows.Err()
}
