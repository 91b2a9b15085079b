package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/souissim/gridpath/internal/scenario"
)

//go:embed schema.sql
var schemaSQL string

// migrations upgrade databases created by older schema.sql versions. The
// database's user_version records the last one applied.
var migrations = []struct {
	version int
	stmt    string
}{
	{1, `CREATE INDEX IF NOT EXISTS idx_scenario_runs_status ON scenario_runs(scenario_id, status)`},
}

// Scope addresses every row written for one scenario variant.
type Scope struct {
	ScenarioID int64
	Key        scenario.Key
}

func (s Scope) String() string {
	return fmt.Sprintf("scenario %d %s", s.ScenarioID, s.Key)
}

// args returns the scope columns in schema order.
func (s Scope) args() []any {
	return []any{s.ScenarioID, s.Key.Weather, s.Key.Hydro, s.Key.Availability, s.Key.Subproblem, s.Key.Stage}
}

const scopeWhere = `scenario_id = ? AND weather = ? AND hydro = ? AND availability = ? AND subproblem = ? AND stage = ?`

const scopeColumns = `scenario_id, weather, hydro, availability, subproblem, stage`

// Store provides durable storage for scenario inputs and results.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db    *sql.DB
	locks sync.Map // Scope -> *sync.Mutex
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// lock serializes writes for one scope and returns the unlock function.
func (s *Store) lock(scope Scope) func() {
	mu, _ := s.locks.LoadOrStore(scope, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// withTx runs fn in a transaction under the scope's write lock.
func (s *Store) withTx(ctx context.Context, scope Scope, fn func(*sql.Tx) error) error {
	unlock := s.lock(scope)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// pragmas configure every connection. WAL lets a results query read while a
// run writes another scope.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies every migration newer than the database's
// user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
