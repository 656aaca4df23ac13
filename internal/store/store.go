package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a run log by one schema version.
type migration struct {
	name string
	sql  string
}

// migrations[i] takes a log from user_version i to i+1. Logs created by
// the current schema.sql still run them; every statement is idempotent.
var migrations = []migration{
	{
		name: "index runs by outcome",
		sql:  `CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(mode, status, violation, seq)`,
	},
}

// Store is the run log: one SQLite database, one writer.
type Store struct {
	db *sql.DB
}

// Open opens or creates the run log at path (":memory:" for a private
// in-memory log) and brings its schema up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}

	// An in-memory database lives and dies with its connection, and
	// SQLite allows one writer anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, step := range []func(*sql.DB) error{applyPragmas, applySchema, migrate} {
		if err := step(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("open run log %s: %w", path, err)
		}
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

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON", // trace_steps cascade with their run
}

func applyPragmas(db *sql.DB) error {
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for ; version < len(migrations); version++ {
		m := migrations[version]
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", version+1, m.name, err)
		}
		// PRAGMA takes no placeholders.
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version+1)); err != nil {
			return fmt.Errorf("migration %d (%s): %w", version+1, m.name, err)
		}
	}
	return nil
}

// schemaVersion reports the log's user_version.
func (s *Store) schemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}

// pragma returns the current value of a pragma as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return value, nil
}
