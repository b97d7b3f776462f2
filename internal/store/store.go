// Package store implements the relational data layer for atlas.
//
// Two backends are supported behind the same Store type: a local SQLite
// file (modernc.org/sqlite) and hosted Postgres (jackc/pgx via
// database/sql). All queries are written with ? placeholders and rebound
// for Postgres.
package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Store wraps the database handle and driver-specific SQL handling.
type Store struct {
	db     *sql.DB
	driver string
}

// Options configure Open.
type Options struct {
	Driver string // "sqlite" (default) or "postgres"
	Path   string // sqlite file path
	DSN    string // postgres connection string
}

// Open opens the database, applies the schema, and runs best-effort
// migrations for columns added after the initial release.
func Open(opts Options) (*Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = "sqlite"
	}

	var db *sql.DB
	var err error
	switch driver {
	case "sqlite":
		if opts.Path == "" {
			return nil, fmt.Errorf("store: sqlite path required")
		}
		db, err = sql.Open("sqlite", "file:"+opts.Path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	case "postgres":
		if opts.DSN == "" {
			return nil, fmt.Errorf("store: postgres dsn required")
		}
		db, err = sql.Open("pgx", opts.DSN)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) applySchema() error {
	schema := schemaSQLite
	if s.driver == "postgres" {
		schema = schemaPostgres
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	// Best-effort migrations for existing dbs (no-op if column exists).
	_, _ = s.db.Exec(s.rebind(`ALTER TABLE tasks ADD COLUMN priority INTEGER NOT NULL DEFAULT 0`))
	_, _ = s.db.Exec(s.rebind(`ALTER TABLE evolutions ADD COLUMN summary TEXT DEFAULT ''`))
	_, _ = s.db.Exec(s.rebind(`ALTER TABLE memory_chunks ADD COLUMN ref_id TEXT DEFAULT ''`))
	return nil
}

// DB exposes the raw handle for packages that layer on the store
// (assistant search, scheduler bookkeeping).
func (s *Store) DB() *sql.DB { return s.db }

// Driver returns the active driver name.
func (s *Store) Driver() string { return s.driver }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// rebind converts ? placeholders to $N for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// newID returns a prefixed UUID identifier, e.g. "task-4f9c...".
func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// nullable returns nil for empty strings so UNIQUE columns don't collide
// on "".
func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

// nullTime returns nil for nil times. Times are stored as UTC strings in
// the CURRENT_TIMESTAMP format so comparisons against it stay correct on
// both backends.
func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
