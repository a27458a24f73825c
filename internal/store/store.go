package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite index of analyzed units.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Every child table cascades from units so that replacing a unit is a
// delete followed by inserts.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS units (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  hash            INTEGER NOT NULL,
  revision        INTEGER NOT NULL,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS contexts (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  parent_id       INTEGER REFERENCES contexts(id) ON DELETE CASCADE,
  kind            TEXT NOT NULL,
  name            TEXT,
  superclass      TEXT,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS declarations (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  context_id      INTEGER REFERENCES contexts(id) ON DELETE CASCADE,
  name            TEXT NOT NULL,
  identifier      TEXT NOT NULL,
  kind            TEXT NOT NULL,
  visibility      TEXT,
  singleton       BOOLEAN DEFAULT FALSE,
  param           BOOLEAN DEFAULT FALSE,
  comment         TEXT,
  type_blob       BLOB,
  type_text       TEXT,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS uses (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  name            TEXT NOT NULL,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER,
  target_unit     TEXT,
  target_name     TEXT,
  target_start_line INTEGER,
  target_start_col  INTEGER,
  target_end_line   INTEGER,
  target_end_col    INTEGER
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  severity        TEXT NOT NULL,
  category        TEXT NOT NULL,
  message         TEXT NOT NULL,
  notes           BLOB,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE TABLE IF NOT EXISTS imports (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  kind            TEXT NOT NULL,
  target          TEXT NOT NULL,
  resolved        BOOLEAN DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_contexts_unit ON contexts(unit_id);
CREATE INDEX IF NOT EXISTS idx_declarations_unit ON declarations(unit_id);
CREATE INDEX IF NOT EXISTS idx_declarations_identifier ON declarations(identifier);
CREATE INDEX IF NOT EXISTS idx_declarations_name ON declarations(name);
CREATE INDEX IF NOT EXISTS idx_uses_unit ON uses(unit_id);
CREATE INDEX IF NOT EXISTS idx_uses_target ON uses(target_unit, target_name);
CREATE INDEX IF NOT EXISTS idx_diagnostics_unit ON diagnostics(unit_id);
CREATE INDEX IF NOT EXISTS idx_imports_unit ON imports(unit_id);
CREATE INDEX IF NOT EXISTS idx_imports_target ON imports(target);
`

// DeleteUnit removes a unit and everything recorded for it. Deleting an
// unknown unit is not an error.
func (s *Store) DeleteUnit(path string) error {
	if _, err := s.db.Exec("DELETE FROM units WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete unit %s: %w", path, err)
	}
	return nil
}
