// Package store keeps a local SQLite journal of purge runs. The journal is
// write-mostly: it is read back only by the history command and never
// influences what a purge deletes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/mod/semver"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// ErrNewerSchema is returned when the journal was written by a newer
// version of aciclean than the running binary.
var ErrNewerSchema = errors.New("history database was created by a newer version of aciclean")

// Migration is one forward-only schema step for a named component.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// SQLiteStore is the journal database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes Migrate
}

// journalPragmas run on every open. modernc.org/sqlite takes them as
// statements rather than DSN parameters.
var journalPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// New opens or creates the journal at path.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %q: %w", path, err)
	}
	// A CLI run has a single writer; WAL lets history read alongside it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %q: %w", path, err)
	}
	for _, pragma := range journalPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal %q: %s: %w", path, pragma, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the connection pool for queries.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Tx runs fn in a transaction, committing only when fn succeeds.
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// Migrate brings component's tables up to date. Each step runs in its own
// transaction together with its _migrations row, so a failing step leaves
// the earlier ones committed.
func (s *SQLiteStore) Migrate(ctx context.Context, component string, migrations []Migration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			component   TEXT     NOT NULL,
			version     INTEGER  NOT NULL,
			description TEXT     NOT NULL,
			applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (component, version)
		)`)
	if err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	applied, err := s.appliedVersions(ctx, component)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		err := s.Tx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO _migrations (component, version, description) VALUES (?, ?, ?)",
				component, m.Version, m.Description)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s/%d (%s): %w", component, m.Version, m.Description, err)
		}
	}
	return nil
}

func (s *SQLiteStore) appliedVersions(ctx context.Context, component string) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM _migrations WHERE component = ?", component)
	if err != nil {
		return nil, fmt.Errorf("list migrations for %s: %w", component, err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// CheckVersion records the binary version that last opened the journal and
// refuses a journal stamped by a newer release. Builds whose version is not
// a semantic version, such as "dev" or "nightly", are never refused.
func (s *SQLiteStore) CheckVersion(ctx context.Context, currentVersion string) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _schema_meta (
			id          INTEGER  PRIMARY KEY CHECK (id = 1),
			app_version TEXT     NOT NULL,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("create _schema_meta: %w", err)
	}

	var stored string
	err = s.db.QueryRowContext(ctx, "SELECT app_version FROM _schema_meta WHERE id = 1").Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read journal version: %w", err)
	case stored == currentVersion:
		return nil
	case newerRelease(stored, currentVersion):
		return fmt.Errorf("%w: database=%s, binary=%s", ErrNewerSchema, stored, currentVersion)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO _schema_meta (id, app_version, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET app_version = excluded.app_version, updated_at = excluded.updated_at`,
		currentVersion)
	if err != nil {
		return fmt.Errorf("stamp journal version: %w", err)
	}
	return nil
}

// newerRelease reports whether stored is a strictly later release than
// current. Both must parse as semantic versions for the answer to be yes.
func newerRelease(stored, current string) bool {
	s, c := canonicalVersion(stored), canonicalVersion(current)
	if !semver.IsValid(s) || !semver.IsValid(c) {
		return false
	}
	return semver.Compare(s, c) > 0
}

func canonicalVersion(v string) string {
	if v != "" && v[0] != 'v' {
		return "v" + v
	}
	return v
}
