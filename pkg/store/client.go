// Package store provides the per-namespace embedded relational store: one
// SQLite file per namespace, opened on first touch, with a fixed schema
// script (never a migration chain) and fail-fast version checking.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema/pragmas.sql schema/schema.sql schema/indexes.sql
var schemaFS embed.FS

// expectedSchemaVersion is compared against PRAGMA user_version on every
// open. Bump it (and schema.sql) together when the on-disk layout changes;
// there is no migration path, per design — a mismatch is a hard refusal.
const expectedSchemaVersion = 1

// namespacePattern mirrors the identifier format required before any path
// is constructed from user input. Store re-checks it defensively even
// though callers are expected to validate first.
var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// Store wraps one namespace's SQLite handle.
type Store struct {
	db        *sql.DB
	namespace string
	path      string
}

// Open opens (creating if absent) the store file for namespace under
// dataDir/sims/{namespace}.db. On a fresh file the schema is created and
// user_version is stamped; on an existing file, user_version is checked
// against expectedSchemaVersion and ErrSchemaMismatch is returned on any
// difference.
func Open(ctx context.Context, dataDir, namespace string) (*Store, bool, error) {
	if !namespacePattern.MatchString(namespace) {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}

	simsDir := filepath.Join(dataDir, "sims")
	if err := os.MkdirAll(simsDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("%w: creating data dir: %v", ErrIO, err)
	}

	path := filepath.Join(simsDir, namespace+".db")
	fresh := true
	if _, err := os.Stat(path); err == nil {
		fresh = false
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: opening %s: %v", ErrIO, path, err)
	}
	db.SetMaxOpenConns(1) // one writer goroutine per namespace; avoid lock thrash

	if err := execScript(ctx, db, "schema/pragmas.sql"); err != nil {
		_ = db.Close()
		return nil, false, fmt.Errorf("%w: applying pragmas: %v", ErrIO, err)
	}

	if fresh {
		if err := initSchema(ctx, db); err != nil {
			_ = db.Close()
			_ = os.Remove(path)
			return nil, false, err
		}
	}

	version, err := userVersion(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, false, fmt.Errorf("%w: reading user_version: %v", ErrIO, err)
	}
	if version != expectedSchemaVersion {
		_ = db.Close()
		return nil, false, fmt.Errorf("%w: namespace %q has schema version %d, expected %d",
			ErrSchemaMismatch, namespace, version, expectedSchemaVersion)
	}

	slog.Info("Opened namespace store", "namespace", namespace, "path", path, "fresh", fresh)
	return &Store{db: db, namespace: namespace, path: path}, fresh, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	if err := execScript(ctx, db, "schema/schema.sql"); err != nil {
		return fmt.Errorf("%w: applying schema: %v", ErrIO, err)
	}
	if err := execScript(ctx, db, "schema/indexes.sql"); err != nil {
		return fmt.Errorf("%w: applying indexes: %v", ErrIO, err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", expectedSchemaVersion)); err != nil {
		return fmt.Errorf("%w: stamping user_version: %v", ErrIO, err)
	}
	return nil
}

func execScript(ctx context.Context, db *sql.DB, name string) error {
	data, err := fs.ReadFile(schemaFS, name)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(data))
	return err
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Namespace returns the namespace this store serves.
func (s *Store) Namespace() string {
	return s.namespace
}

// WithTx is the single atomic unit-of-work primitive. Every write
// belonging to one tick commit (or one explicit admin mutation) runs
// inside exactly one call to WithTx: on any error the whole transaction
// rolls back, so mutation paths never return control with an open
// transaction and partial commits are structurally impossible.
func (s *Store) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if isBusy(err) {
			return fmt.Errorf("%w: %v", ErrBusy, err)
		}
		return fmt.Errorf("%w: beginning transaction: %v", ErrIO, err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if isBusy(err) {
			return fmt.Errorf("%w: %v", ErrBusy, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isBusy(err) {
			return fmt.Errorf("%w: %v", ErrBusy, err)
		}
		return fmt.Errorf("%w: committing transaction: %v", ErrIO, err)
	}
	return nil
}

// DB exposes the raw handle for read queries (context fetch, replay,
// status) that may proceed concurrently with the namespace's serializer.
func (s *Store) DB() *sql.DB {
	return s.db
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// Health pings the store with a bounded deadline.
func Health(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
