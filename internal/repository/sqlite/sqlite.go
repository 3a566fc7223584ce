// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure Go driver, so the binary builds without cgo.
// Queries go through sqlx for struct scanning; the schema is managed by
// goose from the SQL files embedded under migrations/.
//
// The pool is capped at one connection. SQLite allows a single writer
// anyway, and with one connection every transaction runs to completion
// before the next begins, which is what makes the read-modify-write
// methods (MutatePalette, ToggleLike, ClaimUsername) atomic. It also lets
// ":memory:" databases survive between queries.
package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/block-palettes/internal/repository"
)

//go:embed migrations/*.sql
var migrations embed.FS

const driverName = "sqlite"

// compile-time check that *DB implements every repository interface
var _ repository.Store = (*DB)(nil)

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// DB wraps a sqlx connection pool and provides repository methods.
type DB struct {
	conn *sqlx.DB
}

// New opens the database at dbPath and applies pending migrations.
// Migration progress is reported to logger; nil discards it.
//
// dbPath examples:
//   - "data/palettes.db"  file-based database
//   - ":memory:"          in-memory database, gone on Close
func New(ctx context.Context, dbPath string, logger goose.Logger) (*DB, error) {
	conn, err := sqlx.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(ctx, logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate(ctx context.Context, logger goose.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if logger == nil {
		logger = nopLogger{}
	}
	goose.SetBaseFS(migrations)
	goose.SetLogger(logger)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db.conn.DB, "migrations")
}

type nopLogger struct{}

func (nopLogger) Fatalf(string, ...any) {}
func (nopLogger) Printf(string, ...any) {}

// withTx runs fn inside a transaction, committing if it returns nil and
// rolling back otherwise. fn's error is returned unwrapped so apperrors
// reach the service untouched.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// now returns the current time without its monotonic reading, so a value
// read back from the database compares equal to the one written.
func now() time.Time {
	return time.Now().UTC()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
