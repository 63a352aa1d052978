package database

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a lookup by key matches no row.
	ErrNotFound = errors.New("not found")
	// ErrIntegrity wraps constraint violations reported by the driver.
	ErrIntegrity = errors.New("integrity violation")
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Initialize opens and pings the catalog database. SQLite connections get
// foreign key enforcement, which the cascade on items depends on.
func Initialize(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// every connection to :memory: is a separate database
	if driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (category) REFERENCES categories(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id SERIAL PRIMARY KEY,
		name VARCHAR(40) NOT NULL UNIQUE,
		description VARCHAR(500) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id SERIAL PRIMARY KEY,
		name VARCHAR(40) NOT NULL,
		category INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		description VARCHAR(500) NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)`,
}

// Migrate creates the catalog schema if it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	migrations := sqliteMigrations
	if db.DriverName() == DriverPostgres {
		migrations = postgresMigrations
	}

	for _, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}

// unitOfWork runs fn inside a transaction. The transaction is committed when
// fn returns nil and rolled back on error or panic.
func unitOfWork(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cerr)
		}
	}()

	return fn(tx)
}

// classify tags constraint violations from either driver with ErrIntegrity.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %w", ErrIntegrity, err)
	}

	// SQLSTATE class 23: integrity constraint violation
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %w", ErrIntegrity, err)
	}

	return err
}

// stream lazily yields rows of q as T. The unit of work stays open while the
// caller iterates and is closed as soon as iteration stops.
func stream[T any](ctx context.Context, db *sqlx.DB, what, q string, args ...interface{}) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		stopped := false
		err := unitOfWork(ctx, db, func(tx *sqlx.Tx) error {
			rows, err := tx.QueryxContext(ctx, tx.Rebind(q), args...)
			if err != nil {
				return fmt.Errorf("failed to query %s: %w", what, err)
			}
			defer rows.Close()

			for rows.Next() {
				var v T
				if err := rows.StructScan(&v); err != nil {
					return fmt.Errorf("failed to scan %s: %w", what, err)
				}
				if !yield(v, nil) {
					stopped = true
					return nil
				}
			}

			if err := rows.Err(); err != nil {
				return fmt.Errorf("error iterating %s: %w", what, err)
			}
			return nil
		})
		if err != nil && !stopped {
			var zero T
			yield(zero, err)
		}
	}
}

func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := []T{}
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
