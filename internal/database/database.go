// Package database wraps the database implementation used for Tradewarp.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/dense-analysis/tradewarp/internal/env"
	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/mattn/go-sqlite3"
)

const (
	// Postgres is the production driver name.
	Postgres = "postgres"
	// SQLite is the driver name for local databases and tests.
	SQLite = "sqlite3"
)

type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

var ErrNoRows = sql.ErrNoRows

// Queryable defines an interface for a connection or a transaction.
type Queryable interface {
	Exec(sql string, arguments ...any) error
	Query(sql string, arguments ...any) (Rows, error)
	QueryRow(sql string, arguments ...any) Row
	// ForUpdate returns the clause for locking selected rows until the
	// transaction ends, which is empty where the driver serializes writers.
	ForUpdate() string
}

// Conn is a pool of connections to either Postgres or SQLite.
//
// Queries are always written with Postgres placeholders ($1, $2, ...).
type Conn struct {
	db     *sql.DB
	driver string
}

// Tx is a database transaction opened with Conn.Transaction.
type Tx struct {
	tx     *sql.Tx
	ctx    context.Context
	driver string
}

// Connect connects to the database with the project environment variables.
func Connect() (*Conn, error) {
	switch driver := env.Get("DB_DRIVER", Postgres); driver {
	case Postgres:
		return Open(Postgres, fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			env.Get("DB_USERNAME", ""),
			env.Get("DB_PASSWORD", ""),
			env.Get("DB_HOST", ""),
			env.Get("DB_PORT", ""),
			env.Get("DB_NAME", ""),
		))
	case SQLite:
		path := env.Get("DB_PATH", "tradewarp.db")

		return Open(SQLite, "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", driver)
	}
}

// Open opens a database for a driver name and data source.
func Open(driver string, dataSource string) (*Conn, error) {
	sqlDriver := driver

	if driver == Postgres {
		sqlDriver = "pgx"
	}

	db, err := sql.Open(sqlDriver, dataSource)

	if err != nil {
		return nil, err
	}

	if driver == SQLite {
		// A single connection serializes every transaction for SQLite,
		// which stands in for the row locks Postgres takes.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, err
	}

	return &Conn{db: db, driver: driver}, nil
}

var memoryCounter atomic.Int64

// OpenInMemory opens a private in-memory SQLite database with every migration applied.
func OpenInMemory() (*Conn, error) {
	name := fmt.Sprintf("memory%d", memoryCounter.Add(1))
	conn, err := Open(SQLite, "file:"+name+"?mode=memory&cache=shared&_foreign_keys=on")

	if err != nil {
		return nil, err
	}

	if err := Migrate(conn); err != nil {
		conn.Close()

		return nil, err
	}

	return conn, nil
}

// Driver returns the driver name for the connection.
func (conn *Conn) Driver() string {
	return conn.driver
}

// Close closes a database connection.
func (conn *Conn) Close() error {
	return conn.db.Close()
}

// Exec executes a database query.
func (conn *Conn) Exec(sql string, arguments ...any) error {
	_, err := conn.db.ExecContext(context.Background(), rebind(conn.driver, sql), arguments...)

	return err
}

// Query executes a database query.
func (conn *Conn) Query(sql string, arguments ...any) (Rows, error) {
	return conn.db.QueryContext(context.Background(), rebind(conn.driver, sql), arguments...)
}

// QueryRow executes a database query returning Row data.
func (conn *Conn) QueryRow(sql string, arguments ...any) Row {
	return conn.db.QueryRowContext(context.Background(), rebind(conn.driver, sql), arguments...)
}

func (conn *Conn) ForUpdate() string {
	return forUpdate(conn.driver)
}

// Transaction runs fn inside a database transaction.
//
// The transaction is committed when fn returns nil and rolled back otherwise.
func (conn *Conn) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := conn.db.BeginTx(ctx, nil)

	if err != nil {
		return err
	}

	if err := fn(&Tx{tx: sqlTx, ctx: ctx, driver: conn.driver}); err != nil {
		if rollbackErr := sqlTx.Rollback(); rollbackErr != nil {
			return errors.Join(err, rollbackErr)
		}

		return err
	}

	return sqlTx.Commit()
}

func (tx *Tx) Exec(sql string, arguments ...any) error {
	_, err := tx.tx.ExecContext(tx.ctx, rebind(tx.driver, sql), arguments...)

	return err
}

func (tx *Tx) Query(sql string, arguments ...any) (Rows, error) {
	return tx.tx.QueryContext(tx.ctx, rebind(tx.driver, sql), arguments...)
}

func (tx *Tx) QueryRow(sql string, arguments ...any) Row {
	return tx.tx.QueryRowContext(tx.ctx, rebind(tx.driver, sql), arguments...)
}

func (tx *Tx) ForUpdate() string {
	return forUpdate(tx.driver)
}

func forUpdate(driver string) string {
	if driver == Postgres {
		return " for update"
	}

	return ""
}

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// rebind converts $N placeholders to ?N, which SQLite reads as explicit indexes.
func rebind(driver string, sql string) string {
	if driver != SQLite {
		return sql
	}

	return placeholderPattern.ReplaceAllString(sql, "?$1")
}

// IsUniqueViolation returns true if an error is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var sqliteErr sqlite3.Error

	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return false
}
