package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Sentinel errors surfaced by the repositories. Callers match them with
// errors.Is and map them to their own failure modes.
var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateRequest    = errors.New("duplicate request id")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type DB struct {
	connection *sql.DB
}

func NewDB(dataSourceName string) (*DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, err
	}

	// Connection pool tuning
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &DB{connection: db}, nil
}

func (db *DB) Close() error {
	return db.connection.Close()
}

// Conn exposes the underlying pool for advanced queries.
func (db *DB) Conn() *sql.DB {
	return db.connection
}

// Migrate applies the schema. Statements are idempotent so this is safe
// to run on every startup.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.connection.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
