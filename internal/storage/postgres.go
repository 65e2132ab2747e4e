package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store interface for PostgreSQL
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// PoolConfig sizes the connection pool
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(dsn string, pool PoolConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS enodebs (
    serial           TEXT PRIMARY KEY,
    vendor           TEXT NOT NULL,
    oui              TEXT NOT NULL,
    product_class    TEXT NOT NULL DEFAULT '',
    software_version TEXT NOT NULL DEFAULT '',
    client_addr      TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL,
    last_inform_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS enodeb_status (
    id            UUID PRIMARY KEY,
    created_at    TIMESTAMPTZ NOT NULL,
    serial        TEXT NOT NULL,
    state         TEXT NOT NULL,
    connected     BOOLEAN NOT NULL,
    configured    BOOLEAN NOT NULL,
    op_state      BOOLEAN NOT NULL,
    rf_tx_on      BOOLEAN NOT NULL,
    rf_tx_desired BOOLEAN NOT NULL,
    gps_connected BOOLEAN NOT NULL,
    ptp_connected BOOLEAN NOT NULL,
    mme_connected BOOLEAN NOT NULL,
    cell_id       BIGINT NOT NULL DEFAULT 0,
    latitude      DOUBLE PRECISION NOT NULL DEFAULT 0,
    longitude     DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS enodeb_status_serial_idx ON enodeb_status (serial, created_at DESC);

CREATE TABLE IF NOT EXISTS event_logs (
    id          UUID PRIMARY KEY,
    created_at  TIMESTAMPTZ NOT NULL,
    serial      TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL,
    level       TEXT NOT NULL,
    description TEXT NOT NULL,
    details     JSONB
);
CREATE INDEX IF NOT EXISTS event_logs_created_idx ON event_logs (created_at DESC);
`

// Migrate creates the tables if they do not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *PostgresStore) BeginTx(ctx context.Context) (Store, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: s.db, tx: tx}, nil
}

// Commit commits the transaction
func (s *PostgresStore) Commit() error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Commit()
}

// Rollback rolls back the transaction
func (s *PostgresStore) Rollback() error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Rollback()
}

// getDB returns tx if in transaction, otherwise db
func (s *PostgresStore) getDB() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}
