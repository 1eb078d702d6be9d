package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS published_fingerprints (
		hash VARCHAR(64) PRIMARY KEY,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);
`

// PostgresStore keeps fingerprints in a PostgreSQL table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects, pings and ensures the schema exists.
func NewPostgresStore(ctx context.Context, connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := NewPostgresStoreFromDB(db)
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreFromDB wraps an existing handle without touching the schema.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (ps *PostgresStore) initSchema(ctx context.Context) error {
	if _, err := ps.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Contains(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM published_fingerprints WHERE hash = $1)`
	if err := ps.db.QueryRowContext(ctx, query, fingerprint).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return exists, nil
}

// Add inserts the fingerprint; re-adding an existing one is a no-op.
func (ps *PostgresStore) Add(ctx context.Context, fingerprint string) error {
	query := `INSERT INTO published_fingerprints (hash) VALUES ($1) ON CONFLICT (hash) DO NOTHING`
	if _, err := ps.db.ExecContext(ctx, query, fingerprint); err != nil {
		return fmt.Errorf("failed to add fingerprint: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Count(ctx context.Context) (int, error) {
	var total int
	if err := ps.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM published_fingerprints`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count fingerprints: %w", err)
	}
	return total, nil
}

func (ps *PostgresStore) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}
