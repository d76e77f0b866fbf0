// Package db provides storage for generated strategy documents: a PostgreSQL
// implementation for the dashboard and an in-memory one for local runs.
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/markitup/internal/types"
)

// DefaultListLimit caps ListDocuments when no positive limit is given.
const DefaultListLimit = 50

// Store persists strategy documents.
//
// GetDocument returns (nil, nil) when the document does not exist.
// SaveDocument returns types.ErrCustomized when it would replace a
// user-customized document with a generated one.
type Store interface {
	SaveDocument(ctx context.Context, doc *types.StrategyDocument) error
	GetDocument(ctx context.Context, id uuid.UUID) (*types.StrategyDocument, error)
	ListDocuments(ctx context.Context, limit int) ([]*types.StrategyDocument, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error)
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var _ Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS strategy_documents (
	id              UUID PRIMARY KEY,
	company_name    TEXT NOT NULL,
	brand           TEXT NOT NULL,
	strategy_type   TEXT NOT NULL,
	source          TEXT NOT NULL,
	fallback_reason TEXT,
	context         JSONB NOT NULL,
	sections        JSONB NOT NULL,
	generated_at    TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_strategy_documents_generated_at
	ON strategy_documents (generated_at DESC);
`

// Migrate creates the tables used by the store if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
