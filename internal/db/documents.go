package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/markitup/internal/types"
)

// -----------------------------------------------------------------------------
// Strategy Document Methods
// -----------------------------------------------------------------------------

// SaveDocument inserts a document or replaces the stored version with the same ID.
// A stored user-customized document is only replaced by another customization.
func (db *DB) SaveDocument(ctx context.Context, doc *types.StrategyDocument) error {
	contextJSON, err := json.Marshal(doc.Metadata.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}
	sectionsJSON, err := json.Marshal(doc.Sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`INSERT INTO strategy_documents (id, company_name, brand, strategy_type, source,
		                                 fallback_reason, context, sections, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		     company_name = EXCLUDED.company_name,
		     brand = EXCLUDED.brand,
		     strategy_type = EXCLUDED.strategy_type,
		     source = EXCLUDED.source,
		     fallback_reason = EXCLUDED.fallback_reason,
		     context = EXCLUDED.context,
		     sections = EXCLUDED.sections,
		     generated_at = EXCLUDED.generated_at,
		     updated_at = NOW()
		 WHERE strategy_documents.source <> $10 OR EXCLUDED.source = $10`,
		doc.ID, doc.Metadata.Context.CompanyName, doc.Metadata.Brand, doc.Metadata.StrategyType,
		string(doc.Metadata.Source), nullIfEmpty(doc.Metadata.FallbackReason),
		contextJSON, sectionsJSON, doc.Metadata.GeneratedAt,
		string(types.SourceUserCustomized),
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrCustomized
	}
	return nil
}

// GetDocument retrieves a document by ID
func (db *DB) GetDocument(ctx context.Context, id uuid.UUID) (*types.StrategyDocument, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, brand, strategy_type, source, fallback_reason, context, sections, generated_at
		 FROM strategy_documents WHERE id = $1`,
		id,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns the most recently generated documents first
func (db *DB) ListDocuments(ctx context.Context, limit int) ([]*types.StrategyDocument, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, brand, strategy_type, source, fallback_reason, context, sections, generated_at
		 FROM strategy_documents
		 ORDER BY generated_at DESC, created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*types.StrategyDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document and reports whether it existed
func (db *DB) DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM strategy_documents WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanDocument(row pgx.Row) (*types.StrategyDocument, error) {
	var (
		doc            types.StrategyDocument
		source         string
		fallbackReason *string
		contextJSON    []byte
		sectionsJSON   []byte
	)
	if err := row.Scan(&doc.ID, &doc.Metadata.Brand, &doc.Metadata.StrategyType, &source,
		&fallbackReason, &contextJSON, &sectionsJSON, &doc.Metadata.GeneratedAt); err != nil {
		return nil, err
	}

	doc.Metadata.Source = types.Source(source)
	if fallbackReason != nil {
		doc.Metadata.FallbackReason = *fallbackReason
	}
	if err := json.Unmarshal(contextJSON, &doc.Metadata.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}
	if err := json.Unmarshal(sectionsJSON, &doc.Sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sections: %w", err)
	}
	doc.Metadata.GeneratedAt = doc.Metadata.GeneratedAt.UTC()
	return &doc, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
