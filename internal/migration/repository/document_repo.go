package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/siteporter/siteporter-backend/internal/converter"
	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

// DocumentRepository stores extracted documents and converted output as
// JSONB blobs. Documents are immutable once written; conversion results
// are keyed by the same document ID.
type DocumentRepository struct {
	db *sql.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// SaveDocument persists an extracted document checkpoint.
func (r *DocumentRepository) SaveDocument(ctx context.Context, migrationID string, doc *idf.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	const q = `
INSERT INTO idf_documents (id, migration_id, source_platform, source_url, payload)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW();
`
	_, err = r.db.ExecContext(ctx, q, doc.ID, migrationID, doc.SourcePlatform, doc.SourceURL, data)
	return err
}

// GetDocument loads a document by its ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*idf.Document, error) {
	const q = `SELECT payload FROM idf_documents WHERE id = $1;`
	var data []byte
	err := r.db.QueryRowContext(ctx, q, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	var doc idf.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return &doc, nil
}

// SaveConverted persists the conversion result for a document.
func (r *DocumentRepository) SaveConverted(ctx context.Context, documentID string, target *converter.TargetDocument) error {
	data, err := json.Marshal(target)
	if err != nil {
		return fmt.Errorf("failed to marshal converted document: %w", err)
	}

	const q = `
INSERT INTO converted_documents (document_id, target_platform, payload)
VALUES ($1, $2, $3)
ON CONFLICT (document_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW();
`
	_, err = r.db.ExecContext(ctx, q, documentID, target.Platform, data)
	return err
}

// GetConverted loads the conversion result for a document.
func (r *DocumentRepository) GetConverted(ctx context.Context, documentID string) (*converter.TargetDocument, error) {
	const q = `SELECT payload FROM converted_documents WHERE document_id = $1;`
	var data []byte
	err := r.db.QueryRowContext(ctx, q, documentID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	var target converter.TargetDocument
	if err := json.Unmarshal(data, &target); err != nil {
		return nil, fmt.Errorf("failed to unmarshal converted document: %w", err)
	}
	return &target, nil
}
