package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

// MigrationRepository provides persistence operations for migrations.
type MigrationRepository struct {
	db *sql.DB
}

// NewMigrationRepository creates a new migration repository
func NewMigrationRepository(db *sql.DB) *MigrationRepository {
	return &MigrationRepository{db: db}
}

// Create inserts a new migration in pending state.
func (r *MigrationRepository) Create(ctx context.Context, req domain.CreateMigrationRequest) (*domain.Migration, error) {
	if req.SourceURL == "" {
		return nil, fmt.Errorf("source url required")
	}

	const q = `
INSERT INTO migrations (id, project_name, source_url, source_platform, target_platform, status, progress)
VALUES ($1, $2, $3, $4, $5, $6, 0)
RETURNING id, project_name, source_url, source_platform, target_platform, status, progress,
          document_id, report_id, error_message, created_at, updated_at, completed_at;
`
	return r.scanOne(r.db.QueryRowContext(ctx, q,
		uuid.New().String(), req.ProjectName, req.SourceURL,
		req.SourcePlatform, req.TargetPlatform, domain.StatusPending))
}

// GetByID retrieves a migration by its ID.
func (r *MigrationRepository) GetByID(ctx context.Context, id string) (*domain.Migration, error) {
	const q = `
SELECT id, project_name, source_url, source_platform, target_platform, status, progress,
       document_id, report_id, error_message, created_at, updated_at, completed_at
FROM migrations
WHERE id = $1;
`
	m, err := r.scanOne(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMigrationNotFound
	}
	return m, err
}

// List returns migrations newest first, optionally filtered by status.
func (r *MigrationRepository) List(ctx context.Context, status string, limit int) ([]domain.Migration, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	q := `
SELECT id, project_name, source_url, source_platform, target_platform, status, progress,
       document_id, report_id, error_message, created_at, updated_at, completed_at
FROM migrations
`
	args := []any{}
	if status != "" {
		q += "WHERE status = $1\n"
		args = append(args, status)
	}
	q += fmt.Sprintf("ORDER BY created_at DESC\nLIMIT %d;", limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Migration, 0, 16)
	for rows.Next() {
		m, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// UpdateStatus persists a status transition and its progress fraction.
// Transitions are persisted before the stage runs so a crashed worker
// can resume from the recorded stage.
func (r *MigrationRepository) UpdateStatus(ctx context.Context, id, status string, progress float64) error {
	const q = `
UPDATE migrations
SET status = $2, progress = $3, updated_at = NOW(),
    completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN NOW() ELSE completed_at END
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, id, status, progress)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateProgress bumps the progress fraction without changing status.
func (r *MigrationRepository) UpdateProgress(ctx context.Context, id string, progress float64) error {
	const q = `UPDATE migrations SET progress = $2, updated_at = NOW() WHERE id = $1;`
	res, err := r.db.ExecContext(ctx, q, id, progress)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetDocumentID records the extracted document checkpoint.
func (r *MigrationRepository) SetDocumentID(ctx context.Context, id, documentID string) error {
	const q = `UPDATE migrations SET document_id = $2, updated_at = NOW() WHERE id = $1;`
	res, err := r.db.ExecContext(ctx, q, id, documentID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetReportID records the similarity report checkpoint.
func (r *MigrationRepository) SetReportID(ctx context.Context, id, reportID string) error {
	const q = `UPDATE migrations SET report_id = $2, updated_at = NOW() WHERE id = $1;`
	res, err := r.db.ExecContext(ctx, q, id, reportID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetError marks the migration failed with a reason.
func (r *MigrationRepository) SetError(ctx context.Context, id, message string) error {
	const q = `
UPDATE migrations
SET status = $2, error_message = $3, updated_at = NOW(), completed_at = NOW()
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, id, domain.StatusFailed, message)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ClearError resets the failure fields before a retry.
func (r *MigrationRepository) ClearError(ctx context.Context, id string) error {
	const q = `
UPDATE migrations
SET error_message = '', completed_at = NULL, updated_at = NOW()
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *MigrationRepository) scanOne(row *sql.Row) (*domain.Migration, error) {
	var m domain.Migration
	var docID, reportID, errMsg sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&m.ID, &m.ProjectName, &m.SourceURL, &m.SourcePlatform, &m.TargetPlatform,
		&m.Status, &m.Progress, &docID, &reportID, &errMsg, &m.CreatedAt, &m.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	applyNullables(&m, docID, reportID, errMsg, completedAt)
	return &m, nil
}

func (r *MigrationRepository) scanRow(rows *sql.Rows) (*domain.Migration, error) {
	var m domain.Migration
	var docID, reportID, errMsg sql.NullString
	var completedAt sql.NullTime
	err := rows.Scan(&m.ID, &m.ProjectName, &m.SourceURL, &m.SourcePlatform, &m.TargetPlatform,
		&m.Status, &m.Progress, &docID, &reportID, &errMsg, &m.CreatedAt, &m.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	applyNullables(&m, docID, reportID, errMsg, completedAt)
	return &m, nil
}

func applyNullables(m *domain.Migration, docID, reportID, errMsg sql.NullString, completedAt sql.NullTime) {
	m.DocumentID = docID.String
	m.ReportID = reportID.String
	m.ErrorMessage = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		m.CompletedAt = &t
	}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrMigrationNotFound
	}
	return nil
}
