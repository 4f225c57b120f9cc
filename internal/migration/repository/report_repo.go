package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

// ReportRepository stores similarity reports.
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Save persists a report. Reports are insert-only; re-running validation
// adds a new row so earlier runs stay queryable.
func (r *ReportRepository) Save(ctx context.Context, report *domain.SimilarityReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	const q = `
INSERT INTO similarity_reports (id, migration_id, overall_score, meets_target, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err = r.db.ExecContext(ctx, q, report.ID, report.MigrationID, report.OverallScore, report.MeetsTarget, data, report.CreatedAt)
	return err
}

// GetByID loads a report by its ID.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.SimilarityReport, error) {
	const q = `SELECT payload FROM similarity_reports WHERE id = $1;`
	return r.scan(r.db.QueryRowContext(ctx, q, id))
}

// GetByMigrationID loads the latest report for a migration.
func (r *ReportRepository) GetByMigrationID(ctx context.Context, migrationID string) (*domain.SimilarityReport, error) {
	const q = `
SELECT payload FROM similarity_reports
WHERE migration_id = $1
ORDER BY created_at DESC
LIMIT 1;
`
	return r.scan(r.db.QueryRowContext(ctx, q, migrationID))
}

// ListByMigrationID returns every report for a migration, newest first.
func (r *ReportRepository) ListByMigrationID(ctx context.Context, migrationID string) ([]domain.SimilarityReport, error) {
	const q = `
SELECT payload FROM similarity_reports
WHERE migration_id = $1
ORDER BY created_at DESC;
`
	rows, err := r.db.QueryContext(ctx, q, migrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.SimilarityReport
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var report domain.SimilarityReport
		if err := json.Unmarshal(data, &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *ReportRepository) scan(row *sql.Row) (*domain.SimilarityReport, error) {
	var data []byte
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}

	var report domain.SimilarityReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
