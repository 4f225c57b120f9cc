package service

import (
	"context"
	"fmt"

	"github.com/siteporter/siteporter-backend/internal/converter"
	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
	"github.com/siteporter/siteporter-backend/internal/queue"
)

// MigrationService is the API-facing surface: it creates and inspects
// migrations and hands the heavy lifting to the worker through the
// queue.
type MigrationService struct {
	migrations MigrationStore
	documents  DocumentStore
	reports    ReportStore
	jobs       JobQueue
}

// NewMigrationService creates a new migration service
func NewMigrationService(
	migrations MigrationStore,
	documents DocumentStore,
	reports ReportStore,
	jobs JobQueue,
) *MigrationService {
	return &MigrationService{
		migrations: migrations,
		documents:  documents,
		reports:    reports,
		jobs:       jobs,
	}
}

// Create validates the request, persists a pending migration and
// enqueues it for the worker pool.
func (s *MigrationService) Create(ctx context.Context, req domain.CreateMigrationRequest) (*domain.Migration, error) {
	if !domain.IsSupportedSource(req.SourcePlatform) {
		return nil, fmt.Errorf("%w: source platform %q", domain.ErrUnsupportedPlatform, req.SourcePlatform)
	}
	if !domain.IsSupportedTarget(req.TargetPlatform) {
		return nil, fmt.Errorf("%w: target platform %q", domain.ErrUnsupportedPlatform, req.TargetPlatform)
	}

	m, err := s.migrations.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.jobs.Enqueue(ctx, queue.Job{MigrationID: m.ID}); err != nil {
		// The migration row stays pending; a requeue sweep or retry can
		// pick it up.
		ForMigration(m.ID).LogError("enqueue", err)
		return nil, fmt.Errorf("failed to enqueue migration: %w", err)
	}

	ForMigration(m.ID).LogInfof("create", "source=%s target=%s url=%s",
		m.SourcePlatform, m.TargetPlatform, m.SourceURL)
	return m, nil
}

// Get returns one migration.
func (s *MigrationService) Get(ctx context.Context, id string) (*domain.Migration, error) {
	return s.migrations.GetByID(ctx, id)
}

// List returns migrations, optionally filtered by status.
func (s *MigrationService) List(ctx context.Context, status string, limit int) ([]domain.Migration, error) {
	if status != "" && !domain.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	return s.migrations.List(ctx, status, limit)
}

// Cancel requests cooperative cancellation. A pending migration that has
// not been picked up is failed immediately; a running one stops at the
// next stage boundary.
func (s *MigrationService) Cancel(ctx context.Context, id string) (*domain.Migration, error) {
	m, err := s.migrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsTerminal() {
		return nil, fmt.Errorf("%w: migration is already %s", domain.ErrInvalidStatus, m.Status)
	}

	if err := s.jobs.RequestCancel(ctx, id); err != nil {
		return nil, err
	}
	if m.Status == domain.StatusPending {
		if err := s.migrations.SetError(ctx, id, "cancelled before start"); err != nil {
			return nil, err
		}
	}

	ForMigration(id).LogInfo("cancel", "cancellation requested")
	return s.migrations.GetByID(ctx, id)
}

// Retry re-enqueues a failed migration. Checkpoints from the failed run
// are kept, so the worker resumes from the last completed stage.
func (s *MigrationService) Retry(ctx context.Context, id string) (*domain.Migration, error) {
	m, err := s.migrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.StatusFailed {
		return nil, fmt.Errorf("%w: only failed migrations can be retried, got %s", domain.ErrInvalidStatus, m.Status)
	}

	if err := s.jobs.ClearCancel(ctx, id); err != nil {
		return nil, err
	}
	if err := s.migrations.ClearError(ctx, id); err != nil {
		return nil, err
	}
	if err := s.migrations.UpdateStatus(ctx, id, domain.StatusPending, 0); err != nil {
		return nil, err
	}
	if err := s.jobs.Enqueue(ctx, queue.Job{MigrationID: id, Resume: true}); err != nil {
		return nil, fmt.Errorf("failed to enqueue retry: %w", err)
	}

	ForMigration(id).LogInfo("retry", "re-enqueued")
	return s.migrations.GetByID(ctx, id)
}

// GetDocument returns the extracted document for a migration.
func (s *MigrationService) GetDocument(ctx context.Context, migrationID string) (*idf.Document, error) {
	m, err := s.migrations.GetByID(ctx, migrationID)
	if err != nil {
		return nil, err
	}
	if m.DocumentID == "" {
		return nil, domain.ErrDocumentNotFound
	}
	return s.documents.GetDocument(ctx, m.DocumentID)
}

// GetConverted returns the conversion result for a migration.
func (s *MigrationService) GetConverted(ctx context.Context, migrationID string) (*converter.TargetDocument, error) {
	m, err := s.migrations.GetByID(ctx, migrationID)
	if err != nil {
		return nil, err
	}
	if m.DocumentID == "" {
		return nil, domain.ErrDocumentNotFound
	}
	return s.documents.GetConverted(ctx, m.DocumentID)
}

// GetReport returns the similarity report for a migration.
func (s *MigrationService) GetReport(ctx context.Context, migrationID string) (*domain.SimilarityReport, error) {
	if _, err := s.migrations.GetByID(ctx, migrationID); err != nil {
		return nil, err
	}
	return s.reports.GetByMigrationID(ctx, migrationID)
}
