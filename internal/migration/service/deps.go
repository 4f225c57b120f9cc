package service

import (
	"context"

	"github.com/siteporter/siteporter-backend/internal/converter"
	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
	"github.com/siteporter/siteporter-backend/internal/queue"
)

// Persistence and queue surfaces the service layer depends on. The
// concrete implementations live in the repository and queue packages.

type MigrationStore interface {
	Create(ctx context.Context, req domain.CreateMigrationRequest) (*domain.Migration, error)
	GetByID(ctx context.Context, id string) (*domain.Migration, error)
	List(ctx context.Context, status string, limit int) ([]domain.Migration, error)
	UpdateStatus(ctx context.Context, id, status string, progress float64) error
	UpdateProgress(ctx context.Context, id string, progress float64) error
	SetDocumentID(ctx context.Context, id, documentID string) error
	SetReportID(ctx context.Context, id, reportID string) error
	SetError(ctx context.Context, id, message string) error
	ClearError(ctx context.Context, id string) error
}

type DocumentStore interface {
	SaveDocument(ctx context.Context, migrationID string, doc *idf.Document) error
	GetDocument(ctx context.Context, id string) (*idf.Document, error)
	SaveConverted(ctx context.Context, documentID string, target *converter.TargetDocument) error
	GetConverted(ctx context.Context, documentID string) (*converter.TargetDocument, error)
}

type ReportStore interface {
	Save(ctx context.Context, report *domain.SimilarityReport) error
	GetByMigrationID(ctx context.Context, migrationID string) (*domain.SimilarityReport, error)
}

type JobQueue interface {
	Enqueue(ctx context.Context, job queue.Job) error
	RequestCancel(ctx context.Context, migrationID string) error
	CancelRequested(ctx context.Context, migrationID string) (bool, error)
	ClearCancel(ctx context.Context, migrationID string) error
}
