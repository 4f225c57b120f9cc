package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteporter/siteporter-backend/internal/analyzer"
	"github.com/siteporter/siteporter-backend/internal/converter"
	"github.com/siteporter/siteporter-backend/internal/extractor"
	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
	"github.com/siteporter/siteporter-backend/internal/queue"
	"github.com/siteporter/siteporter-backend/internal/render"
	"github.com/siteporter/siteporter-backend/internal/similarity"
	"github.com/siteporter/siteporter-backend/internal/storage/objectstore"
)

type fakeMigrations struct {
	m        *domain.Migration
	statuses []string
	onStatus func(status string)
}

func (f *fakeMigrations) Create(ctx context.Context, req domain.CreateMigrationRequest) (*domain.Migration, error) {
	return nil, errors.New("not used")
}

func (f *fakeMigrations) GetByID(ctx context.Context, id string) (*domain.Migration, error) {
	cp := *f.m
	return &cp, nil
}

func (f *fakeMigrations) List(ctx context.Context, status string, limit int) ([]domain.Migration, error) {
	if status == "" || f.m.Status == status {
		return []domain.Migration{*f.m}, nil
	}
	return nil, nil
}

func (f *fakeMigrations) UpdateStatus(ctx context.Context, id, status string, progress float64) error {
	f.m.Status = status
	f.m.Progress = progress
	f.statuses = append(f.statuses, status)
	if f.onStatus != nil {
		f.onStatus(status)
	}
	return nil
}

func (f *fakeMigrations) UpdateProgress(ctx context.Context, id string, progress float64) error {
	f.m.Progress = progress
	return nil
}

func (f *fakeMigrations) SetDocumentID(ctx context.Context, id, documentID string) error {
	f.m.DocumentID = documentID
	return nil
}

func (f *fakeMigrations) SetReportID(ctx context.Context, id, reportID string) error {
	f.m.ReportID = reportID
	return nil
}

func (f *fakeMigrations) SetError(ctx context.Context, id, message string) error {
	f.m.Status = domain.StatusFailed
	f.m.ErrorMessage = message
	f.statuses = append(f.statuses, domain.StatusFailed)
	return nil
}

func (f *fakeMigrations) ClearError(ctx context.Context, id string) error {
	f.m.ErrorMessage = ""
	return nil
}

type fakeDocuments struct {
	docs      map[string]*idf.Document
	converted map[string]*converter.TargetDocument
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{
		docs:      map[string]*idf.Document{},
		converted: map[string]*converter.TargetDocument{},
	}
}

func (f *fakeDocuments) SaveDocument(ctx context.Context, migrationID string, doc *idf.Document) error {
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocuments) GetDocument(ctx context.Context, id string) (*idf.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeDocuments) SaveConverted(ctx context.Context, documentID string, target *converter.TargetDocument) error {
	f.converted[documentID] = target
	return nil
}

func (f *fakeDocuments) GetConverted(ctx context.Context, documentID string) (*converter.TargetDocument, error) {
	target, ok := f.converted[documentID]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return target, nil
}

type fakeReports struct {
	saved []*domain.SimilarityReport
}

func (f *fakeReports) Save(ctx context.Context, report *domain.SimilarityReport) error {
	f.saved = append(f.saved, report)
	return nil
}

func (f *fakeReports) GetByMigrationID(ctx context.Context, migrationID string) (*domain.SimilarityReport, error) {
	if len(f.saved) == 0 {
		return nil, domain.ErrReportNotFound
	}
	return f.saved[len(f.saved)-1], nil
}

type fakeJobs struct {
	enqueued  []queue.Job
	cancelled map[string]bool
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{cancelled: map[string]bool{}}
}

func (f *fakeJobs) Enqueue(ctx context.Context, job queue.Job) error {
	f.enqueued = append(f.enqueued, job)
	return nil
}

func (f *fakeJobs) RequestCancel(ctx context.Context, migrationID string) error {
	f.cancelled[migrationID] = true
	return nil
}

func (f *fakeJobs) CancelRequested(ctx context.Context, migrationID string) (bool, error) {
	return f.cancelled[migrationID], nil
}

func (f *fakeJobs) ClearCancel(ctx context.Context, migrationID string) error {
	delete(f.cancelled, migrationID)
	return nil
}

// stubRenderer serves one canned result for any URL, or fails everything.
type stubRenderer struct {
	result  *render.Result
	failAll bool
}

func (s *stubRenderer) RenderPage(ctx context.Context, url string, vp render.Viewport) (*render.Result, error) {
	if s.failAll {
		return nil, errors.New("connection refused")
	}
	out := *s.result
	out.URL = url
	out.Viewport = vp
	return &out, nil
}

func (s *stubRenderer) Close() error { return nil }

// downAnalyzer simulates a layout service that never answers.
type downAnalyzer struct{}

func (downAnalyzer) AnalyzeLayout(ctx context.Context, screenshot []byte, domSummary string) (*analyzer.Analysis, error) {
	return nil, fmt.Errorf("%w: analyzer down", domain.ErrAnalysisUnavailable)
}

func (downAnalyzer) CompareScreenshots(ctx context.Context, source, target []byte) (*analyzer.Comparison, error) {
	return nil, fmt.Errorf("%w: analyzer down", domain.ErrAnalysisUnavailable)
}

func testOrchestrator(migrations *fakeMigrations, documents *fakeDocuments, jobs *fakeJobs, renderer render.Renderer) (*Orchestrator, *fakeReports) {
	reports := &fakeReports{}
	o := NewOrchestrator(
		migrations, documents, reports, jobs,
		renderer, objectstore.NewMemoryStore(), downAnalyzer{},
		similarity.NewChecker(nil),
		extractor.Limits{MaxPages: 3, MaxDepth: 1, PageWorkers: 1, AssetWorkers: 1},
	)
	return o, reports
}

func pendingMigration() *domain.Migration {
	return &domain.Migration{
		ID:             "mig-1",
		SourceURL:      "https://example.com/",
		SourcePlatform: domain.PlatformWix,
		TargetPlatform: domain.TargetWordPressElementor,
		Status:         domain.StatusPending,
	}
}

func TestRun_RootUnreachableFailsBeforeAnalyzing(t *testing.T) {
	migrations := &fakeMigrations{m: pendingMigration()}
	jobs := newFakeJobs()
	o, _ := testOrchestrator(migrations, newFakeDocuments(), jobs, &stubRenderer{failAll: true})

	require.NoError(t, o.Run(context.Background(), "mig-1"))

	assert.Equal(t, domain.StatusFailed, migrations.m.Status)
	assert.Contains(t, migrations.m.ErrorMessage, "root url unreachable")
	assert.Equal(t, []string{domain.StatusExtracting, domain.StatusFailed}, migrations.statuses)
	assert.NotContains(t, migrations.statuses, domain.StatusAnalyzing)
}

func TestRun_CancelMidConvertingHaltsBeforeValidating(t *testing.T) {
	migrations := &fakeMigrations{m: pendingMigration()}
	jobs := newFakeJobs()
	documents := newFakeDocuments()

	renderer := &stubRenderer{result: &render.Result{
		HTML: "<html></html>",
		Root: &render.DOMNode{
			Tag: "body",
			Children: []*render.DOMNode{
				{Tag: "h1", Content: "Welcome"},
				{Tag: "p", Content: "First paragraph."},
			},
		},
		SEO:        render.SEOSnapshot{Title: "Home"},
		Screenshot: []byte("png-bytes"),
	}}

	// The request lands while the conversion stage is in flight.
	migrations.onStatus = func(status string) {
		if status == domain.StatusConverting {
			jobs.cancelled["mig-1"] = true
		}
	}

	o, reports := testOrchestrator(migrations, documents, jobs, renderer)
	require.NoError(t, o.Run(context.Background(), "mig-1"))

	assert.Equal(t, domain.StatusFailed, migrations.m.Status)
	assert.Contains(t, migrations.m.ErrorMessage, "cancelled")
	assert.Contains(t, migrations.statuses, domain.StatusConverting)
	assert.NotContains(t, migrations.statuses, domain.StatusValidating)
	assert.Len(t, documents.converted, 1, "in-flight conversion finishes before the halt")
	assert.Empty(t, reports.saved)
}

func TestRun_CompletesAndSavesReport(t *testing.T) {
	migrations := &fakeMigrations{m: pendingMigration()}
	documents := newFakeDocuments()
	renderer := &stubRenderer{result: &render.Result{
		HTML: "<html></html>",
		Root: &render.DOMNode{
			Tag: "body",
			Children: []*render.DOMNode{
				{Tag: "h1", Content: "Welcome"},
				{Tag: "p", Content: "First paragraph."},
			},
		},
		SEO:        render.SEOSnapshot{Title: "Home"},
		Screenshot: []byte("not-a-png"),
	}}

	o, reports := testOrchestrator(migrations, documents, newFakeJobs(), renderer)
	require.NoError(t, o.Run(context.Background(), "mig-1"))

	assert.Equal(t, domain.StatusCompleted, migrations.m.Status)
	assert.Equal(t, 1.0, migrations.m.Progress)
	require.Len(t, reports.saved, 1)
	assert.Equal(t, reports.saved[0].ID, migrations.m.ReportID)
	assert.Equal(t, "mig-1", reports.saved[0].MigrationID)
	// Screenshots are not decodable and the analyzer is down, so the
	// pixel metrics drop out while the rest still score.
	assert.Contains(t, reports.saved[0].ExcludedMetrics, "visual")
	assert.Contains(t, reports.saved[0].ExcludedMetrics, "semantic")
	assert.True(t, reports.saved[0].DegradedConfidence)
	assert.Equal(t, []string{
		domain.StatusExtracting,
		domain.StatusAnalyzing,
		domain.StatusConverting,
		domain.StatusValidating,
		domain.StatusCompleted,
	}, migrations.statuses)
}

func TestRun_FatalDocumentIssuesBlockConversion(t *testing.T) {
	migrations := &fakeMigrations{m: pendingMigration()}
	migrations.m.Status = domain.StatusExtracting
	migrations.m.DocumentID = "doc-bad"

	documents := newFakeDocuments()
	documents.docs["doc-bad"] = &idf.Document{
		ID:             "doc-bad",
		Version:        idf.SchemaVersion,
		SourcePlatform: domain.PlatformWix,
		SourceURL:      "https://example.com/",
		Pages: []*idf.Page{{
			ID: "page-1", Slug: "home", IsHomepage: true,
			Elements: []*idf.Element{
				{ID: "el-dup", Type: idf.TypeHeading, Content: "A", Order: 0},
				{ID: "el-dup", Type: idf.TypeParagraph, Content: "B", Order: 1},
			},
		}},
	}

	o, _ := testOrchestrator(migrations, documents, newFakeJobs(), &stubRenderer{failAll: true})
	require.NoError(t, o.Run(context.Background(), "mig-1"))

	assert.Equal(t, domain.StatusFailed, migrations.m.Status)
	assert.Contains(t, migrations.m.ErrorMessage, "document validation failed")
	assert.NotContains(t, migrations.statuses, domain.StatusAnalyzing)
	assert.NotContains(t, migrations.statuses, domain.StatusConverting)
	assert.Empty(t, documents.converted)
}
