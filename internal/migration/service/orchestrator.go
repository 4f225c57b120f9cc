package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/siteporter/siteporter-backend/internal/analyzer"
	"github.com/siteporter/siteporter-backend/internal/converter"
	"github.com/siteporter/siteporter-backend/internal/extractor"
	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
	"github.com/siteporter/siteporter-backend/internal/render"
	"github.com/siteporter/siteporter-backend/internal/similarity"
	"github.com/siteporter/siteporter-backend/internal/storage/objectstore"
)

// Progress fractions per stage. Status and progress are persisted
// before each stage runs, so a crashed worker resumes at the recorded
// stage instead of starting over.
const (
	progressExtracting = 0.1
	progressExtracted  = 0.4
	progressAnalyzing  = 0.5
	progressConverting = 0.7
	progressConverted  = 0.9
	progressValidating = 0.95
	progressCompleted  = 1.0
)

// Orchestrator drives one migration through the pipeline stages:
// extracting, analyzing, converting, validating. It runs inside the
// worker process.
type Orchestrator struct {
	migrations MigrationStore
	documents  DocumentStore
	reports    ReportStore
	jobs       JobQueue
	renderer   render.Renderer
	store      objectstore.Store
	analyzer   analyzer.Client
	checker    *similarity.Checker
	limits     extractor.Limits
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	migrations MigrationStore,
	documents DocumentStore,
	reports ReportStore,
	jobs JobQueue,
	renderer render.Renderer,
	store objectstore.Store,
	analyzerClient analyzer.Client,
	checker *similarity.Checker,
	limits extractor.Limits,
) *Orchestrator {
	return &Orchestrator{
		migrations: migrations,
		documents:  documents,
		reports:    reports,
		jobs:       jobs,
		renderer:   renderer,
		store:      store,
		analyzer:   analyzerClient,
		checker:    checker,
		limits:     limits,
	}
}

// Run executes the pipeline for one migration. Stages already completed
// in a previous run (recorded as checkpoints) are skipped. Returns nil
// for both success and recorded failure; a non-nil error means the
// outcome could not even be persisted.
func (o *Orchestrator) Run(ctx context.Context, migrationID string) error {
	logger := ForMigration(migrationID)

	m, err := o.migrations.GetByID(ctx, migrationID)
	if err != nil {
		return err
	}
	if m.IsTerminal() {
		logger.LogWarnf("run", "skipping, migration is already %s", m.Status)
		return nil
	}

	resumed := m.Status != domain.StatusPending || m.DocumentID != ""
	recordRunStarted(resumed)
	if resumed {
		logger.LogInfof("run", "resuming from status=%s", m.Status)
	}

	var doc *idf.Document
	shots := map[string][]byte{}

	// Extracting. Skipped when a document checkpoint already exists.
	if m.DocumentID == "" {
		if err := o.checkCancel(ctx, m.ID); err != nil {
			return o.fail(ctx, m.ID, err)
		}
		doc, shots, err = o.runExtract(ctx, m, logger)
		if err != nil {
			return o.fail(ctx, m.ID, err)
		}
	} else {
		doc, err = o.documents.GetDocument(ctx, m.DocumentID)
		if err != nil {
			return o.fail(ctx, m.ID, fmt.Errorf("load document checkpoint: %w", err))
		}
		shots = o.loadScreenshots(ctx, doc, logger)
	}

	// Structural validation gates conversion. Fatal issues fail the
	// migration here; warnings are logged and carried in the metadata.
	if err := validateDocument(doc, logger); err != nil {
		return o.fail(ctx, m.ID, err)
	}

	// Analyzing. Enriches the document; analyzer failure degrades
	// confidence rather than failing the migration.
	if !stageDone(m.Status, domain.StatusAnalyzing) {
		if err := o.checkCancel(ctx, m.ID); err != nil {
			return o.fail(ctx, m.ID, err)
		}
		if err := o.runAnalyze(ctx, m.ID, doc, shots, logger); err != nil {
			return o.fail(ctx, m.ID, err)
		}
	}

	// Converting.
	var target *converter.TargetDocument
	if !stageDone(m.Status, domain.StatusConverting) {
		if err := o.checkCancel(ctx, m.ID); err != nil {
			return o.fail(ctx, m.ID, err)
		}
		target, err = o.runConvert(ctx, m, doc, logger)
		if err != nil {
			return o.fail(ctx, m.ID, err)
		}
	} else {
		target, err = o.documents.GetConverted(ctx, doc.ID)
		if err != nil {
			return o.fail(ctx, m.ID, fmt.Errorf("load conversion checkpoint: %w", err))
		}
	}

	// Validating. A score below target still completes the migration;
	// the report records that the target was missed.
	if err := o.checkCancel(ctx, m.ID); err != nil {
		return o.fail(ctx, m.ID, err)
	}
	if err := o.runValidate(ctx, m.ID, doc, target, shots, logger); err != nil {
		return o.fail(ctx, m.ID, err)
	}

	if err := o.migrations.UpdateStatus(ctx, m.ID, domain.StatusCompleted, progressCompleted); err != nil {
		return err
	}
	_ = o.jobs.ClearCancel(ctx, m.ID)
	recordRunCompleted()
	logger.LogInfo("run", "migration completed")
	return nil
}

func (o *Orchestrator) runExtract(ctx context.Context, m *domain.Migration, logger *Logger) (*idf.Document, map[string][]byte, error) {
	started := time.Now()
	if err := o.migrations.UpdateStatus(ctx, m.ID, domain.StatusExtracting, progressExtracting); err != nil {
		return nil, nil, err
	}

	ex, err := extractor.ForPlatform(m.SourcePlatform, extractor.Deps{
		Renderer: o.renderer,
		Store:    o.store,
		Analyzer: o.analyzer,
	})
	if err != nil {
		return nil, nil, err
	}

	docID := "doc-" + uuid.New().String()
	result, err := extractor.Run(ctx, ex, docID, m.SourceURL, o.limits)
	if err != nil {
		return nil, nil, err
	}

	if err := o.documents.SaveDocument(ctx, m.ID, result.Document); err != nil {
		return nil, nil, fmt.Errorf("save document: %w", err)
	}
	if err := o.migrations.SetDocumentID(ctx, m.ID, result.Document.ID); err != nil {
		return nil, nil, err
	}
	if err := o.migrations.UpdateProgress(ctx, m.ID, progressExtracted); err != nil {
		return nil, nil, err
	}

	recordStage(time.Since(started))
	logger.LogInfof("extract", "pages=%d assets=%d errors=%d",
		len(result.Document.Pages), len(result.Document.Assets), len(result.Document.ExtractionMetadata.Errors))
	return result.Document, result.Screenshots, nil
}

func (o *Orchestrator) runAnalyze(ctx context.Context, migrationID string, doc *idf.Document, shots map[string][]byte, logger *Logger) error {
	started := time.Now()
	if err := o.migrations.UpdateStatus(ctx, migrationID, domain.StatusAnalyzing, progressAnalyzing); err != nil {
		return err
	}

	analyzed := 0
	for _, page := range doc.Pages {
		shot, ok := shots[page.ID]
		if !ok {
			continue
		}
		analysis, err := o.analyzer.AnalyzeLayout(ctx, shot, domSummary(page))
		if err != nil {
			if errors.Is(err, domain.ErrAnalysisUnavailable) {
				logger.LogWarnf("analyze", "page=%s analyzer unavailable, continuing degraded: %v", page.Slug, err)
				doc.ExtractionMetadata.DegradedConfidence = true
				continue
			}
			return err
		}
		applyAnalysis(page, analysis)
		analyzed++
	}

	if err := o.documents.SaveDocument(ctx, migrationID, doc); err != nil {
		return fmt.Errorf("save analyzed document: %w", err)
	}

	recordStage(time.Since(started))
	logger.LogInfof("analyze", "pages_analyzed=%d degraded=%t", analyzed, doc.ExtractionMetadata.DegradedConfidence)
	return nil
}

func (o *Orchestrator) runConvert(ctx context.Context, m *domain.Migration, doc *idf.Document, logger *Logger) (*converter.TargetDocument, error) {
	started := time.Now()
	if err := o.migrations.UpdateStatus(ctx, m.ID, domain.StatusConverting, progressConverting); err != nil {
		return nil, err
	}

	target, err := converter.Convert(doc, m.TargetPlatform)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConversionFailed, err)
	}

	if err := o.documents.SaveConverted(ctx, doc.ID, target); err != nil {
		return nil, fmt.Errorf("save converted document: %w", err)
	}
	if err := o.migrations.UpdateProgress(ctx, m.ID, progressConverted); err != nil {
		return nil, err
	}

	recordStage(time.Since(started))
	logger.LogInfof("convert", "pages=%d widgets=%d fallbacks=%d",
		target.Report.PageCount, target.Report.WidgetCount, len(target.Report.Fallbacks))
	return target, nil
}

func (o *Orchestrator) runValidate(ctx context.Context, migrationID string, doc *idf.Document, target *converter.TargetDocument, sourceShots map[string][]byte, logger *Logger) error {
	started := time.Now()
	if err := o.migrations.UpdateStatus(ctx, migrationID, domain.StatusValidating, progressValidating); err != nil {
		return err
	}

	targetShots := o.renderTargetShots(ctx, doc, target, logger)

	report, err := o.checker.Check(ctx, migrationID, similarity.Input{
		Source:      doc,
		Target:      target,
		SourceShots: sourceShots,
		TargetShots: targetShots,
	})
	if err != nil {
		return fmt.Errorf("similarity check: %w", err)
	}

	if err := o.reports.Save(ctx, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	if err := o.migrations.SetReportID(ctx, migrationID, report.ID); err != nil {
		return err
	}

	recordStage(time.Since(started))
	logger.LogInfof("validate", "overall=%.3f meets_target=%t excluded=%v",
		report.OverallScore, report.MeetsTarget, report.ExcludedMetrics)
	return nil
}

// renderTargetShots renders each converted page's preview markup through
// the same renderer as the source site. Failures leave pages out of the
// map, which degrades the screenshot metrics instead of failing the run.
func (o *Orchestrator) renderTargetShots(ctx context.Context, doc *idf.Document, target *converter.TargetDocument, logger *Logger) map[string][]byte {
	pageBySlug := map[string]*idf.Page{}
	for _, p := range doc.Pages {
		pageBySlug[p.Slug] = p
	}

	shots := map[string][]byte{}
	for _, tp := range target.Pages {
		src, ok := pageBySlug[tp.Slug]
		if !ok {
			continue
		}
		html := converter.PreviewHTML(tp, target.Theme)
		url := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))
		res, err := o.renderer.RenderPage(ctx, url, render.ViewportDesktop)
		if err != nil {
			logger.LogWarnf("validate", "page=%s preview render failed: %v", tp.Slug, err)
			continue
		}
		shots[src.ID] = res.Screenshot
	}
	return shots
}

// loadScreenshots re-fetches page screenshots from the object store
// after a resume; the in-memory copies died with the previous worker.
func (o *Orchestrator) loadScreenshots(ctx context.Context, doc *idf.Document, logger *Logger) map[string][]byte {
	shots := map[string][]byte{}
	for _, page := range doc.Pages {
		url, _ := page.PlatformData["screenshot_url"].(string)
		if url == "" {
			continue
		}
		data, err := o.store.Get(ctx, url)
		if err != nil {
			logger.LogWarnf("run", "page=%s screenshot not recovered: %v", page.Slug, err)
			continue
		}
		shots[page.ID] = data
	}
	return shots
}

// validateDocument runs the structural validator over the extracted
// document. Warnings only get logged; any fatal issue means the
// document must not be converted.
func validateDocument(doc *idf.Document, logger *Logger) error {
	issues := idf.Validate(doc)
	var fatal []string
	for _, is := range issues {
		if is.Severity == idf.SeverityFatal {
			fatal = append(fatal, fmt.Sprintf("%s: %s", is.Code, is.Message))
			continue
		}
		logger.LogWarnf("validate_document", "%s page=%s %s", is.Code, is.PageID, is.Message)
	}
	if len(fatal) > 0 {
		return fmt.Errorf("document validation failed: %s", strings.Join(fatal, "; "))
	}
	return nil
}

// checkCancel enforces cooperative cancellation at stage boundaries.
func (o *Orchestrator) checkCancel(ctx context.Context, migrationID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	cancelled, err := o.jobs.CancelRequested(ctx, migrationID)
	if err != nil {
		return err
	}
	if cancelled {
		return domain.ErrCancelled
	}
	return nil
}

// fail records the failure on the migration. The checkpoints already
// persisted stay, so a retry resumes rather than restarting.
func (o *Orchestrator) fail(ctx context.Context, migrationID string, cause error) error {
	cancelled := errors.Is(cause, domain.ErrCancelled)
	recordRunFailed(cancelled)
	ForMigration(migrationID).LogError("run", cause)

	if err := o.migrations.SetError(ctx, migrationID, cause.Error()); err != nil {
		return fmt.Errorf("record failure (%v): %w", cause, err)
	}
	_ = o.jobs.ClearCancel(ctx, migrationID)
	return nil
}

// stageDone reports whether the persisted status says the named stage
// already ran to completion in a previous attempt. Statuses are ordered;
// being at or past the stage after `stage` means `stage` finished.
func stageDone(current, stage string) bool {
	order := []string{
		domain.StatusPending,
		domain.StatusExtracting,
		domain.StatusAnalyzing,
		domain.StatusConverting,
		domain.StatusValidating,
	}
	rank := func(s string) int {
		for i, v := range order {
			if v == s {
				return i
			}
		}
		return -1
	}
	return rank(current) > rank(stage)
}

// domSummary flattens a page into the compact text description the
// analyzer prompt expects.
func domSummary(page *idf.Page) string {
	var b strings.Builder
	counts := map[idf.ElementType]int{}
	page.WalkElements(func(el *idf.Element) bool {
		counts[el.Type]++
		return true
	})
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)
	fmt.Fprintf(&b, "page=%s elements=%d", page.Slug, page.ElementCount())
	for _, t := range types {
		fmt.Fprintf(&b, " %s=%d", t, counts[idf.ElementType(t)])
	}
	return b.String()
}

// applyAnalysis folds the analyzer's classifications back into the
// document where they are more confident than the heuristic ones.
func applyAnalysis(page *idf.Page, analysis *analyzer.Analysis) {
	byID := map[string]analyzer.ElementClassification{}
	for _, c := range analysis.ElementClassifications {
		if c.Confidence >= 0.8 {
			byID[c.ElementID] = c
		}
	}
	if len(byID) > 0 {
		page.WalkElements(func(el *idf.Element) bool {
			if c, ok := byID[el.ID]; ok {
				if t, ok := classificationType(c.Kind); ok {
					el.Type = t
				}
			}
			return true
		})
	}
	if page.PlatformData == nil {
		page.PlatformData = map[string]any{}
	}
	page.PlatformData["layout_analysis"] = analysis
}

func classificationType(kind string) (idf.ElementType, bool) {
	switch kind {
	case "hero":
		return idf.TypeHero, true
	case "card":
		return idf.TypeCard, true
	case "gallery":
		return idf.TypeGallery, true
	case "slider", "carousel":
		return idf.TypeSlider, true
	case "form":
		return idf.TypeForm, true
	case "navigation", "menu":
		return idf.TypeNavigation, true
	case "footer":
		return idf.TypeFooter, true
	case "header":
		return idf.TypeHeader, true
	}
	return "", false
}
