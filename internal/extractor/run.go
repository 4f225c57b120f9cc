package extractor

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/siteporter/siteporter-backend/internal/idf"
)

// RunResult is a complete extraction outcome: the document plus the
// page screenshots the later stages need.
type RunResult struct {
	Document    *idf.Document
	Screenshots map[string][]byte // page id -> desktop screenshot
}

// Run performs a full extraction: discovery, bounded-parallel page
// extraction, asset dedupe and document assembly. Per-page failures are
// recorded in the document's extraction metadata and do not abort the
// run; only an unreachable root is fatal.
func Run(ctx context.Context, ex Extractor, docID, rootURL string, limits Limits) (*RunResult, error) {
	started := time.Now().UTC()

	refs, err := ex.DiscoverPages(ctx, rootURL, limits)
	if err != nil {
		return nil, fmt.Errorf("discover pages: %w", err)
	}
	log.Printf("[info] operation=extract_run message=discovered %d pages for %s", len(refs), rootURL)

	type pageOutcome struct {
		ref    PageRef
		result *PageResult
		err    error
	}

	workers := limits.PageWorkers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan PageRef, len(refs))
	results := make(chan pageOutcome, len(refs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				res, err := ex.ExtractPage(ctx, ref)
				results <- pageOutcome{ref: ref, result: res, err: err}
			}
		}()
	}

	for _, ref := range refs {
		jobs <- ref
	}
	close(jobs)
	wg.Wait()
	close(results)

	doc := &idf.Document{
		ID:             docID,
		Version:        idf.SchemaVersion,
		SourcePlatform: ex.Platform(),
		SourceURL:      rootURL,
	}
	screenshots := make(map[string][]byte)

	var outcomes []pageOutcome
	for out := range results {
		outcomes = append(outcomes, out)
	}
	// Workers finish out of order; restore crawl order.
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].ref.Order < outcomes[j].ref.Order
	})

	var pageErrors []idf.PageError
	for _, out := range outcomes {
		if out.err != nil {
			log.Printf("[warn] operation=extract_run message=page failed url=%s error=%v", out.ref.URL, out.err)
			pageErrors = append(pageErrors, idf.PageError{
				PageURL: out.ref.URL,
				Message: out.err.Error(),
			})
			continue
		}

		page := out.result.Page
		page.Order = len(doc.Pages)
		doc.Pages = append(doc.Pages, page)
		screenshots[page.ID] = out.result.Screenshot

		// Asset ids are content-hash derived, so cross-page duplicates
		// collapse by skipping ids already present.
		for _, asset := range out.result.Assets {
			if doc.AssetByID(asset.ID) == nil {
				doc.Assets = append(doc.Assets, asset)
			}
		}
	}

	theme, settings, err := ex.ExtractTheme(ctx, rootURL)
	if err != nil {
		log.Printf("[warn] operation=extract_run message=theme extraction failed error=%v", err)
		pageErrors = append(pageErrors, idf.PageError{PageURL: rootURL, Message: "theme: " + err.Error()})
		theme = idf.Theme{
			Name:   "fallback",
			Colors: idf.ColorPalette{Primary: "#000000", Background: "#ffffff", Text: "#000000"},
		}
		settings = idf.Settings{SiteName: rootURL, SiteURL: rootURL, Language: "en"}
	}
	doc.Theme = theme
	doc.Settings = settings

	doc.ExtractionMetadata = idf.ExtractionMetadata{
		Extractor:          ex.Platform(),
		ExtractorVersion:   wixExtractorVersion,
		StartedAt:          started,
		FinishedAt:         time.Now().UTC(),
		PageCount:          len(doc.Pages),
		AssetCount:         len(doc.Assets),
		Errors:             pageErrors,
		DegradedConfidence: len(pageErrors) > 0,
	}

	log.Printf("[info] operation=extract_run message=extracted %d pages, %d assets, %d errors",
		len(doc.Pages), len(doc.Assets), len(pageErrors))

	return &RunResult{Document: doc, Screenshots: screenshots}, nil
}
