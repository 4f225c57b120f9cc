// Package extractor turns a live source site into an IDF document. One
// implementation exists per supported source platform; the capability set
// is shared.
package extractor

import (
	"context"
	"fmt"

	"github.com/siteporter/siteporter-backend/internal/analyzer"
	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
	"github.com/siteporter/siteporter-backend/internal/render"
	"github.com/siteporter/siteporter-backend/internal/storage/objectstore"
)

// PageRef identifies one discovered page before extraction.
type PageRef struct {
	URL        string
	Depth      int
	IsHomepage bool
	Order      int
}

// Limits bounds a crawl.
type Limits struct {
	MaxPages     int
	MaxDepth     int
	PageWorkers  int
	AssetWorkers int
}

// DefaultLimits returns conservative crawl bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxPages:     50,
		MaxDepth:     3,
		PageWorkers:  3,
		AssetWorkers: 8,
	}
}

// PageResult is the outcome of extracting one page. Assets are
// page-local; Run dedupes them into the document set by content hash.
type PageResult struct {
	Page          *idf.Page
	Assets        []idf.Asset
	Screenshot    []byte // desktop render, consumed by analysis and similarity
	ScreenshotURL string // content-addressed storage location of the screenshot
}

// Extractor is the per-platform capability set.
type Extractor interface {
	// Platform returns the source platform tag this extractor handles.
	Platform() string

	// DiscoverPages follows internal links breadth-first from rootURL.
	// Returns domain.ErrRootUnreachable when the root page cannot load.
	DiscoverPages(ctx context.Context, rootURL string, limits Limits) ([]PageRef, error)

	// ExtractPage renders one page at the three breakpoint viewports and
	// builds its element tree with responsive style overlays.
	ExtractPage(ctx context.Context, ref PageRef) (*PageResult, error)

	// ExtractTheme samples the site-wide palette, fonts and settings.
	ExtractTheme(ctx context.Context, rootURL string) (idf.Theme, idf.Settings, error)
}

// Deps carries the collaborators an extractor needs.
type Deps struct {
	Renderer render.Renderer
	Store    objectstore.Store
	Analyzer analyzer.Client
}

// ForPlatform returns the extractor for the given source platform.
// Supported platforms are a closed set; adding one means adding a new
// variant here, not a string branch elsewhere.
func ForPlatform(platform string, deps Deps) (Extractor, error) {
	switch platform {
	case domain.PlatformWix:
		return NewWixExtractor(deps), nil
	case domain.PlatformSquarespace, domain.PlatformWebflow, domain.PlatformWordPress:
		return nil, fmt.Errorf("%w: extractor for %q is not implemented", domain.ErrUnsupportedPlatform, platform)
	default:
		return nil, fmt.Errorf("%w: unknown source platform %q", domain.ErrUnsupportedPlatform, platform)
	}
}
