// Package converter maps a frozen IDF document onto a target platform's
// native widget tree and theme. Conversion is deterministic: the same
// document version always produces byte-identical output.
package converter

import (
	"fmt"

	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

// Widget is one node of the target widget tree.
type Widget struct {
	ID         string         `json:"id"`
	ElType     string         `json:"elType"` // section, column, widget
	WidgetType string         `json:"widgetType,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`
	Elements   []*Widget      `json:"elements,omitempty"`
}

// TargetPage is one converted page.
type TargetPage struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Path       string    `json:"path"`
	IsHomepage bool      `json:"is_homepage"`
	Status     string    `json:"status"`
	Widgets    []*Widget `json:"widgets"`
	SEO        idf.SEOData `json:"seo"`
}

// ThemeConfig is the target's global style configuration.
type ThemeConfig struct {
	Colors        map[string]string `json:"colors"`
	Fonts         []FontConfig      `json:"fonts"`
	GlobalColors  map[string]string `json:"global_colors"`
	PrimaryFont   string            `json:"primary_font"`
	SecondaryFont string            `json:"secondary_font"`
}

// FontConfig is one converted font entry.
type FontConfig struct {
	Family   string   `json:"family"`
	Variants []string `json:"variants,omitempty"`
}

// MediaItem is one asset entry for the target media library.
type MediaItem struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	AltText  string `json:"alt_text,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Missing  bool   `json:"missing,omitempty"`
}

// Fallback records one element that could not be mapped and was carried
// as raw markup instead of being dropped.
type Fallback struct {
	ElementID string          `json:"element_id"`
	Type      idf.ElementType `json:"type"`
	Reason    string          `json:"reason"`
}

// Report summarizes how the conversion went.
type Report struct {
	PageCount     int        `json:"page_count"`
	WidgetCount   int        `json:"widget_count"`
	Fallbacks     []Fallback `json:"fallbacks,omitempty"`
	Synthesized   int        `json:"synthesized_containers"`
	Collapsed     int        `json:"collapsed_containers"`
}

// TargetDocument is the full conversion result.
type TargetDocument struct {
	Platform   string       `json:"platform"`
	SourceDoc  string       `json:"source_document_id"`
	Pages      []TargetPage `json:"pages"`
	Theme      ThemeConfig  `json:"theme"`
	MediaItems []MediaItem  `json:"media_items"`
	ExportXML  string       `json:"export_xml,omitempty"`
	Report     Report       `json:"report"`
}

// Convert maps doc onto the named target platform. Target platforms are
// a closed set, same as source platforms on the extraction side.
func Convert(doc *idf.Document, targetPlatform string) (*TargetDocument, error) {
	switch targetPlatform {
	case domain.TargetWordPressElementor:
		return newElementorConverter(doc).convert()
	case domain.PlatformWordPress, domain.PlatformSquarespace:
		return nil, fmt.Errorf("%w: converter for %q is not implemented", domain.ErrUnsupportedPlatform, targetPlatform)
	default:
		return nil, fmt.Errorf("%w: unknown target platform %q", domain.ErrUnsupportedPlatform, targetPlatform)
	}
}
