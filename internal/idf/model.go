// Package idf defines the Intermediate Document Format: the
// platform-agnostic representation of an extracted website that sits
// between extraction and conversion.
package idf

import "time"

// SchemaVersion is the current IDF schema version. Documents carrying an
// unsupported version fail validation.
const SchemaVersion = "1.0.0"

// ElementType enumerates the closed set of semantic element kinds.
type ElementType string

const (
	// Layout
	TypeContainer ElementType = "container"
	TypeSection   ElementType = "section"
	TypeRow       ElementType = "row"
	TypeColumn    ElementType = "column"

	// Navigation
	TypeHeader     ElementType = "header"
	TypeFooter     ElementType = "footer"
	TypeNavigation ElementType = "navigation"
	TypeMenu       ElementType = "menu"
	TypeMenuItem   ElementType = "menu_item"

	// Content
	TypeText      ElementType = "text"
	TypeHeading   ElementType = "heading"
	TypeParagraph ElementType = "paragraph"
	TypeList      ElementType = "list"
	TypeListItem  ElementType = "list_item"

	// Media
	TypeImage   ElementType = "image"
	TypeVideo   ElementType = "video"
	TypeAudio   ElementType = "audio"
	TypeGallery ElementType = "gallery"
	TypeSlider  ElementType = "slider"

	// Interactive
	TypeButton   ElementType = "button"
	TypeLink     ElementType = "link"
	TypeForm     ElementType = "form"
	TypeInput    ElementType = "input"
	TypeTextarea ElementType = "textarea"
	TypeSelect   ElementType = "select"
	TypeCheckbox ElementType = "checkbox"
	TypeRadio    ElementType = "radio"

	// Composite
	TypeHero      ElementType = "hero"
	TypeCard      ElementType = "card"
	TypeAccordion ElementType = "accordion"
	TypeTab       ElementType = "tab"
	TypeModal     ElementType = "modal"
	TypeIcon      ElementType = "icon"
	TypeSpacer    ElementType = "spacer"
	TypeDivider   ElementType = "divider"

	// Embedded
	TypeIframe ElementType = "iframe"
	TypeEmbed  ElementType = "embed"
	TypeHTML   ElementType = "html"
	TypeScript ElementType = "script"
)

// ResponsiveStyles holds the computed style overlays captured at the three
// breakpoint renders. Desktop is the base; tablet and mobile only carry
// properties that differ from it.
type ResponsiveStyles struct {
	Desktop map[string]string `json:"desktop,omitempty"`
	Tablet  map[string]string `json:"tablet,omitempty"`
	Mobile  map[string]string `json:"mobile,omitempty"`
}

// Animation describes a CSS animation attached to an element.
type Animation struct {
	Name           string  `json:"name"`
	Duration       float64 `json:"duration"`
	Delay          float64 `json:"delay"`
	TimingFunction string  `json:"timing_function"`
	IterationCount string  `json:"iteration_count"`
	Direction      string  `json:"direction"`
}

// Interaction describes a user interaction wired to an element.
type Interaction struct {
	Event      string            `json:"event"`  // click, hover, scroll
	Action     string            `json:"action"` // navigate, toggle, animate
	Target     string            `json:"target,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Element is one node of a page's content tree. Parent owns children; the
// tree has no cycles. AssetIDs are weak references into the document's
// asset set. Order is the dense index among siblings and defines paint
// order. IDs are unique within a document so they serve as stable join
// keys during similarity comparison.
type Element struct {
	ID      string      `json:"id"`
	Type    ElementType `json:"type"`
	Tag     string      `json:"tag,omitempty"`
	Content string      `json:"content,omitempty"`
	HTML    string      `json:"html,omitempty"`

	Classes          []string          `json:"classes,omitempty"`
	Styles           map[string]string `json:"styles,omitempty"`
	ResponsiveStyles *ResponsiveStyles `json:"responsive_styles,omitempty"`

	Children []*Element `json:"children,omitempty"`
	ParentID string     `json:"parent_id,omitempty"`
	Order    int        `json:"order"`

	Attributes map[string]string `json:"attributes,omitempty"`
	AssetIDs   []string          `json:"assets,omitempty"`

	Animations   []Animation   `json:"animations,omitempty"`
	Interactions []Interaction `json:"interactions,omitempty"`

	// Source-specific fields the converter may use opportunistically.
	PlatformData map[string]any `json:"platform_data,omitempty"`
}

// Asset is a deduplicated media reference. Created during extraction when
// a unique byte stream is first seen; never mutated afterwards.
type Asset struct {
	ID          string `json:"id"`
	Type        string `json:"type"` // image, video, font, script
	OriginalURL string `json:"original_url"`
	StorageURL  string `json:"storage_url,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Size        int64  `json:"size,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	AltText     string `json:"alt_text,omitempty"`
	Missing     bool   `json:"missing,omitempty"` // download failed, placeholder kept
}

// SEOData carries page head metadata.
type SEOData struct {
	Title          string           `json:"title,omitempty"`
	Description    string           `json:"description,omitempty"`
	Keywords       []string         `json:"keywords,omitempty"`
	CanonicalURL   string           `json:"canonical_url,omitempty"`
	OGTitle        string           `json:"og_title,omitempty"`
	OGDescription  string           `json:"og_description,omitempty"`
	OGImage        string           `json:"og_image,omitempty"`
	OGType         string           `json:"og_type,omitempty"`
	TwitterCard    string           `json:"twitter_card,omitempty"`
	StructuredData []map[string]any `json:"structured_data,omitempty"`
	Robots         string           `json:"robots,omitempty"`
}

// Page is one page of the site with its ordered root elements.
type Page struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Path         string    `json:"path"`
	Elements     []*Element `json:"elements"`
	SEO          SEOData   `json:"seo"`
	IsHomepage   bool      `json:"is_homepage"`
	ParentPageID string    `json:"parent_page_id,omitempty"`
	Order        int       `json:"order"`
	Published    bool      `json:"published"`

	PlatformData map[string]any `json:"platform_data,omitempty"`
}

// Font describes one font family used by the site.
type Font struct {
	ID       string   `json:"id"`
	Family   string   `json:"family"`
	Variants []string `json:"variants,omitempty"`
	Source   string   `json:"source"` // google, custom, system
	URL      string   `json:"url,omitempty"`
}

// ColorPalette holds the named site colors.
type ColorPalette struct {
	Primary      string            `json:"primary"`
	Secondary    string            `json:"secondary,omitempty"`
	Accent       string            `json:"accent,omitempty"`
	Background   string            `json:"background"`
	Text         string            `json:"text"`
	CustomColors map[string]string `json:"custom_colors,omitempty"`
}

// Theme is the site-wide style configuration.
type Theme struct {
	Name        string         `json:"name"`
	Colors      ColorPalette   `json:"colors"`
	Fonts       []Font         `json:"fonts,omitempty"`
	Spacing     map[string]int `json:"spacing,omitempty"`
	Breakpoints map[string]int `json:"breakpoints,omitempty"`
	CustomCSS   string         `json:"custom_css,omitempty"`
}

// Settings holds global site settings.
type Settings struct {
	SiteName     string            `json:"site_name"`
	SiteURL      string            `json:"site_url"`
	Language     string            `json:"language"`
	FaviconID    string            `json:"favicon_id,omitempty"`
	LogoID       string            `json:"logo_id,omitempty"`
	SocialLinks  map[string]string `json:"social_links,omitempty"`
	ContactEmail string            `json:"contact_email,omitempty"`
}

// PageError records an isolated per-page extraction failure.
type PageError struct {
	PageURL string `json:"page_url"`
	Message string `json:"message"`
}

// ExtractionMetadata records how the extraction run went.
type ExtractionMetadata struct {
	Extractor          string      `json:"extractor"`
	ExtractorVersion   string      `json:"extractor_version"`
	StartedAt          time.Time   `json:"started_at"`
	FinishedAt         time.Time   `json:"finished_at"`
	PageCount          int         `json:"page_count"`
	AssetCount         int         `json:"asset_count"`
	Errors             []PageError `json:"errors,omitempty"`
	DegradedConfidence bool        `json:"degraded_confidence,omitempty"`
}

// Document is the root IDF aggregate. Owned by exactly one migration and
// frozen once conversion begins; re-extraction creates a new version.
type Document struct {
	ID             string `json:"id"`
	Version        string `json:"version"`
	SourcePlatform string `json:"source_platform"`
	SourceURL      string `json:"source_url"`

	Pages    []*Page  `json:"pages"`
	Theme    Theme    `json:"theme"`
	Settings Settings `json:"settings"`
	Assets   []Asset  `json:"assets"`

	ExtractionMetadata ExtractionMetadata `json:"extraction_metadata"`
	SimilarityScores   map[string]float64 `json:"similarity_scores,omitempty"`
}

// PageByID returns the page with the given id, or nil.
func (d *Document) PageByID(id string) *Page {
	for _, p := range d.Pages {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Homepage returns the page flagged as homepage, falling back to the first
// page when none is flagged.
func (d *Document) Homepage() *Page {
	for _, p := range d.Pages {
		if p.IsHomepage {
			return p
		}
	}
	if len(d.Pages) > 0 {
		return d.Pages[0]
	}
	return nil
}

// AssetByID returns the asset with the given id, or nil.
func (d *Document) AssetByID(id string) *Asset {
	for i := range d.Assets {
		if d.Assets[i].ID == id {
			return &d.Assets[i]
		}
	}
	return nil
}

// AssetByHash returns the asset with the given content hash, or nil. Used
// for cross-page deduplication during extraction.
func (d *Document) AssetByHash(hash string) *Asset {
	if hash == "" {
		return nil
	}
	for i := range d.Assets {
		if d.Assets[i].ContentHash == hash {
			return &d.Assets[i]
		}
	}
	return nil
}

// WalkElements visits every element of the page depth-first in document
// order. Returning false from fn stops the walk.
func (p *Page) WalkElements(fn func(el *Element) bool) {
	var walk func(els []*Element) bool
	walk = func(els []*Element) bool {
		for _, el := range els {
			if !fn(el) {
				return false
			}
			if !walk(el.Children) {
				return false
			}
		}
		return true
	}
	walk(p.Elements)
}

// ElementCount returns the number of elements in the page tree.
func (p *Page) ElementCount() int {
	n := 0
	p.WalkElements(func(*Element) bool {
		n++
		return true
	})
	return n
}

// ElementByID returns the element with the given id within the page, or nil.
func (p *Page) ElementByID(id string) *Element {
	var found *Element
	p.WalkElements(func(el *Element) bool {
		if el.ID == id {
			found = el
			return false
		}
		return true
	})
	return found
}
