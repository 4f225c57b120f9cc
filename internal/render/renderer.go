// Package render wraps headless browser rendering behind a small
// interface so the extractor and similarity checker can be tested
// against fakes.
package render

import "context"

// Viewport is the emulated browser viewport for one render pass.
type Viewport struct {
	Name   string
	Width  int64
	Height int64
}

// The three breakpoint renders the extractor performs. Authoring
// platforms apply CSS breakpoints that are only observable post-layout,
// so each overlay requires its own render.
var (
	ViewportDesktop = Viewport{Name: "desktop", Width: 1920, Height: 1080}
	ViewportTablet  = Viewport{Name: "tablet", Width: 768, Height: 1024}
	ViewportMobile  = Viewport{Name: "mobile", Width: 375, Height: 812}
)

// DOMNode is one node of the rendered DOM with its computed styles, as
// serialized by the in-page snapshot script.
type DOMNode struct {
	Tag        string            `json:"tag"`
	Classes    []string          `json:"classes"`
	Attributes map[string]string `json:"attributes"`
	Content    string            `json:"content"`
	Styles     map[string]string `json:"styles"`
	Children   []*DOMNode        `json:"children"`
}

// SEOSnapshot carries head metadata captured during a render.
type SEOSnapshot struct {
	Title          string            `json:"title"`
	Meta           map[string]string `json:"meta"`
	Canonical      string            `json:"canonical"`
	Language       string            `json:"language"`
	Favicon        string            `json:"favicon"`
	StructuredData []map[string]any  `json:"structured_data"`
}

// ThemeSnapshot carries the colors and fonts observed across the page.
type ThemeSnapshot struct {
	Colors []string `json:"colors"`
	Fonts  []string `json:"fonts"`
}

// Result is everything one render pass captures.
type Result struct {
	URL        string
	Viewport   Viewport
	HTML       string
	Root       *DOMNode
	Links      []string
	SEO        SEOSnapshot
	Theme      ThemeSnapshot
	Screenshot []byte
}

// Renderer renders a page at a given viewport and captures its DOM with
// computed styles. Implementations must honor ctx cancellation.
type Renderer interface {
	RenderPage(ctx context.Context, url string, vp Viewport) (*Result, error)
	Close() error
}
