package extractor

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
	"github.com/siteporter/siteporter-backend/internal/render"
)

const wixExtractorVersion = "1.0.0"

// WixExtractor extracts Wix sites. Wix pages are client-side rendered,
// so every capture goes through the headless renderer rather than plain
// HTTP fetches.
type WixExtractor struct {
	deps    Deps
	crawler *crawler
	assets  *assetDownloader
}

// NewWixExtractor builds a Wix extractor over the given collaborators.
func NewWixExtractor(deps Deps) *WixExtractor {
	return &WixExtractor{
		deps:    deps,
		crawler: newCrawler(deps.Renderer),
		assets:  newAssetDownloader(deps.Store, DefaultLimits().AssetWorkers),
	}
}

func (e *WixExtractor) Platform() string { return domain.PlatformWix }

// DiscoverPages delegates to the shared breadth-first crawler.
func (e *WixExtractor) DiscoverPages(ctx context.Context, rootURL string, limits Limits) ([]PageRef, error) {
	return e.crawler.discover(ctx, rootURL, limits)
}

// ExtractPage renders the page at desktop width, walks the captured DOM
// into an element tree, then re-renders at tablet and mobile widths to
// fill the responsive overlays. Breakpoint styles are only observable
// post-layout, hence the triple render.
func (e *WixExtractor) ExtractPage(ctx context.Context, ref PageRef) (*PageResult, error) {
	desktop, err := e.deps.Renderer.RenderPage(ctx, ref.URL, render.ViewportDesktop)
	if err != nil {
		return nil, fmt.Errorf("render desktop: %w", err)
	}

	path := urlPath(ref.URL)
	slug := strings.Trim(path, "/")
	if slug == "" {
		slug = "home"
	}
	slug = strings.ReplaceAll(slug, "/", "-")

	builder := &elementBuilder{pageKey: slug}
	roots := builder.build(desktop.Root, "", 0, "r")

	// Responsive overlays: match tablet/mobile nodes by tree position and
	// keep only the properties that differ from desktop.
	if tablet, err := e.deps.Renderer.RenderPage(ctx, ref.URL, render.ViewportTablet); err == nil {
		overlayStyles(roots, tablet.Root, "tablet")
	}
	if mobile, err := e.deps.Renderer.RenderPage(ctx, ref.URL, render.ViewportMobile); err == nil {
		overlayStyles(roots, mobile.Root, "mobile")
	}

	page := &idf.Page{
		ID:         "page-" + deterministicID(slug),
		Title:      firstNonEmpty(desktop.SEO.Title, slug),
		Slug:       slug,
		Path:       path,
		Elements:   roots,
		SEO:        mapSEO(desktop.SEO),
		IsHomepage: ref.IsHomepage,
		Order:      ref.Order,
		Published:  true,
		PlatformData: map[string]any{
			"url": ref.URL,
		},
	}

	// Downloads are isolated: a failed asset keeps a placeholder
	// reference and never fails the page.
	assets := e.assets.downloadAll(ctx, collectAssetRefs(ref.URL, roots))

	shot, shotErr := e.assets.putScreenshot(ctx, desktop.Screenshot)
	if shotErr == nil {
		page.PlatformData["screenshot_url"] = shot
	}

	return &PageResult{
		Page:          page,
		Assets:        assets,
		Screenshot:    desktop.Screenshot,
		ScreenshotURL: shot,
	}, nil
}

// ExtractTheme samples colors and fonts from the root page render.
func (e *WixExtractor) ExtractTheme(ctx context.Context, rootURL string) (idf.Theme, idf.Settings, error) {
	res, err := e.deps.Renderer.RenderPage(ctx, rootURL, render.ViewportDesktop)
	if err != nil {
		return idf.Theme{}, idf.Settings{}, fmt.Errorf("render theme page: %w", err)
	}

	colors := res.Theme.Colors
	palette := idf.ColorPalette{
		Primary:    "#000000",
		Background: "#ffffff",
		Text:       "#000000",
	}
	if len(colors) > 0 {
		palette.Primary = colors[0]
	}
	if len(colors) > 1 {
		palette.Secondary = colors[1]
	}
	if len(colors) > 2 {
		palette.Text = colors[2]
	}

	var fonts []idf.Font
	for i, family := range res.Theme.Fonts {
		if i >= 5 {
			break
		}
		name := strings.TrimSpace(strings.Split(strings.ReplaceAll(family, `"`, ""), ",")[0])
		if name == "" {
			continue
		}
		fonts = append(fonts, idf.Font{
			ID:     "font-" + deterministicID(name),
			Family: name,
			Source: "wix",
		})
	}

	theme := idf.Theme{
		Name:   "wix-extracted",
		Colors: palette,
		Fonts:  fonts,
		Breakpoints: map[string]int{
			"mobile":  768,
			"tablet":  1024,
			"desktop": 1440,
		},
	}

	settings := idf.Settings{
		SiteName: firstNonEmpty(res.SEO.Title, stripWWW(hostOf(rootURL))),
		SiteURL:  rootURL,
		Language: firstNonEmpty(res.SEO.Language, "en"),
	}

	return theme, settings, nil
}

// elementBuilder converts DOM nodes into IDF elements with deterministic
// ids derived from the page key and tree position.
type elementBuilder struct {
	pageKey string
}

func (b *elementBuilder) build(node *render.DOMNode, parentID string, order int, pos string) []*idf.Element {
	if node == nil {
		return nil
	}

	el := &idf.Element{
		ID:       "el-" + deterministicID(b.pageKey+"/"+pos),
		Type:     classifyNode(node),
		Tag:      node.Tag,
		Content:  node.Content,
		Classes:  node.Classes,
		Styles:   node.Styles,
		ParentID: parentID,
		Order:    order,
	}
	if len(node.Attributes) > 0 {
		el.Attributes = node.Attributes
	}
	if len(node.Styles) > 0 {
		el.ResponsiveStyles = &idf.ResponsiveStyles{Desktop: node.Styles}
	}

	for i, child := range node.Children {
		childEls := b.build(child, el.ID, i, fmt.Sprintf("%s.%d", pos, i))
		el.Children = append(el.Children, childEls...)
	}

	return []*idf.Element{el}
}

// overlayStyles walks target alongside the element tree by position and
// records breakpoint properties that differ from the desktop capture.
func overlayStyles(els []*idf.Element, node *render.DOMNode, breakpoint string) {
	if node == nil || len(els) != 1 {
		return
	}
	el := els[0]

	diff := map[string]string{}
	base := map[string]string{}
	if el.ResponsiveStyles != nil {
		base = el.ResponsiveStyles.Desktop
	}
	for prop, value := range node.Styles {
		if base[prop] != value {
			diff[prop] = value
		}
	}
	if len(diff) > 0 {
		if el.ResponsiveStyles == nil {
			el.ResponsiveStyles = &idf.ResponsiveStyles{}
		}
		switch breakpoint {
		case "tablet":
			el.ResponsiveStyles.Tablet = diff
		case "mobile":
			el.ResponsiveStyles.Mobile = diff
		}
	}

	// Position matching tolerates structural drift by stopping where the
	// trees diverge.
	n := len(el.Children)
	if len(node.Children) < n {
		n = len(node.Children)
	}
	for i := 0; i < n; i++ {
		overlayStyles(el.Children[i:i+1], node.Children[i], breakpoint)
	}
}

var headingTags = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true}

// classifyNode maps a DOM node onto the closed IDF element type set using
// its tag, then its class names.
func classifyNode(node *render.DOMNode) idf.ElementType {
	switch {
	case node.Tag == "header":
		return idf.TypeHeader
	case node.Tag == "footer":
		return idf.TypeFooter
	case node.Tag == "nav":
		return idf.TypeNavigation
	case headingTags[node.Tag]:
		return idf.TypeHeading
	case node.Tag == "p":
		return idf.TypeParagraph
	case node.Tag == "button":
		return idf.TypeButton
	case node.Tag == "a":
		return idf.TypeLink
	case node.Tag == "img":
		return idf.TypeImage
	case node.Tag == "video":
		return idf.TypeVideo
	case node.Tag == "audio":
		return idf.TypeAudio
	case node.Tag == "ul", node.Tag == "ol":
		return idf.TypeList
	case node.Tag == "li":
		return idf.TypeListItem
	case node.Tag == "form":
		return idf.TypeForm
	case node.Tag == "input":
		return idf.TypeInput
	case node.Tag == "textarea":
		return idf.TypeTextarea
	case node.Tag == "select":
		return idf.TypeSelect
	case node.Tag == "iframe":
		return idf.TypeIframe
	case node.Tag == "span" && node.Content != "":
		return idf.TypeText
	}

	// Class heuristics run before the generic section/div fallbacks so a
	// <section class="hero-banner"> keeps its widget-level type.
	classes := strings.ToLower(strings.Join(node.Classes, " "))
	switch {
	case strings.Contains(classes, "hero"):
		return idf.TypeHero
	case strings.Contains(classes, "gallery"):
		return idf.TypeGallery
	case strings.Contains(classes, "slider"), strings.Contains(classes, "carousel"):
		return idf.TypeSlider
	case strings.Contains(classes, "card"):
		return idf.TypeCard
	case strings.Contains(classes, "accordion"):
		return idf.TypeAccordion
	}

	if node.Tag == "section" {
		return idf.TypeSection
	}
	return idf.TypeContainer
}

var bgImageRe = regexp.MustCompile(`url\(["']?([^"')]+)["']?\)`)

// assetRef links a pending download back to the element that needs it.
type assetRef struct {
	element *idf.Element
	url     string
	kind    string
	alt     string
}

// collectAssetRefs finds every media URL referenced by the element tree.
func collectAssetRefs(pageURL string, roots []*idf.Element) []assetRef {
	var refs []assetRef
	var walk func(els []*idf.Element)
	walk = func(els []*idf.Element) {
		for _, el := range els {
			switch el.Type {
			case idf.TypeImage:
				if src := el.Attributes["src"]; src != "" {
					refs = append(refs, assetRef{
						element: el,
						url:     resolveURL(pageURL, src),
						kind:    "image",
						alt:     el.Attributes["alt"],
					})
				}
			case idf.TypeVideo:
				if src := el.Attributes["src"]; src != "" {
					refs = append(refs, assetRef{element: el, url: resolveURL(pageURL, src), kind: "video"})
				}
			}
			if bg, ok := el.Styles["background-image"]; ok {
				if m := bgImageRe.FindStringSubmatch(bg); m != nil {
					refs = append(refs, assetRef{element: el, url: resolveURL(pageURL, m[1]), kind: "image"})
				}
			}
			walk(el.Children)
		}
	}
	walk(roots)
	return refs
}

// deterministicID derives a stable short id from a seed string. Re-running
// extraction over the same site yields the same ids, which keeps
// structural diffing by id meaningful across runs.
func deterministicID(seed string) string {
	sum := sha1.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])[:12]
}

func mapSEO(snap render.SEOSnapshot) idf.SEOData {
	seo := idf.SEOData{
		Title:          snap.Title,
		Description:    snap.Meta["description"],
		CanonicalURL:   snap.Canonical,
		OGTitle:        snap.Meta["og:title"],
		OGDescription:  snap.Meta["og:description"],
		OGImage:        snap.Meta["og:image"],
		OGType:         snap.Meta["og:type"],
		TwitterCard:    snap.Meta["twitter:card"],
		StructuredData: snap.StructuredData,
		Robots:         snap.Meta["robots"],
	}
	if kw := snap.Meta["keywords"]; kw != "" {
		for _, k := range strings.Split(kw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				seo.Keywords = append(seo.Keywords, k)
			}
		}
	}
	return seo
}

func resolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	u, err := baseURL.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Hostname()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
