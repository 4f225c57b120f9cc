package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
	"github.com/siteporter/siteporter-backend/internal/render"
	"github.com/siteporter/siteporter-backend/internal/storage/objectstore"
)

// fakeRenderer serves canned render results keyed by URL.
type fakeRenderer struct {
	pages   map[string]*render.Result
	failAll bool
}

func (f *fakeRenderer) RenderPage(ctx context.Context, url string, vp render.Viewport) (*render.Result, error) {
	if f.failAll {
		return nil, errors.New("connection refused")
	}
	res, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no such page %q", url)
	}
	out := *res
	out.Viewport = vp
	return &out, nil
}

func (f *fakeRenderer) Close() error { return nil }

func homeDOM(assetURL string) *render.DOMNode {
	return &render.DOMNode{
		Tag: "body",
		Children: []*render.DOMNode{
			{
				Tag:     "section",
				Classes: []string{"hero-banner"},
				Styles:  map[string]string{"background-color": "#123456"},
				Children: []*render.DOMNode{
					{Tag: "h1", Content: "Hand Made Ceramics"},
					{Tag: "p", Content: "Small batch pottery from our studio."},
					{Tag: "img", Attributes: map[string]string{"src": assetURL, "alt": "vase"}},
				},
			},
		},
	}
}

func siteRenderer(assetURL string) *fakeRenderer {
	home := &render.Result{
		URL:  "https://example.com/",
		HTML: "<html></html>",
		Root: homeDOM(assetURL),
		Links: []string{
			"/about",
			"/about/",                     // dupe after normalization
			"/about?utm_source=x",         // dupe after query strip
			"https://example.com/about#x", // dupe after fragment strip
			"/shop",
			"https://elsewhere.com/", // external
			"mailto:hi@example.com",
			"javascript:void(0)",
			"#top",
		},
		SEO:        render.SEOSnapshot{Title: "Ceramics Studio", Meta: map[string]string{"description": "pottery"}},
		Theme:      render.ThemeSnapshot{Colors: []string{"#123456", "#abcdef"}, Fonts: []string{`"Open Sans", sans-serif`}},
		Screenshot: []byte("png-bytes-home"),
	}
	about := &render.Result{
		URL:        "https://example.com/about",
		Root:       &render.DOMNode{Tag: "body", Children: []*render.DOMNode{{Tag: "p", Content: "About us."}}},
		SEO:        render.SEOSnapshot{Title: "About"},
		Screenshot: []byte("png-bytes-about"),
	}
	shop := &render.Result{
		URL:        "https://example.com/shop",
		Root:       &render.DOMNode{Tag: "body", Children: []*render.DOMNode{{Tag: "p", Content: "Shop."}}},
		SEO:        render.SEOSnapshot{Title: "Shop"},
		Screenshot: []byte("png-bytes-shop"),
	}
	return &fakeRenderer{pages: map[string]*render.Result{
		"https://example.com/":      home,
		"https://example.com/about": about,
		"https://example.com/shop":  shop,
	}}
}

func TestForPlatform(t *testing.T) {
	deps := Deps{Renderer: &fakeRenderer{}, Store: objectstore.NewMemoryStore()}

	ex, err := ForPlatform(domain.PlatformWix, deps)
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformWix, ex.Platform())

	for _, platform := range []string{domain.PlatformSquarespace, domain.PlatformWebflow, domain.PlatformWordPress, "geocities"} {
		_, err := ForPlatform(platform, deps)
		assert.ErrorIs(t, err, domain.ErrUnsupportedPlatform, platform)
	}
}

func TestCrawler_Discover(t *testing.T) {
	c := newCrawler(siteRenderer("https://example.com/vase.jpg"))

	refs, err := c.discover(context.Background(), "https://example.com/", Limits{MaxPages: 10, MaxDepth: 2})
	require.NoError(t, err)

	require.Len(t, refs, 3)
	assert.Equal(t, "https://example.com/", refs[0].URL)
	assert.True(t, refs[0].IsHomepage)
	assert.Equal(t, "https://example.com/about", refs[1].URL)
	assert.Equal(t, "https://example.com/shop", refs[2].URL)
}

func TestCrawler_RootUnreachable(t *testing.T) {
	c := newCrawler(&fakeRenderer{failAll: true})
	_, err := c.discover(context.Background(), "https://example.com/", Limits{MaxPages: 10, MaxDepth: 2})
	assert.ErrorIs(t, err, domain.ErrRootUnreachable)
}

func TestCrawler_MaxPages(t *testing.T) {
	c := newCrawler(siteRenderer("https://example.com/vase.jpg"))
	refs, err := c.discover(context.Background(), "https://example.com/", Limits{MaxPages: 2, MaxDepth: 2})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestNormalizeURL(t *testing.T) {
	base := "https://example.com/"
	cases := map[string]string{
		"/about":                        "https://example.com/about",
		"/about/":                       "https://example.com/about",
		"/about?utm=1":                  "https://example.com/about",
		"https://example.com/about#x":   "https://example.com/about",
		"https://example.com":           "https://example.com/",
	}
	for in, want := range cases {
		got, err := normalizeURL(base, in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "#top", "mailto:x@y.z", "tel:123", "javascript:void(0)", "ftp://example.com/f"} {
		_, err := normalizeURL(base, in)
		assert.Error(t, err, in)
	}
}

func TestClassifyNode(t *testing.T) {
	cases := []struct {
		name string
		node *render.DOMNode
		want idf.ElementType
	}{
		// Class heuristics must win over the generic section/div types.
		{"hero section", &render.DOMNode{Tag: "section", Classes: []string{"hero-banner"}}, idf.TypeHero},
		{"gallery div", &render.DOMNode{Tag: "div", Classes: []string{"photo-gallery"}}, idf.TypeGallery},
		{"carousel section", &render.DOMNode{Tag: "section", Classes: []string{"product-carousel"}}, idf.TypeSlider},
		{"card div", &render.DOMNode{Tag: "div", Classes: []string{"card"}}, idf.TypeCard},
		{"plain section", &render.DOMNode{Tag: "section"}, idf.TypeSection},
		{"plain div", &render.DOMNode{Tag: "div"}, idf.TypeContainer},
		// Specific tags win over class names.
		{"heading inside card", &render.DOMNode{Tag: "h2", Classes: []string{"card-title"}}, idf.TypeHeading},
		{"image inside gallery", &render.DOMNode{Tag: "img", Classes: []string{"gallery-item"}}, idf.TypeImage},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyNode(tc.node), tc.name)
	}
}

func TestWixExtractor_ExtractPage(t *testing.T) {
	assetSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer assetSrv.Close()

	store := objectstore.NewMemoryStore()
	renderer := siteRenderer(assetSrv.URL + "/vase.jpg")
	ex := NewWixExtractor(Deps{Renderer: renderer, Store: store})

	res, err := ex.ExtractPage(context.Background(), PageRef{URL: "https://example.com/", IsHomepage: true})
	require.NoError(t, err)

	page := res.Page
	assert.Equal(t, "home", page.Slug)
	assert.Equal(t, "/", page.Path)
	assert.True(t, page.IsHomepage)
	assert.Equal(t, "Ceramics Studio", page.Title)
	assert.Equal(t, "pottery", page.SEO.Description)

	// body > section(hero) > h1, p, img
	require.Len(t, page.Elements, 1)
	body := page.Elements[0]
	require.Len(t, body.Children, 1)
	hero := body.Children[0]
	assert.Equal(t, idf.TypeHero, hero.Type)
	require.Len(t, hero.Children, 3)
	assert.Equal(t, idf.TypeHeading, hero.Children[0].Type)
	assert.Equal(t, idf.TypeParagraph, hero.Children[1].Type)
	assert.Equal(t, idf.TypeImage, hero.Children[2].Type)

	// Dense sibling order.
	for i, child := range hero.Children {
		assert.Equal(t, i, child.Order)
		assert.Equal(t, hero.ID, child.ParentID)
	}

	// The image asset was downloaded, content-addressed and wired.
	require.Len(t, res.Assets, 1)
	asset := res.Assets[0]
	assert.False(t, asset.Missing)
	assert.NotEmpty(t, asset.ContentHash)
	assert.Equal(t, []string{asset.ID}, hero.Children[2].AssetIDs)
	assert.NotEmpty(t, asset.StorageURL)

	// Screenshot stored and referenced.
	assert.NotEmpty(t, res.ScreenshotURL)
	assert.Equal(t, res.ScreenshotURL, page.PlatformData["screenshot_url"])
}

func TestWixExtractor_DeterministicIDs(t *testing.T) {
	renderer := siteRenderer("https://example.com/vase.jpg")
	ex := NewWixExtractor(Deps{Renderer: renderer, Store: objectstore.NewMemoryStore()})

	a, err := ex.ExtractPage(context.Background(), PageRef{URL: "https://example.com/about"})
	require.NoError(t, err)
	b, err := ex.ExtractPage(context.Background(), PageRef{URL: "https://example.com/about"})
	require.NoError(t, err)

	assert.Equal(t, a.Page.ID, b.Page.ID)
	require.Equal(t, len(a.Page.Elements), len(b.Page.Elements))
	assert.Equal(t, a.Page.Elements[0].ID, b.Page.Elements[0].ID)
}

func TestAssetDownloader_PlaceholderOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d := newAssetDownloader(objectstore.NewMemoryStore(), 2)
	el := &idf.Element{ID: "el-x", Type: idf.TypeImage}
	assets := d.downloadAll(context.Background(), []assetRef{
		{element: el, url: srv.URL + "/gone.png", kind: "image", alt: "gone"},
	})

	require.Len(t, assets, 1)
	assert.True(t, assets[0].Missing)
	assert.Equal(t, "gone", assets[0].AltText)
	assert.Equal(t, []string{assets[0].ID}, el.AssetIDs)
}

func TestAssetDownloader_DedupesByContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("same-bytes"))
	}))
	defer srv.Close()

	store := objectstore.NewMemoryStore()
	d := newAssetDownloader(store, 4)
	el1 := &idf.Element{ID: "el-1", Type: idf.TypeImage}
	el2 := &idf.Element{ID: "el-2", Type: idf.TypeImage}

	assets := d.downloadAll(context.Background(), []assetRef{
		{element: el1, url: srv.URL + "/a.png", kind: "image"},
		{element: el2, url: srv.URL + "/b.png", kind: "image"},
	})

	// Same bytes from two URLs collapse to one content-addressed asset.
	require.Len(t, assets, 1)
	assert.Equal(t, el1.AssetIDs, el2.AssetIDs)
	assert.Equal(t, 1, store.Len())
}

func TestRun_FullExtraction(t *testing.T) {
	assetSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer assetSrv.Close()

	renderer := siteRenderer(assetSrv.URL + "/vase.jpg")
	ex := NewWixExtractor(Deps{Renderer: renderer, Store: objectstore.NewMemoryStore()})

	result, err := Run(context.Background(), ex, "doc-test", "https://example.com/", Limits{
		MaxPages: 10, MaxDepth: 2, PageWorkers: 2, AssetWorkers: 2,
	})
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "doc-test", doc.ID)
	assert.Equal(t, idf.SchemaVersion, doc.Version)
	assert.Equal(t, domain.PlatformWix, doc.SourcePlatform)

	require.Len(t, doc.Pages, 3)
	assert.True(t, doc.Pages[0].IsHomepage)
	for i, page := range doc.Pages {
		assert.Equal(t, i, page.Order)
		assert.Contains(t, result.Screenshots, page.ID)
	}

	assert.Len(t, doc.Assets, 1)
	assert.Empty(t, doc.ExtractionMetadata.Errors)
	assert.False(t, doc.ExtractionMetadata.DegradedConfidence)
	assert.Equal(t, "Open Sans", doc.Theme.Fonts[0].Family)
	assert.Equal(t, "#123456", doc.Theme.Colors.Primary)
	assert.Equal(t, "Ceramics Studio", doc.Settings.SiteName)

	// The produced document satisfies its own validator.
	assert.False(t, idf.HasFatal(idf.Validate(doc)))
}

func TestRun_PageFailureIsIsolated(t *testing.T) {
	renderer := siteRenderer("https://example.com/vase.jpg")
	delete(renderer.pages, "https://example.com/shop")

	ex := NewWixExtractor(Deps{Renderer: renderer, Store: objectstore.NewMemoryStore()})
	result, err := Run(context.Background(), ex, "doc-test", "https://example.com/", Limits{
		MaxPages: 10, MaxDepth: 1, PageWorkers: 2, AssetWorkers: 2,
	})
	require.NoError(t, err)

	// MaxDepth 1 still discovers the shop link from the root page; its
	// extraction then fails and is recorded rather than aborting.
	doc := result.Document
	assert.Len(t, doc.Pages, 2)
	require.Len(t, doc.ExtractionMetadata.Errors, 1)
	assert.Equal(t, "https://example.com/shop", doc.ExtractionMetadata.Errors[0].PageURL)
	assert.True(t, doc.ExtractionMetadata.DegradedConfidence)
}
