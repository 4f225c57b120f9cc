package converter

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

func sampleDocument() *idf.Document {
	return &idf.Document{
		ID:             "doc-1",
		Version:        idf.SchemaVersion,
		SourcePlatform: "wix",
		SourceURL:      "https://example.com",
		Theme: idf.Theme{
			Colors: idf.ColorPalette{Primary: "#112233", Text: "#000000", Background: "#ffffff"},
			Fonts:  []idf.Font{{ID: "font-1", Family: "Open Sans"}},
		},
		Pages: []*idf.Page{
			{
				ID:         "page-home",
				Title:      "Home",
				Slug:       "home",
				Path:       "/",
				IsHomepage: true,
				Published:  true,
				Elements: []*idf.Element{
					{
						ID:    "el-hero",
						Type:  idf.TypeSection,
						Order: 0,
						Children: []*idf.Element{
							{ID: "el-h1", Type: idf.TypeHeading, Tag: "h1", Content: "Welcome", Order: 0, ParentID: "el-hero"},
							{ID: "el-p", Type: idf.TypeParagraph, Content: "We make things.", Order: 1, ParentID: "el-hero"},
							{ID: "el-cta", Type: idf.TypeButton, Content: "Contact", Order: 2, ParentID: "el-hero",
								Attributes: map[string]string{"href": "/contact"}},
						},
					},
					{
						ID:    "el-img-root",
						Type:  idf.TypeImage,
						Order: 1,
						AssetIDs: []string{
							"asset-aaa",
						},
						Attributes: map[string]string{"alt": "storefront"},
					},
				},
			},
		},
		Assets: []idf.Asset{
			{ID: "asset-aaa", Type: "image", OriginalURL: "https://example.com/a.png", StorageURL: "s3://b/assets/aaa", AltText: "storefront"},
		},
	}
}

func TestConvert_UnsupportedTarget(t *testing.T) {
	_, err := Convert(sampleDocument(), "drupal")
	assert.ErrorIs(t, err, domain.ErrUnsupportedPlatform)

	_, err = Convert(sampleDocument(), domain.PlatformWordPress)
	assert.ErrorIs(t, err, domain.ErrUnsupportedPlatform)
}

func TestConvert_Idempotent(t *testing.T) {
	doc := sampleDocument()

	first, err := Convert(doc, domain.TargetWordPressElementor)
	require.NoError(t, err)
	second, err := Convert(doc, domain.TargetWordPressElementor)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b), "same document must convert to identical bytes")
}

func TestConvert_WidgetTree(t *testing.T) {
	target, err := Convert(sampleDocument(), domain.TargetWordPressElementor)
	require.NoError(t, err)

	require.Len(t, target.Pages, 1)
	page := target.Pages[0]
	assert.Equal(t, "home", page.Slug)
	assert.True(t, page.IsHomepage)
	assert.Equal(t, "publish", page.Status)

	// Two roots: the real section and the synthesized one wrapping the
	// stray root-level image.
	require.Len(t, page.Widgets, 2)
	for _, section := range page.Widgets {
		assert.Equal(t, "section", section.ElType)
		require.Len(t, section.Elements, 1)
		assert.Equal(t, "column", section.Elements[0].ElType)
	}

	assert.Equal(t, 1, target.Report.Synthesized)

	types := widgetTypes(page.Widgets)
	assert.Contains(t, types, "heading")
	assert.Contains(t, types, "text-editor")
	assert.Contains(t, types, "button")
	assert.Contains(t, types, "image")

	heading := findWidget(page.Widgets, "heading")
	require.NotNil(t, heading)
	assert.Equal(t, "Welcome", heading.Settings["title"])
	assert.Equal(t, "h1", heading.Settings["header_size"])

	img := findWidget(page.Widgets, "image")
	require.NotNil(t, img)
	imgSettings, ok := img.Settings["image"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "s3://b/assets/aaa", imgSettings["url"])
}

func TestConvert_CollapsesRedundantWrappers(t *testing.T) {
	doc := sampleDocument()
	// Bury the heading under two empty single-child containers.
	page := doc.Pages[0]
	heading := page.Elements[0].Children[0]
	page.Elements[0].Children[0] = &idf.Element{
		ID: "el-wrap-outer", Type: idf.TypeContainer, Order: 0, ParentID: "el-hero",
		Children: []*idf.Element{
			{ID: "el-wrap-inner", Type: idf.TypeContainer, Order: 0, ParentID: "el-wrap-outer",
				Children: []*idf.Element{heading}},
		},
	}

	target, err := Convert(doc, domain.TargetWordPressElementor)
	require.NoError(t, err)

	assert.Equal(t, 2, target.Report.Collapsed)
	assert.NotNil(t, findWidget(target.Pages[0].Widgets, "heading"))
	// The wrappers themselves must not survive as container widgets.
	for _, w := range allWidgets(target.Pages[0].Widgets) {
		assert.NotEqual(t, widgetID("el-wrap-outer"), w.ID)
		assert.NotEqual(t, widgetID("el-wrap-inner"), w.ID)
	}
}

func TestConvert_PassthroughFallback(t *testing.T) {
	doc := sampleDocument()
	doc.Pages[0].Elements[0].Children = append(doc.Pages[0].Elements[0].Children, &idf.Element{
		ID: "el-embed", Type: idf.TypeEmbed, HTML: "<object data=\"x.swf\"></object>",
		Order: 3, ParentID: "el-hero",
	})

	target, err := Convert(doc, domain.TargetWordPressElementor)
	require.NoError(t, err)

	require.Len(t, target.Report.Fallbacks, 1)
	assert.Equal(t, "el-embed", target.Report.Fallbacks[0].ElementID)
	assert.Equal(t, idf.TypeEmbed, target.Report.Fallbacks[0].Type)

	raw := findWidget(target.Pages[0].Widgets, "html")
	require.NotNil(t, raw)
	assert.Contains(t, raw.Settings["html"], "x.swf")
}

func TestConvert_FormFields(t *testing.T) {
	doc := sampleDocument()
	doc.Pages[0].Elements = append(doc.Pages[0].Elements, &idf.Element{
		ID: "el-form", Type: idf.TypeForm, Order: 2,
		Children: []*idf.Element{
			{ID: "el-name", Type: idf.TypeInput, Order: 0, ParentID: "el-form",
				Attributes: map[string]string{"placeholder": "Name", "required": "required"}},
			{ID: "el-msg", Type: idf.TypeTextarea, Order: 1, ParentID: "el-form",
				Attributes: map[string]string{"placeholder": "Message"}},
		},
	})

	target, err := Convert(doc, domain.TargetWordPressElementor)
	require.NoError(t, err)

	form := findWidget(target.Pages[0].Widgets, "form")
	require.NotNil(t, form)
	fields, ok := form.Settings["form_fields"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, fields, 2)
	assert.Equal(t, "Name", fields[0]["field_label"])
	assert.Equal(t, true, fields[0]["required"])
	assert.Equal(t, "textarea", fields[1]["field_type"])

	// The inputs must not also appear as standalone widgets.
	for _, w := range allWidgets(target.Pages[0].Widgets) {
		assert.NotEqual(t, widgetID("el-name"), w.ID)
	}
}

func TestConvert_GallerySwallowsImages(t *testing.T) {
	doc := sampleDocument()
	doc.Assets = append(doc.Assets,
		idf.Asset{ID: "asset-g1", Type: "image", StorageURL: "s3://b/assets/g1"},
		idf.Asset{ID: "asset-g2", Type: "image", StorageURL: "s3://b/assets/g2"},
	)
	doc.Pages[0].Elements = append(doc.Pages[0].Elements, &idf.Element{
		ID: "el-gallery", Type: idf.TypeGallery, Order: 2,
		Children: []*idf.Element{
			{ID: "el-g1", Type: idf.TypeImage, Order: 0, ParentID: "el-gallery", AssetIDs: []string{"asset-g1"}},
			{ID: "el-g2", Type: idf.TypeImage, Order: 1, ParentID: "el-gallery", AssetIDs: []string{"asset-g2"}},
		},
	})

	target, err := Convert(doc, domain.TargetWordPressElementor)
	require.NoError(t, err)

	gallery := findWidget(target.Pages[0].Widgets, "gallery")
	require.NotNil(t, gallery)
	images, ok := gallery.Settings["gallery"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, images, 2)
}

func TestConvert_ThemeAndMedia(t *testing.T) {
	target, err := Convert(sampleDocument(), domain.TargetWordPressElementor)
	require.NoError(t, err)

	assert.Equal(t, "#112233", target.Theme.Colors["primary"])
	assert.Equal(t, "Open Sans", target.Theme.PrimaryFont)

	require.Len(t, target.MediaItems, 1)
	assert.Equal(t, "asset-aaa", target.MediaItems[0].ID)
	assert.Equal(t, "s3://b/assets/aaa", target.MediaItems[0].URL)
}

func TestBuildWXR(t *testing.T) {
	target, err := Convert(sampleDocument(), domain.TargetWordPressElementor)
	require.NoError(t, err)

	require.NotEmpty(t, target.ExportXML)
	assert.True(t, strings.HasPrefix(target.ExportXML, "<?xml"))
	assert.Contains(t, target.ExportXML, "<wp:post_type>page</wp:post_type>")
	assert.Contains(t, target.ExportXML, "_elementor_data")
	assert.Contains(t, target.ExportXML, "<wp:post_type>attachment</wp:post_type>")
}

func TestPreviewHTML(t *testing.T) {
	target, err := Convert(sampleDocument(), domain.TargetWordPressElementor)
	require.NoError(t, err)

	html := PreviewHTML(target.Pages[0], target.Theme)
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "Welcome")
	assert.Contains(t, html, "We make things.")
	assert.Contains(t, html, "s3://b/assets/aaa")
	assert.Contains(t, html, "Open Sans")
}

func TestPreviewHTML_AfterJSONReload(t *testing.T) {
	doc := sampleDocument()
	doc.Pages[0].Elements = append(doc.Pages[0].Elements,
		&idf.Element{
			ID: "el-form", Type: idf.TypeForm, Order: 2,
			Children: []*idf.Element{
				{ID: "el-name", Type: idf.TypeInput, Order: 0, ParentID: "el-form",
					Attributes: map[string]string{"placeholder": "Name"}},
			},
		},
		&idf.Element{
			ID: "el-space", Type: idf.TypeSpacer, Order: 3,
			Styles: map[string]string{"height": "120px"},
		},
	)

	target, err := Convert(doc, domain.TargetWordPressElementor)
	require.NoError(t, err)

	// A resumed run reads the conversion checkpoint back from JSON, where
	// []map[string]any becomes []any and ints become float64.
	data, err := json.Marshal(target)
	require.NoError(t, err)
	var reloaded TargetDocument
	require.NoError(t, json.Unmarshal(data, &reloaded))

	fresh := PreviewHTML(target.Pages[0], target.Theme)
	after := PreviewHTML(reloaded.Pages[0], reloaded.Theme)
	assert.Equal(t, fresh, after)
	assert.Contains(t, after, `placeholder="Name"`)
	assert.Contains(t, after, "height: 120px")
}

func widgetTypes(widgets []*Widget) []string {
	var out []string
	for _, w := range allWidgets(widgets) {
		if w.WidgetType != "" {
			out = append(out, w.WidgetType)
		}
	}
	return out
}

func allWidgets(widgets []*Widget) []*Widget {
	var out []*Widget
	for _, w := range widgets {
		out = append(out, w)
		out = append(out, allWidgets(w.Elements)...)
	}
	return out
}

func findWidget(widgets []*Widget, widgetType string) *Widget {
	for _, w := range allWidgets(widgets) {
		if w.WidgetType == widgetType {
			return w
		}
	}
	return nil
}
