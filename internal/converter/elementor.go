package converter

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

// elementorConverter builds the Elementor widget tree for one document.
type elementorConverter struct {
	doc    *idf.Document
	report Report
}

func newElementorConverter(doc *idf.Document) *elementorConverter {
	return &elementorConverter{doc: doc}
}

func (c *elementorConverter) convert() (*TargetDocument, error) {
	target := &TargetDocument{
		Platform:  domain.TargetWordPressElementor,
		SourceDoc: c.doc.ID,
		Theme:     c.convertTheme(c.doc.Theme),
	}

	for _, page := range c.doc.Pages {
		widgets, err := c.convertPage(page)
		if err != nil {
			return nil, fmt.Errorf("convert page %q: %w", page.Slug, err)
		}
		target.Pages = append(target.Pages, TargetPage{
			ID:         widgetID(page.ID),
			Title:      page.Title,
			Slug:       page.Slug,
			Path:       page.Path,
			IsHomepage: page.IsHomepage,
			Status:     pageStatus(page),
			Widgets:    widgets,
			SEO:        page.SEO,
		})
	}

	for _, asset := range c.doc.Assets {
		target.MediaItems = append(target.MediaItems, MediaItem{
			ID:       asset.ID,
			Type:     asset.Type,
			URL:      firstNonEmpty(asset.StorageURL, asset.OriginalURL),
			MimeType: asset.MimeType,
			AltText:  asset.AltText,
			Width:    asset.Width,
			Height:   asset.Height,
			Size:     asset.Size,
			Missing:  asset.Missing,
		})
	}

	xml, err := buildWXR(c.doc, target.Pages)
	if err != nil {
		return nil, fmt.Errorf("build export xml: %w", err)
	}
	target.ExportXML = xml

	c.report.PageCount = len(target.Pages)
	for i := range target.Pages {
		c.report.WidgetCount += countWidgets(target.Pages[i].Widgets)
	}
	target.Report = c.report

	return target, nil
}

// convertPage produces the page's section list. Elementor requires
// section -> column -> widget nesting, so flatter IDF trees get
// intermediate containers synthesized and deeper ones get redundant
// containers collapsed.
func (c *elementorConverter) convertPage(page *idf.Page) ([]*Widget, error) {
	var sections []*Widget
	for _, root := range orderedChildren(page.Elements) {
		root = c.collapseRedundant(root)
		section, err := c.toSection(root)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	return sections, nil
}

// toSection lifts any root element into a section. Elements that are not
// themselves layout containers get a section and column synthesized
// around them.
func (c *elementorConverter) toSection(el *idf.Element) (*Widget, error) {
	section := &Widget{
		ID:       widgetID(el.ID),
		ElType:   "section",
		Settings: c.layoutSettings(el),
	}

	column := &Widget{
		ID:       widgetID(el.ID + ":column"),
		ElType:   "column",
		Settings: map[string]any{"_column_size": 100},
	}
	section.Elements = []*Widget{column}

	switch el.Type {
	case idf.TypeSection, idf.TypeContainer, idf.TypeHeader, idf.TypeFooter, idf.TypeHero:
		for _, child := range orderedChildren(el.Children) {
			w := c.toWidget(c.collapseRedundant(child), el)
			if w != nil {
				column.Elements = append(column.Elements, w)
			}
		}
	default:
		// Leaf at page root: synthesize the nesting around it.
		c.report.Synthesized++
		if w := c.toWidget(el, nil); w != nil {
			column.Elements = append(column.Elements, w)
		}
	}

	return section, nil
}

// toWidget maps one element onto a widget. The parent provides structural
// context: an image inside a gallery is swallowed by the gallery widget,
// inputs inside a form become form fields.
func (c *elementorConverter) toWidget(el *idf.Element, parent *idf.Element) *Widget {
	if parent != nil {
		switch parent.Type {
		case idf.TypeGallery, idf.TypeSlider:
			if el.Type == idf.TypeImage {
				// Consumed by the parent widget's image list.
				return nil
			}
		case idf.TypeForm:
			switch el.Type {
			case idf.TypeInput, idf.TypeTextarea, idf.TypeSelect, idf.TypeCheckbox, idf.TypeRadio, idf.TypeButton:
				// Consumed by the parent form widget's field list.
				return nil
			}
		}
	}

	switch el.Type {
	case idf.TypeSection, idf.TypeContainer, idf.TypeRow, idf.TypeColumn,
		idf.TypeHeader, idf.TypeFooter, idf.TypeCard, idf.TypeHero:
		return c.containerWidget(el)
	case idf.TypeHeading:
		return c.headingWidget(el)
	case idf.TypeParagraph, idf.TypeText:
		return c.textWidget(el)
	case idf.TypeButton, idf.TypeLink:
		return c.buttonWidget(el)
	case idf.TypeImage:
		return c.imageWidget(el)
	case idf.TypeVideo:
		return c.videoWidget(el)
	case idf.TypeGallery:
		return c.galleryWidget(el, "gallery")
	case idf.TypeSlider:
		return c.galleryWidget(el, "image-carousel")
	case idf.TypeForm:
		return c.formWidget(el)
	case idf.TypeSpacer:
		return c.spacerWidget(el)
	case idf.TypeDivider:
		return c.widget(el, "divider", c.layoutSettings(el))
	case idf.TypeIcon:
		return c.widget(el, "icon", mergeSettings(c.layoutSettings(el), map[string]any{
			"icon": map[string]any{"value": "fas fa-star"},
		}))
	case idf.TypeList, idf.TypeListItem, idf.TypeNavigation, idf.TypeMenu, idf.TypeMenuItem:
		return c.containerWidget(el)
	default:
		// Unsupported types survive as raw markup rather than being
		// dropped; recorded for the report.
		return c.passthroughWidget(el, fmt.Sprintf("no mapping for type %q", el.Type))
	}
}

func (c *elementorConverter) containerWidget(el *idf.Element) *Widget {
	w := &Widget{
		ID:       widgetID(el.ID),
		ElType:   "container",
		Settings: mergeSettings(map[string]any{"content_width": "full"}, c.layoutSettings(el)),
	}
	for _, child := range orderedChildren(el.Children) {
		if cw := c.toWidget(c.collapseRedundant(child), el); cw != nil {
			w.Elements = append(w.Elements, cw)
		}
	}
	return w
}

func (c *elementorConverter) headingWidget(el *idf.Element) *Widget {
	size := "h2"
	if strings.HasPrefix(el.Tag, "h") && len(el.Tag) == 2 {
		size = el.Tag
	}
	return c.widget(el, "heading", mergeSettings(c.typographySettings(el), map[string]any{
		"title":       el.Content,
		"header_size": size,
	}))
}

func (c *elementorConverter) textWidget(el *idf.Element) *Widget {
	content := el.Content
	if content == "" {
		content = el.HTML
	}
	return c.widget(el, "text-editor", mergeSettings(c.typographySettings(el), map[string]any{
		"editor": content,
	}))
}

func (c *elementorConverter) buttonWidget(el *idf.Element) *Widget {
	href := "#"
	if el.Attributes["href"] != "" {
		href = el.Attributes["href"]
	}
	text := el.Content
	if text == "" {
		text = "Click Here"
	}
	return c.widget(el, "button", mergeSettings(c.layoutSettings(el), map[string]any{
		"text": text,
		"link": map[string]any{"url": href, "is_external": false},
	}))
}

func (c *elementorConverter) imageWidget(el *idf.Element) *Widget {
	url := el.Attributes["src"]
	assetID := ""
	if len(el.AssetIDs) > 0 {
		assetID = el.AssetIDs[0]
		if a := c.doc.AssetByID(assetID); a != nil {
			url = firstNonEmpty(a.StorageURL, a.OriginalURL)
		}
	}
	return c.widget(el, "image", mergeSettings(c.layoutSettings(el), map[string]any{
		"image":   map[string]any{"url": url, "id": assetID},
		"alt":     el.Attributes["alt"],
		"link_to": "none",
	}))
}

func (c *elementorConverter) videoWidget(el *idf.Element) *Widget {
	url := el.Attributes["src"]
	if len(el.AssetIDs) > 0 {
		if a := c.doc.AssetByID(el.AssetIDs[0]); a != nil {
			url = firstNonEmpty(a.StorageURL, a.OriginalURL)
		}
	}
	return c.widget(el, "video", mergeSettings(c.layoutSettings(el), map[string]any{
		"video_type": "hosted",
		"hosted_url": map[string]any{"url": url},
	}))
}

// galleryWidget gathers image references from the element itself and its
// image children, which the context mapping suppressed as standalone
// widgets.
func (c *elementorConverter) galleryWidget(el *idf.Element, widgetType string) *Widget {
	var images []map[string]any
	appendAsset := func(assetID string) {
		if a := c.doc.AssetByID(assetID); a != nil && a.Type == "image" {
			images = append(images, map[string]any{
				"id":  a.ID,
				"url": firstNonEmpty(a.StorageURL, a.OriginalURL),
			})
		}
	}
	for _, id := range el.AssetIDs {
		appendAsset(id)
	}
	for _, child := range orderedChildren(el.Children) {
		if child.Type == idf.TypeImage {
			for _, id := range child.AssetIDs {
				appendAsset(id)
			}
		}
	}

	settings := map[string]any{"gallery": images}
	if widgetType == "image-carousel" {
		settings = map[string]any{"slides": images, "autoplay": "yes"}
	} else {
		settings["gallery_layout"] = "grid"
	}
	return c.widget(el, widgetType, mergeSettings(c.layoutSettings(el), settings))
}

func (c *elementorConverter) formWidget(el *idf.Element) *Widget {
	var fields []map[string]any
	for _, child := range orderedChildren(el.Children) {
		fieldType := ""
		switch child.Type {
		case idf.TypeInput:
			fieldType = "text"
		case idf.TypeTextarea:
			fieldType = "textarea"
		case idf.TypeSelect:
			fieldType = "select"
		case idf.TypeCheckbox:
			fieldType = "checkbox"
		case idf.TypeRadio:
			fieldType = "radio"
		default:
			continue
		}
		label := child.Attributes["placeholder"]
		if label == "" {
			label = "Field"
		}
		fields = append(fields, map[string]any{
			"custom_id":   child.ID,
			"field_type":  fieldType,
			"field_label": label,
			"required":    child.Attributes["required"] != "",
		})
	}
	return c.widget(el, "form", mergeSettings(c.layoutSettings(el), map[string]any{
		"form_fields":        fields,
		"submit_button_text": "Submit",
	}))
}

func (c *elementorConverter) spacerWidget(el *idf.Element) *Widget {
	size := 50
	if h, ok := el.Styles["height"]; ok {
		if px, err := strconv.Atoi(strings.TrimSuffix(h, "px")); err == nil {
			size = px
		}
	}
	return c.widget(el, "spacer", map[string]any{
		"space": map[string]any{"size": size},
	})
}

func (c *elementorConverter) passthroughWidget(el *idf.Element, reason string) *Widget {
	c.report.Fallbacks = append(c.report.Fallbacks, Fallback{
		ElementID: el.ID,
		Type:      el.Type,
		Reason:    reason,
	})
	markup := el.HTML
	if markup == "" {
		markup = el.Content
	}
	return c.widget(el, "html", map[string]any{"html": markup})
}

func (c *elementorConverter) widget(el *idf.Element, widgetType string, settings map[string]any) *Widget {
	return &Widget{
		ID:         widgetID(el.ID),
		ElType:     "widget",
		WidgetType: widgetType,
		Settings:   settings,
	}
}

// collapseRedundant removes single-child wrapper containers that carry no
// content or styling of their own. Authoring platforms wrap everything in
// div chains the target nesting does not need.
func (c *elementorConverter) collapseRedundant(el *idf.Element) *idf.Element {
	for isRedundantWrapper(el) {
		c.report.Collapsed++
		el = el.Children[0]
	}
	return el
}

func isRedundantWrapper(el *idf.Element) bool {
	return el.Type == idf.TypeContainer &&
		len(el.Children) == 1 &&
		el.Content == "" &&
		len(el.Styles) == 0 &&
		len(el.AssetIDs) == 0
}

func (c *elementorConverter) layoutSettings(el *idf.Element) map[string]any {
	settings := map[string]any{}
	styles := el.Styles

	if bg, ok := styles["background-color"]; ok {
		settings["background_background"] = "classic"
		settings["background_color"] = bg
	}
	if padding, ok := styles["padding"]; ok {
		settings["padding"] = parseSpacing(padding)
	}
	if margin, ok := styles["margin"]; ok {
		settings["margin"] = parseSpacing(margin)
	}
	if width, ok := styles["width"]; ok {
		settings["width"] = parseDimension(width)
	}
	return settings
}

func (c *elementorConverter) typographySettings(el *idf.Element) map[string]any {
	settings := c.layoutSettings(el)
	styles := el.Styles

	if family, ok := styles["font-family"]; ok {
		settings["typography_font_family"] = family
	}
	if size, ok := styles["font-size"]; ok {
		settings["typography_font_size"] = parseDimension(size)
	}
	if weight, ok := styles["font-weight"]; ok {
		settings["typography_font_weight"] = weight
	}
	if color, ok := styles["color"]; ok {
		settings["text_color"] = color
	}
	if align, ok := styles["text-align"]; ok {
		settings["align"] = align
	}
	return settings
}

func (c *elementorConverter) convertTheme(theme idf.Theme) ThemeConfig {
	cfg := ThemeConfig{
		Colors: map[string]string{
			"primary":    theme.Colors.Primary,
			"secondary":  theme.Colors.Secondary,
			"accent":     theme.Colors.Accent,
			"text":       theme.Colors.Text,
			"background": theme.Colors.Background,
		},
		GlobalColors: map[string]string{
			"primary":   theme.Colors.Primary,
			"secondary": theme.Colors.Secondary,
			"text":      theme.Colors.Text,
			"accent":    theme.Colors.Accent,
		},
		PrimaryFont:   "Arial",
		SecondaryFont: "Arial",
	}
	for _, font := range theme.Fonts {
		cfg.Fonts = append(cfg.Fonts, FontConfig{Family: font.Family, Variants: font.Variants})
	}
	if len(theme.Fonts) > 0 {
		cfg.PrimaryFont = theme.Fonts[0].Family
	}
	if len(theme.Fonts) > 1 {
		cfg.SecondaryFont = theme.Fonts[1].Family
	}
	return cfg
}

// widgetID derives the target id deterministically from the source
// element id, which is what makes conversion reproducible byte for byte.
func widgetID(sourceID string) string {
	sum := sha1.Sum([]byte("widget:" + sourceID))
	return hex.EncodeToString(sum[:])[:12]
}

// orderedChildren returns children sorted by their dense order index.
func orderedChildren(els []*idf.Element) []*idf.Element {
	out := make([]*idf.Element, len(els))
	copy(out, els)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Order > out[j].Order; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func countWidgets(widgets []*Widget) int {
	n := 0
	for _, w := range widgets {
		n += 1 + countWidgets(w.Elements)
	}
	return n
}

func parseSpacing(spacing string) map[string]string {
	parts := strings.Fields(spacing)
	switch len(parts) {
	case 1:
		return map[string]string{"top": parts[0], "right": parts[0], "bottom": parts[0], "left": parts[0]}
	case 2:
		return map[string]string{"top": parts[0], "right": parts[1], "bottom": parts[0], "left": parts[1]}
	case 4:
		return map[string]string{"top": parts[0], "right": parts[1], "bottom": parts[2], "left": parts[3]}
	}
	return map[string]string{"top": "0", "right": "0", "bottom": "0", "left": "0"}
}

var dimensionUnits = []string{"px", "em", "rem", "%", "vw", "vh"}

func parseDimension(dim string) map[string]any {
	dim = strings.TrimSpace(dim)
	unit := "px"
	for _, u := range dimensionUnits {
		if strings.HasSuffix(dim, u) {
			unit = u
			dim = strings.TrimSuffix(dim, u)
			break
		}
	}
	size, err := strconv.ParseFloat(strings.TrimSpace(dim), 64)
	if err != nil {
		return map[string]any{"size": 0.0, "unit": "px"}
	}
	return map[string]any{"size": size, "unit": unit}
}

func mergeSettings(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func pageStatus(page *idf.Page) string {
	if page.Published {
		return "publish"
	}
	return "draft"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
