package converter

import (
	"fmt"
	"html"
	"strings"
)

// PreviewHTML renders one converted page as a static HTML document. The
// similarity checker loads this through the same renderer as the source
// site so the two screenshots are comparable.
func PreviewHTML(page TargetPage, theme ThemeConfig) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString(fmt.Sprintf("<title>%s</title>\n", html.EscapeString(page.Title)))
	if page.SEO.Description != "" {
		b.WriteString(fmt.Sprintf("<meta name=\"description\" content=%q>\n", page.SEO.Description))
	}
	writePreviewCSS(&b, theme)
	b.WriteString("</head>\n<body>\n")
	for _, w := range page.Widgets {
		writeWidget(&b, w, 0)
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func writePreviewCSS(b *strings.Builder, theme ThemeConfig) {
	b.WriteString("<style>\n")
	b.WriteString(fmt.Sprintf("body { margin: 0; font-family: %s, sans-serif;", cssString(theme.PrimaryFont)))
	if c := theme.Colors["text"]; c != "" {
		b.WriteString(fmt.Sprintf(" color: %s;", c))
	}
	if c := theme.Colors["background"]; c != "" {
		b.WriteString(fmt.Sprintf(" background-color: %s;", c))
	}
	b.WriteString(" }\n")
	b.WriteString(".ep-section { width: 100%; }\n")
	b.WriteString(".ep-column { display: flex; flex-direction: column; }\n")
	b.WriteString(".ep-container { display: flex; flex-direction: column; width: 100%; }\n")
	b.WriteString("</style>\n")
}

func writeWidget(b *strings.Builder, w *Widget, depth int) {
	indent := strings.Repeat("  ", depth)
	style := inlineStyle(w.Settings)

	switch w.ElType {
	case "section", "column", "container":
		fmt.Fprintf(b, "%s<div class=\"ep-%s\" data-id=%q%s>\n", indent, w.ElType, w.ID, style)
		for _, child := range w.Elements {
			writeWidget(b, child, depth+1)
		}
		fmt.Fprintf(b, "%s</div>\n", indent)
		return
	}

	switch w.WidgetType {
	case "heading":
		size := settingString(w.Settings, "header_size", "h2")
		fmt.Fprintf(b, "%s<%s data-id=%q%s>%s</%s>\n",
			indent, size, w.ID, style, html.EscapeString(settingString(w.Settings, "title", "")), size)
	case "text-editor":
		fmt.Fprintf(b, "%s<div data-id=%q%s>%s</div>\n",
			indent, w.ID, style, settingString(w.Settings, "editor", ""))
	case "button":
		href := "#"
		if link, ok := w.Settings["link"].(map[string]any); ok {
			href = settingString(link, "url", "#")
		}
		fmt.Fprintf(b, "%s<a href=%q data-id=%q%s>%s</a>\n",
			indent, href, w.ID, style, html.EscapeString(settingString(w.Settings, "text", "")))
	case "image":
		url, alt := "", settingString(w.Settings, "alt", "")
		if img, ok := w.Settings["image"].(map[string]any); ok {
			url = settingString(img, "url", "")
		}
		fmt.Fprintf(b, "%s<img src=%q alt=%q data-id=%q%s>\n", indent, url, alt, w.ID, style)
	case "video":
		url := ""
		if hosted, ok := w.Settings["hosted_url"].(map[string]any); ok {
			url = settingString(hosted, "url", "")
		}
		fmt.Fprintf(b, "%s<video src=%q data-id=%q controls></video>\n", indent, url, w.ID)
	case "gallery", "image-carousel":
		key := "gallery"
		if w.WidgetType == "image-carousel" {
			key = "slides"
		}
		fmt.Fprintf(b, "%s<div class=\"ep-gallery\" data-id=%q%s>\n", indent, w.ID, style)
		for _, img := range settingMaps(w.Settings, key) {
			fmt.Fprintf(b, "%s  <img src=%q alt=\"\">\n", indent, settingString(img, "url", ""))
		}
		fmt.Fprintf(b, "%s</div>\n", indent)
	case "form":
		fmt.Fprintf(b, "%s<form data-id=%q%s>\n", indent, w.ID, style)
		for _, f := range settingMaps(w.Settings, "form_fields") {
			writeFormField(b, f, indent+"  ")
		}
		fmt.Fprintf(b, "%s  <button type=\"submit\">%s</button>\n",
			indent, html.EscapeString(settingString(w.Settings, "submit_button_text", "Submit")))
		fmt.Fprintf(b, "%s</form>\n", indent)
	case "spacer":
		height := 50.0
		if space, ok := w.Settings["space"].(map[string]any); ok {
			height = settingNumber(space, "size", height)
		}
		fmt.Fprintf(b, "%s<div data-id=%q style=\"height: %.0fpx\"></div>\n", indent, w.ID, height)
	case "divider":
		fmt.Fprintf(b, "%s<hr data-id=%q>\n", indent, w.ID)
	case "icon":
		fmt.Fprintf(b, "%s<span class=\"ep-icon\" data-id=%q></span>\n", indent, w.ID)
	case "html":
		fmt.Fprintf(b, "%s<div data-id=%q>%s</div>\n", indent, w.ID, settingString(w.Settings, "html", ""))
	default:
		fmt.Fprintf(b, "%s<div data-id=%q%s></div>\n", indent, w.ID, style)
	}
}

func writeFormField(b *strings.Builder, field map[string]any, indent string) {
	label := settingString(field, "field_label", "")
	switch settingString(field, "field_type", "text") {
	case "textarea":
		fmt.Fprintf(b, "%s<textarea placeholder=%q></textarea>\n", indent, label)
	case "select":
		fmt.Fprintf(b, "%s<select aria-label=%q></select>\n", indent, label)
	case "checkbox":
		fmt.Fprintf(b, "%s<label><input type=\"checkbox\"> %s</label>\n", indent, html.EscapeString(label))
	case "radio":
		fmt.Fprintf(b, "%s<label><input type=\"radio\"> %s</label>\n", indent, html.EscapeString(label))
	default:
		fmt.Fprintf(b, "%s<input type=\"text\" placeholder=%q>\n", indent, label)
	}
}

// inlineStyle maps the few settings the preview honors back onto CSS.
func inlineStyle(settings map[string]any) string {
	var rules []string
	if bg, ok := settings["background_color"].(string); ok && bg != "" {
		rules = append(rules, "background-color: "+bg)
	}
	if c, ok := settings["text_color"].(string); ok && c != "" {
		rules = append(rules, "color: "+c)
	}
	if align, ok := settings["align"].(string); ok && align != "" {
		rules = append(rules, "text-align: "+align)
	}
	if family, ok := settings["typography_font_family"].(string); ok && family != "" {
		rules = append(rules, "font-family: "+family)
	}
	if size, ok := settings["typography_font_size"].(map[string]any); ok {
		if v := settingNumber(size, "size", 0); v > 0 {
			rules = append(rules, fmt.Sprintf("font-size: %g%s", v, settingString(size, "unit", "px")))
		}
	}
	if len(rules) == 0 {
		return ""
	}
	return fmt.Sprintf(" style=%q", strings.Join(rules, "; "))
}

// settingMaps reads a list-of-maps setting both as the converter builds
// it in memory and as it comes back from a JSON round trip, where the
// list decodes to []any.
func settingMaps(settings map[string]any, key string) []map[string]any {
	switch v := settings[key].(type) {
	case []map[string]any:
		return v
	case []any:
		maps := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				maps = append(maps, m)
			}
		}
		return maps
	}
	return nil
}

// settingNumber tolerates both int (in memory) and float64 (JSON).
func settingNumber(settings map[string]any, key string, fallback float64) float64 {
	switch v := settings[key].(type) {
	case int:
		return float64(v)
	case float64:
		return v
	}
	return fallback
}

func settingString(settings map[string]any, key, fallback string) string {
	if v, ok := settings[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func cssString(s string) string {
	if strings.ContainsAny(s, " \t") {
		return "'" + s + "'"
	}
	return s
}
