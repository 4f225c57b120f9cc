package similarity

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/siteporter/siteporter-backend/internal/converter"
	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

// contentScore compares the visible text of both sites: token overlap
// (Jaccard) blended 0.7 with total length ratio 0.3, averaged over
// matched page pairs.
func contentScore(source *idf.Document, target *converter.TargetDocument) (domain.MetricScore, error) {
	if len(source.Pages) == 0 {
		return domain.MetricScore{}, fmt.Errorf("source document has no pages")
	}

	targetBySlug := map[string]converter.TargetPage{}
	for _, p := range target.Pages {
		targetBySlug[p.Slug] = p
	}

	var total float64
	var n int
	details := map[string]float64{}
	for _, page := range source.Pages {
		tp, ok := targetBySlug[page.Slug]
		if !ok {
			details[page.Slug] = 0
			n++
			continue
		}
		srcText := sourceText(page)
		dstText := widgetText(tp.Widgets)

		jaccard := tokenJaccard(srcText, dstText)
		length := ratio(float64(len(dstText)), float64(len(srcText)))
		score := clamp01(jaccard*0.7 + length*0.3)

		details[page.Slug] = score
		total += score
		n++
	}
	if n == 0 {
		return domain.MetricScore{}, fmt.Errorf("no pages to compare")
	}
	return domain.MetricScore{Score: clamp01(total / float64(n)), Details: details}, nil
}

func sourceText(page *idf.Page) string {
	var b strings.Builder
	page.WalkElements(func(el *idf.Element) bool {
		if el.Content != "" {
			b.WriteString(el.Content)
			b.WriteByte(' ')
		}
		return true
	})
	return b.String()
}

func widgetText(widgets []*converter.Widget) string {
	var b strings.Builder
	var walk func(ws []*converter.Widget)
	walk = func(ws []*converter.Widget) {
		for _, w := range ws {
			for _, key := range []string{"title", "editor", "text", "html"} {
				if v, ok := w.Settings[key].(string); ok && v != "" {
					b.WriteString(stripMarkup(v))
					b.WriteByte(' ')
				}
			}
			walk(w.Elements)
		}
	}
	walk(widgets)
	return b.String()
}

// stripMarkup drops tags from editor and passthrough settings so their
// tokens compare against the plain source text.
func stripMarkup(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
			b.WriteByte(' ')
		}
	}
}

// tokenJaccard measures word overlap, case-insensitive. Both empty means
// nothing was lost, which scores 1.
func tokenJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	var inter, union int
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union = len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]<>")
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}
