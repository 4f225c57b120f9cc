package similarity

import (
	"fmt"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/siteporter/siteporter-backend/internal/converter"
	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

// structuralScore compares the shape of the two sites: page count,
// element count and the cosine similarity of their element type
// distributions, blended 0.2/0.4/0.4. The converted side is measured on
// its rendered preview markup so collapsed and synthesized containers
// count the way a browser would see them.
func structuralScore(source *idf.Document, target *converter.TargetDocument) (domain.MetricScore, error) {
	if len(source.Pages) == 0 {
		return domain.MetricScore{}, fmt.Errorf("source document has no pages")
	}

	pageRatio := ratio(float64(len(target.Pages)), float64(len(source.Pages)))

	var srcCount, dstCount int
	srcDist := map[string]float64{}
	dstDist := map[string]float64{}

	for _, page := range source.Pages {
		srcCount += page.ElementCount()
		page.WalkElements(func(el *idf.Element) bool {
			srcDist[typeBucket(el.Type)]++
			return true
		})
	}

	for _, page := range target.Pages {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(converter.PreviewHTML(page, target.Theme)))
		if err != nil {
			return domain.MetricScore{}, fmt.Errorf("parse preview for %q: %w", page.Slug, err)
		}
		doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
			dstCount++
			dstDist[tagBucket(goquery.NodeName(sel))]++
		})
	}

	elemRatio := ratio(float64(dstCount), float64(srcCount))
	cosine := cosineSimilarity(srcDist, dstDist)

	score := clamp01(pageRatio*0.2 + elemRatio*0.4 + cosine*0.4)
	return domain.MetricScore{
		Score: score,
		Details: map[string]float64{
			"page_count_ratio":    pageRatio,
			"element_count_ratio": elemRatio,
			"type_distribution":   cosine,
		},
	}, nil
}

// typeBucket coarsens element types into the categories both sides can
// express, so a heading stays comparable to the h-tag it became.
func typeBucket(t idf.ElementType) string {
	switch t {
	case idf.TypeHeading:
		return "heading"
	case idf.TypeParagraph, idf.TypeText, idf.TypeList, idf.TypeListItem:
		return "text"
	case idf.TypeImage, idf.TypeGallery, idf.TypeSlider:
		return "image"
	case idf.TypeVideo, idf.TypeAudio:
		return "media"
	case idf.TypeButton, idf.TypeLink:
		return "action"
	case idf.TypeForm, idf.TypeInput, idf.TypeTextarea, idf.TypeSelect, idf.TypeCheckbox, idf.TypeRadio:
		return "form"
	default:
		return "container"
	}
}

func tagBucket(tag string) string {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return "heading"
	case "p", "span", "ul", "ol", "li", "blockquote":
		return "text"
	case "img", "picture", "svg":
		return "image"
	case "video", "audio", "iframe":
		return "media"
	case "a", "button":
		return "action"
	case "form", "input", "textarea", "select", "label":
		return "form"
	default:
		return "container"
	}
}

func cosineSimilarity(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for k, va := range a {
		dot += va * b[k]
		normA += va * va
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// ratio returns min(a, b) / max(a, b), so equal counts score 1.
func ratio(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	if a > b {
		a, b = b, a
	}
	if b == 0 {
		return 0
	}
	return a / b
}
