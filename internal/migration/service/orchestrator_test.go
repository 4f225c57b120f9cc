package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siteporter/siteporter-backend/internal/analyzer"
	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

func TestStageDone(t *testing.T) {
	cases := []struct {
		current string
		stage   string
		done    bool
	}{
		{domain.StatusPending, domain.StatusAnalyzing, false},
		{domain.StatusExtracting, domain.StatusAnalyzing, false},
		// A stage equal to the recorded status was in flight when the
		// worker died and must re-run.
		{domain.StatusAnalyzing, domain.StatusAnalyzing, false},
		{domain.StatusConverting, domain.StatusAnalyzing, true},
		{domain.StatusValidating, domain.StatusAnalyzing, true},
		{domain.StatusValidating, domain.StatusConverting, true},
		{domain.StatusConverting, domain.StatusConverting, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.done, stageDone(tc.current, tc.stage), "%s vs %s", tc.current, tc.stage)
	}
}

func TestDomSummary_Deterministic(t *testing.T) {
	page := &idf.Page{
		ID: "page-1", Slug: "home",
		Elements: []*idf.Element{
			{
				ID: "el-1", Type: idf.TypeSection,
				Children: []*idf.Element{
					{ID: "el-2", Type: idf.TypeHeading},
					{ID: "el-3", Type: idf.TypeParagraph},
					{ID: "el-4", Type: idf.TypeImage},
				},
			},
		},
	}

	first := domSummary(page)
	assert.Contains(t, first, "page=home")
	assert.Contains(t, first, "elements=4")
	assert.Contains(t, first, "heading=1")

	for i := 0; i < 20; i++ {
		assert.Equal(t, first, domSummary(page))
	}
}

func TestApplyAnalysis(t *testing.T) {
	page := &idf.Page{
		ID: "page-1", Slug: "home",
		Elements: []*idf.Element{
			{
				ID: "el-1", Type: idf.TypeContainer,
				Children: []*idf.Element{
					{ID: "el-2", Type: idf.TypeContainer},
					{ID: "el-3", Type: idf.TypeContainer},
				},
			},
		},
	}

	applyAnalysis(page, &analyzer.Analysis{
		ElementClassifications: []analyzer.ElementClassification{
			{ElementID: "el-2", Kind: "hero", Confidence: 0.95},
			{ElementID: "el-3", Kind: "card", Confidence: 0.4}, // below threshold
			{ElementID: "el-9", Kind: "form", Confidence: 0.99},
		},
		Confidence: 0.9,
	})

	assert.Equal(t, idf.TypeHero, page.Elements[0].Children[0].Type)
	assert.Equal(t, idf.TypeContainer, page.Elements[0].Children[1].Type, "low confidence must not override")
	assert.NotNil(t, page.PlatformData["layout_analysis"])
}

func TestMetrics(t *testing.T) {
	ResetMetrics()
	recordRunStarted(false)
	recordRunStarted(true)
	recordRunCompleted()
	recordRunFailed(true)

	m := GetMetrics()
	assert.Equal(t, int64(2), m.RunsStarted())
	assert.Equal(t, int64(1), m.RunsCompleted())
	assert.Equal(t, int64(1), m.RunsFailed())
	assert.Equal(t, int64(1), m.RunsCancelled())
	ResetMetrics()
}
