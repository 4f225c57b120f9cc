// Package similarity scores how closely a converted site matches its
// source. Five metrics contribute to a weighted overall score; metrics
// whose inputs are unavailable are excluded and the remaining weights
// renormalized, flagging the report as degraded confidence.
package similarity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/siteporter/siteporter-backend/internal/analyzer"
	"github.com/siteporter/siteporter-backend/internal/converter"
	"github.com/siteporter/siteporter-backend/internal/idf"
	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

const (
	MetricVisual     = "visual"
	MetricStructural = "structural"
	MetricContent    = "content"
	MetricAsset      = "asset"
	MetricSemantic   = "semantic"
)

// DefaultWeights is the contribution of each metric to the overall score.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		MetricVisual:     0.35,
		MetricStructural: 0.20,
		MetricContent:    0.20,
		MetricAsset:      0.10,
		MetricSemantic:   0.15,
	}
}

const DefaultTargetScore = 0.90

// Input carries everything a comparison needs. Screenshot maps are keyed
// by source page ID; a missing entry degrades the screenshot-based
// metrics for that page rather than failing the check.
type Input struct {
	Source      *idf.Document
	Target      *converter.TargetDocument
	SourceShots map[string][]byte
	TargetShots map[string][]byte
}

// Checker computes similarity reports.
type Checker struct {
	analyzer    analyzer.Client
	weights     map[string]float64
	targetScore float64
}

type Option func(*Checker)

func WithWeights(w map[string]float64) Option {
	return func(c *Checker) { c.weights = w }
}

func WithTargetScore(score float64) Option {
	return func(c *Checker) { c.targetScore = score }
}

// NewChecker builds a checker. The analyzer client may be nil, in which
// case the semantic metric is always excluded.
func NewChecker(client analyzer.Client, opts ...Option) *Checker {
	c := &Checker{
		analyzer:    client,
		weights:     DefaultWeights(),
		targetScore: DefaultTargetScore,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check scores the conversion and assembles the report.
func (c *Checker) Check(ctx context.Context, migrationID string, in Input) (*domain.SimilarityReport, error) {
	if in.Source == nil || in.Target == nil {
		return nil, fmt.Errorf("similarity check: source and target documents are required")
	}

	report := &domain.SimilarityReport{
		ID:          uuid.New().String(),
		MigrationID: migrationID,
		TargetScore: c.targetScore,
		Scores:      map[string]domain.MetricScore{},
		Weights:     map[string]float64{},
		CreatedAt:   time.Now().UTC(),
	}

	type metricResult struct {
		name  string
		score domain.MetricScore
		err   error
	}

	results := []metricResult{}
	add := func(name string, score domain.MetricScore, err error) {
		results = append(results, metricResult{name, score, err})
	}

	vs, err := visualScore(in)
	add(MetricVisual, vs, err)
	ss, err := structuralScore(in.Source, in.Target)
	add(MetricStructural, ss, err)
	cs, err := contentScore(in.Source, in.Target)
	add(MetricContent, cs, err)
	as, err := assetScore(in.Source, in.Target)
	add(MetricAsset, as, err)
	sem, err := c.semanticScore(ctx, in)
	add(MetricSemantic, sem, err)

	available := map[string]float64{}
	for _, r := range results {
		if r.err != nil {
			report.ExcludedMetrics = append(report.ExcludedMetrics, r.name)
			report.DegradedConfidence = true
			continue
		}
		report.Scores[r.name] = r.score
		available[r.name] = c.weights[r.name]
	}
	sort.Strings(report.ExcludedMetrics)

	if len(available) == 0 {
		return nil, fmt.Errorf("similarity check: no metric could be computed")
	}

	// Renormalize so the remaining weights sum to one.
	var sum float64
	for _, w := range available {
		sum += w
	}
	var overall float64
	for name, w := range available {
		norm := w / sum
		report.Weights[name] = norm
		overall += report.Scores[name].Score * norm
	}
	report.OverallScore = clamp01(overall)
	report.MeetsTarget = report.OverallScore >= c.targetScore
	report.DegradedConfidence = report.DegradedConfidence || in.Source.ExtractionMetadata.DegradedConfidence
	report.Recommendations = recommendations(report)

	return report, nil
}

func (c *Checker) semanticScore(ctx context.Context, in Input) (domain.MetricScore, error) {
	if c.analyzer == nil {
		return domain.MetricScore{}, fmt.Errorf("%w: no analyzer configured", domain.ErrAnalysisUnavailable)
	}

	var total float64
	var n int
	details := map[string]float64{}
	for _, page := range in.Source.Pages {
		src, ok := in.SourceShots[page.ID]
		dst, ok2 := in.TargetShots[page.ID]
		if !ok || !ok2 {
			continue
		}
		cmp, err := c.analyzer.CompareScreenshots(ctx, src, dst)
		if err != nil {
			return domain.MetricScore{}, err
		}
		score := cmp.Score()
		details[page.Slug] = score
		total += score
		n++
	}
	if n == 0 {
		return domain.MetricScore{}, fmt.Errorf("%w: no screenshot pairs to compare", domain.ErrAnalysisUnavailable)
	}
	return domain.MetricScore{Score: clamp01(total / float64(n)), Details: details}, nil
}

// recommendations names the weakest metrics and what usually improves
// them. Only metrics clearly below their expected baseline are called
// out.
func recommendations(report *domain.SimilarityReport) []string {
	var recs []string
	type weak struct {
		name  string
		score float64
	}
	var weakest []weak
	for name, ms := range report.Scores {
		if ms.Score < 0.75 {
			weakest = append(weakest, weak{name, ms.Score})
		}
	}
	sort.Slice(weakest, func(i, j int) bool {
		if weakest[i].score != weakest[j].score {
			return weakest[i].score < weakest[j].score
		}
		return weakest[i].name < weakest[j].name
	})

	for _, w := range weakest {
		switch w.name {
		case MetricVisual:
			recs = append(recs, "Visual similarity is low; review layout spacing and background colors on the converted pages.")
		case MetricStructural:
			recs = append(recs, "Structural similarity is low; some source elements may have been flattened or dropped during conversion.")
		case MetricContent:
			recs = append(recs, "Content similarity is low; check that all text blocks were carried over.")
		case MetricAsset:
			recs = append(recs, "Asset similarity is low; some images or media files failed to download or were replaced by placeholders.")
		case MetricSemantic:
			recs = append(recs, "Semantic similarity is low; the converted pages may read differently from the source at a glance.")
		}
	}
	for _, name := range report.ExcludedMetrics {
		recs = append(recs, fmt.Sprintf("The %s metric could not be computed and was excluded from the overall score.", name))
	}
	if report.DegradedConfidence {
		recs = append(recs, "Confidence is degraded; treat the overall score as an estimate and review pages manually.")
	}
	return recs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
