// Package analyzer adapts the external vision-capable layout analysis
// service. The service is a collaborator, not part of the core: this
// package owns the client, its retry policy and the result cache.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

const (
	// analyzeTimeout bounds one analyzeLayout call. Callers must never
	// block indefinitely on the boundary.
	analyzeTimeout = 30 * time.Second

	// compareTimeout bounds one screenshot comparison call.
	compareTimeout = 60 * time.Second
)

// ElementClassification is the analyzer's judgment of one region.
type ElementClassification struct {
	ElementID  string  `json:"element_id"`
	Kind       string  `json:"kind"` // hero, card, gallery, form, ...
	Confidence float64 `json:"confidence"`
}

// GridRegion is one detected layout region.
type GridRegion struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Kind   string `json:"kind"`
}

// Analysis is the analyzeLayout result.
type Analysis struct {
	ElementClassifications []ElementClassification `json:"element_classifications"`
	ColorPalette           []string                `json:"color_palette"`
	GridRegions            []GridRegion            `json:"grid_regions"`
	Confidence             float64                 `json:"confidence"`
}

// Comparison is the semantic screenshot comparison result, scored 0-10
// per aspect by the service.
type Comparison struct {
	LayoutSimilarity   float64  `json:"layout_similarity"`
	VisualHierarchy    float64  `json:"visual_hierarchy"`
	ColorScheme        float64  `json:"color_scheme"`
	Typography         float64  `json:"typography"`
	Spacing            float64  `json:"spacing"`
	ComponentPlacement float64  `json:"component_placement"`
	NotableDifferences []string `json:"notable_differences,omitempty"`
}

// Score normalizes the per-aspect 0-10 scores to a single value in [0,1].
func (c *Comparison) Score() float64 {
	sum := c.LayoutSimilarity + c.VisualHierarchy + c.ColorScheme +
		c.Typography + c.Spacing + c.ComponentPlacement
	return sum / 60.0
}

// Client is the layout analyzer boundary the pipeline depends on.
type Client interface {
	// AnalyzeLayout classifies regions and extracts a palette from a
	// rendered page. Returns domain.ErrAnalysisUnavailable once retries
	// are exhausted.
	AnalyzeLayout(ctx context.Context, screenshot []byte, domSummary string) (*Analysis, error)

	// CompareScreenshots judges whether the rendered target reads the
	// same as the source. Same failure contract as AnalyzeLayout.
	CompareScreenshots(ctx context.Context, source, target []byte) (*Comparison, error)
}

// HTTPClient talks to the analysis service over HTTP.
type HTTPClient struct {
	baseURL       string
	apiKey        string
	retry         RetryPolicy
	defaultClient *http.Client
	compareClient *http.Client // comparison calls take longer
}

// NewHTTPClient creates a client for the given service endpoint.
func NewHTTPClient(baseURL, apiKey string, retry RetryPolicy) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		retry:   retry,
		defaultClient: &http.Client{
			Timeout: analyzeTimeout,
		},
		compareClient: &http.Client{
			Timeout: compareTimeout,
		},
	}
}

type analyzeRequest struct {
	Screenshot []byte `json:"screenshot"`
	DOMSummary string `json:"dom_summary"`
}

type compareRequest struct {
	Source []byte `json:"source"`
	Target []byte `json:"target"`
}

// AnalyzeLayout posts the screenshot and DOM summary to the service,
// retrying transient failures with capped exponential backoff.
func (c *HTTPClient) AnalyzeLayout(ctx context.Context, screenshot []byte, domSummary string) (*Analysis, error) {
	var analysis Analysis
	err := c.retry.Do(ctx, func() error {
		return c.post(ctx, c.defaultClient, "/v1/analyze-layout", analyzeRequest{
			Screenshot: screenshot,
			DOMSummary: domSummary,
		}, &analysis)
	})
	if err != nil {
		recordAnalyzerGiveUp()
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisUnavailable, err)
	}
	return &analysis, nil
}

// CompareScreenshots posts both screenshots for semantic comparison.
func (c *HTTPClient) CompareScreenshots(ctx context.Context, source, target []byte) (*Comparison, error) {
	var cmp Comparison
	err := c.retry.Do(ctx, func() error {
		return c.post(ctx, c.compareClient, "/v1/compare", compareRequest{
			Source: source,
			Target: target,
		}, &cmp)
	})
	if err != nil {
		recordAnalyzerGiveUp()
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisUnavailable, err)
	}
	return &cmp, nil
}

func (c *HTTPClient) post(ctx context.Context, client *http.Client, path string, payload, out any) error {
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		recordAnalyzerCall(duration, err)
		return fmt.Errorf("analyzer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		err := fmt.Errorf("analyzer returned status %d", resp.StatusCode)
		recordAnalyzerCall(duration, err)
		return err
	}
	if resp.StatusCode >= 400 {
		// Client errors are not transient; fail without retry.
		err := fmt.Errorf("analyzer rejected request with status %d", resp.StatusCode)
		recordAnalyzerCall(duration, err)
		return &permanentError{err}
	}

	recordAnalyzerCall(duration, nil)

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode analyzer response: %w", err)
	}
	return nil
}
