package domain

import "time"

// Migration is the job record for one site migration. The orchestrator is
// its sole mutator; readers observe whatever snapshot the repository
// returns.
type Migration struct {
	ID             string     `json:"id"`
	ProjectName    string     `json:"project_name"`
	SourceURL      string     `json:"source_url"`
	SourcePlatform string     `json:"source_platform"`
	TargetPlatform string     `json:"target_platform"`
	Status         string     `json:"status"`
	Progress       float64    `json:"progress"` // 0.0 to 1.0
	DocumentID     string     `json:"document_id,omitempty"`
	ReportID       string     `json:"report_id,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Migration status constants. Transitions are monotonic: no backward
// transitions except an explicit retry of the current stage.
const (
	StatusPending    = "pending"
	StatusExtracting = "extracting"
	StatusAnalyzing  = "analyzing"
	StatusConverting = "converting"
	StatusValidating = "validating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Supported platform tags.
const (
	PlatformWix         = "wix"
	PlatformSquarespace = "squarespace"
	PlatformWebflow     = "webflow"
	PlatformWordPress   = "wordpress"

	TargetWordPressElementor = "wordpress_elementor"
)

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// IsTerminal reports whether the migration admits no further transitions.
func (m *Migration) IsTerminal() bool {
	return IsTerminal(m.Status)
}

// IsValidStatus reports whether s is one of the known status values.
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusExtracting, StatusAnalyzing, StatusConverting,
		StatusValidating, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsSupportedSource reports whether the platform can be extracted from.
// Recognized platforms without an extractor still pass here; the
// extractor itself rejects them with a clearer error.
func IsSupportedSource(platform string) bool {
	switch platform {
	case PlatformWix, PlatformSquarespace, PlatformWebflow, PlatformWordPress:
		return true
	}
	return false
}

// IsSupportedTarget reports whether the platform can be converted to.
func IsSupportedTarget(platform string) bool {
	return platform == TargetWordPressElementor
}

// CreateMigrationRequest carries the data needed to create a migration.
type CreateMigrationRequest struct {
	ProjectName    string `json:"project_name" binding:"required"`
	SourceURL      string `json:"source_url" binding:"required"`
	SourcePlatform string `json:"source_platform" binding:"required"`
	TargetPlatform string `json:"target_platform" binding:"required"`
}

// MetricScore is one sub-metric result inside a similarity report.
type MetricScore struct {
	Score   float64            `json:"score"`
	Details map[string]float64 `json:"details,omitempty"`
}

// SimilarityReport is the immutable outcome of one validation run. A new
// run produces a new report, preserving history.
type SimilarityReport struct {
	ID                 string                 `json:"id"`
	MigrationID        string                 `json:"migration_id"`
	OverallScore       float64                `json:"overall_score"`
	MeetsTarget        bool                   `json:"meets_target"`
	TargetScore        float64                `json:"target_score"`
	Scores             map[string]MetricScore `json:"scores"`
	Weights            map[string]float64     `json:"weights"` // weights actually used, post renormalization
	ExcludedMetrics    []string               `json:"excluded_metrics,omitempty"`
	DegradedConfidence bool                   `json:"degraded_confidence,omitempty"`
	Recommendations    []string               `json:"recommendations,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
}
