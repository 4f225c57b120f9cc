package domain

import "errors"

var (
	ErrMigrationNotFound = errors.New("migration not found")
	ErrDocumentNotFound  = errors.New("idf document not found")
	ErrReportNotFound    = errors.New("similarity report not found")

	// ErrUnsupportedPlatform is fatal at creation time: the requested
	// source or target platform has no implementation.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrRootUnreachable aborts extraction: the source root URL could not
	// be loaded at all.
	ErrRootUnreachable = errors.New("source root url unreachable")

	// ErrAnalysisUnavailable marks the layout analyzer boundary as
	// degraded after retries. Recoverable: the pipeline proceeds without
	// the semantic overlay.
	ErrAnalysisUnavailable = errors.New("layout analysis unavailable")

	// ErrConversionFailed is fatal only when it affects a required root
	// container; per-element failures fall back to passthrough widgets.
	ErrConversionFailed = errors.New("conversion failed")

	// ErrCancelled is the terminal reason for a cooperatively cancelled
	// migration.
	ErrCancelled = errors.New("migration cancelled")

	ErrInvalidStatus = errors.New("invalid migration status")
)
