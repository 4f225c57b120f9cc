package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS migrations (
		id              UUID PRIMARY KEY,
		project_name    TEXT NOT NULL DEFAULT '',
		source_url      TEXT NOT NULL,
		source_platform TEXT NOT NULL,
		target_platform TEXT NOT NULL,
		status          TEXT NOT NULL,
		progress        DOUBLE PRECISION NOT NULL DEFAULT 0,
		document_id     TEXT,
		report_id       TEXT,
		error_message   TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_migrations_status ON migrations (status)`,
	`CREATE TABLE IF NOT EXISTS idf_documents (
		id              TEXT PRIMARY KEY,
		migration_id    UUID NOT NULL REFERENCES migrations (id) ON DELETE CASCADE,
		source_platform TEXT NOT NULL,
		source_url      TEXT NOT NULL,
		payload         JSONB NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS converted_documents (
		document_id     TEXT PRIMARY KEY REFERENCES idf_documents (id) ON DELETE CASCADE,
		target_platform TEXT NOT NULL,
		payload         JSONB NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS similarity_reports (
		id            TEXT PRIMARY KEY,
		migration_id  UUID NOT NULL REFERENCES migrations (id) ON DELETE CASCADE,
		overall_score DOUBLE PRECISION NOT NULL,
		meets_target  BOOLEAN NOT NULL,
		payload       JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_similarity_reports_migration ON similarity_reports (migration_id, created_at)`,
}

// EnsureSchema creates the tables if they do not exist. Deployments that
// manage schema externally can skip this.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
