package service

import (
	"context"
	"log"
)

// Logger provides structured logging for the migration service
type Logger struct {
	migrationID string
}

// NewLogger creates a logger bound to the migration in the context
func NewLogger(ctx context.Context) *Logger {
	migrationID := "unknown"
	if id, ok := ctx.Value("migration_id").(string); ok && id != "" {
		migrationID = id
	}
	return &Logger{migrationID: migrationID}
}

// ForMigration creates a logger bound to a known migration ID
func ForMigration(migrationID string) *Logger {
	return &Logger{migrationID: migrationID}
}

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error) {
	log.Printf("[error] migration_id=%s operation=%s error=%v", l.migrationID, operation, err)
}

// LogErrorf logs a formatted error with context
func (l *Logger) LogErrorf(operation string, format string, args ...interface{}) {
	log.Printf("[error] migration_id=%s operation=%s "+format, append([]interface{}{l.migrationID, operation}, args...)...)
}

// LogInfo logs an info message with context
func (l *Logger) LogInfo(operation string, message string) {
	log.Printf("[info] migration_id=%s operation=%s message=%s", l.migrationID, operation, message)
}

// LogInfof logs a formatted info message with context
func (l *Logger) LogInfof(operation string, format string, args ...interface{}) {
	log.Printf("[info] migration_id=%s operation=%s "+format, append([]interface{}{l.migrationID, operation}, args...)...)
}

// LogWarn logs a warning with context
func (l *Logger) LogWarn(operation string, message string) {
	log.Printf("[warn] migration_id=%s operation=%s message=%s", l.migrationID, operation, message)
}

// LogWarnf logs a formatted warning with context
func (l *Logger) LogWarnf(operation string, format string, args ...interface{}) {
	log.Printf("[warn] migration_id=%s operation=%s "+format, append([]interface{}{l.migrationID, operation}, args...)...)
}
