// Package queue carries migration jobs from the API to the worker over
// a Redis list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobListKey      = "migration:jobs"         // Pending jobs, LPUSH / BRPOP
	cancelKeyPrefix = "migration:cancel:"      // Cancellation flag: migration:cancel:{migration_id}
	cancelTTL       = 24 * time.Hour           // Flags outlive any reasonable job run
	dequeueBlock    = 5 * time.Second          // BRPOP timeout so workers can observe shutdown
)

// Job is one unit of work for the migration worker.
type Job struct {
	MigrationID string    `json:"migration_id"`
	Resume      bool      `json:"resume,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Queue is the Redis-backed job queue.
type Queue struct {
	client *redis.Client
}

// NewQueue creates a new Queue.
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue pushes a job for the worker pool.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, jobListKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Dequeue blocks for the next job. Returns (nil, nil) when the blocking
// window elapses with no work, so callers can loop and re-check ctx.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	res, err := q.client.BRPop(ctx, dequeueBlock, jobListKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	// BRPOP returns [key, value].
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Len reports how many jobs are waiting.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, jobListKey).Result()
}

// RequestCancel raises the cancellation flag for a running migration.
// The worker checks it between pipeline stages.
func (q *Queue) RequestCancel(ctx context.Context, migrationID string) error {
	if err := q.client.Set(ctx, cancelKeyPrefix+migrationID, "1", cancelTTL).Err(); err != nil {
		return fmt.Errorf("failed to set cancel flag: %w", err)
	}
	return nil
}

// CancelRequested reports whether a cancellation flag is raised.
func (q *Queue) CancelRequested(ctx context.Context, migrationID string) (bool, error) {
	n, err := q.client.Exists(ctx, cancelKeyPrefix+migrationID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cancel flag: %w", err)
	}
	return n > 0, nil
}

// ClearCancel drops the flag once the migration reaches a terminal state.
func (q *Queue) ClearCancel(ctx context.Context, migrationID string) error {
	return q.client.Del(ctx, cancelKeyPrefix+migrationID).Err()
}
