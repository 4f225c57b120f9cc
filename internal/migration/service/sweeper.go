package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/siteporter/siteporter-backend/internal/migration/domain"
	"github.com/siteporter/siteporter-backend/internal/queue"
)

const sweepBatchSize = 100

// Sweeper re-enqueues pending migrations that never reached a worker,
// usually because the enqueue after Create failed or the queue was
// flushed. It runs on a cron schedule inside the worker process.
type Sweeper struct {
	migrations MigrationStore
	jobs       JobQueue
	minAge     time.Duration
	cron       *cron.Cron
}

// NewSweeper builds a sweeper. Pending migrations younger than minAge
// are left alone; they are most likely still sitting in the queue.
func NewSweeper(migrations MigrationStore, jobs JobQueue, minAge time.Duration) *Sweeper {
	return &Sweeper{migrations: migrations, jobs: jobs, minAge: minAge}
}

// Start schedules the sweep with a standard five-field cron expression.
func (s *Sweeper) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if n, err := s.Sweep(context.Background()); err != nil {
			log.Printf("[error] operation=sweep error=%v", err)
		} else if n > 0 {
			log.Printf("[info] operation=sweep requeued=%d", n)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule requeue sweep: %w", err)
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep re-enqueues stuck pending migrations and returns how many it
// picked up.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	pending, err := s.migrations.List(ctx, domain.StatusPending, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-s.minAge)
	requeued := 0
	for _, m := range pending {
		if m.UpdatedAt.After(cutoff) {
			continue
		}
		cancelled, err := s.jobs.CancelRequested(ctx, m.ID)
		if err != nil {
			return requeued, err
		}
		if cancelled {
			continue
		}
		if err := s.jobs.Enqueue(ctx, queue.Job{MigrationID: m.ID, Resume: true}); err != nil {
			return requeued, err
		}
		ForMigration(m.ID).LogInfo("sweep", "requeued stuck pending migration")
		requeued++
	}
	return requeued, nil
}
