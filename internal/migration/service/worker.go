package service

import (
	"context"
	"sync"

	"github.com/siteporter/siteporter-backend/internal/queue"
)

// Worker consumes migration jobs and runs them through the
// orchestrator. One Worker owns a pool of goroutines; Stop drains them.
type Worker struct {
	jobs         *queue.Queue
	orchestrator *Orchestrator
	poolSize     int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWorker creates a new worker pool
func NewWorker(jobs *queue.Queue, orchestrator *Orchestrator, poolSize int) *Worker {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Worker{jobs: jobs, orchestrator: orchestrator, poolSize: poolSize}
}

// Start launches the pool. Workers run until ctx is cancelled or Stop
// is called.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	for i := 0; i < w.poolSize; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.loop(ctx, id)
		}(i)
	}
}

// Stop signals the pool and waits for in-flight migrations to reach a
// stage boundary and exit.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			ForMigration("worker").LogErrorf("dequeue", "worker=%d error=%v", id, err)
			continue
		}
		if job == nil {
			continue
		}

		logger := ForMigration(job.MigrationID)
		logger.LogInfof("dequeue", "worker=%d resume=%t", id, job.Resume)
		if err := w.orchestrator.Run(ctx, job.MigrationID); err != nil {
			logger.LogError("run", err)
		}
	}
}
