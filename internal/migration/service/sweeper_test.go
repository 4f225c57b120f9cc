package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteporter/siteporter-backend/internal/migration/domain"
)

func TestSweeper_RequeuesStuckPending(t *testing.T) {
	m := pendingMigration()
	m.UpdatedAt = time.Now().Add(-30 * time.Minute)
	migrations := &fakeMigrations{m: m}
	jobs := newFakeJobs()

	s := NewSweeper(migrations, jobs, 10*time.Minute)
	n, err := s.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	require.Len(t, jobs.enqueued, 1)
	assert.Equal(t, "mig-1", jobs.enqueued[0].MigrationID)
	assert.True(t, jobs.enqueued[0].Resume)
}

func TestSweeper_LeavesFreshAndCancelledAlone(t *testing.T) {
	t.Run("fresh pending stays queued", func(t *testing.T) {
		m := pendingMigration()
		m.UpdatedAt = time.Now()
		jobs := newFakeJobs()

		s := NewSweeper(&fakeMigrations{m: m}, jobs, 10*time.Minute)
		n, err := s.Sweep(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, jobs.enqueued)
	})

	t.Run("cancelled pending is not revived", func(t *testing.T) {
		m := pendingMigration()
		m.UpdatedAt = time.Now().Add(-time.Hour)
		jobs := newFakeJobs()
		jobs.cancelled[m.ID] = true

		s := NewSweeper(&fakeMigrations{m: m}, jobs, 10*time.Minute)
		n, err := s.Sweep(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, jobs.enqueued)
	})

	t.Run("non-pending migrations are ignored", func(t *testing.T) {
		m := pendingMigration()
		m.Status = domain.StatusExtracting
		m.UpdatedAt = time.Now().Add(-time.Hour)
		jobs := newFakeJobs()

		s := NewSweeper(&fakeMigrations{m: m}, jobs, 10*time.Minute)
		n, err := s.Sweep(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
