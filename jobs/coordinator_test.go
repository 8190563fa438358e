package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ontolite/core"
)

func waitForState(t *testing.T, c *Coordinator, jobID string, want State) *Job {
	t.Helper()
	var job *Job
	require.Eventually(t, func() bool {
		snapshot, err := c.Status(jobID)
		if err != nil {
			return false
		}
		job = snapshot
		return job.State == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestJobCompletes(t *testing.T) {
	c, err := NewCoordinator(2)
	require.NoError(t, err)
	defer c.Close()

	jobID, err := c.Enqueue(context.Background(), core.ID(1), func(ctx context.Context) (*Counts, error) {
		return &Counts{ConceptsExtracted: 4, RelationsExtracted: 2, SkippedChunks: 1}, nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job := waitForState(t, c, jobID, StateCompleted)
	assert.Equal(t, core.ID(1), job.DocumentId)
	assert.Equal(t, 4, job.Counts.ConceptsExtracted)
	assert.Equal(t, 2, job.Counts.RelationsExtracted)
	assert.Equal(t, 1, job.Counts.SkippedChunks)
	assert.Empty(t, job.Error)
}

func TestJobFailureRecordsError(t *testing.T) {
	c, err := NewCoordinator(1)
	require.NoError(t, err)
	defer c.Close()

	jobID, err := c.Enqueue(context.Background(), core.ID(2), func(ctx context.Context) (*Counts, error) {
		return nil, errors.New("no valid candidates")
	})
	require.NoError(t, err)

	job := waitForState(t, c, jobID, StateFailed)
	assert.Equal(t, "no valid candidates", job.Error)
}

func TestConcurrentSameDocumentRejected(t *testing.T) {
	c, err := NewCoordinator(2)
	require.NoError(t, err)
	defer c.Close()

	release := make(chan struct{})
	started := make(chan struct{})

	jobID, err := c.Enqueue(context.Background(), core.ID(3), func(ctx context.Context) (*Counts, error) {
		close(started)
		<-release
		return &Counts{}, nil
	})
	require.NoError(t, err)
	<-started

	_, err = c.Enqueue(context.Background(), core.ID(3), func(ctx context.Context) (*Counts, error) {
		return &Counts{}, nil
	})
	assert.ErrorIs(t, err, ErrExtractionInFlight)

	// Another document is not blocked.
	otherID, err := c.Enqueue(context.Background(), core.ID(4), func(ctx context.Context) (*Counts, error) {
		return &Counts{}, nil
	})
	require.NoError(t, err)
	waitForState(t, c, otherID, StateCompleted)

	close(release)
	waitForState(t, c, jobID, StateCompleted)

	// The slot frees up once the job finishes.
	againID, err := c.Enqueue(context.Background(), core.ID(3), func(ctx context.Context) (*Counts, error) {
		return &Counts{}, nil
	})
	require.NoError(t, err)
	waitForState(t, c, againID, StateCompleted)
}

func TestStatusSnapshotIsIsolated(t *testing.T) {
	c, err := NewCoordinator(1)
	require.NoError(t, err)
	defer c.Close()

	jobID, err := c.Enqueue(context.Background(), core.ID(5), func(ctx context.Context) (*Counts, error) {
		return &Counts{ConceptsExtracted: 1}, nil
	})
	require.NoError(t, err)
	job := waitForState(t, c, jobID, StateCompleted)

	job.State = StateQueued
	job.Counts.ConceptsExtracted = 99

	fresh, err := c.Status(jobID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, fresh.State)
	assert.Equal(t, 1, fresh.Counts.ConceptsExtracted)
}

func TestUnknownJob(t *testing.T) {
	c, err := NewCoordinator(1)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Status("no-such-job")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestEnqueueValidation(t *testing.T) {
	c, err := NewCoordinator(1)
	require.NoError(t, err)

	_, err = c.Enqueue(context.Background(), core.ID(6), nil)
	assert.ErrorIs(t, err, ErrTaskRequired)

	require.NoError(t, c.Close())
	_, err = c.Enqueue(context.Background(), core.ID(6), func(ctx context.Context) (*Counts, error) {
		return &Counts{}, nil
	})
	assert.ErrorIs(t, err, ErrCoordinatorClosed)
}
