// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/ontolite/core"
)

// State is the lifecycle state of a job.
type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// allowedTransitions defines the job state machine edges.
var allowedTransitions = map[State][]State{
	StateQueued:     {StateProcessing, StateFailed},
	StateProcessing: {StateCompleted, StateFailed},
}

// Counts summarizes what a finished extraction produced.
type Counts struct {
	ConceptsExtracted  int
	RelationsExtracted int
	SpansExtracted     int
	SkippedChunks      int
	DroppedCandidates  int
}

// Job tracks one asynchronous extraction run over a document.
type Job struct {
	Id         string
	DocumentId core.ID
	State      State
	Counts     Counts
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Task is the work a job executes. A nil error marks the job completed;
// anything else marks it failed with the error text preserved.
type Task func(ctx context.Context) (*Counts, error)

// Coordinator runs extraction jobs on a bounded worker pool and is the
// single writer of job state. At most one job per document may be in
// flight; a second request for the same document is rejected, never merged.
type Coordinator struct {
	mu       sync.Mutex
	pool     *ants.Pool
	jobs     map[string]*Job
	inflight map[core.ID]string
	closed   bool
	logger   *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator creates a coordinator backed by a worker pool of the given
// size. Size values below 1 fall back to 1.
func NewCoordinator(poolSize int, opts ...Option) (*Coordinator, error) {
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	c := &Coordinator{
		pool:     pool,
		jobs:     make(map[string]*Job),
		inflight: make(map[core.ID]string),
		logger:   slog.Default().With("component", "jobs"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Enqueue registers a job for the document and submits it to the pool.
// Returns ErrExtractionInFlight if the document already has a queued or
// processing job.
func (c *Coordinator) Enqueue(ctx context.Context, documentID core.ID, task Task) (string, error) {
	if task == nil {
		return "", ErrTaskRequired
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrCoordinatorClosed
	}
	if _, ok := c.inflight[documentID]; ok {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: document %d", ErrExtractionInFlight, documentID)
	}

	now := time.Now().UTC()
	job := &Job{
		Id:         uuid.NewString(),
		DocumentId: documentID,
		State:      StateQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	c.jobs[job.Id] = job
	c.inflight[documentID] = job.Id
	c.mu.Unlock()

	if err := c.pool.Submit(func() { c.run(ctx, job.Id, documentID, task) }); err != nil {
		c.finish(job.Id, documentID, nil, err)
		return "", fmt.Errorf("failed to submit job: %w", err)
	}

	c.logger.Info("job enqueued", "jobID", job.Id, "documentID", documentID)
	return job.Id, nil
}

// Status returns a read-only snapshot of a job.
func (c *Coordinator) Status(jobID string) (*Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	job, ok := c.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	snapshot := *job
	return &snapshot, nil
}

// Close releases the worker pool. Already-running jobs finish; new
// submissions are rejected.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.pool.Release()
	return nil
}

func (c *Coordinator) run(ctx context.Context, jobID string, documentID core.ID, task Task) {
	if err := c.transition(jobID, StateProcessing); err != nil {
		c.logger.Error("invalid job transition", "jobID", jobID, "err", err)
		return
	}

	counts, err := task(ctx)
	c.finish(jobID, documentID, counts, err)
}

// transition moves a job along a defined state machine edge.
func (c *Coordinator) transition(jobID string, to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	job, ok := c.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	allowed := false
	for _, next := range allowedTransitions[job.State] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.State, to)
	}

	job.State = to
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// finish records the terminal state and releases the document's in-flight
// slot.
func (c *Coordinator) finish(jobID string, documentID core.ID, counts *Counts, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inflight, documentID)

	job, ok := c.jobs[jobID]
	if !ok {
		return
	}
	job.UpdatedAt = time.Now().UTC()
	if err != nil {
		job.State = StateFailed
		job.Error = err.Error()
		c.logger.Warn("job failed", "jobID", jobID, "documentID", documentID, "err", err)
		return
	}
	job.State = StateCompleted
	if counts != nil {
		job.Counts = *counts
	}
	c.logger.Info("job completed", "jobID", jobID, "documentID", documentID,
		"concepts", job.Counts.ConceptsExtracted, "skippedChunks", job.Counts.SkippedChunks)
}
