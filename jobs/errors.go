package jobs

import "errors"

var (
	// ErrExtractionInFlight is returned when a document already has a
	// queued or processing job.
	ErrExtractionInFlight = errors.New("extraction already in flight")

	// ErrJobNotFound is returned when a job ID is unknown.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned for state changes outside the
	// defined state machine edges.
	ErrInvalidTransition = errors.New("invalid job state transition")

	// ErrTaskRequired is returned when a job is enqueued without work.
	ErrTaskRequired = errors.New("task required")

	// ErrCoordinatorClosed is returned after Close.
	ErrCoordinatorClosed = errors.New("coordinator closed")
)
