package ai

import (
	"errors"
	"fmt"
)

// ErrTransient marks failures that are worth retrying: timeouts, rate
// limits, connection resets. Permanent failures (bad request, invalid
// model) are returned unwrapped.
var ErrTransient = errors.New("transient ai failure")

// Transient wraps an error as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether an error is marked retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
