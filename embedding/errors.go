package embedding

import "errors"

var (
	// ErrInvalidMaxAttempts indicates a non-positive retry budget.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrEmbedderRequired indicates a nil embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEmptyVector indicates the embedder returned no components.
	ErrEmptyVector = errors.New("embedder returned an empty vector")
)
