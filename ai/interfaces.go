package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// OntologyExtractor extracts a micro-ontology fragment from one text chunk.
// Implementations must be thread-safe for concurrent use.
type OntologyExtractor interface {
	// ExtractOntology analyzes a chunk of text and proposes spans, typed
	// concepts, relations between them, and concept-to-span mentions.
	// Span offsets are rune offsets relative to the chunk.
	// Returns an error if extraction fails; transient failures are wrapped
	// so callers can decide whether to retry (see IsTransient).
	ExtractOntology(ctx context.Context, text string) (*ChunkExtraction, error)
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder and
// OntologyExtractor instances, ensuring they share configuration.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// OntologyExtractor returns the extraction service.
	// The returned OntologyExtractor is safe for concurrent use.
	OntologyExtractor() OntologyExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
