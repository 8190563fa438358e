package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/ontolite/ai"
	"github.com/poiesic/ontolite/core"
	"github.com/poiesic/ontolite/storage"
)

const (
	defaultMaxAttempts = 2
	defaultRetryDelay  = 500 * time.Millisecond
	pipelineName       = "chunked-extraction/v1"
)

// Pipeline orchestrates extraction of a micro-ontology from one document.
// It chunks the text, runs the extractor per chunk, merges the results,
// and stores them as a new ontology version.
type Pipeline struct {
	docRepository  storage.DocumentRepository
	ontoRepository storage.OntologyRepository
	extractor      ai.OntologyExtractor
	modelName      string
	chunkSize      int
	chunkOverlap   int
	maxAttempts    int
	retryDelay     time.Duration
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunking sets the chunk window size and overlap in runes.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("chunk size must be positive, got %d", size)
		}
		if overlap < 0 || overlap >= size {
			return fmt.Errorf("chunk overlap must be in [0, size), got %d", overlap)
		}
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithRetry sets the per-chunk extraction attempt budget and initial delay.
// The delay doubles after each failed attempt.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(p *Pipeline) error {
		if attempts < 1 {
			attempts = 1
		}
		p.maxAttempts = attempts
		p.retryDelay = delay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new extraction pipeline.
func NewPipeline(
	docRepository storage.DocumentRepository,
	ontoRepository storage.OntologyRepository,
	provider ai.AIProvider,
	modelName string,
	opts ...Option,
) (*Pipeline, error) {
	if docRepository == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if ontoRepository == nil {
		return nil, ErrOntologyRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	p := &Pipeline{
		docRepository:  docRepository,
		ontoRepository: ontoRepository,
		extractor:      provider.OntologyExtractor(),
		modelName:      modelName,
		chunkSize:      defaultChunkSize,
		chunkOverlap:   defaultChunkOverlap,
		maxAttempts:    defaultMaxAttempts,
		retryDelay:     defaultRetryDelay,
		logger:         slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Result summarizes one extraction run.
type Result struct {
	VersionId         core.ID
	Spans             int
	Concepts          int
	Relations         int
	Mentions          int
	SkippedChunks     int
	DroppedCandidates int
}

// Extract runs the full extraction pipeline for a stored document and
// persists a new ontology version. A chunk whose extraction keeps failing
// is skipped; the run fails only when no chunk yields a valid candidate.
func (p *Pipeline) Extract(ctx context.Context, documentID core.ID) (*Result, error) {
	doc, err := p.docRepository.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	version := &core.OntologyVersion{
		Id:          core.IDFromContent(fmt.Sprintf("version|%s|%s|%d", doc.Checksum, p.modelName, time.Now().UTC().UnixNano())),
		DocumentId:  doc.Id,
		ModelName:   p.modelName,
		Pipeline:    pipelineName,
		ExtractedAt: time.Now().UTC(),
	}

	chunks := ChunkText(doc.Text, p.chunkSize, p.chunkOverlap)
	result := &Result{VersionId: version.Id}

	var results []chunkResult
	for i, chunk := range chunks {
		ext, err := p.extractChunk(ctx, chunk.Text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn("skipping chunk after repeated extraction failures",
				"document", doc.Id, "chunk", i, "err", err)
			result.SkippedChunks++
			continue
		}
		results = append(results, chunkResult{offset: chunk.Start, ext: ext})
	}

	merged := mergeChunks(version, doc.Text, results)
	result.DroppedCandidates = merged.dropped

	if len(merged.concepts) == 0 && len(merged.spans) == 0 {
		return nil, fmt.Errorf("%w: document %d", ErrNoValidCandidates, doc.Id)
	}

	if err := p.ontoRepository.CreateVersion(ctx, version, merged.spans, merged.concepts, merged.relations, merged.mentions); err != nil {
		return nil, err
	}

	if merged.summary != "" {
		if err := p.docRepository.UpdateSummary(ctx, doc.Id, merged.summary); err != nil {
			p.logger.Warn("failed to update document summary", "document", doc.Id, "err", err)
		}
	}

	result.Spans = len(merged.spans)
	result.Concepts = len(merged.concepts)
	result.Relations = len(merged.relations)
	result.Mentions = len(merged.mentions)

	p.logger.Info("extraction complete",
		"document", doc.Id,
		"version", version.Id,
		"concepts", result.Concepts,
		"relations", result.Relations,
		"skipped_chunks", result.SkippedChunks,
		"dropped", result.DroppedCandidates)

	return result, nil
}

// extractChunk runs the extractor with a bounded retry budget.
// Only transient failures are retried; the delay doubles between attempts.
func (p *Pipeline) extractChunk(ctx context.Context, text string) (*ai.ChunkExtraction, error) {
	delay := p.retryDelay
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		ext, err := p.extractor.ExtractOntology(ctx, text)
		if err == nil {
			return ext, nil
		}
		lastErr = err

		if !ai.IsTransient(err) || attempt == p.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}
