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


package embedding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/ontolite/ai"
	"github.com/poiesic/ontolite/core"
	"github.com/poiesic/ontolite/index"
	"github.com/poiesic/ontolite/storage"
	"github.com/poiesic/ontolite/vector"
)

// Config holds configuration for vector regeneration.
type Config struct {
	// ReportInterval is how often to report progress (number of entries)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Service embeds documents and concepts and keeps their stored vectors and
// the similarity index in sync.
type Service struct {
	docs     storage.DocumentRepository
	onto     storage.OntologyRepository
	embedder ai.Embedder
	idx      *index.Index
	model    string
	dim      int
	config   *Config
	logger   *slog.Logger
}

// NewService creates a vector maintenance service.
// model and dim identify the embedding model and are recorded in every
// fingerprint the service writes.
func NewService(docs storage.DocumentRepository, onto storage.OntologyRepository,
	embedder ai.Embedder, idx *index.Index, model string, dim int, config *Config) (*Service, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Service{
		docs:     docs,
		onto:     onto,
		embedder: embedder,
		idx:      idx,
		model:    model,
		dim:      dim,
		config:   config,
		logger:   slog.Default().With("component", "embedding"),
	}, nil
}

// Result summarizes one regeneration run.
type Result struct {
	Updated int
	Skipped int
	Failed  int
}

// EmbedDocument embeds a document's text and the concepts of its latest
// version. Entries whose fingerprint is already current are skipped.
// Failures leave the previous vector in place.
func (s *Service) EmbedDocument(ctx context.Context, documentID core.ID) (*Result, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	s.embedOne(ctx, result, documentEntry(doc))

	onto, err := s.onto.GetOntology(ctx, documentID)
	if err != nil {
		if err == storage.ErrNotFound {
			return result, nil // no extraction yet
		}
		return result, err
	}
	for _, c := range onto.Concepts {
		s.embedOne(ctx, result, conceptEntry(c))
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
	}
	return result, nil
}

// RegenerateAll re-embeds every document and every latest-version concept
// whose fingerprint no longer matches the current model. Repeated runs are
// idempotent: a second pass updates nothing.
// progress: where to write progress output (typically os.Stderr)
func (s *Service) RegenerateAll(ctx context.Context, progress io.Writer) (*Result, error) {
	docs, err := s.docs.GetAllDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	concepts, err := s.onto.GetLatestConcepts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query concepts: %w", err)
	}

	total := len(docs) + len(concepts)
	if total == 0 {
		fmt.Fprintf(progress, "Nothing to embed (0 entries)\n")
		return &Result{}, nil
	}

	fmt.Fprintf(progress, "Starting vector regeneration of %d entries (model: %s)\n", total, s.model)

	tracker := NewProgressTracker(progress, total, s.config.ReportInterval)
	tracker.Start()

	result := &Result{}
	for _, doc := range docs {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		s.embedOne(ctx, result, documentEntry(doc))
		tracker.Increment(1)
	}
	for _, c := range concepts {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		s.embedOne(ctx, result, conceptEntry(c))
		tracker.Increment(1)
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(progress, "Regeneration complete. Updated %d, skipped %d, failed %d in %v\n",
		result.Updated, result.Skipped, result.Failed, elapsed.Round(time.Second))

	return result, nil
}

// entry is one embeddable item: a document or a concept.
type entry struct {
	id          core.ID
	kind        index.Kind
	text        string
	fingerprint string
	hasVector   bool
	store       func(ctx context.Context, s *Service, vec []byte, fp string) error
}

func documentEntry(doc *core.Document) entry {
	return entry{
		id:          doc.Id,
		kind:        index.KindDocument,
		text:        doc.Text,
		fingerprint: doc.VectorFingerprint,
		hasVector:   len(doc.Vector) > 0,
		store: func(ctx context.Context, s *Service, vec []byte, fp string) error {
			return s.docs.UpdateVector(ctx, doc.Id, vec, fp, s.model, s.dim)
		},
	}
}

func conceptEntry(c *core.Concept) entry {
	return entry{
		id:          c.Id,
		kind:        index.KindConcept,
		text:        conceptText(c),
		fingerprint: c.VectorFingerprint,
		hasVector:   len(c.Vector) > 0,
		store: func(ctx context.Context, s *Service, vec []byte, fp string) error {
			return s.onto.UpdateConceptVector(ctx, c.Id, vec, fp, s.model, s.dim)
		},
	}
}

// conceptText is the canonical text a concept is embedded from.
func conceptText(c *core.Concept) string {
	if c.Summary != "" {
		return c.Label + ": " + c.Summary
	}
	return c.Label
}

// embedOne embeds a single entry, updating counters on the result.
// An entry is current when it has a vector whose fingerprint was produced
// under the configured model and dimension.
func (s *Service) embedOne(ctx context.Context, result *Result, e entry) {
	if e.hasVector && !vector.Stale(e.fingerprint, s.model, s.dim) {
		result.Skipped++
		return
	}

	var vec []float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		vec, embedErr = s.embedder.EmbedText(ctx, e.text)
		if embedErr != nil {
			return embedErr
		}
		if len(vec) == 0 {
			return ErrEmptyVector
		}
		return nil
	}, s.config.MaxRetries, s.config.RetryDelay)
	if err != nil {
		s.logger.Warn("embedding failed, keeping previous vector", "id", e.id, "kind", e.kind, "err", err)
		result.Failed++
		return
	}

	if err := vector.CheckDimension(vec, s.dim); err != nil {
		s.logger.Warn("embedder returned wrong dimensionality, keeping previous vector", "id", e.id, "err", err)
		result.Failed++
		return
	}

	vector.Normalize(vec)
	compressed, err := vector.Encode(vec)
	if err != nil {
		s.logger.Warn("vector encoding failed", "id", e.id, "err", err)
		result.Failed++
		return
	}

	fp := vector.Fingerprint(s.model, s.dim, vec, time.Now())
	if err := e.store(ctx, s, compressed, fp); err != nil {
		s.logger.Warn("vector store failed, keeping previous vector", "id", e.id, "err", err)
		result.Failed++
		return
	}

	if s.idx != nil {
		s.idx.Upsert(e.id, e.kind, vec)
	}
	result.Updated++
}
