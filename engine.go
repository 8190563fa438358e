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


package ontolite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"

	"github.com/poiesic/ontolite/ai"
	"github.com/poiesic/ontolite/ai/openai"
	"github.com/poiesic/ontolite/core"
	"github.com/poiesic/ontolite/embedding"
	"github.com/poiesic/ontolite/index"
	"github.com/poiesic/ontolite/ingestion"
	"github.com/poiesic/ontolite/jobs"
	"github.com/poiesic/ontolite/search"
	"github.com/poiesic/ontolite/storage"
	"github.com/poiesic/ontolite/storage/badger"
	"github.com/poiesic/ontolite/vector"
)

// Engine wires the storage backend, AI provider, similarity index,
// extraction pipeline, embedding service, searcher and job coordinator into
// the single entry point callers use.
type Engine struct {
	backend     *badger.Backend
	docRepo     storage.DocumentRepository
	ontoRepo    storage.OntologyRepository
	provider    ai.AIProvider
	idx         *index.Index
	pipeline    *ingestion.Pipeline
	embedSvc    *embedding.Service
	searcher    *search.Searcher
	coordinator *jobs.Coordinator
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig     *ai.Config
	searchConfig *search.Config
	provider     ai.AIProvider
	poolSize     int
	inMemory     bool
}

// WithAIConfig sets the AI provider configuration.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithSearchConfig sets the fusion weights and threshold.
func WithSearchConfig(config *search.Config) EngineOption {
	return func(o *engineOptions) {
		o.searchConfig = config
	}
}

// WithProvider injects a pre-built AI provider instead of constructing one
// from the AI config. Intended for tests.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithPoolSize sets the extraction worker pool size. Default is 2.
func WithPoolSize(size int) EngineOption {
	return func(o *engineOptions) {
		o.poolSize = size
	}
}

// WithInMemoryStorage keeps all state in memory, discarded on Close.
func WithInMemoryStorage() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// NewEngine opens the store at filePath and wires every subsystem. The
// similarity index is rebuilt from stored vectors before NewEngine returns.
func NewEngine(filePath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		poolSize: 2,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	docRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	ontoRepo, err := badger.NewOntologyRepository(backend)
	if err != nil {
		docRepo.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			ontoRepo.Close()
			docRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	e := &Engine{
		backend:  backend,
		docRepo:  docRepo,
		ontoRepo: ontoRepo,
		provider: provider,
		idx:      index.New(),
		logger:   slog.Default().With("component", "engine"),
	}

	fail := func(err error) (*Engine, error) {
		provider.Close()
		ontoRepo.Close()
		docRepo.Close()
		backend.Close()
		return nil, err
	}

	e.pipeline, err = ingestion.NewPipeline(docRepo, ontoRepo, provider, options.aiConfig.ExtractorModel)
	if err != nil {
		return fail(err)
	}

	e.embedSvc, err = embedding.NewService(docRepo, ontoRepo, provider.Embedder(), e.idx,
		options.aiConfig.EmbeddingModel, options.aiConfig.EmbeddingDimension, nil)
	if err != nil {
		return fail(err)
	}

	var searchOpts []search.Option
	if options.searchConfig != nil {
		searchOpts = append(searchOpts, search.WithConfig(options.searchConfig))
	}
	e.searcher, err = search.NewSearcher(docRepo, ontoRepo, provider.Embedder(), e.idx, searchOpts...)
	if err != nil {
		return fail(err)
	}

	e.coordinator, err = jobs.NewCoordinator(options.poolSize)
	if err != nil {
		return fail(err)
	}

	if err := e.RebuildIndex(context.Background()); err != nil {
		e.coordinator.Close()
		return fail(err)
	}

	return e, nil
}

// Ingest stores the document and enqueues its extraction, returning the job
// ID for polling. Extraction and the follow-up embedding pass run
// asynchronously; a document with an extraction already in flight is
// rejected.
func (e *Engine) Ingest(ctx context.Context, text, title string) (string, error) {
	sum := sha256.Sum256([]byte(text))
	checksum := hex.EncodeToString(sum[:])

	doc, err := e.docRepo.CreateDocument(ctx, &core.Document{
		Id:       core.IDFromContent(checksum),
		Title:    title,
		Checksum: checksum,
		Bytes:    int64(len(text)),
		Text:     text,
	})
	if err != nil {
		return "", err
	}

	// The job outlives the ingest call.
	jobCtx := context.WithoutCancel(ctx)

	return e.coordinator.Enqueue(jobCtx, doc.Id, func(ctx context.Context) (*jobs.Counts, error) {
		res, err := e.pipeline.Extract(ctx, doc.Id)
		if err != nil {
			return nil, err
		}

		// Embedding is best-effort: failures leave the entities unembedded
		// and search degrades to lexical scoring for them.
		if _, err := e.embedSvc.EmbedDocument(ctx, doc.Id); err != nil {
			e.logger.Warn("post-ingest embedding failed", "documentID", doc.Id, "err", err)
		}

		return &jobs.Counts{
			ConceptsExtracted:  res.Concepts,
			RelationsExtracted: res.Relations,
			SpansExtracted:     res.Spans,
			SkippedChunks:      res.SkippedChunks,
			DroppedCandidates:  res.DroppedCandidates,
		}, nil
	})
}

// JobStatus returns a read-only snapshot of an extraction job.
func (e *Engine) JobStatus(jobID string) (*jobs.Job, error) {
	return e.coordinator.Status(jobID)
}

// GetDocument retrieves a stored document by ID.
func (e *Engine) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	return e.docRepo.GetDocument(ctx, id)
}

// GetAllDocuments lists every stored document.
func (e *Engine) GetAllDocuments(ctx context.Context) ([]*core.Document, error) {
	return e.docRepo.GetAllDocuments(ctx)
}

// GetOntology returns the latest-version micro-ontology of a document.
func (e *Engine) GetOntology(ctx context.Context, documentID core.ID) (*core.MicroOntology, error) {
	return e.ontoRepo.GetOntology(ctx, documentID)
}

// CheckSpans verifies a document's latest-version spans against its text
// and returns the number of mismatches found.
func (e *Engine) CheckSpans(ctx context.Context, documentID core.ID) (int, error) {
	return e.ontoRepo.CheckSpans(ctx, documentID)
}

// Search runs a hybrid query over documents and concepts.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]*search.Result, error) {
	return e.searcher.Search(ctx, query, limit)
}

// RegenerateVectors re-embeds every stale document and concept, writing
// progress to the given writer.
func (e *Engine) RegenerateVectors(ctx context.Context, progress io.Writer) (*embedding.Result, error) {
	return e.embedSvc.RegenerateAll(ctx, progress)
}

// RebuildIndex repopulates the similarity index from the vectors in the
// primary store. The store is authoritative; the index is always derived.
func (e *Engine) RebuildIndex(ctx context.Context) error {
	e.idx.Clear()

	docs, err := e.docRepo.GetAllDocuments(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if len(doc.Vector) == 0 {
			continue
		}
		vec, err := vector.Decode(doc.Vector)
		if err != nil {
			e.logger.Warn("skipping undecodable document vector", "documentID", doc.Id, "err", err)
			continue
		}
		e.idx.Upsert(doc.Id, index.KindDocument, vec)
	}

	concepts, err := e.ontoRepo.GetLatestConcepts(ctx)
	if err != nil {
		return err
	}
	for _, c := range concepts {
		if len(c.Vector) == 0 {
			continue
		}
		vec, err := vector.Decode(c.Vector)
		if err != nil {
			e.logger.Warn("skipping undecodable concept vector", "conceptID", c.Id, "err", err)
			continue
		}
		e.idx.Upsert(c.Id, index.KindConcept, vec)
	}

	e.logger.Info("similarity index rebuilt", "entries", e.idx.Len())
	return nil
}

// DocumentRepository exposes the underlying document repository.
func (e *Engine) DocumentRepository() storage.DocumentRepository {
	return e.docRepo
}

// OntologyRepository exposes the underlying ontology repository.
func (e *Engine) OntologyRepository() storage.OntologyRepository {
	return e.ontoRepo
}

func (e *Engine) Close() error {
	if err := e.coordinator.Close(); err != nil {
		e.logger.Error("error closing job coordinator", "err", err)
	}
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	if err := e.ontoRepo.Close(); err != nil {
		e.logger.Error("error closing ontology repository", "err", err)
		return err
	}
	if err := e.docRepo.Close(); err != nil {
		e.logger.Error("error closing document repository", "err", err)
		return err
	}

	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
