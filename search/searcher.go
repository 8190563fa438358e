package search

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/ontolite/ai"
	"github.com/poiesic/ontolite/core"
	"github.com/poiesic/ontolite/index"
	"github.com/poiesic/ontolite/storage"
	"github.com/poiesic/ontolite/vector"
)

// Result is one ranked search hit with its per-signal explain trace.
type Result struct {
	Id            core.ID
	Kind          index.Kind
	Title         string
	DocumentId    core.ID
	FinalScore    float64
	TitleScore    float64
	ConceptScore  float64
	SemanticScore float64
	UpdatedAt     time.Time
}

// Searcher scores documents and latest-version concepts against a query.
type Searcher struct {
	docRepository  storage.DocumentRepository
	ontoRepository storage.OntologyRepository
	embedder       ai.Embedder
	idx            *index.Index
	config         *Config
	logger         *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithConfig overrides the fusion weights and threshold.
func WithConfig(config *Config) Option {
	return func(s *Searcher) error {
		if config == nil {
			config = DefaultConfig()
		}
		if err := config.Validate(); err != nil {
			return err
		}
		s.config = config
		return nil
	}
}

// NewSearcher creates a new searcher. embedder and idx may be nil, in which
// case every query scores lexically only.
func NewSearcher(
	docRepository storage.DocumentRepository,
	ontoRepository storage.OntologyRepository,
	embedder ai.Embedder,
	idx *index.Index,
	opts ...Option,
) (*Searcher, error) {
	if docRepository == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if ontoRepository == nil {
		return nil, ErrOntologyRepositoryRequired
	}

	s := &Searcher{
		docRepository:  docRepository,
		ontoRepository: ontoRepository,
		embedder:       embedder,
		idx:            idx,
		config:         DefaultConfig(),
		logger:         slog.Default().With("component", "search"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search scores every document and latest-version concept against the query
// and returns up to limit results above the threshold, ranked by fused
// score. An empty query returns an empty result set, not an error.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	return s.SearchWithMonitor(ctx, query, limit, nil)
}

// SearchWithMonitor is Search with stage callbacks for tracing.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, limit int, monitor Monitor) ([]*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	if len(splitWords(query)) == 0 {
		results := []*Result{}
		monitor.Finish(results)
		return results, nil
	}

	// A failed query embedding degrades the whole query to lexical-only
	// scoring rather than failing the search.
	var queryVec []float32
	if s.embedder != nil && s.idx != nil {
		vec, err := s.embedder.EmbedText(ctx, query)
		if err != nil {
			s.logger.Warn("query embedding failed, scoring lexically only", "err", err)
		} else {
			vector.Normalize(vec)
			queryVec = vec
		}
	}
	monitor.AfterQueryEmbedding(queryVec != nil)

	docs, err := s.docRepository.GetAllDocuments(ctx)
	if err != nil {
		s.logger.Error("error listing documents", "err", err)
		return nil, err
	}
	concepts, err := s.ontoRepository.GetLatestConcepts(ctx)
	if err != nil {
		s.logger.Error("error listing latest concepts", "err", err)
		return nil, err
	}
	monitor.AfterCandidateLoad(len(docs), len(concepts))

	conceptsByDoc := make(map[core.ID][]*core.Concept)
	for _, c := range concepts {
		conceptsByDoc[c.DocumentId] = append(conceptsByDoc[c.DocumentId], c)
	}

	var results []*Result

	for _, doc := range docs {
		titleScore := QueryScore(query, doc.Title)

		conceptScore := 0.0
		for _, c := range conceptsByDoc[doc.Id] {
			if score := QueryScore(query, c.Label); score > conceptScore {
				conceptScore = score
			}
		}

		r := &Result{
			Id:            doc.Id,
			Kind:          index.KindDocument,
			Title:         doc.Title,
			DocumentId:    doc.Id,
			TitleScore:    titleScore,
			ConceptScore:  conceptScore,
			SemanticScore: s.semanticScore(doc.Id, queryVec),
			UpdatedAt:     doc.UpdatedAt,
		}
		r.FinalScore = s.fuse(r)
		if r.FinalScore >= s.config.Threshold {
			monitor.Scored(r)
			results = append(results, r)
		}
	}

	for _, c := range concepts {
		labelScore := QueryScore(query, c.Label)

		// A concept's label is both its title and its only concept signal.
		r := &Result{
			Id:            c.Id,
			Kind:          index.KindConcept,
			Title:         c.Label,
			DocumentId:    c.DocumentId,
			TitleScore:    labelScore,
			ConceptScore:  labelScore,
			SemanticScore: s.semanticScore(c.Id, queryVec),
			UpdatedAt:     c.UpdatedAt,
		}
		r.FinalScore = s.fuse(r)
		if r.FinalScore >= s.config.Threshold {
			monitor.Scored(r)
			results = append(results, r)
		}
	}

	// Deterministic ordering: score, then recency, then ID.
	slices.SortFunc(results, func(a, b *Result) int {
		if a.FinalScore != b.FinalScore {
			if a.FinalScore > b.FinalScore {
				return -1
			}
			return 1
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			if a.UpdatedAt.After(b.UpdatedAt) {
				return -1
			}
			return 1
		}
		if a.Id != b.Id {
			if a.Id < b.Id {
				return -1
			}
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []*Result{}
	}
	monitor.Finish(results)
	return results, nil
}

// fuse combines the per-signal scores under the configured weights.
func (s *Searcher) fuse(r *Result) float64 {
	return s.config.TitleWeight*r.TitleScore +
		s.config.ConceptWeight*r.ConceptScore +
		s.config.SemanticWeight*r.SemanticScore
}

// semanticScore remaps cosine similarity from [-1,1] to [0,1].
// Entities without an indexed vector score 0.
func (s *Searcher) semanticScore(id core.ID, queryVec []float32) float64 {
	if queryVec == nil || s.idx == nil {
		return 0
	}
	sim, ok := s.idx.Similarity(id, queryVec)
	if !ok {
		return 0
	}
	return (sim + 1) / 2
}
