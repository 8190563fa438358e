package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ontolite/ai/mock"
	"github.com/poiesic/ontolite/core"
	"github.com/poiesic/ontolite/index"
	"github.com/poiesic/ontolite/storage"
	"github.com/poiesic/ontolite/storage/badger"
	"github.com/poiesic/ontolite/vector"
)

func fastConfig() *Config {
	return &Config{ReportInterval: 1000, MaxRetries: 2, RetryDelay: time.Millisecond}
}

func seedDocumentWithConcepts(t *testing.T, docRepo storage.DocumentRepository, ontoRepo storage.OntologyRepository, text string) *core.Document {
	t.Helper()
	ctx := context.Background()

	sum := sha256.Sum256([]byte(text))
	checksum := hex.EncodeToString(sum[:])
	doc := &core.Document{
		Id:       core.IDFromContent(checksum),
		Title:    "seed.md",
		Checksum: checksum,
		Bytes:    int64(len(text)),
		Text:     text,
	}
	_, err := docRepo.CreateDocument(ctx, doc)
	require.NoError(t, err)

	version := &core.OntologyVersion{
		Id:          core.IDFromContent("v|" + checksum),
		DocumentId:  doc.Id,
		ModelName:   "mock-model",
		ExtractedAt: time.Now().UTC(),
	}
	concepts := []*core.Concept{
		{
			Id: core.IDFromContent("c1|" + checksum), DocumentId: doc.Id, VersionId: version.Id,
			Label: "Loom Framework", Type: core.ConceptTypeProject, Confidence: 0.9,
		},
		{
			Id: core.IDFromContent("c2|" + checksum), DocumentId: doc.Id, VersionId: version.Id,
			Label: "Rendering", Type: core.ConceptTypeProcess, Confidence: 0.8,
		},
	}
	require.NoError(t, ontoRepo.CreateVersion(ctx, version, nil, concepts, nil, nil))
	return doc
}

func TestEmbedDocument(t *testing.T) {
	docRepo, ontoRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	idx := index.New()
	svc, err := NewService(docRepo, ontoRepo, mock.NewMockEmbedder(), idx, "mock-model", 384, fastConfig())
	require.NoError(t, err)

	doc := seedDocumentWithConcepts(t, docRepo, ontoRepo, "embed document test text")

	result, err := svc.EmbedDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Updated, "document + 2 concepts")
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 3, idx.Len())

	stored, err := docRepo.GetDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Vector)
	assert.Equal(t, "mock-model", stored.VectorModel)
	assert.Equal(t, 384, stored.VectorDim)
	assert.False(t, vector.Stale(stored.VectorFingerprint, "mock-model", 384))

	vec, err := vector.Decode(stored.Vector)
	require.NoError(t, err)
	assert.Len(t, vec, 384)
}

func TestRegenerateAllIdempotent(t *testing.T) {
	docRepo, ontoRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	svc, err := NewService(docRepo, ontoRepo, mock.NewMockEmbedder(), index.New(), "mock-model", 384, fastConfig())
	require.NoError(t, err)

	seedDocumentWithConcepts(t, docRepo, ontoRepo, "first doc for regeneration")
	seedDocumentWithConcepts(t, docRepo, ontoRepo, "second doc for regeneration")

	first, err := svc.RegenerateAll(context.Background(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 6, first.Updated, "2 docs + 4 concepts")

	second, err := svc.RegenerateAll(context.Background(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Updated, "fingerprints fresh, nothing re-embedded")
	assert.Equal(t, 6, second.Skipped)
}

func TestRegenerateAllAfterModelChange(t *testing.T) {
	docRepo, ontoRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	seedDocumentWithConcepts(t, docRepo, ontoRepo, "model migration doc")

	svcOld, err := NewService(docRepo, ontoRepo, mock.NewMockEmbedder(), index.New(), "old-model", 384, fastConfig())
	require.NoError(t, err)
	_, err = svcOld.RegenerateAll(context.Background(), io.Discard)
	require.NoError(t, err)

	svcNew, err := NewService(docRepo, ontoRepo, mock.NewMockEmbedder(), index.New(), "new-model", 384, fastConfig())
	require.NoError(t, err)
	result, err := svcNew.RegenerateAll(context.Background(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Updated, "model change invalidates all fingerprints")
}

func TestEmbedderFailureKeepsPreviousVector(t *testing.T) {
	docRepo, ontoRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	doc := seedDocumentWithConcepts(t, docRepo, ontoRepo, "failure handling doc")

	good, err := NewService(docRepo, ontoRepo, mock.NewMockEmbedder(), index.New(), "mock-model", 384, fastConfig())
	require.NoError(t, err)
	_, err = good.RegenerateAll(context.Background(), io.Discard)
	require.NoError(t, err)

	before, err := docRepo.GetDocument(context.Background(), doc.Id)
	require.NoError(t, err)

	broken := mock.NewMockEmbedder()
	broken.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}
	bad, err := NewService(docRepo, ontoRepo, broken, index.New(), "other-model", 384, fastConfig())
	require.NoError(t, err)

	result, err := bad.RegenerateAll(context.Background(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, 0, result.Updated)

	after, err := docRepo.GetDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, before.Vector, after.Vector, "previous vector intact")
	assert.Equal(t, before.VectorFingerprint, after.VectorFingerprint)
}

func TestNewServiceValidation(t *testing.T) {
	docRepo, ontoRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewService(docRepo, ontoRepo, nil, index.New(), "m", 1, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}
