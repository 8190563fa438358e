package badger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ontolite/core"
	"github.com/poiesic/ontolite/storage"
)

func newTestDocument(text string) *core.Document {
	sum := sha256.Sum256([]byte(text))
	checksum := hex.EncodeToString(sum[:])
	return &core.Document{
		Id:       core.IDFromContent(checksum),
		Title:    "notes.md",
		Checksum: checksum,
		Bytes:    int64(len(text)),
		Text:     text,
	}
}

func TestCreateDocument(t *testing.T) {
	docRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	doc := newTestDocument("The Loom Framework powers rendering.")

	stored, err := docRepo.CreateDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, doc.Id, stored.Id)
	assert.False(t, stored.CreatedAt.IsZero())

	t.Run("idempotent on identical content", func(t *testing.T) {
		again, err := docRepo.CreateDocument(ctx, newTestDocument("The Loom Framework powers rendering."))
		require.NoError(t, err)
		assert.Equal(t, stored.Id, again.Id)
		assert.Equal(t, stored.CreatedAt.UnixMicro(), again.CreatedAt.UnixMicro())
	})

	t.Run("checksum conflict rejected", func(t *testing.T) {
		conflict := newTestDocument("different text")
		conflict.Id = doc.Id
		_, err := docRepo.CreateDocument(ctx, conflict)
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("invalid document rejected", func(t *testing.T) {
		_, err := docRepo.CreateDocument(ctx, &core.Document{Id: 1})
		assert.ErrorIs(t, err, core.ErrInvalidDocument)
	})
}

func TestGetDocument(t *testing.T) {
	docRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	doc := newTestDocument("hello")
	_, err = docRepo.CreateDocument(ctx, doc)
	require.NoError(t, err)

	got, err := docRepo.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, doc.Text, got.Text)

	_, err = docRepo.GetDocument(ctx, core.ID(999))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetAllDocuments(t *testing.T) {
	docRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	for _, text := range []string{"alpha", "beta", "gamma"} {
		_, err := docRepo.CreateDocument(ctx, newTestDocument(text))
		require.NoError(t, err)
	}

	docs, err := docRepo.GetAllDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestUpdateSummary(t *testing.T) {
	docRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	doc := newTestDocument("summarize me")
	_, err = docRepo.CreateDocument(ctx, doc)
	require.NoError(t, err)

	require.NoError(t, docRepo.UpdateSummary(ctx, doc.Id, "a short summary"))

	got, err := docRepo.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, "a short summary", got.Summary)

	assert.ErrorIs(t, docRepo.UpdateSummary(ctx, core.ID(999), "x"), storage.ErrNotFound)
}

func TestUpdateVector(t *testing.T) {
	docRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	doc := newTestDocument("embed me")
	_, err = docRepo.CreateDocument(ctx, doc)
	require.NoError(t, err)

	vec := []byte{0x78, 0x9c, 0x03}
	require.NoError(t, docRepo.UpdateVector(ctx, doc.Id, vec, "m:3:abcd1234:t", "m", 3))

	got, err := docRepo.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, vec, got.Vector)
	assert.Equal(t, "m:3:abcd1234:t", got.VectorFingerprint)
	assert.Equal(t, "m", got.VectorModel)
	assert.Equal(t, 3, got.VectorDim)

	assert.ErrorIs(t, docRepo.UpdateVector(ctx, core.ID(999), vec, "f", "m", 3), storage.ErrNotFound)
}
