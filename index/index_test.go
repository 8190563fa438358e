package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/ontolite/core"
)

func TestUpsertAndSimilarity(t *testing.T) {
	ix := New()
	ix.Upsert(1, KindDocument, []float32{1, 0})
	ix.Upsert(2, KindConcept, []float32{0, 1})

	score, ok := ix.Similarity(1, []float32{1, 0})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-9)

	score, ok = ix.Similarity(2, []float32{1, 0})
	assert.True(t, ok)
	assert.InDelta(t, 0.0, score, 1e-9)

	_, ok = ix.Similarity(3, []float32{1, 0})
	assert.False(t, ok)
}

func TestUpsertEmptyVectorRemoves(t *testing.T) {
	ix := New()
	ix.Upsert(1, KindDocument, []float32{1, 0})
	assert.Equal(t, 1, ix.Len())

	ix.Upsert(1, KindDocument, nil)
	assert.Equal(t, 0, ix.Len())
}

func TestSearchOrderingAndLimit(t *testing.T) {
	ix := New()
	ix.Upsert(1, KindDocument, []float32{1, 0})
	ix.Upsert(2, KindDocument, []float32{0.9, 0.1})
	ix.Upsert(3, KindDocument, []float32{-1, 0})
	ix.Upsert(4, KindConcept, []float32{1, 0})

	hits := ix.Search([]float32{1, 0}, KindDocument, 2)
	assert.Len(t, hits, 2)
	assert.Equal(t, core.ID(1), hits[0].Id)
	assert.Equal(t, core.ID(2), hits[1].Id)

	for _, h := range hits {
		assert.Equal(t, KindDocument, h.Kind)
	}
}

func TestSearchTieBreaksOnID(t *testing.T) {
	ix := New()
	ix.Upsert(9, KindConcept, []float32{1, 0})
	ix.Upsert(4, KindConcept, []float32{1, 0})
	ix.Upsert(7, KindConcept, []float32{1, 0})

	hits := ix.Search([]float32{1, 0}, KindConcept, 0)
	assert.Equal(t, []core.ID{4, 7, 9}, []core.ID{hits[0].Id, hits[1].Id, hits[2].Id})
}

func TestDeleteAndClear(t *testing.T) {
	ix := New()
	ix.Upsert(1, KindDocument, []float32{1})
	ix.Upsert(2, KindDocument, []float32{1})

	ix.Delete(1)
	assert.Equal(t, 1, ix.Len())

	ix.Clear()
	assert.Equal(t, 0, ix.Len())
}
