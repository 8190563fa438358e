package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ontolite/core"
	"github.com/poiesic/ontolite/storage"
)

type versionFixture struct {
	doc       *core.Document
	version   *core.OntologyVersion
	spans     []*core.Span
	concepts  []*core.Concept
	relations []*core.Relation
	mentions  []*core.Mention
}

func newVersionFixture(t *testing.T, docRepo storage.DocumentRepository, text string, extractedAt time.Time) *versionFixture {
	t.Helper()
	doc := newTestDocument(text)
	_, err := docRepo.CreateDocument(context.Background(), doc)
	require.NoError(t, err)

	version := &core.OntologyVersion{
		Id:          core.IDFromContent(doc.Checksum + extractedAt.String()),
		DocumentId:  doc.Id,
		ModelName:   "gpt-4o-mini",
		Pipeline:    "chunked-extraction/v1",
		ExtractedAt: extractedAt,
	}

	span := &core.Span{
		Id:         core.IDFromContent("span" + extractedAt.String()),
		DocumentId: doc.Id,
		VersionId:  version.Id,
		Start:      0,
		End:        4,
		Text:       text[:4],
		Quality:    0.9,
	}
	conceptA := &core.Concept{
		Id:         core.IDFromContent("a" + extractedAt.String()),
		DocumentId: doc.Id,
		VersionId:  version.Id,
		Label:      "Loom Framework",
		Type:       core.ConceptTypeProject,
		Confidence: 0.9,
	}
	conceptB := &core.Concept{
		Id:         core.IDFromContent("b" + extractedAt.String()),
		DocumentId: doc.Id,
		VersionId:  version.Id,
		Label:      "Rendering",
		Type:       core.ConceptTypeProcess,
		Confidence: 0.8,
	}
	relation := &core.Relation{
		Id:         core.IDFromContent("r" + extractedAt.String()),
		DocumentId: doc.Id,
		VersionId:  version.Id,
		Src:        conceptA.Id,
		Verb:       core.RelationEnables,
		Dst:        conceptB.Id,
		Confidence: 0.7,
	}
	mention := &core.Mention{
		Id:         core.IDFromContent("m" + extractedAt.String()),
		ConceptId:  conceptA.Id,
		SpanId:     span.Id,
		Confidence: 0.85,
	}

	return &versionFixture{
		doc:       doc,
		version:   version,
		spans:     []*core.Span{span},
		concepts:  []*core.Concept{conceptA, conceptB},
		relations: []*core.Relation{relation},
		mentions:  []*core.Mention{mention},
	}
}

func TestCreateVersionAndGetOntology(t *testing.T) {
	docRepo, ontoRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	fx := newVersionFixture(t, docRepo, "Loom Framework powers rendering.", time.Now().UTC())

	require.NoError(t, ontoRepo.CreateVersion(ctx, fx.version, fx.spans, fx.concepts, fx.relations, fx.mentions))

	onto, err := ontoRepo.GetOntology(ctx, fx.doc.Id)
	require.NoError(t, err)
	assert.Equal(t, fx.doc.Id, onto.Document.Id)
	assert.Equal(t, fx.version.Id, onto.Version.Id)
	assert.Len(t, onto.Spans, 1)
	assert.Len(t, onto.Concepts, 2)
	assert.Len(t, onto.Relations, 1)
	assert.Len(t, onto.Mentions, 1)
}

func TestCreateVersionRejectsInvalidRecords(t *testing.T) {
	docRepo, ontoRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	t.Run("unknown concept type rejects whole version", func(t *testing.T) {
		fx := newVersionFixture(t, docRepo, "bad concept type doc", time.Now().UTC())
		fx.concepts[0].Type = "Gadget"

		err := ontoRepo.CreateVersion(ctx, fx.version, fx.spans, fx.concepts, fx.relations, fx.mentions)
		assert.ErrorIs(t, err, core.ErrInvalidConceptType)

		_, err = ontoRepo.GetOntology(ctx, fx.doc.Id)
		assert.ErrorIs(t, err, storage.ErrNotFound, "nothing persisted")
	})

	t.Run("unknown relation verb rejects whole version", func(t *testing.T) {
		fx := newVersionFixture(t, docRepo, "bad verb doc", time.Now().UTC())
		fx.relations[0].Verb = "related_to"

		err := ontoRepo.CreateVersion(ctx, fx.version, fx.spans, fx.concepts, fx.relations, fx.mentions)
		assert.ErrorIs(t, err, core.ErrInvalidRelationVerb)
	})

	t.Run("span past document end rejects whole version", func(t *testing.T) {
		fx := newVersionFixture(t, docRepo, "short doc text", time.Now().UTC())
		fx.spans[0].End = 10_000

		err := ontoRepo.CreateVersion(ctx, fx.version, fx.spans, fx.concepts, fx.relations, fx.mentions)
		assert.ErrorIs(t, err, core.ErrInvalidSpan)
	})

	t.Run("relation endpoints outside the batch reject whole version", func(t *testing.T) {
		fx := newVersionFixture(t, docRepo, "dangling relation doc", time.Now().UTC())
		fx.relations[0].Dst = core.ID(88888)

		err := ontoRepo.CreateVersion(ctx, fx.version, fx.spans, fx.concepts, fx.relations, fx.mentions)
		assert.ErrorIs(t, err, core.ErrDanglingReference)

		_, err = ontoRepo.GetOntology(ctx, fx.doc.Id)
		assert.ErrorIs(t, err, storage.ErrNotFound, "nothing persisted")
	})

	t.Run("relation without any concepts rejected", func(t *testing.T) {
		fx := newVersionFixture(t, docRepo, "relation only doc", time.Now().UTC())
		fx.relations[0].Src = core.ID(99999)
		fx.relations[0].Dst = core.ID(88888)

		err := ontoRepo.CreateVersion(ctx, fx.version, fx.spans, nil, fx.relations, nil)
		assert.ErrorIs(t, err, core.ErrDanglingReference)
	})

	t.Run("mention referencing unknown span rejected", func(t *testing.T) {
		fx := newVersionFixture(t, docRepo, "dangling mention doc", time.Now().UTC())
		fx.mentions[0].SpanId = core.ID(77777)

		err := ontoRepo.CreateVersion(ctx, fx.version, fx.spans, fx.concepts, fx.relations, fx.mentions)
		assert.ErrorIs(t, err, core.ErrDanglingReference)
	})

	t.Run("unknown document rejected", func(t *testing.T) {
		v := &core.OntologyVersion{Id: 1, DocumentId: 424242, ModelName: "m", ExtractedAt: time.Now()}
		err := ontoRepo.CreateVersion(ctx, v, nil, nil, nil, nil)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestReextractionKeepsPriorVersions(t *testing.T) {
	docRepo, ontoRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	t0 := time.Now().UTC().Add(-time.Hour)
	fx1 := newVersionFixture(t, docRepo, "document under re-extraction", t0)
	require.NoError(t, ontoRepo.CreateVersion(ctx, fx1.version, fx1.spans, fx1.concepts, fx1.relations, fx1.mentions))

	// Second extraction of the same document.
	fx2 := newVersionFixture(t, docRepo, "document under re-extraction", t0.Add(time.Hour))
	fx2.concepts = fx2.concepts[:1]
	require.NoError(t, ontoRepo.CreateVersion(ctx, fx2.version, fx2.spans, fx2.concepts, fx2.relations[:0], fx2.mentions[:0]))

	versions, err := ontoRepo.GetVersions(ctx, fx1.doc.Id)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, fx2.version.Id, versions[0].Id, "newest first")
	assert.Equal(t, fx1.version.Id, versions[1].Id)

	onto, err := ontoRepo.GetOntology(ctx, fx1.doc.Id)
	require.NoError(t, err)
	assert.Equal(t, fx2.version.Id, onto.Version.Id, "latest view follows newest version")
	assert.Len(t, onto.Concepts, 1)
}

func TestGetLatestConcepts(t *testing.T) {
	docRepo, ontoRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	t0 := time.Now().UTC().Add(-time.Hour)

	fxA := newVersionFixture(t, docRepo, "first document body", t0)
	require.NoError(t, ontoRepo.CreateVersion(ctx, fxA.version, fxA.spans, fxA.concepts, nil, nil))

	// Supersede document A with a single-concept version.
	fxA2 := newVersionFixture(t, docRepo, "first document body", t0.Add(time.Minute))
	fxA2.concepts = fxA2.concepts[:1]
	require.NoError(t, ontoRepo.CreateVersion(ctx, fxA2.version, fxA2.spans, fxA2.concepts, nil, nil))

	fxB := newVersionFixture(t, docRepo, "second document body", t0)
	require.NoError(t, ontoRepo.CreateVersion(ctx, fxB.version, fxB.spans, fxB.concepts, nil, nil))

	concepts, err := ontoRepo.GetLatestConcepts(ctx)
	require.NoError(t, err)
	assert.Len(t, concepts, 3, "1 from A's latest + 2 from B")

	for _, c := range concepts {
		assert.NotEqual(t, fxA.version.Id, c.VersionId, "superseded version excluded")
	}
}

func TestGetConceptsByVersion(t *testing.T) {
	docRepo, ontoRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	t0 := time.Now().UTC().Add(-time.Hour)

	fx1 := newVersionFixture(t, docRepo, "versioned concept listing", t0)
	require.NoError(t, ontoRepo.CreateVersion(ctx, fx1.version, fx1.spans, fx1.concepts, nil, nil))

	fx2 := newVersionFixture(t, docRepo, "versioned concept listing", t0.Add(time.Minute))
	fx2.concepts = fx2.concepts[:1]
	require.NoError(t, ontoRepo.CreateVersion(ctx, fx2.version, fx2.spans, fx2.concepts, nil, nil))

	// Superseded versions stay readable by their own ID.
	old, err := ontoRepo.GetConceptsByVersion(ctx, fx1.version.Id)
	require.NoError(t, err)
	assert.Len(t, old, 2)

	latest, err := ontoRepo.GetConceptsByVersion(ctx, fx2.version.Id)
	require.NoError(t, err)
	assert.Len(t, latest, 1)

	none, err := ontoRepo.GetConceptsByVersion(ctx, core.ID(424242))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCheckSpans(t *testing.T) {
	docRepo, ontoRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	t.Run("clean document reports zero", func(t *testing.T) {
		fx := newVersionFixture(t, docRepo, "clean span check doc", time.Now().UTC())
		require.NoError(t, ontoRepo.CreateVersion(ctx, fx.version, fx.spans, fx.concepts, nil, nil))

		mismatches, err := ontoRepo.CheckSpans(ctx, fx.doc.Id)
		require.NoError(t, err)
		assert.Zero(t, mismatches)
	})

	t.Run("drifted excerpt counted", func(t *testing.T) {
		fx := newVersionFixture(t, docRepo, "drifted span check doc", time.Now().UTC())
		// CreateVersion records a drifted excerpt with a warning.
		fx.spans[0].Text = "not what the offsets say"
		require.NoError(t, ontoRepo.CreateVersion(ctx, fx.version, fx.spans, fx.concepts, nil, nil))

		mismatches, err := ontoRepo.CheckSpans(ctx, fx.doc.Id)
		require.NoError(t, err)
		assert.Equal(t, 1, mismatches)
	})

	t.Run("document without versions", func(t *testing.T) {
		doc := newTestDocument("no versions yet")
		_, err := docRepo.CreateDocument(ctx, doc)
		require.NoError(t, err)

		_, err = ontoRepo.CheckSpans(ctx, doc.Id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := ontoRepo.CheckSpans(ctx, core.ID(424242))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestConceptVectorUpdate(t *testing.T) {
	docRepo, ontoRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	fx := newVersionFixture(t, docRepo, "vector update doc", time.Now().UTC())
	require.NoError(t, ontoRepo.CreateVersion(ctx, fx.version, fx.spans, fx.concepts, nil, nil))

	id := fx.concepts[0].Id
	vec := []byte{1, 2, 3}
	require.NoError(t, ontoRepo.UpdateConceptVector(ctx, id, vec, "m:3:aaaa1111:t", "m", 3))

	got, err := ontoRepo.GetConcept(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, vec, got.Vector)
	assert.Equal(t, "m", got.VectorModel)

	assert.ErrorIs(t, ontoRepo.UpdateConceptVector(ctx, core.ID(999), vec, "f", "m", 3), storage.ErrNotFound)
	_, err = ontoRepo.GetConcept(ctx, core.ID(999))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
