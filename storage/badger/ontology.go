package badger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/ontolite/core"
	"github.com/poiesic/ontolite/storage"
)

// OntologyRepository implements storage.OntologyRepository for BadgerDB.
type OntologyRepository struct {
	backend *Backend
}

var _ storage.OntologyRepository = (*OntologyRepository)(nil)

// NewOntologyRepository creates a new OntologyRepository.
func NewOntologyRepository(backend *Backend) (*OntologyRepository, error) {
	return &OntologyRepository{
		backend: backend,
	}, nil
}

// Close releases resources. OntologyRepository has no resources to release.
func (r *OntologyRepository) Close() error {
	return nil
}

// CreateVersion stores a version with all of its records in one transaction.
// All records are validated before the first write, so a single invalid
// record rejects the entire version and prior versions stay untouched.
func (r *OntologyRepository) CreateVersion(ctx context.Context, version *core.OntologyVersion,
	spans []*core.Span, concepts []*core.Concept,
	relations []*core.Relation, mentions []*core.Mention) error {

	if err := core.ValidateVersion(version); err != nil {
		return err
	}
	for _, c := range concepts {
		if err := core.ValidateConcept(c); err != nil {
			return err
		}
	}
	for _, rel := range relations {
		if err := core.ValidateRelation(rel); err != nil {
			return err
		}
	}
	for _, m := range mentions {
		if err := core.ValidateMention(m); err != nil {
			return err
		}
	}

	// Relations and mentions must resolve within the version being written.
	// Versions are self-contained, so an endpoint outside the batch can
	// never resolve later.
	conceptIDs := make(map[core.ID]bool, len(concepts))
	for _, c := range concepts {
		conceptIDs[c.Id] = true
	}
	spanIDs := make(map[core.ID]bool, len(spans))
	for _, s := range spans {
		spanIDs[s.Id] = true
	}
	for _, rel := range relations {
		if !conceptIDs[rel.Src] || !conceptIDs[rel.Dst] {
			return fmt.Errorf("%w: relation %d endpoints (%d, %d)",
				core.ErrDanglingReference, rel.Id, rel.Src, rel.Dst)
		}
	}
	for _, m := range mentions {
		if !conceptIDs[m.ConceptId] || !spanIDs[m.SpanId] {
			return fmt.Errorf("%w: mention %d (concept %d, span %d)",
				core.ErrDanglingReference, m.Id, m.ConceptId, m.SpanId)
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, makeRecordKey(documentPrefix, version.DocumentId))
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		docRunes := []rune(doc.Text)
		for _, s := range spans {
			if err := core.ValidateSpan(s, len(docRunes)); err != nil {
				return err
			}
			// Offsets are authoritative. A drifted excerpt is recorded
			// anyway, with a warning for the operator.
			if s.Text != "" && string(docRunes[s.Start:s.End]) != s.Text {
				r.backend.logger.Warn("span text does not match document offsets",
					"document", s.DocumentId, "span", s.Id,
					"start", s.Start, "end", s.End)
			}
		}

		now := time.Now().UTC()

		if err := tx.Set(makeRecordKey(versionPrefix, version.Id), storage.MarshalVersion(version)); err != nil {
			return err
		}
		if err := tx.Set(makeCompositeKey(verByDocPrefix, version.DocumentId, version.Id), nil); err != nil {
			return err
		}

		for _, s := range spans {
			if err := tx.Set(makeRecordKey(spanPrefix, s.Id), storage.MarshalSpan(s)); err != nil {
				return err
			}
			if err := tx.Set(makeCompositeKey(spanByVerPrefix, version.Id, s.Id), nil); err != nil {
				return err
			}
		}
		for _, c := range concepts {
			if c.InsertedAt.IsZero() {
				c.InsertedAt = now
			}
			if c.UpdatedAt.IsZero() {
				c.UpdatedAt = c.InsertedAt
			}
			if err := tx.Set(makeRecordKey(conceptPrefix, c.Id), storage.MarshalConcept(c)); err != nil {
				return err
			}
			if err := tx.Set(makeCompositeKey(conByVerPrefix, version.Id, c.Id), nil); err != nil {
				return err
			}
		}
		for _, rel := range relations {
			if err := tx.Set(makeRecordKey(relationPrefix, rel.Id), storage.MarshalRelation(rel)); err != nil {
				return err
			}
			if err := tx.Set(makeCompositeKey(relByVerPrefix, version.Id, rel.Id), nil); err != nil {
				return err
			}
		}
		for _, m := range mentions {
			if err := tx.Set(makeRecordKey(mentionPrefix, m.Id), storage.MarshalMention(m)); err != nil {
				return err
			}
			if err := tx.Set(makeCompositeKey(menByVerPrefix, version.Id, m.Id), nil); err != nil {
				return err
			}
		}

		// The latest pointer advances in the same transaction, so readers
		// never observe a half-written version.
		if err := tx.Set(makeLatestKey(version.DocumentId), storage.MarshalID(version.Id)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// GetOntology returns the merged latest-version view for a document.
func (r *OntologyRepository) GetOntology(ctx context.Context, documentID core.ID) (*core.MicroOntology, error) {
	var onto core.MicroOntology
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, makeRecordKey(documentPrefix, documentID))
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		onto.Document = doc

		latestID, err := readLatestVersionID(tx, documentID)
		if err != nil {
			return err
		}

		version, err := readVersion(tx, makeRecordKey(versionPrefix, latestID))
		if err != nil {
			return err
		}
		if version == nil {
			return storage.ErrNotFound
		}
		onto.Version = version

		if onto.Spans, err = readSpansOfVersion(tx, latestID); err != nil {
			return err
		}
		if onto.Concepts, err = readConceptsOfVersion(tx, latestID); err != nil {
			return err
		}
		if onto.Relations, err = readRelationsOfVersion(tx, latestID); err != nil {
			return err
		}
		onto.Mentions, err = readMentionsOfVersion(tx, latestID)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return &onto, nil
}

// GetVersions lists all versions of a document, newest first.
func (r *OntologyRepository) GetVersions(ctx context.Context, documentID core.ID) ([]*core.OntologyVersion, error) {
	var versions []*core.OntologyVersion
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := readMemberIDs(tx, verByDocPrefix, documentID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			v, err := readVersion(tx, makeRecordKey(versionPrefix, id))
			if err != nil {
				return err
			}
			if v != nil {
				versions = append(versions, v)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(versions, func(a, b *core.OntologyVersion) int {
		if a.ExtractedAt.After(b.ExtractedAt) {
			return -1
		}
		if a.ExtractedAt.Before(b.ExtractedAt) {
			return 1
		}
		return 0
	})
	return versions, nil
}

// GetLatestConcepts returns the concepts of every document's latest version.
func (r *OntologyRepository) GetLatestConcepts(ctx context.Context) ([]*core.Concept, error) {
	var concepts []*core.Concept
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(latestPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var versionIDs []core.ID
		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				id, err := storage.UnmarshalID(val)
				if err != nil {
					return err
				}
				versionIDs = append(versionIDs, id)
				return nil
			})
			if err != nil {
				return err
			}
		}
		iter.Close()

		for _, vid := range versionIDs {
			cs, err := readConceptsOfVersion(tx, vid)
			if err != nil {
				return err
			}
			concepts = append(concepts, cs...)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return concepts, nil
}

// GetConceptsByVersion returns the concepts stored under one version.
func (r *OntologyRepository) GetConceptsByVersion(ctx context.Context, versionID core.ID) ([]*core.Concept, error) {
	var concepts []*core.Concept
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		concepts, err = readConceptsOfVersion(tx, versionID)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return concepts, nil
}

// CheckSpans re-verifies the latest version's spans against the document
// text. A span counts as a mismatch when its offsets fall outside the text
// or its recorded excerpt differs from the text at those offsets.
func (r *OntologyRepository) CheckSpans(ctx context.Context, documentID core.ID) (int, error) {
	mismatches := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, makeRecordKey(documentPrefix, documentID))
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		latestID, err := readLatestVersionID(tx, documentID)
		if err != nil {
			return err
		}
		spans, err := readSpansOfVersion(tx, latestID)
		if err != nil {
			return err
		}

		docRunes := []rune(doc.Text)
		for _, s := range spans {
			if s.Start < 0 || s.End > len(docRunes) || s.Start >= s.End {
				r.backend.logger.Warn("span offsets out of range",
					"document", documentID, "span", s.Id,
					"start", s.Start, "end", s.End, "length", len(docRunes))
				mismatches++
				continue
			}
			if s.Text != "" && string(docRunes[s.Start:s.End]) != s.Text {
				r.backend.logger.Warn("span text diverged from document offsets",
					"document", documentID, "span", s.Id,
					"start", s.Start, "end", s.End)
				mismatches++
			}
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return mismatches, nil
}

// GetConcept retrieves a single concept by ID.
func (r *OntologyRepository) GetConcept(ctx context.Context, id core.ID) (*core.Concept, error) {
	var concept *core.Concept
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		concept, err = readConcept(tx, makeRecordKey(conceptPrefix, id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, storage.ErrNotFound
	}
	return concept, nil
}

// UpdateConceptVector replaces the vector fields of a concept in one write.
func (r *OntologyRepository) UpdateConceptVector(ctx context.Context, id core.ID, vec []byte, fingerprint, model string, dim int) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(conceptPrefix, id)
		concept, err := readConcept(tx, key)
		if err != nil {
			return err
		}
		if concept == nil {
			return storage.ErrNotFound
		}

		concept.Vector = vec
		concept.VectorFingerprint = fingerprint
		concept.VectorModel = model
		concept.VectorDim = dim
		concept.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalConcept(concept)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func readLatestVersionID(tx *badger.Txn, documentID core.ID) (core.ID, error) {
	item, err := tx.Get(makeLatestKey(documentID))
	if err == badger.ErrKeyNotFound {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	var id core.ID
	err = item.Value(func(val []byte) error {
		var err error
		id, err = storage.UnmarshalID(val)
		return err
	})
	return id, err
}

func readVersion(tx *badger.Txn, key []byte) (*core.OntologyVersion, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v *core.OntologyVersion
	err = item.Value(func(val []byte) error {
		var err error
		v, err = storage.UnmarshalVersion(val)
		return err
	})
	return v, err
}

func readConcept(tx *badger.Txn, key []byte) (*core.Concept, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c *core.Concept
	err = item.Value(func(val []byte) error {
		var err error
		c, err = storage.UnmarshalConcept(val)
		return err
	})
	return c, err
}

// readMemberIDs collects the member IDs of one owner from a composite index.
func readMemberIDs(tx *badger.Txn, prefix string, owner core.ID) ([]core.ID, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialCompositeKey(prefix, owner)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		ids = append(ids, memberIDFromCompositeKey(iter.Item().Key()))
	}
	return ids, nil
}

func readSpansOfVersion(tx *badger.Txn, versionID core.ID) ([]*core.Span, error) {
	ids, err := readMemberIDs(tx, spanByVerPrefix, versionID)
	if err != nil {
		return nil, err
	}
	spans := make([]*core.Span, 0, len(ids))
	for _, id := range ids {
		item, err := tx.Get(makeRecordKey(spanPrefix, id))
		if err == badger.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		var s *core.Span
		if err := item.Value(func(val []byte) error {
			var err error
			s, err = storage.UnmarshalSpan(val)
			return err
		}); err != nil {
			return nil, err
		}
		spans = append(spans, s)
	}
	return spans, nil
}

func readConceptsOfVersion(tx *badger.Txn, versionID core.ID) ([]*core.Concept, error) {
	ids, err := readMemberIDs(tx, conByVerPrefix, versionID)
	if err != nil {
		return nil, err
	}
	concepts := make([]*core.Concept, 0, len(ids))
	for _, id := range ids {
		c, err := readConcept(tx, makeRecordKey(conceptPrefix, id))
		if err != nil {
			return nil, err
		}
		if c != nil {
			concepts = append(concepts, c)
		}
	}
	return concepts, nil
}

func readRelationsOfVersion(tx *badger.Txn, versionID core.ID) ([]*core.Relation, error) {
	ids, err := readMemberIDs(tx, relByVerPrefix, versionID)
	if err != nil {
		return nil, err
	}
	relations := make([]*core.Relation, 0, len(ids))
	for _, id := range ids {
		item, err := tx.Get(makeRecordKey(relationPrefix, id))
		if err == badger.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		var rel *core.Relation
		if err := item.Value(func(val []byte) error {
			var err error
			rel, err = storage.UnmarshalRelation(val)
			return err
		}); err != nil {
			return nil, err
		}
		relations = append(relations, rel)
	}
	return relations, nil
}

func readMentionsOfVersion(tx *badger.Txn, versionID core.ID) ([]*core.Mention, error) {
	ids, err := readMemberIDs(tx, menByVerPrefix, versionID)
	if err != nil {
		return nil, err
	}
	mentions := make([]*core.Mention, 0, len(ids))
	for _, id := range ids {
		item, err := tx.Get(makeRecordKey(mentionPrefix, id))
		if err == badger.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		var m *core.Mention
		if err := item.Value(func(val []byte) error {
			var err error
			m, err = storage.UnmarshalMention(val)
			return err
		}); err != nil {
			return nil, err
		}
		mentions = append(mentions, m)
	}
	return mentions, nil
}
