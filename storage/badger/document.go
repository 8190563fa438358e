package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/ontolite/core"
	"github.com/poiesic/ontolite/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	return &DocumentRepository{
		backend: backend,
	}, nil
}

// Close releases resources. DocumentRepository has no resources to release.
func (r *DocumentRepository) Close() error {
	return nil
}

// CreateDocument stores a document. Re-ingesting identical content is a
// no-op; a colliding ID with a different checksum is rejected.
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	var stored *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(documentPrefix, doc.Id)
		existing, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Checksum != doc.Checksum {
				return storage.ErrDuplicateKey
			}
			stored = existing
			return nil
		}

		now := time.Now().UTC()
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = doc.CreatedAt

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		stored = doc
		return tx.Commit()
	}, true)

	return stored, err
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, makeRecordKey(documentPrefix, id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// GetAllDocuments retrieves every stored document.
func (r *DocumentRepository) GetAllDocuments(ctx context.Context) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateSummary replaces a document's summary.
func (r *DocumentRepository) UpdateSummary(ctx context.Context, id core.ID, summary string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(documentPrefix, id)
		doc, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		doc.Summary = summary
		doc.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// UpdateVector replaces the vector, fingerprint, model, and dimension of a
// document in one write. Partial vector state is never observable.
func (r *DocumentRepository) UpdateVector(ctx context.Context, id core.ID, vec []byte, fingerprint, model string, dim int) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(documentPrefix, id)
		doc, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		doc.Vector = vec
		doc.VectorFingerprint = fingerprint
		doc.VectorModel = model
		doc.VectorDim = dim
		doc.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readDocument reads a document by key within a transaction.
// Returns nil (no error) if the key doesn't exist.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}
