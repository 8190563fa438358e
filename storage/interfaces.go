package storage

import (
	"context"

	"github.com/poiesic/ontolite/core"
)

// DocumentRepository provides operations for managing documents.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// CreateDocument stores a document. Idempotent: storing a document whose
	// ID already exists with the same checksum is a no-op and returns the
	// stored record. A same-ID different-checksum write returns
	// ErrDuplicateKey.
	CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetAllDocuments retrieves every stored document, ordered by ID.
	GetAllDocuments(ctx context.Context) ([]*core.Document, error)

	// UpdateSummary replaces a document's summary.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateSummary(ctx context.Context, id core.ID, summary string) error

	// UpdateVector atomically replaces a document's compressed vector,
	// fingerprint, model, and dimension. Returns ErrNotFound if the
	// document doesn't exist.
	UpdateVector(ctx context.Context, id core.ID, vec []byte, fingerprint, model string, dim int) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// OntologyRepository provides operations for managing extraction versions
// and their contents. Versions are append-only.
type OntologyRepository interface {
	// CreateVersion stores a version together with all of its spans,
	// concepts, relations, and mentions in a single transaction.
	// Every record is validated before any write: unknown concept types or
	// relation verbs reject the whole version. The document's latest-version
	// pointer is advanced as part of the same transaction.
	CreateVersion(ctx context.Context, version *core.OntologyVersion,
		spans []*core.Span, concepts []*core.Concept,
		relations []*core.Relation, mentions []*core.Mention) error

	// GetOntology returns the merged latest-version view for a document.
	// Returns ErrNotFound if the document has no versions.
	GetOntology(ctx context.Context, documentID core.ID) (*core.MicroOntology, error)

	// GetVersions lists all versions of a document, newest first.
	GetVersions(ctx context.Context, documentID core.ID) ([]*core.OntologyVersion, error)

	// GetLatestConcepts returns the concepts of every document's latest
	// version. Concepts from superseded versions are excluded.
	GetLatestConcepts(ctx context.Context) ([]*core.Concept, error)

	// GetConceptsByVersion returns the concepts stored under one version.
	GetConceptsByVersion(ctx context.Context, versionID core.ID) ([]*core.Concept, error)

	// CheckSpans verifies the spans of a document's latest version against
	// the document text and returns the number of spans whose recorded
	// excerpt no longer matches their offsets. Returns ErrNotFound if the
	// document has no versions.
	CheckSpans(ctx context.Context, documentID core.ID) (int, error)

	// GetConcept retrieves a single concept by ID.
	// Returns ErrNotFound if the concept doesn't exist.
	GetConcept(ctx context.Context, id core.ID) (*core.Concept, error)

	// UpdateConceptVector atomically replaces a concept's compressed vector,
	// fingerprint, model, and dimension.
	UpdateConceptVector(ctx context.Context, id core.ID, vec []byte, fingerprint, model string, dim int) error

	// Close closes the storage backend and releases resources.
	Close() error
}
