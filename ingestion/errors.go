package ingestion

import "errors"

var (
	// ErrDocumentRepositoryRequired indicates a nil document repository.
	ErrDocumentRepositoryRequired = errors.New("document repository is required")

	// ErrOntologyRepositoryRequired indicates a nil ontology repository.
	ErrOntologyRepositoryRequired = errors.New("ontology repository is required")

	// ErrAIProviderRequired indicates a nil AI provider.
	ErrAIProviderRequired = errors.New("ai provider is required")

	// ErrNoValidCandidates indicates that extraction produced nothing
	// storable: every chunk failed or every candidate was dropped.
	ErrNoValidCandidates = errors.New("extraction produced no valid candidates")
)
