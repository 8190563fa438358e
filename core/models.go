package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is derived from entity content using BLAKE2b hashing so that identical
// content always produces the same identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ConceptType is the closed taxonomy of concept categories.
// Unknown values are rejected at the storage boundary, never coerced.
type ConceptType string

const (
	ConceptTypePerson     ConceptType = "Person"
	ConceptTypeProject    ConceptType = "Project"
	ConceptTypeDate       ConceptType = "Date"
	ConceptTypeMetric     ConceptType = "Metric"
	ConceptTypeTechnology ConceptType = "Technology"
	ConceptTypeFeature    ConceptType = "Feature"
	ConceptTypeProcess    ConceptType = "Process"
	ConceptTypeTopic      ConceptType = "Topic"
	ConceptTypeTeam       ConceptType = "Team"
)

// ConceptTypes lists every valid concept type.
var ConceptTypes = []ConceptType{
	ConceptTypePerson, ConceptTypeProject, ConceptTypeDate,
	ConceptTypeMetric, ConceptTypeTechnology, ConceptTypeFeature,
	ConceptTypeProcess, ConceptTypeTopic, ConceptTypeTeam,
}

// Valid reports whether the concept type is part of the taxonomy.
func (t ConceptType) Valid() bool {
	for _, known := range ConceptTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RelationVerb is the closed enumeration of relation edge types.
type RelationVerb string

const (
	RelationDefines   RelationVerb = "defines"
	RelationDependsOn RelationVerb = "depends_on"
	RelationOwns      RelationVerb = "owns"
	RelationLeads     RelationVerb = "leads"
	RelationEnables   RelationVerb = "enables"
	RelationSupports  RelationVerb = "supports"
	RelationContains  RelationVerb = "contains"
	RelationMeasures  RelationVerb = "measures"
	RelationPrecedes  RelationVerb = "precedes"
	RelationProvides  RelationVerb = "provides"
	RelationUses      RelationVerb = "uses"
	RelationProduces  RelationVerb = "produces"
)

// RelationVerbs lists every valid relation verb.
var RelationVerbs = []RelationVerb{
	RelationDefines, RelationDependsOn, RelationOwns, RelationLeads,
	RelationEnables, RelationSupports, RelationContains, RelationMeasures,
	RelationPrecedes, RelationProvides, RelationUses, RelationProduces,
}

// Valid reports whether the verb is part of the enumeration.
func (v RelationVerb) Valid() bool {
	for _, known := range RelationVerbs {
		if v == known {
			return true
		}
	}
	return false
}

// Document represents a source file that has been ingested.
// Immutable once created except for Summary and the vector fields,
// which are always replaced together with their fingerprint.
type Document struct {
	Id                ID
	Title             string
	Checksum          string // hex SHA-256 of the document text
	Bytes             int64
	Text              string
	Summary           string
	Vector            []byte // codec-compressed embedding, empty until embedded
	VectorFingerprint string
	VectorModel       string
	VectorDim         int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OntologyVersion records one extraction run over a document.
// Versions are append-only: re-extraction creates a new version and prior
// versions are retained untouched.
type OntologyVersion struct {
	Id           ID
	DocumentId   ID
	ModelName    string
	ModelVersion string
	Pipeline     string
	ExtractedAt  time.Time
	Notes        string
}

// Span is a character-offset-anchored excerpt of source text used as evidence.
// Offsets are rune-based, never line-based.
type Span struct {
	Id         ID
	DocumentId ID
	VersionId  ID
	Start      int
	End        int
	Text       string
	PageHint   int
	Quality    float64
}

// Concept represents an extracted entity or idea, typed against the closed
// taxonomy and anchored to exactly one document.
type Concept struct {
	Id                ID
	DocumentId        ID
	VersionId         ID
	Label             string
	Type              ConceptType
	Confidence        float64
	Aliases           []string
	Tags              []string
	Summary           string
	ParentId          ID
	Vector            []byte
	VectorFingerprint string
	VectorModel       string
	VectorDim         int
	InsertedAt        time.Time
	UpdatedAt         time.Time
}

// NormalizedKey returns the case- and whitespace-insensitive merge key for
// the concept, used to deduplicate concepts across extraction chunks.
func (c *Concept) NormalizedKey() string {
	return NormalizeLabel(c.Label) + "|" + string(c.Type)
}

// NormalizeLabel lowercases a label and collapses interior whitespace.
func NormalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

// Relation is a typed directed edge between two concepts of the same document.
type Relation struct {
	Id         ID
	DocumentId ID
	VersionId  ID
	Src        ID
	Verb       RelationVerb
	Dst        ID
	Confidence float64
}

// Mention links a concept to a span that supports it.
// Each (concept, span) pair is unique within a version.
type Mention struct {
	Id         ID
	ConceptId  ID
	SpanId     ID
	Confidence float64
}

// MicroOntology is the merged latest-version view of a document: its
// metadata plus all concepts, relations, spans and mentions of the most
// recent extraction. This is the single canonical response shape.
type MicroOntology struct {
	Document  *Document
	Version   *OntologyVersion
	Spans     []*Span
	Concepts  []*Concept
	Relations []*Relation
	Mentions  []*Mention
}
