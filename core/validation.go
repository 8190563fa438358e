// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "fmt"

// ValidateDocument checks that a document carries the fields every stored
// document must have.
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	if d.Id == 0 {
		return fmt.Errorf("%w: zero id", ErrInvalidDocument)
	}
	if d.Title == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidDocument)
	}
	if d.Checksum == "" {
		return fmt.Errorf("%w: empty checksum", ErrInvalidDocument)
	}
	if d.Bytes < 0 {
		return fmt.Errorf("%w: negative byte count", ErrInvalidDocument)
	}
	return nil
}

// ValidateVersion checks an ontology version record.
func ValidateVersion(v *OntologyVersion) error {
	if v == nil {
		return fmt.Errorf("%w: nil version", ErrInvalidVersion)
	}
	if v.Id == 0 {
		return fmt.Errorf("%w: zero id", ErrInvalidVersion)
	}
	if v.DocumentId == 0 {
		return fmt.Errorf("%w: zero document id", ErrInvalidVersion)
	}
	if v.ModelName == "" {
		return fmt.Errorf("%w: empty model name", ErrInvalidVersion)
	}
	if v.ExtractedAt.IsZero() {
		return fmt.Errorf("%w: zero extraction time", ErrInvalidVersion)
	}
	return nil
}

// ValidateSpan checks a span against its document text length in runes.
// Pass textLen < 0 to skip the upper-bound check.
func ValidateSpan(s *Span, textLen int) error {
	if s == nil {
		return fmt.Errorf("%w: nil span", ErrInvalidSpan)
	}
	if s.Id == 0 {
		return fmt.Errorf("%w: zero id", ErrInvalidSpan)
	}
	if s.DocumentId == 0 || s.VersionId == 0 {
		return fmt.Errorf("%w: missing document or version anchor", ErrInvalidSpan)
	}
	if s.Start < 0 || s.End <= s.Start {
		return fmt.Errorf("%w: bad offsets [%d,%d)", ErrInvalidSpan, s.Start, s.End)
	}
	if textLen >= 0 && s.End > textLen {
		return fmt.Errorf("%w: end %d past document length %d", ErrInvalidSpan, s.End, textLen)
	}
	return nil
}

// ValidateConcept checks a concept, including taxonomy membership.
func ValidateConcept(c *Concept) error {
	if c == nil {
		return fmt.Errorf("%w: nil concept", ErrInvalidConcept)
	}
	if c.Id == 0 {
		return fmt.Errorf("%w: zero id", ErrInvalidConcept)
	}
	if c.DocumentId == 0 || c.VersionId == 0 {
		return fmt.Errorf("%w: missing document or version anchor", ErrInvalidConcept)
	}
	if c.Label == "" {
		return fmt.Errorf("%w: empty label", ErrInvalidConcept)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidConceptType, c.Type)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("%w: confidence %f out of range", ErrInvalidConcept, c.Confidence)
	}
	return nil
}

// ValidateRelation checks a relation, including verb enumeration membership.
func ValidateRelation(r *Relation) error {
	if r == nil {
		return fmt.Errorf("%w: nil relation", ErrInvalidRelation)
	}
	if r.Id == 0 {
		return fmt.Errorf("%w: zero id", ErrInvalidRelation)
	}
	if r.Src == 0 || r.Dst == 0 {
		return fmt.Errorf("%w: missing endpoint", ErrInvalidRelation)
	}
	if !r.Verb.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRelationVerb, r.Verb)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %f out of range", ErrInvalidRelation, r.Confidence)
	}
	return nil
}

// ValidateMention checks a concept-to-span evidence link.
func ValidateMention(m *Mention) error {
	if m == nil {
		return fmt.Errorf("%w: nil mention", ErrInvalidMention)
	}
	if m.Id == 0 {
		return fmt.Errorf("%w: zero id", ErrInvalidMention)
	}
	if m.ConceptId == 0 || m.SpanId == 0 {
		return fmt.Errorf("%w: missing concept or span anchor", ErrInvalidMention)
	}
	return nil
}
