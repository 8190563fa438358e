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

import "errors"

var (
	// ErrInvalidDocument indicates a document that fails validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidVersion indicates an ontology version that fails validation.
	ErrInvalidVersion = errors.New("invalid ontology version")

	// ErrInvalidSpan indicates a span with bad offsets or missing anchors.
	ErrInvalidSpan = errors.New("invalid span")

	// ErrInvalidConcept indicates a concept that fails validation.
	ErrInvalidConcept = errors.New("invalid concept")

	// ErrInvalidConceptType indicates a concept type outside the taxonomy.
	ErrInvalidConceptType = errors.New("invalid concept type")

	// ErrInvalidRelation indicates a relation that fails validation.
	ErrInvalidRelation = errors.New("invalid relation")

	// ErrInvalidRelationVerb indicates a relation verb outside the enumeration.
	ErrInvalidRelationVerb = errors.New("invalid relation verb")

	// ErrInvalidMention indicates a mention that fails validation.
	ErrInvalidMention = errors.New("invalid mention")

	// ErrDanglingReference indicates a relation or mention whose endpoints
	// do not resolve within the version being written.
	ErrDanglingReference = errors.New("dangling reference")
)
