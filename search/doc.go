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


// Package search implements the hybrid lexical and semantic scorer.
//
// The Searcher fuses three independent relevance signals per candidate:
//   - Tiered fuzzy matching of the query against document titles
//   - The same matching against the labels of latest-version concepts
//   - Cosine similarity of the query embedding against stored vectors
//
// Fusion weights and the inclusion threshold are configurable; ranking is
// fully deterministic for a fixed corpus and query. Candidates without
// vectors degrade to lexical-only scoring, so search keeps working while
// the corpus is still being embedded.
package search
