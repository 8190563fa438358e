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


package index

import (
	"slices"
	"sync"

	"github.com/poiesic/ontolite/core"
	"github.com/poiesic/ontolite/vector"
)

// Kind distinguishes the entity class of an indexed vector.
type Kind string

const (
	KindDocument Kind = "document"
	KindConcept  Kind = "concept"
)

type entry struct {
	kind Kind
	vec  []float32
}

// Index is an in-memory exact-cosine similarity index over decompressed
// embeddings. It is rebuilt from the primary store at startup; the store,
// not the index, is the source of truth.
type Index struct {
	mu      sync.RWMutex
	entries map[core.ID]entry
}

// Hit is one similarity search result.
type Hit struct {
	Id    core.ID
	Kind  Kind
	Score float64
}

// New creates an empty index.
func New() *Index {
	return &Index{
		entries: make(map[core.ID]entry),
	}
}

// Upsert adds or replaces the vector for an entity.
// Empty vectors remove the entity instead.
func (ix *Index) Upsert(id core.ID, kind Kind, vec []float32) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(vec) == 0 {
		delete(ix.entries, id)
		return
	}
	ix.entries[id] = entry{kind: kind, vec: vec}
}

// Delete removes an entity from the index.
func (ix *Index) Delete(id core.ID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, id)
}

// Len returns the number of indexed entities.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Clear removes all entries.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = make(map[core.ID]entry)
}

// Similarity returns the cosine similarity between the query and the
// entity's stored vector. The second return is false when the entity has
// no indexed vector.
func (ix *Index) Similarity(id core.ID, query []float32) (float64, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	e, ok := ix.entries[id]
	if !ok {
		return 0, false
	}
	return vector.CosineSimilarity(query, e.vec), true
}

// Search returns up to limit entities of the given kind ordered by cosine
// similarity to the query, highest first. Ties break on ascending ID so
// results are deterministic.
func (ix *Index) Search(query []float32, kind Kind, limit int) []Hit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var hits []Hit
	for id, e := range ix.entries {
		if e.kind != kind {
			continue
		}
		hits = append(hits, Hit{
			Id:    id,
			Kind:  kind,
			Score: vector.CosineSimilarity(query, e.vec),
		})
	}

	slices.SortFunc(hits, func(a, b Hit) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
