package ai

// CandidateSpan is an evidence excerpt proposed by the extractor, with
// offsets relative to the chunk it was extracted from.
type CandidateSpan struct {
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Text     string  `json:"text"`
	Quality  float64 `json:"quality"`
	PageHint int     `json:"page_hint"`
}

// CandidateConcept is an entity or idea proposed by the extractor.
// Type must match one of the taxonomy values; candidates with unknown
// types are dropped during merge, never coerced.
type CandidateConcept struct {
	Label      string   `json:"label"`
	Type       string   `json:"type"`
	Confidence float64  `json:"confidence"`
	Aliases    []string `json:"aliases"`
	Tags       []string `json:"tags"`
	Summary    string   `json:"summary"`
}

// CandidateRelation is a directed edge between two concept labels.
// Endpoints reference concepts by label because the extractor has no
// knowledge of storage IDs.
type CandidateRelation struct {
	Src        string  `json:"src"`
	Verb       string  `json:"verb"`
	Dst        string  `json:"dst"`
	Confidence float64 `json:"confidence"`
}

// CandidateMention ties a concept label to a span by its position in the
// chunk's span list.
type CandidateMention struct {
	ConceptLabel string  `json:"concept"`
	SpanIndex    int     `json:"span"`
	Confidence   float64 `json:"confidence"`
}

// ChunkExtraction is everything the extractor produced for one text chunk.
type ChunkExtraction struct {
	Summary   string              `json:"summary"`
	Spans     []CandidateSpan     `json:"spans"`
	Concepts  []CandidateConcept  `json:"concepts"`
	Relations []CandidateRelation `json:"relations"`
	Mentions  []CandidateMention  `json:"mentions"`
}
