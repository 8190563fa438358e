package mock

import (
	"context"
	"strings"
	"unicode"

	"github.com/poiesic/ontolite/ai"
)

// MockOntologyExtractor is a test double for ai.OntologyExtractor.
// It allows custom behavior injection via function fields.
type MockOntologyExtractor struct {
	// ExtractOntologyFunc is called by ExtractOntology if set.
	// If nil, uses default heuristic extraction.
	ExtractOntologyFunc func(ctx context.Context, text string) (*ai.ChunkExtraction, error)

	callCount int
}

// NewMockOntologyExtractor creates a mock extractor with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockOntologyExtractor() *MockOntologyExtractor {
	return &MockOntologyExtractor{}
}

// ExtractOntology produces a deterministic ontology fragment from text.
// Default behavior: capitalized word runs become Topic concepts, the whole
// chunk becomes one evidence span, and every concept gets a mention on it.
func (m *MockOntologyExtractor) ExtractOntology(ctx context.Context, text string) (*ai.ChunkExtraction, error) {
	m.callCount++

	if m.ExtractOntologyFunc != nil {
		return m.ExtractOntologyFunc(ctx, text)
	}

	ext := &ai.ChunkExtraction{
		Summary: firstWords(text, 8),
	}
	if text == "" {
		return ext, nil
	}

	ext.Spans = []ai.CandidateSpan{{
		Start:   0,
		End:     len([]rune(text)),
		Text:    text,
		Quality: 0.9,
	}}

	labels := capitalizedRuns(text)
	confidence := 0.9
	for _, label := range labels {
		ext.Concepts = append(ext.Concepts, ai.CandidateConcept{
			Label:      label,
			Type:       "Topic",
			Confidence: confidence,
		})
		ext.Mentions = append(ext.Mentions, ai.CandidateMention{
			ConceptLabel: label,
			SpanIndex:    0,
			Confidence:   confidence,
		})
		if confidence > 0.3 {
			confidence -= 0.1
		}
	}

	if len(ext.Concepts) >= 2 {
		ext.Relations = []ai.CandidateRelation{{
			Src:        ext.Concepts[0].Label,
			Verb:       "supports",
			Dst:        ext.Concepts[1].Label,
			Confidence: 0.5,
		}}
	}

	return ext, nil
}

// CallCount returns the number of times ExtractOntology was called.
func (m *MockOntologyExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockOntologyExtractor) Reset() {
	m.callCount = 0
	m.ExtractOntologyFunc = nil
}

// capitalizedRuns finds maximal runs of capitalized words, deduplicated in
// order of first appearance.
func capitalizedRuns(text string) []string {
	words := strings.Fields(text)
	var runs []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			runs = append(runs, strings.Join(current, " "))
			current = nil
		}
	}

	for _, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if trimmed == "" {
			flush()
			continue
		}
		first := []rune(trimmed)[0]
		if unicode.IsUpper(first) {
			current = append(current, trimmed)
		} else {
			flush()
		}
		// A trailing punctuation mark ends the run.
		if strings.ContainsRune(".,!?;:", rune(w[len(w)-1])) {
			flush()
		}
	}
	flush()

	seen := make(map[string]bool, len(runs))
	var out []string
	for _, r := range runs {
		key := strings.ToLower(r)
		if !seen[key] {
			seen[key] = true
			out = append(out, r)
		}
	}
	return out
}

func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
