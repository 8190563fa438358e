package ingestion

import (
	"fmt"
	"strings"

	"github.com/poiesic/ontolite/ai"
	"github.com/poiesic/ontolite/core"
)

// chunkResult pairs one chunk's extraction with the chunk's rune offset in
// the document.
type chunkResult struct {
	offset int
	ext    *ai.ChunkExtraction
}

// mergeOutput is the document-level ontology assembled from chunk results.
type mergeOutput struct {
	spans     []*core.Span
	concepts  []*core.Concept
	relations []*core.Relation
	mentions  []*core.Mention
	summary   string
	dropped   int
}

// mergeChunks assembles chunk extractions into document-level records.
//
// Concepts are deduplicated on (normalized label, type): confidence takes
// the maximum, aliases and tags the union. Spans are deduplicated on their
// document offsets. Relations and mentions are remapped from labels and
// span indices to record IDs in a second pass, after every chunk's spans
// and concepts have been merged, so a reference to a concept introduced by
// a different chunk still resolves. Anything referencing a dropped
// candidate is dropped with it. Record IDs are salted with the version ID
// so that re-extraction never collides with prior versions.
func mergeChunks(version *core.OntologyVersion, docText string, results []chunkResult) *mergeOutput {
	out := &mergeOutput{}
	docRunes := []rune(docText)

	spanByRange := make(map[[2]int]*core.Span)
	conceptByKey := make(map[string]*core.Concept)
	labelToConcept := make(map[string]*core.Concept)
	relationByKey := make(map[string]*core.Relation)
	mentionByKey := make(map[string]bool)

	var summaries []string

	// First pass: spans and concepts. Mentions reference spans by
	// chunk-local index, so the per-chunk span lists are kept.
	spansOfChunk := make([][]*core.Span, len(results))
	for ci, res := range results {
		if res.ext.Summary != "" {
			summaries = append(summaries, res.ext.Summary)
		}

		chunkSpans := make([]*core.Span, len(res.ext.Spans))
		spansOfChunk[ci] = chunkSpans
		for i, cs := range res.ext.Spans {
			span := anchorSpan(version, docRunes, res.offset, cs)
			if span == nil {
				out.dropped++
				continue
			}
			key := [2]int{span.Start, span.End}
			if existing, ok := spanByRange[key]; ok {
				if cs.Quality > existing.Quality {
					existing.Quality = cs.Quality
				}
				chunkSpans[i] = existing
				continue
			}
			spanByRange[key] = span
			out.spans = append(out.spans, span)
			chunkSpans[i] = span
		}

		for _, cc := range res.ext.Concepts {
			label := strings.TrimSpace(cc.Label)
			typ := core.ConceptType(cc.Type)
			if label == "" || !typ.Valid() || cc.Confidence < 0 || cc.Confidence > 1 {
				out.dropped++
				continue
			}

			key := core.NormalizeLabel(label) + "|" + string(typ)
			if existing, ok := conceptByKey[key]; ok {
				if cc.Confidence > existing.Confidence {
					existing.Confidence = cc.Confidence
				}
				existing.Aliases = unionStrings(existing.Aliases, cc.Aliases)
				existing.Tags = unionStrings(existing.Tags, cc.Tags)
				if existing.Summary == "" {
					existing.Summary = cc.Summary
				}
				continue
			}

			concept := &core.Concept{
				Id:         core.IDFromContent(fmt.Sprintf("concept|%d|%s", version.Id, key)),
				DocumentId: version.DocumentId,
				VersionId:  version.Id,
				Label:      label,
				Type:       typ,
				Confidence: cc.Confidence,
				Aliases:    unionStrings(nil, cc.Aliases),
				Tags:       unionStrings(nil, cc.Tags),
				Summary:    cc.Summary,
			}
			conceptByKey[key] = concept
			out.concepts = append(out.concepts, concept)
			normLabel := core.NormalizeLabel(label)
			if _, ok := labelToConcept[normLabel]; !ok {
				labelToConcept[normLabel] = concept
			}
		}
	}

	// Second pass: the concept map is complete, resolve edges.
	for ci, res := range results {
		chunkSpans := spansOfChunk[ci]

		for _, cr := range res.ext.Relations {
			src := labelToConcept[core.NormalizeLabel(cr.Src)]
			dst := labelToConcept[core.NormalizeLabel(cr.Dst)]
			verb := core.RelationVerb(cr.Verb)
			if src == nil || dst == nil || !verb.Valid() || src == dst ||
				cr.Confidence < 0 || cr.Confidence > 1 {
				out.dropped++
				continue
			}

			key := fmt.Sprintf("%d|%s|%d", src.Id, verb, dst.Id)
			if existing, ok := relationByKey[key]; ok {
				if cr.Confidence > existing.Confidence {
					existing.Confidence = cr.Confidence
				}
				continue
			}

			relation := &core.Relation{
				Id:         core.IDFromContent(fmt.Sprintf("relation|%d|%s", version.Id, key)),
				DocumentId: version.DocumentId,
				VersionId:  version.Id,
				Src:        src.Id,
				Verb:       verb,
				Dst:        dst.Id,
				Confidence: cr.Confidence,
			}
			relationByKey[key] = relation
			out.relations = append(out.relations, relation)
		}

		for _, cm := range res.ext.Mentions {
			concept := labelToConcept[core.NormalizeLabel(cm.ConceptLabel)]
			if concept == nil || cm.SpanIndex < 0 || cm.SpanIndex >= len(chunkSpans) || chunkSpans[cm.SpanIndex] == nil {
				out.dropped++
				continue
			}
			span := chunkSpans[cm.SpanIndex]

			key := fmt.Sprintf("%d|%d", concept.Id, span.Id)
			if mentionByKey[key] {
				continue
			}
			mentionByKey[key] = true

			out.mentions = append(out.mentions, &core.Mention{
				Id:         core.IDFromContent(fmt.Sprintf("mention|%d|%s", version.Id, key)),
				ConceptId:  concept.Id,
				SpanId:     span.Id,
				Confidence: cm.Confidence,
			})
		}
	}

	if len(summaries) > 2 {
		summaries = summaries[:2]
	}
	out.summary = strings.Join(summaries, " ")
	return out
}

// anchorSpan translates a chunk-relative candidate span to document offsets
// and verifies the excerpt. When the offsets don't line up with the text,
// the excerpt is searched for near the claimed position; an excerpt that
// can't be located is dropped.
func anchorSpan(version *core.OntologyVersion, docRunes []rune, chunkOffset int, cs ai.CandidateSpan) *core.Span {
	start := chunkOffset + cs.Start
	end := chunkOffset + cs.End
	if cs.Start < 0 || cs.End <= cs.Start || end > len(docRunes) {
		start, end = -1, -1
	} else if cs.Text != "" && string(docRunes[start:end]) != cs.Text {
		start, end = -1, -1
	}

	if start < 0 {
		if cs.Text == "" {
			return nil
		}
		idx := indexRunes(docRunes, []rune(cs.Text), chunkOffset)
		if idx < 0 {
			return nil
		}
		start = idx
		end = idx + len([]rune(cs.Text))
	}

	text := cs.Text
	if text == "" {
		text = string(docRunes[start:end])
	}

	return &core.Span{
		Id:         core.IDFromContent(fmt.Sprintf("span|%d|%d|%d", version.Id, start, end)),
		DocumentId: version.DocumentId,
		VersionId:  version.Id,
		Start:      start,
		End:        end,
		Text:       text,
		PageHint:   cs.PageHint,
		Quality:    cs.Quality,
	}
}

// indexRunes finds needle in haystack at or after from, falling back to a
// search from the beginning. Returns a rune offset or -1.
func indexRunes(haystack, needle []rune, from int) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	if from < 0 || from > len(haystack) {
		from = 0
	}

	match := func(at int) bool {
		for i := range needle {
			if haystack[at+i] != needle[i] {
				return false
			}
		}
		return true
	}

	for i := from; i <= len(haystack)-len(needle); i++ {
		if match(i) {
			return i
		}
	}
	for i := 0; i < from && i <= len(haystack)-len(needle); i++ {
		if match(i) {
			return i
		}
	}
	return -1
}

// unionStrings merges two string slices, case-insensitively deduplicated,
// preserving first-seen order and casing.
func unionStrings(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	var out []string
	for _, s := range base {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	for _, s := range extra {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
