package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/ontolite/core"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "spans": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "start": {"type": "integer", "minimum": 0},
          "end": {"type": "integer", "minimum": 1},
          "text": {"type": "string"},
          "quality": {"type": "number", "minimum": 0, "maximum": 1},
          "page_hint": {"type": "integer"}
        },
        "required": ["start", "end", "text"],
        "additionalProperties": false
      }
    },
    "concepts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "label": {"type": "string"},
          "type": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "aliases": {"type": "array", "items": {"type": "string"}},
          "tags": {"type": "array", "items": {"type": "string"}},
          "summary": {"type": "string"}
        },
        "required": ["label", "type", "confidence"],
        "additionalProperties": false
      }
    },
    "relations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "src": {"type": "string"},
          "verb": {"type": "string"},
          "dst": {"type": "string"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["src", "verb", "dst", "confidence"],
        "additionalProperties": false
      }
    },
    "mentions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "concept": {"type": "string"},
          "span": {"type": "integer", "minimum": 0},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["concept", "span"],
        "additionalProperties": false
      }
    }
  },
  "required": ["summary", "spans", "concepts", "relations", "mentions"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Extract a micro-ontology from the given document chunk and return it as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- "summary" is 1-2 sentences describing what the chunk is about.
- "spans" are short verbatim excerpts that serve as evidence. "start" and "end" are character offsets into
  the chunk (end exclusive) and "text" must be the exact substring at those offsets. Keep spans under 300
  characters. "quality" rates how cleanly the excerpt reads, from 0 to 1.
- Concept "type" must match exactly one of: %s.
- Relation "verb" must match exactly one of: %s.
- Relation "src" and "dst" reference concepts by their "label". Only relate concepts that appear in
  "concepts".
- Each mention links a concept "label" to the index of a span in "spans" that supports it.
- "confidence" is a number from 0 (guess) to 1 (certain). Include only concepts that are explicitly
  mentioned or clearly implied by the text. Do not hallucinate.
- Concept labels keep their natural casing as written in the text.
- If nothing can be extracted, return empty arrays.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "The Loom Framework depends on the Ingestion Service. Maria Chen leads the Platform Team."
Output:
{
  "summary": "Describes Loom Framework dependencies and team leadership.",
  "spans": [
    {"start": 0, "end": 54, "text": "The Loom Framework depends on the Ingestion Service.", "quality": 0.9, "page_hint": 0},
    {"start": 55, "end": 95, "text": "Maria Chen leads the Platform Team.", "quality": 0.9, "page_hint": 0}
  ],
  "concepts": [
    {"label": "Loom Framework", "type": "Project", "confidence": 0.95, "aliases": ["Loom"], "tags": [], "summary": "A framework the document describes."},
    {"label": "Ingestion Service", "type": "Technology", "confidence": 0.9, "aliases": [], "tags": [], "summary": ""},
    {"label": "Maria Chen", "type": "Person", "confidence": 0.95, "aliases": [], "tags": [], "summary": ""},
    {"label": "Platform Team", "type": "Team", "confidence": 0.9, "aliases": [], "tags": [], "summary": ""}
  ],
  "relations": [
    {"src": "Loom Framework", "verb": "depends_on", "dst": "Ingestion Service", "confidence": 0.9},
    {"src": "Maria Chen", "verb": "leads", "dst": "Platform Team", "confidence": 0.9}
  ],
  "mentions": [
    {"concept": "Loom Framework", "span": 0, "confidence": 0.95},
    {"concept": "Ingestion Service", "span": 0, "confidence": 0.9},
    {"concept": "Maria Chen", "span": 1, "confidence": 0.95},
    {"concept": "Platform Team", "span": 1, "confidence": 0.9}
  ]
}`

// buildExtractionPrompt creates the system prompt with the concept taxonomy
// and relation verbs embedded.
func buildExtractionPrompt() string {
	types := make([]string, len(core.ConceptTypes))
	for i, t := range core.ConceptTypes {
		types[i] = string(t)
	}
	verbs := make([]string, len(core.RelationVerbs))
	for i, v := range core.RelationVerbs {
		verbs[i] = string(v)
	}
	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		strings.Join(types, ", "),
		strings.Join(verbs, ", "))
}
