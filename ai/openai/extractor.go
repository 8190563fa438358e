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


package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/poiesic/ontolite/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OntologyExtractor implements ai.OntologyExtractor using OpenAI-compatible chat APIs.
type OntologyExtractor struct {
	client        llms.Model
	minConfidence float64
	logger        *slog.Logger
}

// newOntologyExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newOntologyExtractor(config *ai.Config) (*OntologyExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't
	// require authentication.
	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken("none"),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return &OntologyExtractor{
		client:        client,
		minConfidence: config.MinConfidence,
		logger:        slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewOntologyExtractor creates a new extractor using the provided configuration.
//
// Returns ai.OntologyExtractor interface to enforce abstraction.
func NewOntologyExtractor(config *ai.Config) (ai.OntologyExtractor, error) {
	return newOntologyExtractor(config)
}

// ExtractOntology extracts spans, concepts, relations, and mentions from a
// text chunk using an LLM. Candidates below the minimum confidence are
// filtered out before the result is returned.
func (e *OntologyExtractor) ExtractOntology(ctx context.Context, text string) (*ai.ChunkExtraction, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildExtractionPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result ai.ChunkExtraction
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, ai.Transient(err)
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return &ai.ChunkExtraction{}, nil
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
		return nil, lastErr
	}

	filtered := e.filterByConfidence(&result)
	e.logger.Debug("extracted ontology fragment",
		"spans", len(filtered.Spans),
		"concepts", len(filtered.Concepts),
		"relations", len(filtered.Relations),
		"mentions", len(filtered.Mentions))
	return filtered, nil
}

// filterByConfidence drops candidates below the minimum confidence.
// Mentions referencing a dropped concept label and relations with a dropped
// endpoint are removed too.
func (e *OntologyExtractor) filterByConfidence(raw *ai.ChunkExtraction) *ai.ChunkExtraction {
	out := &ai.ChunkExtraction{Summary: raw.Summary, Spans: raw.Spans}

	kept := make(map[string]bool, len(raw.Concepts))
	for _, c := range raw.Concepts {
		if c.Confidence >= e.minConfidence {
			out.Concepts = append(out.Concepts, c)
			kept[strings.ToLower(c.Label)] = true
		}
	}
	for _, r := range raw.Relations {
		if r.Confidence >= e.minConfidence &&
			kept[strings.ToLower(r.Src)] && kept[strings.ToLower(r.Dst)] {
			out.Relations = append(out.Relations, r)
		}
	}
	for _, m := range raw.Mentions {
		if kept[strings.ToLower(m.ConceptLabel)] && m.SpanIndex >= 0 && m.SpanIndex < len(raw.Spans) {
			out.Mentions = append(out.Mentions, m)
		}
	}
	return out
}
