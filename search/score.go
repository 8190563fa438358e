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


package search

import (
	"math"
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
)

const (
	// MinTermLength is the minimum rune length for a term to participate in
	// fuzzy matching. Shorter terms score 0 but still count toward coverage.
	MinTermLength = 2

	// maxEditDistance bounds the fuzzy character tier. Wagner-Fischer with
	// substitution cost 2, so this admits two insert/deletes or one
	// substitution.
	maxEditDistance = 2

	// coverageBonus rewards queries whose every term matched the title.
	coverageBonus = 1.5
)

// Lexical tier scores, highest applicable tier wins.
const (
	tierExact          = 1.0
	tierCompoundPrefix = 0.9
	tierWholeWord      = 0.7
	tierWordPrefix     = 0.6
	tierFuzzy          = 0.3
)

// TierScore scores one lowercase-normalized token against a title or label.
//
// Tiers, highest first: exact title match 1.0; compound prefix 0.9, where
// the title starts with the token and the match ends at a word break
// ("loom" against "LoomLite"); whole-word match 0.7 ("loom" against
// "The Loom Framework"); word prefix 0.6 ("pillar" against "Pillars");
// small edit distance to some title word 0.3 ("lom" against "loom");
// otherwise 0.
func TierScore(token, title string) float64 {
	tok := strings.ToLower(strings.TrimSpace(token))
	tokRunes := []rune(tok)
	if len(tokRunes) < MinTermLength {
		return 0
	}

	lowered := strings.ToLower(title)
	if lowered == tok {
		return tierExact
	}

	if strings.HasPrefix(lowered, tok) {
		titleRunes := []rune(title)
		if len(titleRunes) > len(tokRunes) {
			next := titleRunes[len(tokRunes)]
			// "LoomLite" breaks after "loom"; "Pillars" does not break
			// after "pillar".
			if unicode.IsUpper(next) || !unicode.IsLetter(next) {
				return tierCompoundPrefix
			}
		}
	}

	words := splitWords(title)
	wordPrefix := false
	for _, w := range words {
		if w == tok {
			return tierWholeWord
		}
		if strings.HasPrefix(w, tok) {
			wordPrefix = true
		}
	}
	if wordPrefix {
		return tierWordPrefix
	}

	for _, w := range words {
		if smetrics.WagnerFischer(tok, w, 1, 1, 2) <= maxEditDistance {
			return tierFuzzy
		}
	}
	return 0
}

// QueryScore scores a whole query against a title or label.
//
// Single-term queries score as TierScore. Multi-term queries average the
// per-term tier scores; full coverage earns a boost clamped to 1.0, partial
// coverage is penalized proportionally.
func QueryScore(query, title string) float64 {
	terms := splitWords(query)
	if len(terms) == 0 {
		return 0
	}
	if len(terms) == 1 {
		return TierScore(terms[0], title)
	}

	var sum float64
	matched := 0
	for _, term := range terms {
		score := TierScore(term, title)
		if score > 0 {
			matched++
		}
		sum += score
	}

	avg := sum / float64(len(terms))
	if matched == len(terms) {
		return math.Min(avg*coverageBonus, 1.0)
	}
	return avg * float64(matched) / float64(len(terms))
}
