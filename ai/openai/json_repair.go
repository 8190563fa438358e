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

import "regexp"

// Keys that lost their opening quote, e.g. `{label":` or `, type":`.
var unquotedKey = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z_ ]*)(":)`)

// Trailing commas before a closing brace or bracket.
var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// repairJSON fixes the malformations small models most often produce in
// JSON mode. It never touches well-formed input.
func repairJSON(s string) string {
	s = unquotedKey.ReplaceAllString(s, `$1"$2$3`)
	s = trailingComma.ReplaceAllString(s, `$1`)
	return s
}
