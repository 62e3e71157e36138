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

package rank

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/poiesic/recall/core"
)

// keyPrefixRunes is how much normalized content identifies an item.
const keyPrefixRunes = 120

// DedupKey identifies the underlying fact behind a hit. Hits whose content
// agrees on the first 120 runes after normalization share a key; hits
// without content fall back to backend and source id.
func DedupKey(hit *core.RawHit) string {
	normalized := normalizeContent(hit.Content)
	if normalized == "" {
		return string(hit.Backend) + ":" + hit.SourceID
	}
	return fmt.Sprintf("%016x", uint64(core.IDFromContent(normalized)))
}

// normalizeContent lower-cases text, folds punctuation and symbols to
// spaces, collapses whitespace and truncates to keyPrefixRunes.
func normalizeContent(content string) string {
	var sb strings.Builder
	sb.Grow(len(content))
	for _, r := range content {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			sb.WriteRune(' ')
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}

	folded := []rune(strings.Join(strings.Fields(sb.String()), " "))
	if len(folded) > keyPrefixRunes {
		folded = folded[:keyPrefixRunes]
	}
	return strings.TrimSpace(string(folded))
}
