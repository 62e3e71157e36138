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
	"fmt"
	"strings"
)

// maxDocumentRunes bounds how much of each document is shown to the scorer.
const maxDocumentRunes = 500

const relevanceSystemPrompt = `You are a search relevance judge. You rate how well each document answers a query.

Output ONLY valid JSON. Do not include any preamble, explanation, greeting, or acknowledgment. Start your
response directly with the opening brace { and end with the closing brace }.`

const relevancePromptTemplate = `Query: %s

Documents to score:
%s
Return a JSON object with one entry per document:
{"scores": [{"doc_index": 0, "score": 0.9}, {"doc_index": 1, "score": 0.3}]}

Rules:
- doc_index is the number shown in brackets before each document.
- score is a number between 0.0 and 1.0.
- Be strict: irrelevant documents score below 0.3, somewhat relevant 0.3-0.7, highly relevant above 0.7.`

// buildRelevancePrompt lists documents with their indices under the query.
func buildRelevancePrompt(query string, documents []string) string {
	var sb strings.Builder
	for i, doc := range documents {
		fmt.Fprintf(&sb, "[%d] %s\n", i, truncateRunes(collapseWhitespace(doc), maxDocumentRunes))
	}
	return fmt.Sprintf(relevancePromptTemplate, collapseWhitespace(query), sb.String())
}
