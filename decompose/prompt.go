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

package decompose

import "fmt"

const promptTemplate = `You decompose search queries into independent sub-queries for retrieval over a
knowledge base of decisions, learnings, documents and an entity graph.

QUERY: %s

Return a JSON object with this structure:
{
  "sub_queries": [
    {
      "query": "specific sub-query",
      "type": "semantic|entity|temporal|relational",
      "confidence": 0.95,
      "weight": 1.0,
      "tags": ["tag1", "tag2"]
    }
  ],
  "decomposition_confidence": 0.85,
  "reasoning": "short explanation of the decomposition"
}

Rules:
1. type: semantic (concepts), entity (named things), temporal (time), relational (links between things)
2. confidence: how sure you are the sub-query is useful (0.0-1.0)
3. weight: relative importance (non-negative)
4. At most %d sub-queries
5. Return ONLY valid JSON, no markdown and no extra explanation`

// buildPrompt renders the decomposition request for query.
func buildPrompt(query string, maxSubQueries int) string {
	return fmt.Sprintf(promptTemplate, query, maxSubQueries)
}
