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

// Package rank consolidates raw backend hits into one ranked list.
//
// Hits are grouped by a content-derived dedup key, merged, and scored as a
// weighted sum of five factors in [0,1]:
//
//	specificity        1.0 scope match, 0.5 general, 0.3 other scope
//	recency            banded by age, floor 0.2, 0.5 when unknown
//	source confidence  best raw score in the group
//	usage              times_used / 10, capped at 1
//	validation         maturity status, else confirmation ratio
//
// Every independent repeat surfacing (a further sub-query or backend that
// found the same item) adds a fixed boost, capped at 1.0 overall. Results
// are ordered by score, then backend count, then recency, then dedup key,
// so identical inputs always produce identical output.
package rank
