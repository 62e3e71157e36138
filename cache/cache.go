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

package cache

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/poiesic/recall/core"
)

var (
	// ErrInvalidConfig indicates an unusable cache configuration.
	ErrInvalidConfig = errors.New("invalid cache configuration")
)

// Cache stores complete ranked result lists. Implementations must be safe
// for concurrent use. A miss is reported as ok == false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (results []core.ConsolidatedResult, ok bool, err error)
	Set(ctx context.Context, key string, results []core.ConsolidatedResult) error
	Close() error
}

// Key derives the cache key of one pipeline run. Every input that changes
// the output is part of the key; backend names are order-insensitive.
func Key(query, scope string, limit int, opts core.RetrieveOptions) string {
	backends := make([]string, 0, len(opts.EnabledBackends))
	for _, name := range opts.EnabledBackends {
		backends = append(backends, strings.ToLower(strings.TrimSpace(name)))
	}
	slices.Sort(backends)
	backends = slices.Compact(backends)

	canonical := fmt.Sprintf("%s\x00%s\x00%d\x00%t\x00%t\x00%s",
		strings.ToLower(core.SanitizeQuery(query)),
		strings.TrimSpace(scope),
		limit,
		opts.UseDecomposition,
		opts.EnableRerank,
		strings.Join(backends, ","),
	)
	return fmt.Sprintf("%016x", uint64(core.IDFromContent(canonical)))
}

// cloneResults deep-copies results so cached entries never alias caller data.
func cloneResults(results []core.ConsolidatedResult) []core.ConsolidatedResult {
	out := make([]core.ConsolidatedResult, len(results))
	for i, r := range results {
		r.Backends = slices.Clone(r.Backends)
		r.SubQueries = slices.Clone(r.SubQueries)
		r.Metadata = maps.Clone(r.Metadata)
		out[i] = r
	}
	return out
}
