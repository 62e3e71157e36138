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

import (
	"context"

	"github.com/poiesic/recall/core"
	"golang.org/x/sync/errgroup"
)

// DecomposeBatch decomposes every query, at most the configured batch
// concurrency at a time. Results are returned in input order.
func (d *Decomposer) DecomposeBatch(ctx context.Context, queries []string, maxSubQueries int) []*core.DecompositionResult {
	return decomposeBatch(ctx, d, queries, maxSubQueries, d.batchConcurrency)
}

func decomposeBatch(ctx context.Context, d QueryDecomposer, queries []string, maxSubQueries, limit int) []*core.DecompositionResult {
	results := make([]*core.DecompositionResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, query := range queries {
		g.Go(func() error {
			results[i] = d.Decompose(gctx, query, maxSubQueries)
			return nil
		})
	}
	// Decompose never fails, so neither does the group
	_ = g.Wait()

	return results
}
