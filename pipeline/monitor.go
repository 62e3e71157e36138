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

package pipeline

import (
	"time"

	"github.com/poiesic/recall/core"
)

// Monitor receives callbacks at each stage of a Retrieve call.
type Monitor interface {
	Start(requestID, query string)
	CacheHit(key string, results []core.ConsolidatedResult)
	AfterDecomposition(result *core.DecompositionResult, subQueries []core.SubQuery)
	AfterRetrieval(hits []core.RawHit)
	AfterConsolidation(results []core.ConsolidatedResult)
	AfterRerank(results []core.ConsolidatedResult)
	Finish(results []core.ConsolidatedResult, partial bool, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                                                 {}
func (n *noopMonitor) CacheHit(_ string, _ []core.ConsolidatedResult)                    {}
func (n *noopMonitor) AfterDecomposition(_ *core.DecompositionResult, _ []core.SubQuery) {}
func (n *noopMonitor) AfterRetrieval(_ []core.RawHit)                                    {}
func (n *noopMonitor) AfterConsolidation(_ []core.ConsolidatedResult)                    {}
func (n *noopMonitor) AfterRerank(_ []core.ConsolidatedResult)                           {}
func (n *noopMonitor) Finish(_ []core.ConsolidatedResult, _ bool, _ time.Duration)       {}
