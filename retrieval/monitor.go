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

package retrieval

import (
	"time"

	"github.com/poiesic/recall/core"
)

// CallOutcome describes how one adapter call ended.
type CallOutcome string

const (
	CallOK        CallOutcome = "ok"
	CallError     CallOutcome = "error"
	CallTimeout   CallOutcome = "timeout"
	CallAbandoned CallOutcome = "abandoned"
)

// CallReport is passed to a Monitor when an adapter call completes.
type CallReport struct {
	Backend  core.BackendKind
	SubQuery string
	Outcome  CallOutcome
	Hits     int
	Elapsed  time.Duration
	Err      error
}

// Monitor observes a fan-out. All callbacks of one Search are made from a
// single goroutine.
type Monitor interface {
	Start(subQueries []core.SubQuery, backends []core.BackendKind)
	CallFinished(report CallReport)
	// CallsAbandoned is called once with the number of calls still running
	// when the global deadline or cancellation ended the fan-out.
	CallsAbandoned(count int)
	Finish(hits []core.RawHit, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ []core.SubQuery, _ []core.BackendKind) {}
func (n *noopMonitor) CallFinished(_ CallReport)                     {}
func (n *noopMonitor) CallsAbandoned(_ int)                          {}
func (n *noopMonitor) Finish(_ []core.RawHit, _ time.Duration)       {}
