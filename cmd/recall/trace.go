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

package main

import (
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/pipeline"
	"github.com/poiesic/recall/retrieval"
)

var (
	traceStage = color.New(color.FgCyan, color.Bold)
	traceOK    = color.New(color.FgGreen)
	traceWarn  = color.New(color.FgYellow)
	traceErr   = color.New(color.FgRed)
)

// retrievalTrace prints backend fan-out events.
type retrievalTrace struct {
	out io.Writer
}

var _ retrieval.Monitor = (*retrievalTrace)(nil)

func newRetrievalTrace(out io.Writer) *retrievalTrace {
	return &retrievalTrace{out: out}
}

func (t *retrievalTrace) Start(subQueries []core.SubQuery, backends []core.BackendKind) {
	traceStage.Fprintf(t.out, "retrieval: %d sub-queries x %d backends\n", len(subQueries), len(backends))
}

func (t *retrievalTrace) CallFinished(report retrieval.CallReport) {
	switch report.Outcome {
	case retrieval.CallOK:
		traceOK.Fprintf(t.out, "  %-10s %-6s %3d hits %v  %q\n", report.Backend, report.Outcome, report.Hits, report.Elapsed.Round(time.Millisecond), report.SubQuery)
	case retrieval.CallTimeout:
		traceWarn.Fprintf(t.out, "  %-10s %-6s %v  %q\n", report.Backend, report.Outcome, report.Elapsed.Round(time.Millisecond), report.SubQuery)
	default:
		traceErr.Fprintf(t.out, "  %-10s %-6s %q: %v\n", report.Backend, report.Outcome, report.SubQuery, report.Err)
	}
}

func (t *retrievalTrace) CallsAbandoned(count int) {
	traceWarn.Fprintf(t.out, "  %d calls abandoned at the deadline\n", count)
}

func (t *retrievalTrace) Finish(hits []core.RawHit, elapsed time.Duration) {
	traceStage.Fprintf(t.out, "retrieval: %d hits in %v\n", len(hits), elapsed.Round(time.Millisecond))
}

// pipelineTrace prints stage transitions of one pipeline run.
type pipelineTrace struct {
	out io.Writer
}

var _ pipeline.Monitor = (*pipelineTrace)(nil)

func newPipelineTrace(out io.Writer) *pipelineTrace {
	return &pipelineTrace{out: out}
}

func (t *pipelineTrace) Start(requestID, query string) {
	traceStage.Fprintf(t.out, "request %s: %q\n", requestID, query)
}

func (t *pipelineTrace) CacheHit(key string, results []core.ConsolidatedResult) {
	traceOK.Fprintf(t.out, "cache hit %s (%d results)\n", key[:min(12, len(key))], len(results))
}

func (t *pipelineTrace) AfterDecomposition(result *core.DecompositionResult, subQueries []core.SubQuery) {
	if result.Failed() {
		traceWarn.Fprintf(t.out, "decomposition failed, using the original query: %s\n", result.Error)
		return
	}
	traceStage.Fprintf(t.out, "decomposition: %s confidence %.2f\n", result.ProviderUsed, result.OverallConfidence)
	for _, sq := range subQueries {
		traceOK.Fprintf(t.out, "  [%s %.2f] %s\n", sq.Kind, sq.Confidence, sq.Text)
	}
}

func (t *pipelineTrace) AfterRetrieval(hits []core.RawHit) {}

func (t *pipelineTrace) AfterConsolidation(results []core.ConsolidatedResult) {
	traceStage.Fprintf(t.out, "consolidated into %d results\n", len(results))
}

func (t *pipelineTrace) AfterRerank(results []core.ConsolidatedResult) {
	traceStage.Fprintf(t.out, "reranked %d results\n", len(results))
}

func (t *pipelineTrace) Finish(results []core.ConsolidatedResult, partial bool, elapsed time.Duration) {
	if partial {
		traceWarn.Fprintf(t.out, "partial: %d results in %v\n", len(results), elapsed.Round(time.Millisecond))
		return
	}
	traceOK.Fprintf(t.out, "done: %d results in %v\n", len(results), elapsed.Round(time.Millisecond))
}
