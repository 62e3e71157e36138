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

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recall"

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
	OutcomeAbandoned = "abandoned"
	OutcomePartial   = "partial"
	OutcomeApplied   = "applied"
	OutcomeSkipped   = "skipped"
	OutcomeFallback  = "fallback"
)

// Cache result label values.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Retrieval Prometheus metrics.
var (
	BackendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Backend adapter calls by outcome",
		},
		[]string{"backend", "outcome"},
	)

	BackendCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Backend adapter call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"backend"},
	)

	DecompositionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decompositions_total",
			Help:      "Query decompositions by the provider that answered (none when both failed or disabled)",
		},
		[]string{"provider"},
	)

	DecompositionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decomposition_duration_seconds",
			Help:      "Query decomposition duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	RerankTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_total",
			Help:      "Rerank attempts by outcome",
		},
		[]string{"outcome"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Result cache lookups",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)

	RetrieveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieve_total",
			Help:      "Pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	RetrieveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieve_duration_seconds",
			Help:      "End to end pipeline duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

var registerOnce sync.Once

// Register registers every recall metric with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			BackendCallsTotal,
			BackendCallDuration,
			DecompositionsTotal,
			DecompositionDuration,
			RerankTotal,
			CacheTotal,
			RetrieveTotal,
			RetrieveDuration,
		)
	})
}

// ObserveBackendCall records one adapter call.
func ObserveBackendCall(backend, outcome string, elapsed time.Duration) {
	BackendCallsTotal.WithLabelValues(backend, outcome).Inc()
	BackendCallDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// ObserveDecomposition records one decomposition.
func ObserveDecomposition(provider string, elapsed time.Duration) {
	DecompositionsTotal.WithLabelValues(provider).Inc()
	DecompositionDuration.Observe(elapsed.Seconds())
}

// ObserveRerank records one rerank attempt.
func ObserveRerank(outcome string) {
	RerankTotal.WithLabelValues(outcome).Inc()
}

// ObserveCache records one result cache lookup.
func ObserveCache(result string) {
	CacheTotal.WithLabelValues(result).Inc()
}

// ObserveRetrieve records one pipeline run.
func ObserveRetrieve(outcome string, elapsed time.Duration) {
	RetrieveTotal.WithLabelValues(outcome).Inc()
	RetrieveDuration.Observe(elapsed.Seconds())
}
