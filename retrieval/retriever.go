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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/metrics"
)

const (
	DefaultCallTimeout   = 5 * time.Second
	DefaultGlobalTimeout = 10 * time.Second
)

// Retriever fans sub-queries out across backend adapters.
type Retriever struct {
	adapters      map[core.BackendKind]Adapter
	pool          *ants.Pool
	callTimeout   time.Duration
	globalTimeout time.Duration
	monitor       Monitor
	logger        *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithPoolSize sets the number of concurrent adapter calls.
// Default is runtime.NumCPU() * 2, with a minimum of 4.
func WithPoolSize(size int) Option {
	return func(r *Retriever) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if r.pool != nil {
			r.pool.Release()
		}
		r.pool = pool
		return nil
	}
}

// WithCallTimeout bounds each adapter call. Default is 5s.
func WithCallTimeout(timeout time.Duration) Option {
	return func(r *Retriever) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: call timeout %s", ErrInvalidTimeout, timeout)
		}
		r.callTimeout = timeout
		return nil
	}
}

// WithGlobalTimeout bounds a whole fan-out. Default is 10s.
func WithGlobalTimeout(timeout time.Duration) Option {
	return func(r *Retriever) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: global timeout %s", ErrInvalidTimeout, timeout)
		}
		r.globalTimeout = timeout
		return nil
	}
}

// WithMonitor installs a fan-out observer. Nil restores the no-op monitor.
func WithMonitor(monitor Monitor) Option {
	return func(r *Retriever) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		r.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a retriever over adapters, at most one per backend kind.
// Call Release when done to free the worker pool.
func NewRetriever(adapters []Adapter, opts ...Option) (*Retriever, error) {
	registered := make(map[core.BackendKind]Adapter, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			return nil, ErrNilAdapter
		}
		if _, ok := registered[adapter.Kind()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAdapter, adapter.Kind())
		}
		registered[adapter.Kind()] = adapter
	}

	r := &Retriever{
		adapters:      registered,
		callTimeout:   DefaultCallTimeout,
		globalTimeout: DefaultGlobalTimeout,
		monitor:       &noopMonitor{},
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			r.Release()
			return nil, err
		}
	}

	if r.pool == nil {
		pool, err := ants.NewPool(max(runtime.NumCPU()*2, 4))
		if err != nil {
			return nil, err
		}
		r.pool = pool
	}
	r.logger = r.logger.With("component", "retriever")

	return r, nil
}

// Kinds returns the registered backend kinds in canonical order.
func (r *Retriever) Kinds() []core.BackendKind {
	kinds := make([]core.BackendKind, 0, len(r.adapters))
	for _, kind := range core.BackendKinds {
		if _, ok := r.adapters[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	// Adapters for kinds outside the canonical list sort after it.
	extra := slices.Sorted(maps.Keys(r.adapters))
	for _, kind := range extra {
		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Release frees the worker pool. The retriever should not be used after
// calling Release.
func (r *Retriever) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// task is one (sub-query, backend) adapter call.
type task struct {
	index    int
	subQuery core.SubQuery
	adapter  Adapter
}

// taskResult is what a task reports through the join channel.
type taskResult struct {
	index   int
	hits    []core.RawHit
	outcome CallOutcome
	elapsed time.Duration
	err     error
}

// Outcome is the result of one fan-out.
type Outcome struct {
	Hits []core.RawHit
	// Calls is the number of adapter calls scheduled.
	Calls int
	// Abandoned counts calls cut short by the global deadline or by
	// cancellation, whether still running or reported as timed out.
	Abandoned int
}

// Partial reports whether some calls were abandoned before finishing.
func (o Outcome) Partial() bool {
	return o.Abandoned > 0
}

// Search runs every (sub-query × enabled backend) call concurrently and
// returns the union of their hits. It never fails: calls that error, time
// out, or are still running at the global deadline contribute nothing.
// An empty enabled list means every registered backend.
func (r *Retriever) Search(ctx context.Context, subQueries []core.SubQuery, scope string, limit int, enabled []core.BackendKind) []core.RawHit {
	return r.Collect(ctx, subQueries, scope, limit, enabled).Hits
}

// Collect is Search that also reports how many calls were abandoned.
func (r *Retriever) Collect(ctx context.Context, subQueries []core.SubQuery, scope string, limit int, enabled []core.BackendKind) Outcome {
	start := time.Now()
	if len(enabled) == 0 {
		enabled = r.Kinds()
	}

	var tasks []task
	var backends []core.BackendKind
	for _, kind := range enabled {
		_, ok := r.adapters[kind]
		if !ok {
			r.logger.Debug("no adapter registered for backend", "backend", kind)
			continue
		}
		if slices.Contains(backends, kind) {
			continue
		}
		backends = append(backends, kind)
	}
	for _, sq := range subQueries {
		for _, kind := range backends {
			tasks = append(tasks, task{index: len(tasks), subQuery: sq, adapter: r.adapters[kind]})
		}
	}

	r.monitor.Start(subQueries, backends)
	if len(tasks) == 0 || limit <= 0 {
		r.monitor.Finish(nil, time.Since(start))
		return Outcome{Hits: []core.RawHit{}}
	}

	ctx, cancel := context.WithTimeout(ctx, r.globalTimeout)
	defer cancel()

	// Buffered so late tasks never block after the collector has gone.
	results := make(chan taskResult, len(tasks))
	go r.dispatch(ctx, tasks, scope, limit, results)

	collected := make([][]core.RawHit, len(tasks))
	finished := make([]bool, len(tasks))
	received, cut := 0, 0
collect:
	for received < len(tasks) {
		select {
		case res := <-results:
			received++
			finished[res.index] = true
			t := tasks[res.index]
			r.report(t, res)
			if res.outcome == CallTimeout && ctx.Err() != nil {
				cut++
			}
			if res.outcome == CallOK {
				collected[res.index] = stamp(res.hits, t.subQuery.Text, t.adapter.Kind())
			}
		case <-ctx.Done():
			break collect
		}
	}

	pending := len(tasks) - received
	if pending > 0 {
		r.logger.Warn("abandoning backend calls", "pending", pending, "err", ctx.Err())
		for i, t := range tasks {
			if !finished[i] {
				metrics.ObserveBackendCall(string(t.adapter.Kind()), metrics.OutcomeAbandoned, time.Since(start))
			}
		}
		r.monitor.CallsAbandoned(pending)
	}

	hits := make([]core.RawHit, 0)
	for _, group := range collected {
		hits = append(hits, group...)
	}
	r.monitor.Finish(hits, time.Since(start))
	return Outcome{Hits: hits, Calls: len(tasks), Abandoned: pending + cut}
}

// dispatch submits every task to the pool. Tasks that cannot be submitted
// report an error immediately.
func (r *Retriever) dispatch(ctx context.Context, tasks []task, scope string, limit int, results chan<- taskResult) {
	for _, t := range tasks {
		if ctx.Err() != nil {
			// Collector is gone or about to be; nothing left to start.
			return
		}
		err := r.pool.Submit(func() {
			results <- r.call(ctx, t, scope, limit)
		})
		if err != nil {
			results <- taskResult{index: t.index, outcome: CallError, err: err}
		}
	}
}

// call runs one adapter call under its own timeout. The adapter runs in a
// separate goroutine so the worker is freed when the timeout fires even if
// the adapter ignores its context.
func (r *Retriever) call(ctx context.Context, t task, scope string, limit int) taskResult {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	type reply struct {
		hits []core.RawHit
		err  error
	}
	done := make(chan reply, 1)
	start := time.Now()

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- reply{err: fmt.Errorf("adapter panic: %v", p)}
			}
		}()
		hits, err := t.adapter.Search(callCtx, t.subQuery.Text, scope, limit)
		done <- reply{hits: hits, err: err}
	}()

	select {
	case rep := <-done:
		res := taskResult{index: t.index, hits: rep.hits, elapsed: time.Since(start), err: rep.err, outcome: CallOK}
		if rep.err != nil {
			res.outcome = CallError
			if errors.Is(rep.err, context.DeadlineExceeded) {
				res.outcome = CallTimeout
			}
		}
		return res
	case <-callCtx.Done():
		return taskResult{index: t.index, elapsed: time.Since(start), err: callCtx.Err(), outcome: CallTimeout}
	}
}

func (r *Retriever) report(t task, res taskResult) {
	kind := t.adapter.Kind()
	switch res.outcome {
	case CallOK:
		r.logger.Debug("backend call finished", "backend", kind, "sub_query", t.subQuery.Text, "hits", len(res.hits), "elapsed", res.elapsed)
	default:
		r.logger.Warn("backend call failed", "backend", kind, "sub_query", t.subQuery.Text, "outcome", res.outcome, "elapsed", res.elapsed, "err", res.err)
	}
	metrics.ObserveBackendCall(string(kind), string(res.outcome), res.elapsed)
	r.monitor.CallFinished(CallReport{
		Backend:  kind,
		SubQuery: t.subQuery.Text,
		Outcome:  res.outcome,
		Hits:     len(res.hits),
		Elapsed:  res.elapsed,
		Err:      res.err,
	})
}

// stamp tags each hit with the sub-query and backend that produced it.
// Metadata maps are copied so adapters may reuse theirs.
func stamp(hits []core.RawHit, subQuery string, kind core.BackendKind) []core.RawHit {
	stamped := make([]core.RawHit, len(hits))
	for i, hit := range hits {
		meta := make(map[string]string, len(hit.Metadata)+1)
		maps.Copy(meta, hit.Metadata)
		meta[core.MetaSubQuery] = subQuery
		hit.Metadata = meta
		hit.Backend = kind
		stamped[i] = hit
	}
	return stamped
}
