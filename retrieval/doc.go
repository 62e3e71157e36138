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

// Package retrieval fans sub-queries out across backend adapters.
//
// Every (sub-query × enabled backend) pair becomes one adapter call on a
// bounded ants worker pool. Each call has its own timeout and the whole
// fan-out runs under a global deadline. Results come back through a single
// buffered channel; calls still running when the deadline passes are
// abandoned and contribute nothing. Search never returns an error.
//
// # Usage
//
//	r, err := retrieval.NewRetriever(
//	    []retrieval.Adapter{structured, vector, graph},
//	    retrieval.WithCallTimeout(5*time.Second),
//	    retrieval.WithGlobalTimeout(10*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	defer r.Release()
//
//	hits := r.Search(ctx, result.SubQueries, "recall", 10, nil)
package retrieval
