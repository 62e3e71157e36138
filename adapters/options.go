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

package adapters

import "log/slog"

const (
	// DefaultMinSimilarity is the cosine floor used by the vector adapter.
	DefaultMinSimilarity = 0.5

	// DefaultNeighborLimit caps the one-hop expansion per matched entity.
	DefaultNeighborLimit = 3
)

type options struct {
	logger        *slog.Logger
	minSimilarity float32
	neighborLimit int
}

func defaultOptions() *options {
	return &options{
		logger:        slog.Default(),
		minSimilarity: DefaultMinSimilarity,
		neighborLimit: DefaultNeighborLimit,
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Option configures an adapter. Options that do not apply to an adapter
// are ignored by it.
type Option func(*options) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the cosine similarity floor for vector search.
// Default is DefaultMinSimilarity.
func WithMinSimilarity(similarity float32) Option {
	return func(o *options) error {
		if similarity < 0 || similarity > 1 {
			return ErrInvalidSimilarity
		}
		o.minSimilarity = similarity
		return nil
	}
}

// WithNeighborLimit sets how many neighbors the graph adapter follows from
// each matched entity. Zero disables expansion.
// Default is DefaultNeighborLimit.
func WithNeighborLimit(limit int) Option {
	return func(o *options) error {
		if limit < 0 {
			return ErrInvalidNeighborLimit
		}
		o.neighborLimit = limit
		return nil
	}
}
