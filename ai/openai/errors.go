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

package openai

import "errors"

var (
	// ErrEndpointNotConfigured is returned when an endpoint lacks a host or model.
	ErrEndpointNotConfigured = errors.New("endpoint not configured")

	// ErrEmptyResponse is returned when the model produced no choices.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrTimeout is returned when a completion exceeds its timeout.
	ErrTimeout = errors.New("completion timed out")

	// ErrEmbeddingCount is returned when the service returns a different
	// number of vectors than texts sent.
	ErrEmbeddingCount = errors.New("embedding count mismatch")

	// ErrMalformedScores is returned when a relevance response cannot be parsed.
	ErrMalformedScores = errors.New("malformed relevance scores")
)
