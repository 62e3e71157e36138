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

import "errors"

var (
	// ErrNoProvider indicates neither a primary nor a secondary completer is configured.
	ErrNoProvider = errors.New("no decomposition provider configured")

	// ErrMalformedPayload indicates the model reply is not a decomposition object.
	ErrMalformedPayload = errors.New("malformed decomposition payload")

	// ErrPayloadTooLarge indicates the JSON span found in a reply exceeds the extraction bound.
	ErrPayloadTooLarge = errors.New("decomposition payload too large")

	// ErrNoSubQueries indicates a payload with an empty sub-query list.
	ErrNoSubQueries = errors.New("decomposition has no sub-queries")

	// ErrInvalidSubQuery indicates a sub-query that violates the schema.
	ErrInvalidSubQuery = errors.New("invalid sub-query")

	// ErrInvalidOption indicates an out-of-range option value.
	ErrInvalidOption = errors.New("invalid option")
)
