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

package storage

import "errors"

// Repository errors shared by the badger and sqlite stores.
var (
	// ErrNotFound indicates a document, entity or record does not exist.
	ErrNotFound = errors.New("not found in store")

	// ErrStorageClosed indicates the repository or its backend was closed.
	ErrStorageClosed = errors.New("store is closed")

	// ErrInvalidQuery indicates a search was called with an empty query,
	// a nil vector or a non-positive limit.
	ErrInvalidQuery = errors.New("invalid search parameters")

	// ErrSerializationFailed indicates a stored or cached value could not be decoded.
	ErrSerializationFailed = errors.New("value encoding failed")

	// ErrDimensionMismatch indicates a query vector and a stored vector differ in length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
