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

	"github.com/poiesic/recall/core"
)

// Adapter searches one backend. Implementations must be safe for concurrent
// use and should honor ctx; calls that outlive their timeout are abandoned.
type Adapter interface {
	// Kind identifies the backend this adapter searches.
	Kind() core.BackendKind

	// Search returns up to limit hits for query. A non-empty scope narrows
	// the search to one project where the backend supports it.
	Search(ctx context.Context, query, scope string, limit int) ([]core.RawHit, error)
}
