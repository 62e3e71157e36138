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

package badger

import (
	"encoding/binary"

	"github.com/poiesic/recall/core"
)

const (
	documentPrefix    = "docrec:"
	entityPrefix      = "entrec:"
	relationOutPrefix = "relout:"
	relationInPrefix  = "relin:"
	keySeparator      = "\x00"
)

// makeDocumentKey generates a key for a document by ID.
// Format: prefix + 8 byte big endian ID, so iteration follows ID order.
func makeDocumentKey(id core.ID) []byte {
	buf := make([]byte, len(documentPrefix)+8)
	offset := copy(buf, documentPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// documentIDFromKey extracts the ID from a document key.
func documentIDFromKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(documentPrefix):]))
}

// makeEntityKey generates a key for an entity by normalized name.
func makeEntityKey(name string) []byte {
	return []byte(entityPrefix + core.EntityKey(name))
}

// makeRelationKeys generates the outgoing and incoming index keys for an edge.
// Format: prefix:origin\x00other\x00type
func makeRelationKeys(rel *core.Relation) (out, in []byte) {
	from, to := core.EntityKey(rel.From), core.EntityKey(rel.To)
	out = []byte(relationOutPrefix + from + keySeparator + to + keySeparator + rel.Type)
	in = []byte(relationInPrefix + to + keySeparator + from + keySeparator + rel.Type)
	return out, in
}

// makePartialRelationKey generates the scan prefix for edges touching name.
func makePartialRelationKey(prefix, name string) []byte {
	return []byte(prefix + core.EntityKey(name) + keySeparator)
}
