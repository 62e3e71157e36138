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

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/recall/core"
)

// Serializers for values stored in badger and in the shared result cache.
// Timestamps are encoded as Unix microseconds; 0 is the zero time.
var (
	IDMUS       mus.Serializer[core.ID]                   = idMUS{}
	DocumentMUS mus.Serializer[core.Document]             = documentMUS{}
	EntityMUS   mus.Serializer[core.Entity]               = entityMUS{}
	RelationMUS mus.Serializer[core.Relation]             = relationMUS{}
	ResultsMUS  mus.Serializer[[]core.ConsolidatedResult] = ord.NewSliceSer[core.ConsolidatedResult](resultMUS{})
)

var (
	stringsMUS  = ord.NewSliceSer[string](ord.String)
	vectorMUS   = ord.NewSliceSer[float32](raw.Float32)
	metadataMUS = ord.NewMapSer[string, string](ord.String, ord.String)
)

// decoder reads consecutive fields from a buffer, remembering the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func decode[T any](d *decoder, ser mus.Serializer[T], dst *T) {
	if d.err != nil {
		return
	}
	v, n, err := ser.Unmarshal(d.bs[d.n:])
	d.n += n
	if err != nil {
		d.err = err
		return
	}
	*dst = v
}

func (d *decoder) decodeTime(dst *time.Time) {
	var micros int64
	decode(d, varint.Int64, &micros)
	if d.err == nil {
		*dst = fromMicros(micros)
	}
}

func toMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func fromMicros(micros int64) time.Time {
	if micros == 0 {
		return time.Time{}
	}
	return time.UnixMicro(micros).UTC()
}

type idMUS struct{}

func (idMUS) Marshal(v core.ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (core.ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return core.ID(v), n, err
}

func (idMUS) Size(v core.ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

type documentMUS struct{}

func (documentMUS) Marshal(v core.Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Source, bs[n:])
	n += ord.String.Marshal(v.DocType, bs[n:])
	n += ord.String.Marshal(v.Project, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += vectorMUS.Marshal(v.Vector, bs[n:])
	n += metadataMUS.Marshal(v.Metadata, bs[n:])
	n += varint.Int64.Marshal(toMicros(v.CreatedAt), bs[n:])
	n += varint.Int64.Marshal(toMicros(v.UpdatedAt), bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (v core.Document, n int, err error) {
	d := &decoder{bs: bs}
	decode(d, IDMUS, &v.Id)
	decode(d, ord.String, &v.Source)
	decode(d, ord.String, &v.DocType)
	decode(d, ord.String, &v.Project)
	decode(d, ord.String, &v.Content)
	decode(d, vectorMUS, &v.Vector)
	decode(d, metadataMUS, &v.Metadata)
	d.decodeTime(&v.CreatedAt)
	d.decodeTime(&v.UpdatedAt)
	return v, d.n, d.err
}

func (documentMUS) Size(v core.Document) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Source)
	size += ord.String.Size(v.DocType)
	size += ord.String.Size(v.Project)
	size += ord.String.Size(v.Content)
	size += vectorMUS.Size(v.Vector)
	size += metadataMUS.Size(v.Metadata)
	size += varint.Int64.Size(toMicros(v.CreatedAt))
	size += varint.Int64.Size(toMicros(v.UpdatedAt))
	return size
}

func (s documentMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type entityMUS struct{}

func (entityMUS) Marshal(v core.Entity, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += ord.String.Marshal(v.Type, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += ord.String.Marshal(v.Project, bs[n:])
	n += metadataMUS.Marshal(v.Properties, bs[n:])
	n += varint.Int64.Marshal(toMicros(v.CreatedAt), bs[n:])
	n += varint.Int64.Marshal(toMicros(v.UpdatedAt), bs[n:])
	return n
}

func (entityMUS) Unmarshal(bs []byte) (v core.Entity, n int, err error) {
	d := &decoder{bs: bs}
	decode(d, ord.String, &v.Name)
	decode(d, ord.String, &v.Type)
	decode(d, ord.String, &v.Description)
	decode(d, ord.String, &v.Project)
	decode(d, metadataMUS, &v.Properties)
	d.decodeTime(&v.CreatedAt)
	d.decodeTime(&v.UpdatedAt)
	return v, d.n, d.err
}

func (entityMUS) Size(v core.Entity) (size int) {
	size = ord.String.Size(v.Name)
	size += ord.String.Size(v.Type)
	size += ord.String.Size(v.Description)
	size += ord.String.Size(v.Project)
	size += metadataMUS.Size(v.Properties)
	size += varint.Int64.Size(toMicros(v.CreatedAt))
	size += varint.Int64.Size(toMicros(v.UpdatedAt))
	return size
}

func (s entityMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type relationMUS struct{}

func (relationMUS) Marshal(v core.Relation, bs []byte) (n int) {
	n = ord.String.Marshal(v.From, bs)
	n += ord.String.Marshal(v.To, bs[n:])
	n += ord.String.Marshal(v.Type, bs[n:])
	n += raw.Float64.Marshal(v.Weight, bs[n:])
	n += varint.Int64.Marshal(toMicros(v.CreatedAt), bs[n:])
	return n
}

func (relationMUS) Unmarshal(bs []byte) (v core.Relation, n int, err error) {
	d := &decoder{bs: bs}
	decode(d, ord.String, &v.From)
	decode(d, ord.String, &v.To)
	decode(d, ord.String, &v.Type)
	decode(d, raw.Float64, &v.Weight)
	d.decodeTime(&v.CreatedAt)
	return v, d.n, d.err
}

func (relationMUS) Size(v core.Relation) (size int) {
	size = ord.String.Size(v.From)
	size += ord.String.Size(v.To)
	size += ord.String.Size(v.Type)
	size += raw.Float64.Size(v.Weight)
	size += varint.Int64.Size(toMicros(v.CreatedAt))
	return size
}

func (s relationMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

type resultMUS struct{}

func componentValues(c core.ScoreComponents) []float64 {
	return []float64{c.Specificity, c.Recency, c.SourceConfidence, c.Usage, c.Validation, c.RepeatBoost, c.Pairwise}
}

func backendNames(kinds []core.BackendKind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

func (resultMUS) Marshal(v core.ConsolidatedResult, bs []byte) (n int) {
	n = ord.String.Marshal(v.DedupKey, bs)
	n += ord.String.Marshal(v.Content, bs[n:])
	n += stringsMUS.Marshal(backendNames(v.Backends), bs[n:])
	n += stringsMUS.Marshal(v.SubQueries, bs[n:])
	n += raw.Float64.Marshal(v.CompositeScore, bs[n:])
	n += metadataMUS.Marshal(v.Metadata, bs[n:])
	n += varint.Int64.Marshal(toMicros(v.Timestamp), bs[n:])
	for _, c := range componentValues(v.Components) {
		n += raw.Float64.Marshal(c, bs[n:])
	}
	return n
}

func (resultMUS) Unmarshal(bs []byte) (v core.ConsolidatedResult, n int, err error) {
	d := &decoder{bs: bs}
	var backends []string
	decode(d, ord.String, &v.DedupKey)
	decode(d, ord.String, &v.Content)
	decode(d, stringsMUS, &backends)
	decode(d, stringsMUS, &v.SubQueries)
	decode(d, raw.Float64, &v.CompositeScore)
	decode(d, metadataMUS, &v.Metadata)
	d.decodeTime(&v.Timestamp)
	c := &v.Components
	for _, dst := range []*float64{&c.Specificity, &c.Recency, &c.SourceConfidence, &c.Usage, &c.Validation, &c.RepeatBoost, &c.Pairwise} {
		decode(d, raw.Float64, dst)
	}
	if d.err != nil {
		return v, d.n, fmt.Errorf("%w: %w", ErrSerializationFailed, d.err)
	}
	if len(backends) > 0 {
		v.Backends = make([]core.BackendKind, len(backends))
		for i, name := range backends {
			v.Backends[i] = core.BackendKind(name)
		}
	}
	return v, d.n, nil
}

func (resultMUS) Size(v core.ConsolidatedResult) (size int) {
	size = ord.String.Size(v.DedupKey)
	size += ord.String.Size(v.Content)
	size += stringsMUS.Size(backendNames(v.Backends))
	size += stringsMUS.Size(v.SubQueries)
	size += raw.Float64.Size(v.CompositeScore)
	size += metadataMUS.Size(v.Metadata)
	size += varint.Int64.Size(toMicros(v.Timestamp))
	for _, c := range componentValues(v.Components) {
		size += raw.Float64.Size(c)
	}
	return size
}

func (s resultMUS) Skip(bs []byte) (int, error) {
	_, n, err := s.Unmarshal(bs)
	return n, err
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, IDMUS.Size(id))
	IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := IDMUS.Unmarshal(data)
	return id, err
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, DocumentMUS.Size(*doc))
	DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &doc, nil
}

// MarshalEntity serializes an Entity to bytes.
func MarshalEntity(entity *core.Entity) []byte {
	buf := make([]byte, EntityMUS.Size(*entity))
	EntityMUS.Marshal(*entity, buf)
	return buf
}

// UnmarshalEntity deserializes an Entity from bytes.
func UnmarshalEntity(data []byte) (*core.Entity, error) {
	entity, _, err := EntityMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &entity, nil
}

// MarshalRelation serializes a Relation to bytes.
func MarshalRelation(rel *core.Relation) []byte {
	buf := make([]byte, RelationMUS.Size(*rel))
	RelationMUS.Marshal(*rel, buf)
	return buf
}

// UnmarshalRelation deserializes a Relation from bytes.
func UnmarshalRelation(data []byte) (*core.Relation, error) {
	rel, _, err := RelationMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &rel, nil
}

// MarshalResults serializes a ranked result list to bytes.
func MarshalResults(results []core.ConsolidatedResult) []byte {
	buf := make([]byte, ResultsMUS.Size(results))
	ResultsMUS.Marshal(results, buf)
	return buf
}

// UnmarshalResults deserializes a ranked result list from bytes.
func UnmarshalResults(data []byte) ([]core.ConsolidatedResult, error) {
	results, _, err := ResultsMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return results, nil
}
