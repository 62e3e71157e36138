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

package indexing

import (
	"context"
	"fmt"
	"io"
	"maps"

	"github.com/poiesic/recall/core"
	"gopkg.in/yaml.v3"
)

// Seed is a YAML bundle of content for every store.
type Seed struct {
	Project   string         `yaml:"project"` // default project for entries without one
	Records   []SeedRecord   `yaml:"records"`
	Documents []SeedDocument `yaml:"documents"`
	Entities  []SeedEntity   `yaml:"entities"`
	Relations []SeedRelation `yaml:"relations"`
}

// SeedRecord is a decision or learning.
type SeedRecord struct {
	Table             string  `yaml:"table"`
	Project           string  `yaml:"project"`
	Content           string  `yaml:"content"`
	Context           string  `yaml:"context"`
	Detail            string  `yaml:"detail"`
	ErrorType         string  `yaml:"error_type"`
	Status            string  `yaml:"status"`
	Confidence        float64 `yaml:"confidence"`
	TimesUsed         int     `yaml:"times_used"`
	TimesConfirmed    int     `yaml:"times_confirmed"`
	TimesContradicted int     `yaml:"times_contradicted"`
}

// SeedDocument is text for the vector index.
type SeedDocument struct {
	Source   string            `yaml:"source"`
	DocType  string            `yaml:"doc_type"`
	Project  string            `yaml:"project"`
	Content  string            `yaml:"content"`
	Metadata map[string]string `yaml:"metadata"`
}

// SeedEntity is a graph node.
type SeedEntity struct {
	Name        string            `yaml:"name"`
	Type        string            `yaml:"type"`
	Description string            `yaml:"description"`
	Project     string            `yaml:"project"`
	Properties  map[string]string `yaml:"properties"`
}

// SeedRelation is a graph edge.
type SeedRelation struct {
	From   string   `yaml:"from"`
	To     string   `yaml:"to"`
	Type   string   `yaml:"type"`
	Weight *float64 `yaml:"weight"` // defaults to 1
}

// SeedStats counts what a seed run stored.
type SeedStats struct {
	Records   int
	Documents int
	Entities  int
	Relations int
}

// LoadSeed decodes a YAML seed bundle and validates every entry.
func LoadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if _, _, _, _, err := seed.convert(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// convert maps seed entries to core types, filling in the default project.
func (s *Seed) convert() ([]*core.Record, []*core.Document, []*core.Entity, []*core.Relation, error) {
	project := func(p string) string {
		if p == "" {
			return s.Project
		}
		return p
	}

	records := make([]*core.Record, 0, len(s.Records))
	for i, r := range s.Records {
		table := core.RecordTable(r.Table)
		if table == "" {
			table = core.TableDecisions
		}
		confidence := r.Confidence
		if confidence == 0 {
			confidence = 0.5
		}
		record := &core.Record{
			Table:             table,
			Project:           project(r.Project),
			Content:           r.Content,
			Context:           r.Context,
			Detail:            r.Detail,
			ErrorType:         r.ErrorType,
			MaturityStatus:    core.MaturityStatus(r.Status),
			Confidence:        confidence,
			TimesUsed:         r.TimesUsed,
			TimesConfirmed:    r.TimesConfirmed,
			TimesContradicted: r.TimesContradicted,
		}
		if err := core.ValidateRecord(record); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		records = append(records, record)
	}

	docs := make([]*core.Document, 0, len(s.Documents))
	for i, d := range s.Documents {
		doc := &core.Document{
			Source:   d.Source,
			DocType:  d.DocType,
			Project:  project(d.Project),
			Content:  d.Content,
			Metadata: maps.Clone(d.Metadata),
		}
		if err := core.ValidateDocument(doc); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("documents[%d]: %w", i, err)
		}
		docs = append(docs, doc)
	}

	entities := make([]*core.Entity, 0, len(s.Entities))
	for i, e := range s.Entities {
		entity := &core.Entity{
			Name:        e.Name,
			Type:        e.Type,
			Description: e.Description,
			Project:     project(e.Project),
			Properties:  maps.Clone(e.Properties),
		}
		if err := core.ValidateEntity(entity); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("entities[%d]: %w", i, err)
		}
		entities = append(entities, entity)
	}

	relations := make([]*core.Relation, 0, len(s.Relations))
	for i, r := range s.Relations {
		weight := 1.0
		if r.Weight != nil {
			weight = *r.Weight
		}
		rel := &core.Relation{From: r.From, To: r.To, Type: r.Type, Weight: weight}
		if err := core.ValidateRelation(rel); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("relations[%d]: %w", i, err)
		}
		relations = append(relations, rel)
	}

	return records, docs, entities, relations, nil
}

// Seed stores every entry of seed. Documents are embedded on the pool.
func (ix *Indexer) Seed(ctx context.Context, seed *Seed) (SeedStats, error) {
	var stats SeedStats
	records, docs, entities, relations, err := seed.convert()
	if err != nil {
		return stats, err
	}

	added, err := ix.IndexRecords(ctx, records...)
	if err != nil {
		return stats, err
	}
	stats.Records = len(added)

	if err := ix.IndexGraph(ctx, entities, relations); err != nil {
		return stats, err
	}
	stats.Entities = len(entities)
	stats.Relations = len(relations)

	stored, err := ix.IndexDocuments(ctx, docs...)
	stats.Documents = len(stored)
	return stats, err
}
