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

// Package badger provides BadgerDB-backed document and graph repositories.
//
// Documents are keyed by ID and carry a normalized embedding; similarity
// search is a full scan computing dot products. Entities are keyed by their
// normalized name, and each relation is written under both endpoints so a
// one-hop neighborhood is two prefix scans.
package badger
