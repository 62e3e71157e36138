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

// Package config loads recall's application configuration.
//
// Configuration comes from three layers, later layers winning:
//  1. a YAML file, with ${VAR} and ${VAR:-default} references expanded
//  2. environment variables (RECALL_*), optionally seeded from a .env file
//  3. built-in defaults for anything still unset
//
// The result is validated before it is returned.
package config
