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

package ai

import (
	"errors"
	"strings"
	"time"
)

// Endpoint describes one OpenAI-compatible chat model.
type Endpoint struct {
	// Host is the base URL of the API.
	// Example: "https://openrouter.ai/api/v1"
	Host string

	// Model is the model identifier.
	// Example: "qwen2.5:3b", "google/gemini-2.5-flash"
	Model string

	// Token is the API key. Local servers accept "none".
	Token string
}

// Configured reports whether the endpoint has both a host and a model.
func (e Endpoint) Configured() bool {
	return e.Host != "" && e.Model != ""
}

// Config holds configuration for AI service providers.
type Config struct {
	// Primary is the first provider asked to decompose a query.
	Primary Endpoint

	// Secondary is tried when the primary fails. Optional.
	Secondary Endpoint

	// Reranker scores query/document relevance. Optional; an unconfigured
	// reranker disables reranking.
	Reranker Endpoint

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// Timeout bounds each chat completion.
	// Default: 30s
	Timeout time.Duration

	// Temperature is passed to decomposition requests.
	// Default: 0.3
	Temperature float64

	// MaxTokens caps decomposition responses.
	// Default: 1000
	MaxTokens int
}

type ConfigOption func(*Config)

// WithHost points the primary and embedding endpoints at the same server.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Primary.Host = host
		c.EmbeddingHost = host
	}
}

func WithPrimary(host, model string) ConfigOption {
	return func(c *Config) {
		c.Primary.Host = host
		c.Primary.Model = model
	}
}

func WithSecondary(host, model string) ConfigOption {
	return func(c *Config) {
		c.Secondary.Host = host
		c.Secondary.Model = model
	}
}

func WithReranker(host, model string) ConfigOption {
	return func(c *Config) {
		c.Reranker.Host = host
		c.Reranker.Model = model
	}
}

// WithToken sets the API key on every chat endpoint.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Primary.Token = token
		c.Secondary.Token = token
		c.Reranker.Token = token
	}
}

func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		Primary: Endpoint{
			Host:  defaultHost,
			Model: "qwen2.5:3b",
			Token: "none",
		},
		EmbeddingHost:  defaultHost,
		EmbeddingModel: "embeddinggemma",
		Timeout:        30 * time.Second,
		Temperature:    0.3,
		MaxTokens:      1000,
	}
}

func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures every host ends with /v1 and every endpoint has a token.
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	for _, ep := range []*Endpoint{&c.Primary, &c.Secondary, &c.Reranker} {
		ep.Host = normalizeHost(ep.Host)
		if ep.Host != "" && ep.Token == "" {
			// Local OpenAI-compatible services don't require authentication
			ep.Token = "none"
		}
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	// Remove trailing slash if present before adding /v1
	return strings.TrimSuffix(host, "/") + "/v1"
}

func (c *Config) Validate() error {
	// Normalize first to ensure hosts are in correct format
	c.Normalize()

	if c.Primary.Host == "" {
		return errors.New("ai config: Primary.Host is required")
	}
	if c.Primary.Model == "" {
		return errors.New("ai config: Primary.Model is required")
	}
	if c.Secondary.Host != "" && c.Secondary.Model == "" {
		return errors.New("ai config: Secondary.Model is required when Secondary.Host is set")
	}
	if c.Reranker.Host != "" && c.Reranker.Model == "" {
		return errors.New("ai config: Reranker.Model is required when Reranker.Host is set")
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.Timeout <= 0 {
		return errors.New("ai config: Timeout must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.MaxTokens <= 0 {
		return errors.New("ai config: MaxTokens must be positive")
	}
	return nil
}
