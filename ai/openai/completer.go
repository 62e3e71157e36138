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

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer implements ai.Completer using an OpenAI-compatible chat API.
type Completer struct {
	client      llms.Model
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

var _ ai.Completer = (*Completer)(nil)

// newCompleter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newCompleter(endpoint ai.Endpoint, config *ai.Config) (*Completer, error) {
	if !endpoint.Configured() {
		return nil, ErrEndpointNotConfigured
	}

	client, err := openai.New(
		openai.WithBaseURL(endpoint.Host),
		openai.WithToken(endpoint.Token),
		openai.WithModel(endpoint.Model),
	)
	if err != nil {
		return nil, err
	}

	return newCompleterWithClient(client, endpoint.Model, config), nil
}

// newCompleterWithClient wraps an existing langchaingo model.
func newCompleterWithClient(client llms.Model, model string, config *ai.Config) *Completer {
	return &Completer{
		client:      client,
		model:       model,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "openai-completer", "model", model),
	}
}

// NewCompleter creates a completer for one endpoint.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(endpoint ai.Endpoint, config *ai.Config) (ai.Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newCompleter(endpoint, config)
}

// Model returns the model identifier.
func (c *Completer) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the reply text.
// JSON mode is requested; callers still validate the payload.
func (c *Completer) Complete(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	start := time.Now()
	response, err := c.client.GenerateContent(ctx, content,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, err)
		}
		c.logger.Warn("completion failed", "elapsed", time.Since(start), "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		c.logger.Debug("no choices returned from model")
		return "", ErrEmptyResponse
	}

	c.logger.Debug("completion received", "elapsed", time.Since(start), "length", len(response.Choices[0].Content))
	return response.Choices[0].Content, nil
}
