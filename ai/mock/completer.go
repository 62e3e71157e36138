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

package mock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoReply is returned by a MockCompleter with no scripted replies.
var ErrNoReply = errors.New("mock completer: no reply configured")

// MockCompleter is a test double for ai.Completer.
// By default it returns Replies in order, repeating the last one.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	CompleteFunc func(ctx context.Context, prompt string, timeout time.Duration) (string, error)

	// Replies are returned in order when CompleteFunc is nil.
	Replies []string

	// ModelName is returned by Model.
	ModelName string

	mu        sync.Mutex
	callCount int
	prompts   []string
}

// NewMockCompleter creates a completer that answers with the given replies.
func NewMockCompleter(model string, replies ...string) *MockCompleter {
	return &MockCompleter{ModelName: model, Replies: replies}
}

// NewFailingCompleter creates a completer whose every call fails with err.
func NewFailingCompleter(model string, err error) *MockCompleter {
	return &MockCompleter{
		ModelName: model,
		CompleteFunc: func(context.Context, string, time.Duration) (string, error) {
			return "", err
		},
	}
}

// Complete returns the next scripted reply.
func (m *MockCompleter) Complete(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	m.mu.Lock()
	idx := m.callCount
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, timeout)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(m.Replies) == 0 {
		return "", ErrNoReply
	}
	return m.Replies[min(idx, len(m.Replies)-1)], nil
}

// Model returns ModelName.
func (m *MockCompleter) Model() string {
	return m.ModelName
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns every prompt received so far.
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Reset clears recorded calls.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.prompts = nil
}
