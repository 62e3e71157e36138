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

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/redis/rueidis/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func sampleResults() []core.ConsolidatedResult {
	return []core.ConsolidatedResult{
		{
			DedupKey:       "00ab",
			Content:        "Use Redis with a one hour TTL",
			Backends:       []core.BackendKind{core.BackendStructured, core.BackendVector},
			SubQueries:     []string{"redis cache ttl"},
			CompositeScore: 0.925,
			Metadata:       map[string]string{core.MetaProject: "recall"},
			Timestamp:      time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC),
			Components:     core.ScoreComponents{Specificity: 1, Recency: 1, SourceConfidence: 0.9, RepeatBoost: 0.1},
		},
	}
}

func TestKey(t *testing.T) {
	opts := core.RetrieveOptions{UseDecomposition: true, EnabledBackends: []string{"vector", "Structured"}}
	base := Key("Redis  cache", "recall", 10, opts)

	assert.Len(t, base, 16)
	assert.Equal(t, base, Key("redis cache", "recall", 10, core.RetrieveOptions{
		UseDecomposition: true, EnabledBackends: []string{"structured", "vector", "vector"},
	}), "case, whitespace and backend order do not matter")

	variants := []string{
		Key("redis cache", "other", 10, opts),
		Key("redis cache", "recall", 5, opts),
		Key("redis cache", "recall", 10, core.RetrieveOptions{EnabledBackends: opts.EnabledBackends}),
		Key("redis cache", "recall", 10, core.RetrieveOptions{UseDecomposition: true, EnableRerank: true, EnabledBackends: opts.EnabledBackends}),
		Key("redis cache", "recall", 10, core.RetrieveOptions{UseDecomposition: true}),
		Key("redis ttl", "recall", 10, opts),
	}
	for _, v := range variants {
		assert.NotEqual(t, base, v)
	}
}

func TestMemory(t *testing.T) {
	m, err := NewMemory(2, time.Minute)
	require.NoError(t, err)
	defer m.Close()
	ctx := context.Background()

	_, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	results := sampleResults()
	require.NoError(t, m.Set(ctx, "a", results))
	results[0].Content = "mutated after set"

	got, ok, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Use Redis with a one hour TTL", got[0].Content)

	got[0].Backends[0] = core.BackendGraph
	again, _, _ := m.Get(ctx, "a")
	assert.Equal(t, core.BackendStructured, again[0].Backends[0], "callers get copies")

	require.NoError(t, m.Set(ctx, "b", nil))
	require.NoError(t, m.Set(ctx, "c", nil))
	assert.Equal(t, 2, m.Len())
}

func TestMemory_Expires(t *testing.T) {
	m, err := NewMemory(10, 20*time.Millisecond)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", sampleResults()))
	assert.Eventually(t, func() bool {
		_, ok, _ := m.Get(ctx, "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestNewMemory_Invalid(t *testing.T) {
	_, err := NewMemory(0, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewMemory(1, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewRedis_Invalid(t *testing.T) {
	_, err := NewRedis(RedisConfig{TTL: time.Minute}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewRedis(RedisConfig{Addrs: []string{"localhost:6379"}}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRedis_GetHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	want := sampleResults()
	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "recall:results:k1")).
		Return(mock.Result(mock.RedisString(string(storage.MarshalResults(want)))))

	r := newRedisWithClient(client, "", time.Minute, nil)
	got, ok, err := r.Get(context.Background(), "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, want[0].DedupKey, got[0].DedupKey)
	assert.Equal(t, want[0].Backends, got[0].Backends)
	assert.Equal(t, want[0].SubQueries, got[0].SubQueries)
	assert.Equal(t, want[0].CompositeScore, got[0].CompositeScore)
	assert.True(t, want[0].Timestamp.Equal(got[0].Timestamp))
	assert.Equal(t, want[0].Components, got[0].Components)
}

func TestRedis_GetMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "custom:k1")).
		Return(mock.Result(mock.RedisNil()))

	r := newRedisWithClient(client, "custom:", time.Minute, nil)
	_, ok, err := r.Get(context.Background(), "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_GetErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "recall:results:down")).
		Return(mock.ErrorResult(context.DeadlineExceeded))
	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "recall:results:garbage")).
		Return(mock.Result(mock.RedisString("\xff\xff\xff")))

	r := newRedisWithClient(client, "", time.Minute, nil)

	_, ok, err := r.Get(context.Background(), "down")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	_, ok, err = r.Get(context.Background(), "garbage")
	assert.False(t, ok)
	assert.ErrorIs(t, err, storage.ErrSerializationFailed)
}

func TestRedis_Set(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	results := sampleResults()
	client.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return len(cmd) == 5 &&
				cmd[0] == "SET" &&
				cmd[1] == "recall:results:k1" &&
				cmd[2] == string(storage.MarshalResults(results)) &&
				cmd[3] == "EX" &&
				cmd[4] == "90"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	r := newRedisWithClient(client, "", 90*time.Second, nil)
	require.NoError(t, r.Set(context.Background(), "k1", results))
}

func TestRedis_SetError(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)

	client.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.ErrorResult(errors.New("READONLY")))

	r := newRedisWithClient(client, "", time.Minute, nil)
	assert.Error(t, r.Set(context.Background(), "k1", sampleResults()))
}
