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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai/mock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const decomposition = `{"sub_queries": [{"query": "Redis", "type": "entity", "confidence": 0.9}], "decomposition_confidence": 0.8}`

// testApp returns an app writing to buffers and backed by mock AI services.
func testApp(t *testing.T) (*cli.App, *bytes.Buffer) {
	t.Helper()
	provider := mock.NewMockProviderWithServices(
		mock.NewMockEmbedder(),
		mock.NewMockCompleter("mock-primary", decomposition),
		nil,
		mock.NewMockScorer(),
	)
	engineOptions = []recall.EngineOption{recall.WithProvider(provider)}
	t.Cleanup(func() { engineOptions = nil })

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	return app, &out
}

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %s not found", name)
	return nil
}

func intFlag(t *testing.T, cmd *cli.Command, name string) *cli.IntFlag {
	t.Helper()
	for _, flag := range cmd.Flags {
		if f, ok := flag.(*cli.IntFlag); ok && f.Name == name {
			return f
		}
	}
	t.Fatalf("flag %s not found on %s", name, cmd.Name)
	return nil
}

func TestAppFlags(t *testing.T) {
	app := newApp()

	t.Run("search limit defaults to 10", func(t *testing.T) {
		assert.Equal(t, 10, intFlag(t, findCommand(t, app, "search"), "limit").Value)
	})

	t.Run("decompose max defaults to 5", func(t *testing.T) {
		assert.Equal(t, 5, intFlag(t, findCommand(t, app, "decompose"), "max").Value)
	})

	t.Run("reindex defaults", func(t *testing.T) {
		cmd := findCommand(t, app, "reindex")
		assert.Equal(t, 100, intFlag(t, cmd, "batch-size").Value)
		assert.Equal(t, 100, intFlag(t, cmd, "report-interval").Value)
		assert.Equal(t, 3, intFlag(t, cmd, "max-retries").Value)
	})

	t.Run("config reads RECALL_CONFIG", func(t *testing.T) {
		for _, flag := range app.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "config" {
				assert.Equal(t, []string{"RECALL_CONFIG"}, f.EnvVars)
				return
			}
		}
		t.Fatal("config flag not found")
	})
}

func TestCommandValidation(t *testing.T) {
	dir := t.TempDir()

	t.Run("invalid log level", func(t *testing.T) {
		app, _ := testApp(t)
		err := app.Run([]string{"recall", "--data-dir", dir, "--log-level", "loud", "search", "redis"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loud")
	})

	t.Run("search requires a query", func(t *testing.T) {
		app, _ := testApp(t)
		err := app.Run([]string{"recall", "--data-dir", dir, "search"})
		assert.ErrorIs(t, err, errQueryRequired)
	})

	t.Run("unknown backend", func(t *testing.T) {
		app, _ := testApp(t)
		err := app.Run([]string{"recall", "--data-dir", dir, "search", "--backends", "elastic", "redis"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "elastic")
	})

	t.Run("reindex batch size must be positive", func(t *testing.T) {
		app, _ := testApp(t)
		err := app.Run([]string{"recall", "--data-dir", dir, "reindex", "--batch-size", "0"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch-size must be greater than 0")
	})

	t.Run("index requires files", func(t *testing.T) {
		app, _ := testApp(t)
		err := app.Run([]string{"recall", "--data-dir", dir, "index"})
		require.Error(t, err)
	})

	t.Run("missing seed file", func(t *testing.T) {
		app, _ := testApp(t)
		err := app.Run([]string{"recall", "--data-dir", dir, "seed", "--file", filepath.Join(dir, "missing.yaml")})
		require.Error(t, err)
	})
}

func TestSeedAndSearch(t *testing.T) {
	dir := t.TempDir()

	app, _ := testApp(t)
	require.NoError(t, app.Run([]string{"recall", "--data-dir", dir, "seed"}))

	app, out := testApp(t)
	require.NoError(t, app.Run([]string{"recall", "--data-dir", dir, "search",
		"--scope", "recall", "--backends", "structured,graph", "redis"}))
	assert.Contains(t, out.String(), "Found")
	assert.Contains(t, out.String(), "Use Redis with a one hour TTL for the shared result cache")

	app, out = testApp(t)
	require.NoError(t, app.Run([]string{"recall", "--data-dir", dir, "search",
		"--decompose", "--rerank", "--trace", "--print-metrics", "what caches redis results"}))
	assert.Contains(t, out.String(), "recall_retrieve_total")
}

func TestIndexAndReindex(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(t.TempDir(), "note.md")
	require.NoError(t, os.WriteFile(file, []byte("Cache entries expire after one hour."), 0o644))

	app, _ := testApp(t)
	require.NoError(t, app.Run([]string{"recall", "--data-dir", dir, "index", "--project", "recall", file}))

	app, _ = testApp(t)
	require.NoError(t, app.Run([]string{"recall", "--data-dir", dir, "reindex", "--batch-size", "10"}))
	assert.Contains(t, app.ErrWriter.(*bytes.Buffer).String(), "Reindex complete. Processed 1 documents")
}

func TestDecomposeCommand(t *testing.T) {
	dir := t.TempDir()

	app, out := testApp(t)
	require.NoError(t, app.Run([]string{"recall", "--data-dir", dir, "decompose", "redis ttl"}))
	assert.Contains(t, out.String(), "Provider: primary")
	assert.Contains(t, out.String(), "[entity 0.90] Redis")

	app, out = testApp(t)
	require.NoError(t, app.Run([]string{"recall", "--data-dir", dir, "decompose", "--json", "redis ttl"}))
	assert.Contains(t, out.String(), `"sub_queries"`)
	assert.Contains(t, out.String(), `"provider":"primary"`)
}

func TestPrintMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "recall_test_total"}, []string{"outcome"})
	other := prometheus.NewCounter(prometheus.CounterOpts{Name: "unrelated_total"})
	reg.MustRegister(counter, other)
	counter.WithLabelValues("ok").Add(2)
	other.Inc()

	var buf bytes.Buffer
	require.NoError(t, printMetrics(&buf, reg))
	assert.Contains(t, buf.String(), "recall_test_total{outcome=ok} 2")
	assert.NotContains(t, buf.String(), "unrelated_total")
}
