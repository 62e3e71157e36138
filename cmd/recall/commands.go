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
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/config"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/decompose"
	"github.com/poiesic/recall/indexing"
	"github.com/poiesic/recall/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

//go:embed demo_seed.yaml
var demoSeed string

// engineOptions are appended to every engine the commands open.
var engineOptions []recall.EngineOption

var errQueryRequired = errors.New("a query is required")

// setup loads the configuration and configures the default logger.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}

	levelStr := cfg.Logging.Level
	if c.IsSet("log-level") {
		levelStr = c.String("log-level")
	}
	level, err := config.ParseLevel(levelStr)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func loadedConfig(c *cli.Context) (*config.Config, error) {
	cfg, ok := c.App.Metadata[configKey].(*config.Config)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

func openEngine(c *cli.Context, extra ...recall.EngineOption) (*recall.Engine, error) {
	cfg, err := loadedConfig(c)
	if err != nil {
		return nil, err
	}
	opts := append([]recall.EngineOption{}, engineOptions...)
	opts = append(opts, extra...)
	engine, err := recall.Open(c.Context, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func queryArg(c *cli.Context) (string, error) {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return "", errQueryRequired
	}
	return query, nil
}

func searchCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}

	var extra []recall.EngineOption
	if c.Bool("trace") {
		extra = append(extra,
			recall.WithRetrievalMonitor(newRetrievalTrace(c.App.ErrWriter)),
			recall.WithPipelineMonitor(newPipelineTrace(c.App.ErrWriter)),
		)
	}
	if c.Bool("print-metrics") {
		metrics.Register()
	}

	engine, err := openEngine(c, extra...)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := core.RetrieveOptions{
		UseDecomposition: c.Bool("decompose"),
		EnabledBackends:  c.StringSlice("backends"),
		EnableRerank:     c.Bool("rerank"),
	}
	results, err := engine.Retrieve(c.Context, query, c.String("scope"), c.Int("limit"), opts)
	if err != nil {
		return err
	}

	printResults(c.App.Writer, results)
	if c.Bool("print-metrics") {
		return printMetrics(c.App.Writer, prometheus.DefaultGatherer)
	}
	return nil
}

func printResults(w io.Writer, results []core.ConsolidatedResult) {
	fmt.Fprintf(w, "Found %d results\n", len(results))
	for i, r := range results {
		backends := make([]string, len(r.Backends))
		for j, b := range r.Backends {
			backends[j] = string(b)
		}
		fmt.Fprintf(w, "%d: [%0.3f] (%s) %s\n", i+1, r.CompositeScore, strings.Join(backends, ","), r.Content)
	}
}

// printMetrics writes every recall sample in a compact text form.
func printMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	fmt.Fprintln(w)
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "recall_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s{%s} count=%d sum=%g\n", mf.GetName(), strings.Join(labels, ","), h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}

func decomposeCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	result := engine.Decompose(c.Context, query, c.Int("max"))
	if c.Bool("json") {
		return decompose.WriteJSONL(c.App.Writer, []*core.DecompositionResult{result})
	}

	w := c.App.Writer
	if result.Failed() {
		fmt.Fprintf(w, "Decomposition failed: %s\n", result.Error)
	}
	fmt.Fprintf(w, "Provider: %s (%s) confidence %.2f in %v\n", result.ProviderUsed, result.Model, result.OverallConfidence, result.Elapsed)
	for i, sq := range result.SubQueries {
		fmt.Fprintf(w, "%d: [%s %.2f] %s\n", i+1, sq.Kind, sq.Confidence, sq.Text)
	}
	return nil
}

func indexCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one file is required")
	}
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	var docs []*core.Document
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, &core.Document{
			Source:  path,
			DocType: c.String("doc-type"),
			Project: c.String("project"),
			Content: string(data),
		})
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ix, err := engine.NewIndexer(indexing.WithBatchSize(c.Int("batch-size")))
	if err != nil {
		return err
	}
	defer ix.Release()

	stored, err := ix.IndexDocuments(c.Context, docs...)
	fmt.Fprintf(c.App.ErrWriter, "Indexed %d of %d documents\n", len(stored), len(docs))
	return err
}

func reindexCommand(c *cli.Context) error {
	reindexConfig := &indexing.ReindexConfig{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxAttempts:    c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if reindexConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reindexConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reindexConfig.MaxAttempts <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	cfg := engine.Config()
	fmt.Fprintf(c.App.ErrWriter, "Data directory: %s\n", cfg.DataDir)
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	reindexer, err := engine.NewReindexer(reindexConfig, c.App.ErrWriter)
	if err != nil {
		return err
	}
	if _, err := reindexer.Run(c.Context); err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}
	return nil
}

func seedCommand(c *cli.Context) error {
	var r io.Reader = strings.NewReader(demoSeed)
	if path := c.String("file"); path != "" {
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("failed to open seed file: %w", err)
		}
		defer f.Close()
		r = f
	}

	seed, err := indexing.LoadSeed(r)
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ix, err := engine.NewIndexer()
	if err != nil {
		return err
	}
	defer ix.Release()

	stats, err := ix.Seed(c.Context, seed)
	fmt.Fprintf(c.App.ErrWriter, "Seeded %d records, %d documents, %d entities, %d relations\n",
		stats.Records, stats.Documents, stats.Entities, stats.Relations)
	return err
}
