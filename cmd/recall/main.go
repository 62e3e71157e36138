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
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "recall",
		Usage: "Multi-backend retrieval over decisions, documents and a knowledge graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"RECALL_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Directory holding the stores (overrides the configuration)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Retrieve ranked results for a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "scope",
						Aliases: []string{"s"},
						Usage:   "Project scope used for filtering and specificity",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
					&cli.BoolFlag{
						Name:  "decompose",
						Usage: "Split the query into sub-queries before retrieval",
					},
					&cli.BoolFlag{
						Name:  "rerank",
						Usage: "Rerank the head of the list with the relevance model",
					},
					&cli.StringSliceFlag{
						Name:  "backends",
						Usage: "Backends to query (structured, vector, graph)",
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Print pipeline and backend events to stderr",
					},
					&cli.BoolFlag{
						Name:  "print-metrics",
						Usage: "Print collected metrics after the search",
					},
				},
			},
			{
				Name:      "decompose",
				Usage:     "Show how a query is split into sub-queries",
				ArgsUsage: "<query>",
				Action:    decomposeCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of sub-queries",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the result as a JSON line",
					},
				},
			},
			{
				Name:      "index",
				Usage:     "Embed and store text files as documents",
				ArgsUsage: "<file>...",
				Action:    indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "project",
						Usage: "Project the documents belong to",
					},
					&cli.StringFlag{
						Name:  "doc-type",
						Usage: "Document type recorded in metadata",
						Value: "text",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents embedded per request",
						Value: 32,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every stored document with the configured embedding model",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Load records, documents and graph entries from a YAML seed file",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Seed file (defaults to the built-in demo data)",
					},
				},
			},
		},
	}
}
