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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/omnidoc"
	"github.com/poiesic/omnidoc/ai"
	"github.com/poiesic/omnidoc/ai/openai"
	"github.com/poiesic/omnidoc/batch"
	"github.com/poiesic/omnidoc/reembed"
	"github.com/poiesic/omnidoc/render"
	"github.com/poiesic/omnidoc/search"
	"github.com/poiesic/omnidoc/service"
	"github.com/poiesic/omnidoc/storage/badger"
)

func main() {
	app := &cli.App{
		Name:  "omnidoc",
		Usage: "Multimodal document ingestion and retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "batch",
				Usage:     "Parse and index a batch of documents",
				ArgsUsage: "<paths...>",
				Action:    batchCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the index directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Root directory for parser output",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of files processed in parallel",
						Value: 4,
					},
					&cli.StringFlag{
						Name:  "parser",
						Usage: "Document parser (mineru, docling)",
						Value: "mineru",
					},
					&cli.StringFlag{
						Name:  "method",
						Usage: "Parse method (auto, ocr, txt)",
						Value: "auto",
					},
					&cli.BoolFlag{
						Name:  "recursive",
						Usage: "Walk directories recursively",
					},
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Disable the progress line on stderr",
					},
					&cli.DurationFlag{
						Name:  "timeout-per-file",
						Usage: "Time limit for one file, 0 disables",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Time limit for the whole batch, 0 disables",
					},
				}, aiFlags()...),
			},
			{
				Name:   "query",
				Usage:  "Query an index",
				Action: queryCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the index directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Query text",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Retrieval mode (naive, local, global, hybrid, bypass)",
						Value: "hybrid",
					},
					&cli.IntFlag{
						Name:  "max-hits",
						Usage: "Maximum number of results",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "answer",
						Usage: "Generate an answer from the retrieved passages",
					},
				}, aiFlags()...),
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate all fragment embeddings with a new model",
				Action: reembedCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the index directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of fragments to embed in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N fragments",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed embedding calls",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				}, aiFlags()...),
			},
			{
				Name:      "render",
				Usage:     "Render a markdown file to PDF",
				ArgsUsage: "<input.md>",
				Action:    renderCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Output PDF path",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "backend",
						Usage: "Conversion backend (auto, pandoc, gotenberg, libreoffice)",
						Value: "auto",
					},
					&cli.StringFlag{
						Name:  "gotenberg-url",
						Usage: "Gotenberg service base URL",
						Value: "http://localhost:3000",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP service",
				Action: serveCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
						Value: ":8080",
					},
					&cli.StringFlag{
						Name:     "data-root",
						Usage:    "Directory holding per-workspace indexes",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "token",
						Usage: "Bearer token guarding workspace endpoints, empty disables auth",
					},
					&cli.StringFlag{
						Name:  "parser",
						Usage: "Default document parser (mineru, docling)",
						Value: "mineru",
					},
					&cli.IntFlag{
						Name:  "cache-size",
						Usage: "Maximum number of open workspace engines",
						Value: 16,
					},
					&cli.DurationFlag{
						Name:  "cache-ttl",
						Usage: "Idle time before a workspace engine is evicted",
						Value: 30 * time.Minute,
					},
				}, aiFlags()...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// aiFlags returns the flags shared by every command that talks to the
// model services.
func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name for descriptions and entity extraction",
			Value: "qwen2.5:3b",
		},
		&cli.StringFlag{
			Name:  "vision-model",
			Usage: "Vision model name for image descriptions (defaults to chat-model)",
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the services",
			Value:   "none",
			EnvVars: []string{"OMNIDOC_API_KEY"},
		},
	}
}

// aiOptions maps the shared AI flags onto provider config options.
func aiOptions(c *cli.Context) []ai.ConfigOption {
	opts := []ai.ConfigOption{
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithAPIKey(c.String("api-key")),
	}
	if vision := c.String("vision-model"); vision != "" {
		opts = append(opts, ai.WithVisionModel(vision))
	}
	return opts
}

func openEngine(c *cli.Context) (*omnidoc.Engine, error) {
	engine, err := omnidoc.NewEngine(c.String("db"),
		omnidoc.WithParserName(c.String("parser")),
		omnidoc.WithAIOptions(aiOptions(c)...))
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return engine, nil
}

func batchCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one input path is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	var runnerOpts []batch.Option
	var progress *batch.ProgressTracker
	if !c.Bool("no-progress") {
		progress = batch.NewProgressTracker(os.Stderr)
		runnerOpts = append(runnerOpts, batch.WithObserver(progress))
	}

	runner, err := engine.NewBatchRunner(runnerOpts...)
	if err != nil {
		return err
	}

	result, err := runner.ProcessBatch(c.Context, &batch.Request{
		Paths:          c.Args().Slice(),
		OutputDir:      c.String("output"),
		Method:         c.String("method"),
		Recursive:      c.Bool("recursive"),
		Workers:        c.Int("workers"),
		TimeoutPerFile: c.Duration("timeout-per-file"),
		Timeout:        c.Duration("timeout"),
	})
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return err
	}

	// Partial failures are reported in the summary but do not fail the
	// command; the batch ran to completion.
	fmt.Println(result.Summary())
	return nil
}

func queryCommand(c *cli.Context) error {
	mode, err := search.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}

	// The query command never selects a parser; any valid one works for
	// reading an existing index.
	engine, err := omnidoc.NewEngine(c.String("db"),
		omnidoc.WithAIOptions(aiOptions(c)...))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer engine.Close()

	query := c.String("query")
	maxHits := c.Int("max-hits")

	if c.Bool("answer") {
		answer, results, err := engine.Answer(c.Context, query, mode, maxHits)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		if len(results) > 0 {
			fmt.Printf("\nBased on %d passages.\n", len(results))
		}
		return nil
	}

	results, err := engine.Query(c.Context, query, mode, maxHits)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, result := range results {
		fmt.Printf("%d. [%.3f] (%s, page %d)\n%s\n\n",
			i+1, result.Score, result.Fragment.Type, result.Fragment.PageIndex,
			result.Fragment.Text())
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	repos, err := badger.NewRepositories(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer repos.Close()

	provider, err := openai.NewProvider(aiOptions(c)...)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	defer provider.Close()

	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reembedder := reembed.NewReembedder(
		repos.Fragments, repos.Documents, provider.Embedder(), config, os.Stderr)

	fmt.Fprintf(os.Stderr, "Index: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n\n", c.String("embedding-model"))

	if err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func renderCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one input file is required")
	}

	backends, err := selectBackends(c.String("backend"), c.String("gotenberg-url"))
	if err != nil {
		return err
	}

	converter, err := render.NewConverter(backends)
	if err != nil {
		return err
	}

	output := c.String("output")
	if err := converter.Convert(c.Context, c.Args().First(), output); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", output)
	return nil
}

func selectBackends(name, gotenbergURL string) ([]render.Backend, error) {
	switch name {
	case "auto":
		return []render.Backend{
			render.NewPandocBackend(),
			render.NewGotenbergBackend(gotenbergURL),
			render.NewLibreOfficeBackend(),
		}, nil
	case "pandoc":
		return []render.Backend{render.NewPandocBackend()}, nil
	case "gotenberg":
		return []render.Backend{render.NewGotenbergBackend(gotenbergURL)}, nil
	case "libreoffice":
		return []render.Backend{render.NewLibreOfficeBackend()}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q: must be one of auto, pandoc, gotenberg, libreoffice", name)
	}
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &service.Config{
		Addr:       c.String("addr"),
		DataRoot:   c.String("data-root"),
		Token:      c.String("token"),
		ParserName: c.String("parser"),
		CacheSize:  c.Int("cache-size"),
		CacheTTL:   c.Duration("cache-ttl"),
		EngineOptions: []omnidoc.EngineOption{
			omnidoc.WithAIOptions(aiOptions(c)...),
		},
	}

	server, err := service.NewServer(config, slog.Default())
	if err != nil {
		return err
	}

	return server.ListenAndServe(ctx)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
