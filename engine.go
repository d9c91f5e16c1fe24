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

package omnidoc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/poiesic/omnidoc/ai"
	"github.com/poiesic/omnidoc/ai/openai"
	"github.com/poiesic/omnidoc/batch"
	"github.com/poiesic/omnidoc/core"
	"github.com/poiesic/omnidoc/ingestion"
	"github.com/poiesic/omnidoc/parser"
	"github.com/poiesic/omnidoc/parser/docling"
	"github.com/poiesic/omnidoc/parser/mineru"
	"github.com/poiesic/omnidoc/search"
	"github.com/poiesic/omnidoc/storage/badger"
)

// ErrUnknownParser is returned for an unrecognized parser name.
var ErrUnknownParser = errors.New("unknown parser")

// Engine ties the document pipeline together: parsing, ingestion into
// the Badger-backed index, and retrieval.
type Engine struct {
	repos    *badger.Repositories
	provider ai.Provider
	parser   parser.Parser
	pipeline *ingestion.Pipeline
	searcher *search.Searcher
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiOpts     []ai.ConfigOption
	provider   ai.Provider
	parserName string
	docParser  parser.Parser
	inMemory   bool
	logger     *slog.Logger
}

// WithAIOptions forwards configuration to the OpenAI-compatible
// provider. Ignored when WithProvider is set.
func WithAIOptions(opts ...ai.ConfigOption) EngineOption {
	return func(o *engineOptions) {
		o.aiOpts = append(o.aiOpts, opts...)
	}
}

// WithProvider injects a pre-built AI provider, bypassing the default
// OpenAI-compatible one.
func WithProvider(provider ai.Provider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithParserName selects the document parser by name: "mineru"
// (the default) or "docling". Unknown names fail engine construction.
func WithParserName(name string) EngineOption {
	return func(o *engineOptions) {
		o.parserName = name
	}
}

// WithParser injects a document parser directly, bypassing name
// resolution.
func WithParser(p parser.Parser) EngineOption {
	return func(o *engineOptions) {
		o.docParser = p
	}
}

// WithInMemoryStorage keeps the index in memory instead of on disk.
func WithInMemoryStorage() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// resolveParser maps a parser name to an implementation.
func resolveParser(name string) (parser.Parser, error) {
	switch name {
	case "", "mineru":
		return mineru.New(), nil
	case "docling":
		return docling.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q (want mineru or docling)", ErrUnknownParser, name)
	}
}

// NewEngine opens an engine over the index at dbPath.
func NewEngine(dbPath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	docParser := options.docParser
	if docParser == nil {
		var err error
		docParser, err = resolveParser(options.parserName)
		if err != nil {
			return nil, err
		}
	}

	var repos *badger.Repositories
	var err error
	if options.inMemory {
		repos, err = badger.NewMemoryRepositories()
	} else {
		repos, err = badger.NewRepositories(dbPath)
	}
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiOpts...)
		if err != nil {
			repos.Close()
			return nil, err
		}
	}

	pipeline, err := ingestion.NewPipeline(
		repos.Fragments, repos.Entities, repos.Documents, provider,
		ingestion.WithLogger(options.logger))
	if err != nil {
		provider.Close()
		repos.Close()
		return nil, err
	}

	searcher, err := search.NewSearcher(
		repos.Fragments, repos.Entities, provider,
		search.WithLogger(options.logger))
	if err != nil {
		pipeline.Release()
		provider.Close()
		repos.Close()
		return nil, err
	}

	return &Engine{
		repos:    repos,
		provider: provider,
		parser:   docParser,
		pipeline: pipeline,
		searcher: searcher,
		logger:   options.logger,
	}, nil
}

// ProcessFile parses one document and ingests its fragments into the
// index. Parser outputs land under outputDir. Method selects the parse
// strategy (auto, ocr, txt).
func (e *Engine) ProcessFile(ctx context.Context, inputPath, outputDir, method string) (*core.Document, error) {
	if method == "" {
		method = "auto"
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	output, err := e.parser.Parse(ctx, inputPath, outputDir, method)
	if err != nil {
		return nil, err
	}

	return e.pipeline.Ingest(ctx, inputPath, method, output.Fragments)
}

// NewBatchRunner builds a batch runner that processes files through
// this engine. The runner's extension set is the parser-supported set.
func (e *Engine) NewBatchRunner(opts ...batch.Option) (*batch.Runner, error) {
	parse := func(ctx context.Context, inputPath, outputDir, method string) (string, error) {
		if _, err := e.ProcessFile(ctx, inputPath, outputDir, method); err != nil {
			return "", err
		}
		return outputDir, nil
	}

	opts = append([]batch.Option{batch.WithLogger(e.logger)}, opts...)
	return batch.NewRunner(parse, batch.NewExtensionSet(parser.SupportedExtensions()...), opts...)
}

// ProcessBatch runs a batch request through a default runner.
func (e *Engine) ProcessBatch(ctx context.Context, req *batch.Request) (*batch.Result, error) {
	runner, err := e.NewBatchRunner()
	if err != nil {
		return nil, err
	}
	return runner.ProcessBatch(ctx, req)
}

// Query retrieves fragments for a text query.
func (e *Engine) Query(ctx context.Context, query string, mode search.Mode, maxHits int) ([]*core.SearchResult, error) {
	return e.searcher.Query(ctx, query, mode, maxHits)
}

// QueryMultimodal folds attachments into the query before retrieval.
func (e *Engine) QueryMultimodal(ctx context.Context, query string, attachments []*core.Fragment, mode search.Mode, maxHits int) ([]*core.SearchResult, error) {
	enhanced, err := e.searcher.EnhanceQuery(ctx, query, attachments)
	if err != nil {
		return nil, err
	}
	return e.searcher.Query(ctx, enhanced, mode, maxHits)
}

// Answer retrieves context for the query and generates an answer.
func (e *Engine) Answer(ctx context.Context, query string, mode search.Mode, maxHits int) (string, []*core.SearchResult, error) {
	return e.searcher.Answer(ctx, query, mode, maxHits)
}

// Stats summarizes the index contents.
type Stats struct {
	Documents int
	Fragments int
	Entities  int
}

// Stats counts the indexed documents, fragments and entities.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	documents, err := e.repos.Documents.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	fragments, err := e.repos.Fragments.CountFragments(ctx)
	if err != nil {
		return nil, err
	}
	entities, err := e.repos.Entities.CountEntities(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Documents: documents, Fragments: fragments, Entities: entities}, nil
}

// DeleteDocument removes a document and all its fragments from the
// index by original input path.
func (e *Engine) DeleteDocument(ctx context.Context, docPath string) error {
	doc, err := e.repos.Documents.GetDocumentByPath(ctx, docPath)
	if err != nil {
		return err
	}

	fragments, err := e.repos.Fragments.GetFragmentsByDocument(ctx, doc.Id)
	if err != nil {
		return err
	}
	if len(fragments) > 0 {
		ids := make([]core.ID, len(fragments))
		for i, fragment := range fragments {
			ids[i] = fragment.Id
		}
		if err := e.repos.Fragments.DeleteFragments(ctx, ids...); err != nil {
			return err
		}
	}

	return e.repos.Documents.DeleteDocument(ctx, doc.Id)
}

// Documents lists the indexed documents.
func (e *Engine) Documents(ctx context.Context) ([]*core.Document, error) {
	return e.repos.Documents.ListDocuments(ctx)
}

// Searcher exposes the underlying searcher for monitored queries.
func (e *Engine) Searcher() *search.Searcher {
	return e.searcher
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	e.pipeline.Release()

	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	if err := e.repos.Close(); err != nil {
		e.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}
