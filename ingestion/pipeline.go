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

package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/omnidoc/ai"
	"github.com/poiesic/omnidoc/core"
	"github.com/poiesic/omnidoc/modal"
	"github.com/poiesic/omnidoc/storage"
)

// Pipeline enriches and stores the fragments of one parsed document.
// Text fragments are embedded in a batch; image, table and equation
// fragments are described and linked to entities concurrently on a
// worker pool.
type Pipeline struct {
	fragments  storage.FragmentRepository
	entities   storage.EntityRepository
	documents  storage.DocumentRepository
	embedder   ai.Embedder
	processors *modal.ProcessorSet
	modalPool  *ants.Pool
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for modal fragment processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.modalPool != nil {
			p.modalPool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.modalPool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithProcessors replaces the default modal processor set.
func WithProcessors(processors *modal.ProcessorSet) Option {
	return func(p *Pipeline) error {
		if processors != nil {
			p.processors = processors
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	fragments storage.FragmentRepository,
	entities storage.EntityRepository,
	documents storage.DocumentRepository,
	provider ai.Provider,
	opts ...Option,
) (*Pipeline, error) {
	if fragments == nil {
		return nil, ErrFragmentRepositoryRequired
	}
	if entities == nil {
		return nil, ErrEntityRepositoryRequired
	}
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		fragments:  fragments,
		entities:   entities,
		documents:  documents,
		embedder:   provider.Embedder(),
		processors: modal.NewProcessorSet(provider),
		modalPool:  pool,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest stores a parsed document and its fragments, then enriches the
// fragments in place: text fragments get embeddings, modal fragments
// additionally get descriptions and entity links. Per-fragment modal
// failures are logged and leave the fragment stored unenriched; only
// storage and batch-embedding errors fail the ingestion.
func (p *Pipeline) Ingest(ctx context.Context, docPath, parseMethod string, fragments []*core.Fragment) (*core.Document, error) {
	doc, err := p.documents.AddDocument(ctx, &core.Document{
		Path:          docPath,
		ParseMethod:   parseMethod,
		FragmentCount: len(fragments),
	})
	if err != nil {
		return nil, err
	}

	if len(fragments) == 0 {
		return doc, nil
	}

	for _, fragment := range fragments {
		fragment.DocId = doc.Id
	}

	added, err := p.fragments.AddFragments(ctx, fragments...)
	if err != nil {
		return nil, err
	}

	var textFragments, modalFragments []*core.Fragment
	for _, fragment := range added {
		if fragment.Type == core.FragmentTypeText {
			textFragments = append(textFragments, fragment)
		} else {
			modalFragments = append(modalFragments, fragment)
		}
	}

	// Modal fragments run on the pool while text embedding proceeds
	// on the calling goroutine.
	var wg sync.WaitGroup
	for _, fragment := range modalFragments {
		fragment := fragment
		wg.Add(1)
		submitErr := p.modalPool.Submit(func() {
			defer wg.Done()
			if err := p.processModal(ctx, fragment); err != nil {
				p.logger.Warn("modal fragment processing failed",
					"doc", docPath, "fragment", fragment.Id, "type", fragment.Type, "err", err)
			}
		})
		if submitErr != nil {
			wg.Done()
			p.logger.Warn("modal fragment dispatch failed",
				"doc", docPath, "fragment", fragment.Id, "err", submitErr)
		}
	}

	embedErr := p.embedTextFragments(ctx, textFragments)
	wg.Wait()
	if embedErr != nil {
		return nil, embedErr
	}

	if _, err := p.fragments.UpdateFragments(ctx, added...); err != nil {
		return nil, err
	}

	p.logger.Info("document ingested",
		"doc", docPath, "fragments", len(added),
		"text", len(textFragments), "modal", len(modalFragments))
	return doc, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.modalPool != nil {
		p.modalPool.Release()
	}
}
