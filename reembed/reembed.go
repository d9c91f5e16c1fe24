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


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/omnidoc/ai"
	"github.com/poiesic/omnidoc/core"
	"github.com/poiesic/omnidoc/modal"
	"github.com/poiesic/omnidoc/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of fragments sent to the embedder per call
	BatchSize int

	// ReportInterval is how often to report progress (number of fragments)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder regenerates the embedding of every fragment in an index.
// Run it after switching embedding models; search compares query
// vectors against stored vectors, so both must come from the same
// model.
type Reembedder struct {
	fragments storage.FragmentRepository
	documents storage.DocumentRepository
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
}

// NewReembedder creates a reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(fragments storage.FragmentRepository, documents storage.DocumentRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}

	return &Reembedder{
		fragments: fragments,
		documents: documents,
		embedder:  embedder,
		config:    config,
		progress:  progress,
	}
}

// Run reembeds every fragment, walking the index document by document.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) error {
	total, err := r.fragments.CountFragments(ctx)
	if err != nil {
		return fmt.Errorf("failed to count fragments: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No fragments found in index (0 fragments)\n")
		return nil
	}

	docs, err := r.documents.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d fragments across %d documents (batch size: %d)\n",
		total, len(docs), r.config.BatchSize)

	tracker := NewTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	for _, doc := range docs {
		fragments, err := r.fragments.GetFragmentsByDocument(ctx, doc.Id)
		if err != nil {
			return fmt.Errorf("failed to load fragments for %s: %w", doc.Path, err)
		}

		for start := 0; start < len(fragments); start += r.config.BatchSize {
			end := min(start+r.config.BatchSize, len(fragments))
			if err := r.processBatch(ctx, fragments[start:end]); err != nil {
				return err
			}
			processed += end - start
			tracker.Update(processed)
		}
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d fragments in %v (%.1f fragments/sec)\n",
		processed, elapsed.Round(time.Second), float64(processed)/elapsed.Seconds())

	return nil
}

// processBatch embeds one batch of fragments and writes the updated
// vectors back. Modal fragments embed their description, text
// fragments their content.
func (r *Reembedder) processBatch(ctx context.Context, fragments []*core.Fragment) error {
	if len(fragments) == 0 {
		return nil
	}

	texts := make([]string, len(fragments))
	for i, fragment := range fragments {
		texts[i] = fragment.Text()
	}

	var embeddings [][]float32
	err := modal.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.config.MaxRetries, err)
	}

	if len(embeddings) != len(fragments) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(fragments), len(embeddings))
	}

	// Stored vectors must be unit length; similarity search is a plain
	// dot product.
	for i := range fragments {
		fragments[i].Vector = NormalizeVector(embeddings[i])
	}

	if _, err := r.fragments.UpdateFragments(ctx, fragments...); err != nil {
		return fmt.Errorf("failed to update fragments: %w", err)
	}
	return nil
}
