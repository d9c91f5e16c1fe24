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

package modal

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/omnidoc/ai"
	"github.com/poiesic/omnidoc/core"
)

// Result carries what a processor derived from one fragment.
type Result struct {
	// Description is the model's analysis of the fragment content.
	Description string
	// Entities are the knowledge-graph entities extracted from the
	// description. May be empty.
	Entities []ai.ExtractedEntity
}

// Processor turns one modal fragment into a description and entities.
// Implementations must be safe for concurrent use.
type Processor interface {
	// Type returns the fragment type this processor handles.
	Type() core.FragmentType

	// Process analyzes the fragment. The fragment itself is not mutated.
	Process(ctx context.Context, fragment *core.Fragment) (*Result, error)
}

const (
	defaultMaxContextTokens = 2000
	defaultRetryAttempts    = 3
	defaultRetryBaseDelay   = 500 * time.Millisecond
)

// base holds the services and settings shared by all processors.
type base struct {
	describer ai.Describer
	vision    ai.VisionDescriber
	extractor ai.EntityExtractor
	truncator *Truncator
	attempts  int
	baseDelay time.Duration
	logger    *slog.Logger
}

// describe runs a text prompt through the describer with retry.
func (b *base) describe(ctx context.Context, prompt, systemPrompt string) (string, error) {
	var description string
	err := RetryWithBackoff(ctx, func() error {
		out, err := b.describer.Describe(ctx, prompt, systemPrompt)
		if err != nil {
			return err
		}
		description = strings.TrimSpace(out)
		return nil
	}, b.attempts, b.baseDelay)
	if err != nil {
		return "", err
	}
	if description == "" {
		return "", ErrDescriptionFailed
	}
	return description, nil
}

// extract pulls entities from a description. Extraction failures are
// logged and tolerated; a description without entities is still useful.
func (b *base) extract(ctx context.Context, text string) []ai.ExtractedEntity {
	if b.extractor == nil {
		return nil
	}
	entities, err := b.extractor.ExtractEntities(ctx, text)
	if err != nil {
		b.logger.Warn("entity extraction failed", "err", err)
		return nil
	}
	return entities
}

func (b *base) finish(ctx context.Context, description string) *Result {
	return &Result{
		Description: description,
		Entities:    b.extract(ctx, description),
	}
}
