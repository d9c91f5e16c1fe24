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
	"time"

	"github.com/poiesic/omnidoc/ai"
	"github.com/poiesic/omnidoc/core"
)

// ProcessorSet routes fragments to the processor for their type.
// Types without a dedicated processor fall through to the generic one.
type ProcessorSet struct {
	processors map[core.FragmentType]Processor
	generic    Processor
}

// Option configures a ProcessorSet.
type Option func(*base)

// WithMaxContextTokens caps fragment content at a token budget before
// prompting. Non-positive disables truncation.
func WithMaxContextTokens(limit int) Option {
	return func(b *base) {
		b.truncator = NewTruncator(limit)
	}
}

// WithRetry sets the retry policy for model calls.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(b *base) {
		b.attempts = attempts
		b.baseDelay = baseDelay
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewProcessorSet builds the standard processors over an AI provider.
func NewProcessorSet(provider ai.Provider, opts ...Option) *ProcessorSet {
	shared := &base{
		describer: provider.Describer(),
		vision:    provider.Vision(),
		extractor: provider.EntityExtractor(),
		truncator: NewTruncator(defaultMaxContextTokens),
		attempts:  defaultRetryAttempts,
		baseDelay: defaultRetryBaseDelay,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(shared)
	}

	generic := &GenericProcessor{base: shared}
	set := &ProcessorSet{
		processors: map[core.FragmentType]Processor{
			core.FragmentTypeImage:    &ImageProcessor{base: shared},
			core.FragmentTypeTable:    &TableProcessor{base: shared},
			core.FragmentTypeEquation: &EquationProcessor{base: shared},
			core.FragmentTypeGeneric:  generic,
		},
		generic: generic,
	}
	return set
}

// For returns the processor for a fragment type.
func (s *ProcessorSet) For(fragmentType core.FragmentType) Processor {
	if p, ok := s.processors[fragmentType]; ok {
		return p
	}
	return s.generic
}

// Process routes one fragment to its processor.
func (s *ProcessorSet) Process(ctx context.Context, fragment *core.Fragment) (*Result, error) {
	return s.For(fragment.Type).Process(ctx, fragment)
}
