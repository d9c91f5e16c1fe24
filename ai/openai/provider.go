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


package openai

import (
	"fmt"

	"github.com/poiesic/omnidoc/ai"
)

// Provider bundles the OpenAI-compatible embedding, chat, vision and
// extraction clients behind the ai.Provider interface. All clients share
// one Config; vision requests go to a dedicated client only when the
// configured vision model differs from the chat model.
type Provider struct {
	config    *ai.Config
	embedder  *Embedder
	describer *Describer
	extractor *EntityExtractor
}

// NewProvider builds a Provider from the given options applied over
// ai.DefaultConfig.
func NewProvider(opts ...ai.ConfigOption) (*Provider, error) {
	config := ai.DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	describer, err := newDescriber(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create describer: %w", err)
	}

	extractor, err := newEntityExtractor(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity extractor: %w", err)
	}

	return &Provider{
		config:    config,
		embedder:  embedder,
		describer: describer,
		extractor: extractor,
	}, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) Describer() ai.Describer {
	return p.describer
}

func (p *Provider) Vision() ai.VisionDescriber {
	return p.describer
}

func (p *Provider) EntityExtractor() ai.EntityExtractor {
	return p.extractor
}

// Close releases provider resources. The HTTP clients hold no persistent
// connections that need explicit teardown, so this is a no-op kept for
// interface symmetry.
func (p *Provider) Close() error {
	return nil
}
