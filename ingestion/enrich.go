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
	"fmt"

	"github.com/poiesic/omnidoc/core"
)

// embedTextFragments generates embeddings for text fragments in one
// batch call and assigns them to the fragments in place.
func (p *Pipeline) embedTextFragments(ctx context.Context, fragments []*core.Fragment) error {
	if len(fragments) == 0 {
		return nil
	}

	texts := make([]string, len(fragments))
	for i, fragment := range fragments {
		texts[i] = fragment.Content
	}

	p.logger.Debug("generating embeddings for text fragments", "fragments", len(texts))
	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding text fragments: %w", err)
	}

	if len(embeddings) != len(fragments) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(fragments), len(embeddings))
	}

	for i := range embeddings {
		fragments[i].Vector = embeddings[i]
	}
	return nil
}

// processModal describes one modal fragment, embeds the description,
// and links the extracted entities, mutating the fragment in place.
func (p *Pipeline) processModal(ctx context.Context, fragment *core.Fragment) error {
	result, err := p.processors.Process(ctx, fragment)
	if err != nil {
		return err
	}

	fragment.Description = result.Description

	vector, err := p.embedder.EmbedText(ctx, result.Description)
	if err != nil {
		return fmt.Errorf("embedding description: %w", err)
	}
	fragment.Vector = vector

	refs := make([]core.EntityRef, 0, len(result.Entities))
	for _, extracted := range result.Entities {
		entityVector, err := p.embedder.EmbedText(ctx, extracted.Name)
		if err != nil {
			p.logger.Warn("entity embedding failed", "entity", extracted.Name, "err", err)
			entityVector = nil
		}

		entity, err := p.entities.GetOrCreateEntity(ctx, extracted.Name, extracted.Type, entityVector)
		if err != nil {
			p.logger.Warn("entity storage failed", "entity", extracted.Name, "err", err)
			continue
		}

		refs = append(refs, core.EntityRef{EntityId: entity.Id, Weight: extracted.Weight})
	}
	fragment.Entities = refs
	return nil
}
