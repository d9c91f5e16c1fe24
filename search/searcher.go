package search

import (
	"context"
	"log/slog"
	"maps"
	"sort"

	"github.com/poiesic/omnidoc/ai"
	"github.com/poiesic/omnidoc/core"
	"github.com/poiesic/omnidoc/modal"
	"github.com/poiesic/omnidoc/storage"
)

const (
	// minSimilarity is the cosine floor for vector retrieval.
	minSimilarity = 0.60
	// entityExpansionLimit caps how many similar entities global
	// retrieval pulls in.
	entityExpansionLimit = 10
)

// Searcher retrieves document fragments by fusing vector similarity
// with entity-graph matches, per the selected query mode.
type Searcher struct {
	fragments  storage.FragmentRepository
	entities   storage.EntityRepository
	embedder   ai.Embedder
	extractor  ai.EntityExtractor
	describer  ai.Describer
	processors *modal.ProcessorSet
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithProcessors replaces the modal processor set used for multimodal
// query enhancement.
func WithProcessors(processors *modal.ProcessorSet) Option {
	return func(s *Searcher) error {
		if processors != nil {
			s.processors = processors
		}
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	fragments storage.FragmentRepository,
	entities storage.EntityRepository,
	provider ai.Provider,
	opts ...Option,
) (*Searcher, error) {
	if fragments == nil {
		return nil, ErrFragmentRepositoryRequired
	}
	if entities == nil {
		return nil, ErrEntityRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		fragments:  fragments,
		entities:   entities,
		embedder:   provider.Embedder(),
		extractor:  provider.EntityExtractor(),
		describer:  provider.Describer(),
		processors: modal.NewProcessorSet(provider),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Query retrieves up to maxHits fragments for the query in the given
// mode, ranked by relevance score. Bypass mode performs no retrieval
// and returns an empty result set.
func (s *Searcher) Query(ctx context.Context, query string, mode Mode, maxHits int) ([]*core.SearchResult, error) {
	return s.QueryWithMonitor(ctx, query, mode, maxHits, nil)
}

// QueryWithMonitor is Query with per-stage monitoring callbacks.
func (s *Searcher) QueryWithMonitor(ctx context.Context, query string, mode Mode, maxHits int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query, mode)

	if mode == ModeBypass {
		monitor.Finish(nil)
		return []*core.SearchResult{}, nil
	}

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	// 1. Vector retrieval
	semanticSet := make(map[uint64]bool)
	semanticScores := make(map[uint64]float32)
	if mode.usesSemantic() {
		matches, err := s.fragments.FindSimilar(ctx, embedding, minSimilarity, maxHits)
		if err != nil {
			s.logger.Error("error querying for similar fragments", "err", err)
			return nil, err
		}

		semanticIds := make([]uint64, 0, len(matches))
		for _, match := range matches {
			semanticSet[uint64(match.Fragment.Id)] = true
			semanticScores[uint64(match.Fragment.Id)] = match.Score
			semanticIds = append(semanticIds, uint64(match.Fragment.Id))
		}
		monitor.AfterSemanticSearch(semanticIds)
	}

	// 2. Entity anchors
	anchors, err := s.collectEntities(ctx, query, embedding, mode, monitor)
	if err != nil {
		return nil, err
	}

	// 3. Fragments linked to the anchor entities
	entitySet := make(map[uint64]bool)
	for _, entity := range anchors {
		fragmentIds, err := s.fragments.GetFragmentsByEntity(ctx, entity.Id)
		if err != nil {
			s.logger.Warn("failed to get fragments for entity", "entityID", entity.Id, "err", err)
			continue
		}
		monitor.FoundRelatedEntity(entity.Tuple(), uint64(entity.Id))
		for _, fragmentId := range fragmentIds {
			entitySet[uint64(fragmentId)] = true
		}
	}
	monitor.AfterEntityAnchoredSearch(maps.Keys(entitySet))

	// 4. Combine and score
	allIds := make(map[uint64]bool)
	for id := range semanticSet {
		allIds[id] = true
	}
	for id := range entitySet {
		allIds[id] = true
	}

	if len(allIds) == 0 {
		monitor.Finish(nil)
		return []*core.SearchResult{}, nil
	}

	uniqueIds := make([]core.ID, 0, len(allIds))
	for id := range allIds {
		uniqueIds = append(uniqueIds, core.ID(id))
	}

	fragments, err := s.fragments.GetFragments(ctx, uniqueIds...)
	if err != nil {
		s.logger.Error("error retrieving fragments", "fragmentCount", len(uniqueIds), "err", err)
		return nil, err
	}
	monitor.AfterFragmentRetrieval(fragments)

	results := make([]*core.SearchResult, 0, len(fragments))
	for _, fragment := range fragments {
		if fragment == nil {
			continue
		}

		inSemantic := semanticSet[uint64(fragment.Id)]
		inEntity := entitySet[uint64(fragment.Id)]

		var score float32
		if inSemantic && inEntity {
			// In both: boost by 1.5x, weighted by similarity score
			score = 1.5 * semanticScores[uint64(fragment.Id)]
			monitor.SemanticAndEntityHit(fragment)
		} else if inEntity {
			score = 1.2
			monitor.EntityHit(fragment)
		} else {
			score = 1.0 * semanticScores[uint64(fragment.Id)]
			monitor.SemanticHit(fragment)
		}

		// Verbatim match boost
		if containsAllQueryWords(fragment.Text(), query) {
			score += 0.3
		}

		results = append(results, &core.SearchResult{
			Fragment: fragment,
			Score:    score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	return results, nil
}

// collectEntities gathers the entity anchors for a query per the mode:
// exact lookups of the entities the model extracts from the query text,
// and/or entities whose vectors sit near the query embedding.
func (s *Searcher) collectEntities(ctx context.Context, query string, embedding []float32, mode Mode, monitor SearchMonitor) ([]*core.Entity, error) {
	seen := make(map[core.ID]bool)
	var anchors []*core.Entity

	add := func(entity *core.Entity) {
		if entity == nil || seen[entity.Id] {
			return
		}
		seen[entity.Id] = true
		anchors = append(anchors, entity)
	}

	if mode.usesLocalEntities() {
		extracted, err := s.extractor.ExtractEntities(ctx, query)
		if err != nil {
			s.logger.Error("error extracting entities from query", "err", err)
			return nil, err
		}

		for _, candidate := range extracted {
			entity, err := s.entities.FindEntityByNameAndType(ctx, candidate.Name, candidate.Type)
			if err != nil {
				s.logger.Warn("error looking up entity", "name", candidate.Name, "type", candidate.Type, "err", err)
				continue
			}
			if entity == nil {
				s.logger.Debug("entity not found in index", "name", candidate.Name, "type", candidate.Type)
				continue
			}
			add(entity)
		}
		monitor.AfterQueryEntityExtraction(anchors)
	}

	if mode.usesGlobalEntities() {
		similar, err := s.entities.FindSimilarEntities(ctx, embedding, minSimilarity, entityExpansionLimit)
		if err != nil {
			s.logger.Error("error finding similar entities", "err", err)
			return nil, err
		}
		for _, entity := range similar {
			add(entity)
		}
	}

	return anchors, nil
}
