package search

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/omnidoc/ai"
	"github.com/poiesic/omnidoc/ai/mock"
	"github.com/poiesic/omnidoc/core"
	"github.com/poiesic/omnidoc/storage/badger"
)

// unit returns a 4-dimensional one-hot vector. Tests control similarity
// directly with these instead of relying on hash-derived embeddings.
func unit(axis int) []float32 {
	v := make([]float32, 4)
	v[axis] = 1
	return v
}

type searchFixture struct {
	searcher  *Searcher
	repos     *badger.Repositories
	embedder  *mock.MockEmbedder
	describer *mock.MockDescriber
	extractor *mock.MockEntityExtractor
}

// newFixture seeds three fragments against one entity:
//
//	f1 "first passage"  vector unit(0), no entity link
//	f2 "second passage" vector unit(1), linked to entity "alpha"
//	f3 "third passage"  vector unit(0), linked to entity "alpha"
//
// The entity's own vector is unit(0). Queries for "alpha" embed to
// unit(0), so semantic retrieval sees f1 and f3, and entity retrieval
// sees f2 and f3.
func newFixture(t *testing.T) *searchFixture {
	t.Helper()

	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "alpha") {
			return unit(0), nil
		}
		return unit(3), nil
	}

	describer := mock.NewMockDescriber()
	extractor := mock.NewMockEntityExtractor()
	provider := mock.NewMockProviderWithServices(embedder, describer, extractor)

	searcher, err := NewSearcher(repos.Fragments, repos.Entities, provider)
	require.NoError(t, err)

	ctx := context.Background()
	entity, err := repos.Entities.GetOrCreateEntity(ctx, "alpha", "concept", unit(0))
	require.NoError(t, err)

	ref := core.EntityRef{EntityId: entity.Id, Weight: 5}
	_, err = repos.Fragments.AddFragments(ctx,
		&core.Fragment{Type: core.FragmentTypeText, Content: "first passage", Vector: unit(0), Order: 0},
		&core.Fragment{Type: core.FragmentTypeText, Content: "second passage", Vector: unit(1), Order: 1, Entities: []core.EntityRef{ref}},
		&core.Fragment{Type: core.FragmentTypeText, Content: "third passage", Vector: unit(0), Order: 2, Entities: []core.EntityRef{ref}},
	)
	require.NoError(t, err)

	return &searchFixture{
		searcher:  searcher,
		repos:     repos,
		embedder:  embedder,
		describer: describer,
		extractor: extractor,
	}
}

func contents(results []*core.SearchResult) []string {
	out := make([]string, len(results))
	for i, result := range results {
		out[i] = result.Fragment.Content
	}
	return out
}

func TestParseMode(t *testing.T) {
	for _, name := range []string{"naive", "local", "global", "hybrid", "bypass"} {
		mode, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, Mode(name), mode)
	}

	_, err := ParseMode("telepathic")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestNewSearcherValidation(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	provider := mock.NewMockProvider()

	_, err = NewSearcher(nil, repos.Entities, provider)
	assert.ErrorIs(t, err, ErrFragmentRepositoryRequired)

	_, err = NewSearcher(repos.Fragments, nil, provider)
	assert.ErrorIs(t, err, ErrEntityRepositoryRequired)

	_, err = NewSearcher(repos.Fragments, repos.Entities, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}

func TestQueryNaive(t *testing.T) {
	f := newFixture(t)

	results, err := f.searcher.Query(context.Background(), "alpha", ModeNaive, 10)
	require.NoError(t, err)

	// Only the unit(0) fragments clear the similarity floor
	assert.ElementsMatch(t, []string{"first passage", "third passage"}, contents(results))
	for _, result := range results {
		assert.InDelta(t, 1.0, result.Score, 0.0001)
	}
}

func TestQueryLocal(t *testing.T) {
	f := newFixture(t)

	results, err := f.searcher.Query(context.Background(), "alpha", ModeLocal, 10)
	require.NoError(t, err)

	// Entity-linked fragments only, at the flat entity score
	assert.ElementsMatch(t, []string{"second passage", "third passage"}, contents(results))
	for _, result := range results {
		assert.InDelta(t, 1.2, result.Score, 0.0001)
	}
}

func TestQueryLocalUnknownEntity(t *testing.T) {
	f := newFixture(t)

	// Extracts to an entity that was never stored
	results, err := f.searcher.Query(context.Background(), "zeta", ModeLocal, 10)
	require.NoError(t, err)

	assert.Empty(t, results)
}

func TestQueryGlobal(t *testing.T) {
	f := newFixture(t)

	// Global mode never calls the extractor; the entity is found by
	// vector proximity alone.
	f.extractor.ExtractEntitiesFunc = func(_ context.Context, _ string) ([]ai.ExtractedEntity, error) {
		t.Fatal("global mode must not extract entities from the query")
		return nil, nil
	}

	results, err := f.searcher.Query(context.Background(), "alpha", ModeGlobal, 10)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"second passage", "third passage"}, contents(results))
}

func TestQueryHybridFusion(t *testing.T) {
	f := newFixture(t)

	results, err := f.searcher.Query(context.Background(), "alpha", ModeHybrid, 10)
	require.NoError(t, err)

	// f3 in both sets (1.5), f2 entity-only (1.2), f1 semantic-only (1.0)
	require.Equal(t, []string{"third passage", "second passage", "first passage"}, contents(results))
	assert.InDelta(t, 1.5, results[0].Score, 0.0001)
	assert.InDelta(t, 1.2, results[1].Score, 0.0001)
	assert.InDelta(t, 1.0, results[2].Score, 0.0001)
}

func TestQueryVerbatimBoost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.repos.Fragments.AddFragments(ctx, &core.Fragment{
		Type:    core.FragmentTypeText,
		Content: "alpha appears verbatim here",
		Vector:  unit(0),
		Order:   3,
	})
	require.NoError(t, err)

	results, err := f.searcher.Query(ctx, "alpha", ModeNaive, 10)
	require.NoError(t, err)

	require.NotEmpty(t, results)
	assert.Equal(t, "alpha appears verbatim here", results[0].Fragment.Content)
	assert.InDelta(t, 1.3, results[0].Score, 0.0001)
}

func TestQueryMaxHits(t *testing.T) {
	f := newFixture(t)

	results, err := f.searcher.Query(context.Background(), "alpha", ModeHybrid, 2)
	require.NoError(t, err)

	assert.Len(t, results, 2)
	assert.Equal(t, []string{"third passage", "second passage"}, contents(results))
}

func TestQueryBypass(t *testing.T) {
	f := newFixture(t)

	results, err := f.searcher.Query(context.Background(), "alpha", ModeBypass, 10)
	require.NoError(t, err)

	assert.Empty(t, results)
	assert.Equal(t, 0, f.embedder.CallCount())
}

func TestQueryExtractorErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.extractor.ExtractEntitiesFunc = func(_ context.Context, _ string) ([]ai.ExtractedEntity, error) {
		return nil, errors.New("extractor down")
	}

	_, err := f.searcher.Query(context.Background(), "alpha", ModeLocal, 10)

	assert.ErrorContains(t, err, "extractor down")
}

func TestAnswerIncludesRetrievedContext(t *testing.T) {
	f := newFixture(t)

	var gotPrompt string
	f.describer.DescribeFunc = func(_ context.Context, prompt, systemPrompt string) (string, error) {
		gotPrompt = prompt
		assert.NotEmpty(t, systemPrompt)
		return "grounded answer", nil
	}

	answer, results, err := f.searcher.Answer(context.Background(), "alpha", ModeNaive, 10)
	require.NoError(t, err)

	assert.Equal(t, "grounded answer", answer)
	assert.NotEmpty(t, results)
	assert.Contains(t, gotPrompt, "[Passage 1, text]")
	assert.Contains(t, gotPrompt, "Question: alpha")
}

func TestAnswerBypassSendsBareQuery(t *testing.T) {
	f := newFixture(t)

	var gotPrompt string
	f.describer.DescribeFunc = func(_ context.Context, prompt, _ string) (string, error) {
		gotPrompt = prompt
		return "direct answer", nil
	}

	answer, results, err := f.searcher.Answer(context.Background(), "alpha", ModeBypass, 10)
	require.NoError(t, err)

	assert.Equal(t, "direct answer", answer)
	assert.Empty(t, results)
	assert.Equal(t, "alpha", gotPrompt)
}

func TestEnhanceQueryAppendsDescriptions(t *testing.T) {
	f := newFixture(t)

	f.describer.DescribeFunc = func(_ context.Context, _, _ string) (string, error) {
		return "a revenue table", nil
	}

	enhanced, err := f.searcher.EnhanceQuery(context.Background(), "what changed", []*core.Fragment{
		{Type: core.FragmentTypeTable, Content: "| revenue | 10 |"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(enhanced, "what changed"))
	assert.Contains(t, enhanced, "Attached table: a revenue table")
}

func TestEnhanceQuerySkipsFailedAttachments(t *testing.T) {
	f := newFixture(t)

	// An empty table has nothing to describe
	enhanced, err := f.searcher.EnhanceQuery(context.Background(), "what changed", []*core.Fragment{
		{Type: core.FragmentTypeTable},
	})
	require.NoError(t, err)

	assert.Equal(t, "what changed", enhanced)
}

func TestEnhanceQueryNoAttachments(t *testing.T) {
	f := newFixture(t)

	enhanced, err := f.searcher.EnhanceQuery(context.Background(), "plain query", nil)
	require.NoError(t, err)

	assert.Equal(t, "plain query", enhanced)
}

// stageMonitor records which monitor stages fired.
type stageMonitor struct {
	stages []string
}

var _ SearchMonitor = (*stageMonitor)(nil)

func (m *stageMonitor) mark(stage string) { m.stages = append(m.stages, stage) }

func (m *stageMonitor) Start(_ string, _ Mode)                       { m.mark("start") }
func (m *stageMonitor) AfterSemanticSearch(_ []uint64)               { m.mark("semantic") }
func (m *stageMonitor) AfterQueryEntityExtraction(_ []*core.Entity)  { m.mark("extraction") }
func (m *stageMonitor) FoundRelatedEntity(_ string, _ uint64)        { m.mark("related") }
func (m *stageMonitor) AfterEntityAnchoredSearch(_ iter.Seq[uint64]) { m.mark("anchored") }
func (m *stageMonitor) AfterFragmentRetrieval(_ []*core.Fragment)    { m.mark("retrieval") }
func (m *stageMonitor) SemanticAndEntityHit(_ *core.Fragment)        { m.mark("hit-both") }
func (m *stageMonitor) SemanticHit(_ *core.Fragment)                 { m.mark("hit-semantic") }
func (m *stageMonitor) EntityHit(_ *core.Fragment)                   { m.mark("hit-entity") }
func (m *stageMonitor) Finish(_ []*core.SearchResult)                { m.mark("finish") }

func TestQueryMonitorStages(t *testing.T) {
	f := newFixture(t)
	monitor := &stageMonitor{}

	_, err := f.searcher.QueryWithMonitor(context.Background(), "alpha", ModeHybrid, 10, monitor)
	require.NoError(t, err)

	assert.Equal(t, "start", monitor.stages[0])
	assert.Equal(t, "finish", monitor.stages[len(monitor.stages)-1])
	assert.Contains(t, monitor.stages, "semantic")
	assert.Contains(t, monitor.stages, "anchored")
	assert.Contains(t, monitor.stages, "retrieval")
	assert.Contains(t, monitor.stages, "hit-both")
	assert.Contains(t, monitor.stages, "hit-semantic")
	assert.Contains(t, monitor.stages, "hit-entity")
}
