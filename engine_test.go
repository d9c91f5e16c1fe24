package omnidoc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/omnidoc/ai/mock"
	"github.com/poiesic/omnidoc/batch"
	"github.com/poiesic/omnidoc/core"
	"github.com/poiesic/omnidoc/parser"
	"github.com/poiesic/omnidoc/search"
)

// stubParser fabricates one text fragment per input file.
type stubParser struct {
	calls int
	fail  bool
}

var _ parser.Parser = (*stubParser)(nil)

func (s *stubParser) Name() string { return "stub" }

func (s *stubParser) CheckInstallation(_ context.Context) error { return nil }

func (s *stubParser) Parse(_ context.Context, inputPath, _, _ string) (*parser.Output, error) {
	s.calls++
	if s.fail {
		return nil, parser.ErrParseFailed
	}
	content := "alpha content of " + filepath.Base(inputPath)
	return &parser.Output{
		Markdown: content,
		Fragments: []*core.Fragment{
			{Type: core.FragmentTypeText, Content: content, Order: 0},
		},
	}, nil
}

func unit(axis int) []float32 {
	v := make([]float32, 4)
	v[axis] = 1
	return v
}

// alphaProvider embeds anything mentioning "alpha" to the same vector,
// so queries for "alpha" retrieve the stub parser's fragments.
func alphaProvider() *mock.MockProvider {
	embedder := mock.NewMockEmbedder()
	embed := func(text string) []float32 {
		if strings.Contains(text, "alpha") {
			return unit(0)
		}
		return unit(3)
	}
	embedder.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		return embed(text), nil
	}
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = embed(text)
		}
		return out, nil
	}

	return mock.NewMockProviderWithServices(
		embedder, mock.NewMockDescriber(), mock.NewMockEntityExtractor(),
	).(*mock.MockProvider)
}

func newTestEngine(t *testing.T) (*Engine, *stubParser) {
	t.Helper()

	stub := &stubParser{}
	engine, err := NewEngine("",
		WithInMemoryStorage(),
		WithProvider(alphaProvider()),
		WithParser(stub))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	return engine, stub
}

func TestNewEngineUnknownParser(t *testing.T) {
	_, err := NewEngine("", WithInMemoryStorage(), WithProvider(alphaProvider()),
		WithParserName("tesseract"))

	assert.ErrorIs(t, err, ErrUnknownParser)
}

func TestNewEngineParserNames(t *testing.T) {
	for _, name := range []string{"", "mineru", "docling"} {
		engine, err := NewEngine("", WithInMemoryStorage(), WithProvider(alphaProvider()),
			WithParserName(name))
		require.NoError(t, err, name)
		engine.Close()
	}
}

func TestProcessFileIngestsFragments(t *testing.T) {
	engine, stub := newTestEngine(t)
	ctx := context.Background()

	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "report.pdf")
	require.NoError(t, os.WriteFile(inputPath, []byte("raw"), 0644))

	doc, err := engine.ProcessFile(ctx, inputPath, filepath.Join(tmp, "out"), "auto")
	require.NoError(t, err)

	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, inputPath, doc.Path)
	assert.Equal(t, "auto", doc.ParseMethod)

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.Fragments)
}

func TestProcessFileDefaultsMethod(t *testing.T) {
	engine, _ := newTestEngine(t)

	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "report.pdf")
	require.NoError(t, os.WriteFile(inputPath, []byte("raw"), 0644))

	doc, err := engine.ProcessFile(context.Background(), inputPath, filepath.Join(tmp, "out"), "")
	require.NoError(t, err)

	assert.Equal(t, "auto", doc.ParseMethod)
}

func TestQueryFindsIngestedContent(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "notes.md")
	require.NoError(t, os.WriteFile(inputPath, []byte("raw"), 0644))

	_, err := engine.ProcessFile(ctx, inputPath, filepath.Join(tmp, "out"), "auto")
	require.NoError(t, err)

	results, err := engine.Query(ctx, "alpha", search.ModeNaive, 10)
	require.NoError(t, err)

	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Fragment.Content, "notes.md")
}

func TestProcessBatch(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	tmp := t.TempDir()
	var paths []string
	for _, name := range []string{"a.md", "b.pdf", "c.exe"} {
		path := filepath.Join(tmp, name)
		require.NoError(t, os.WriteFile(path, []byte("raw"), 0644))
		paths = append(paths, path)
	}

	result, err := engine.ProcessBatch(ctx, &batch.Request{
		Paths:     paths,
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Skipped)

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
}

func TestProcessBatchParseFailures(t *testing.T) {
	stub := &stubParser{fail: true}
	engine, err := NewEngine("", WithInMemoryStorage(), WithProvider(alphaProvider()),
		WithParser(stub))
	require.NoError(t, err)
	defer engine.Close()

	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "bad.pdf")
	require.NoError(t, os.WriteFile(inputPath, []byte("raw"), 0644))

	result, err := engine.ProcessBatch(context.Background(), &batch.Request{
		Paths:     []string{inputPath},
		OutputDir: filepath.Join(tmp, "out"),
		Workers:   1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Succeeded)
}

func TestQueryMultimodal(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "notes.md")
	require.NoError(t, os.WriteFile(inputPath, []byte("raw"), 0644))
	_, err := engine.ProcessFile(ctx, inputPath, filepath.Join(tmp, "out"), "auto")
	require.NoError(t, err)

	results, err := engine.QueryMultimodal(ctx, "alpha", []*core.Fragment{
		{Type: core.FragmentTypeTable, Content: "| a | b |"},
	}, search.ModeNaive, 10)
	require.NoError(t, err)

	assert.NotEmpty(t, results)
}

func TestDeleteDocument(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	tmp := t.TempDir()
	inputPath := filepath.Join(tmp, "doomed.pdf")
	require.NoError(t, os.WriteFile(inputPath, []byte("raw"), 0644))

	_, err := engine.ProcessFile(ctx, inputPath, filepath.Join(tmp, "out"), "auto")
	require.NoError(t, err)

	require.NoError(t, engine.DeleteDocument(ctx, inputPath))

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Documents)
	assert.Equal(t, 0, stats.Fragments)

	docs, err := engine.Documents(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
