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

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/omnidoc"
	"github.com/poiesic/omnidoc/ai/mock"
	"github.com/poiesic/omnidoc/core"
	"github.com/poiesic/omnidoc/parser"
)

// stubParser fabricates one text fragment per input file.
type stubParser struct{}

var _ parser.Parser = (*stubParser)(nil)

func (s *stubParser) Name() string { return "stub" }

func (s *stubParser) CheckInstallation(_ context.Context) error { return nil }

func (s *stubParser) Parse(_ context.Context, inputPath, _, _ string) (*parser.Output, error) {
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

func newTestServer(t *testing.T, token string) (*Server, string) {
	t.Helper()

	dataRoot := t.TempDir()
	config := &Config{
		Addr:     ":0",
		DataRoot: dataRoot,
		Token:    token,
		EngineOptions: []omnidoc.EngineOption{
			omnidoc.WithInMemoryStorage(),
			omnidoc.WithProvider(alphaProvider()),
			omnidoc.WithParser(&stubParser{}),
		},
	}

	server, err := NewServer(config, nil)
	require.NoError(t, err)
	t.Cleanup(server.Close)

	return server, dataRoot
}

func doJSON(t *testing.T, server *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func ingestFile(t *testing.T, server *Server, workspace, fileName string) documentResponse {
	t.Helper()

	inputPath := filepath.Join(t.TempDir(), fileName)
	require.NoError(t, os.WriteFile(inputPath, []byte("raw"), 0644))

	rec := doJSON(t, server, http.MethodPost, "/workspaces/"+workspace+"/ingest",
		ingestRequest{Path: inputPath}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return decode[documentResponse](t, rec)
}

func TestNewServerValidatesConfig(t *testing.T) {
	_, err := NewServer(&Config{Addr: ":0"}, nil)
	assert.ErrorIs(t, err, ErrDataRootRequired)

	_, err = NewServer(&Config{DataRoot: t.TempDir()}, nil)
	assert.ErrorIs(t, err, ErrAddrRequired)
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t, "")

	rec := doJSON(t, server, http.MethodGet, "/healthz", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthRequired(t *testing.T) {
	server, _ := newTestServer(t, "secret")

	rec := doJSON(t, server, http.MethodGet, "/workspaces/ws/stats", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/workspaces/ws/stats", nil,
		map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/workspaces/ws/stats", nil,
		map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/workspaces/ws/stats", nil,
		map[string]string{"X-Token": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthDisabledWithoutToken(t *testing.T) {
	server, _ := newTestServer(t, "")

	rec := doJSON(t, server, http.MethodGet, "/workspaces/ws/stats", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthzSkipsAuth(t *testing.T) {
	server, _ := newTestServer(t, "secret")

	rec := doJSON(t, server, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIngestServerPath(t *testing.T) {
	server, _ := newTestServer(t, "")

	doc := ingestFile(t, server, "ws", "report.pdf")

	assert.NotZero(t, doc.Id)
	assert.Equal(t, 1, doc.FragmentCount)
	assert.True(t, strings.HasSuffix(doc.Path, "report.pdf"))
}

func TestIngestMultipartUpload(t *testing.T) {
	server, dataRoot := newTestServer(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.md")
	require.NoError(t, err)
	_, err = part.Write([]byte("alpha notes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/workspaces/ws/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := decode[documentResponse](t, rec)
	assert.Equal(t, 1, doc.FragmentCount)

	saved := filepath.Join(dataRoot, "ws", "uploads", "notes.md")
	content, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "alpha notes", string(content))
}

func TestIngestWithoutPath(t *testing.T) {
	server, _ := newTestServer(t, "")

	rec := doJSON(t, server, http.MethodPost, "/workspaces/ws/ingest",
		ingestRequest{}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidWorkspaceName(t *testing.T) {
	server, _ := newTestServer(t, "")

	rec := doJSON(t, server, http.MethodGet, "/workspaces/bad.name/stats", nil, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Contains(t, resp.Error, "invalid workspace name")
}

func TestQueryFindsIngestedContent(t *testing.T) {
	server, _ := newTestServer(t, "")
	ingestFile(t, server, "ws", "report.pdf")

	rec := doJSON(t, server, http.MethodPost, "/workspaces/ws/query",
		queryRequest{Query: "alpha", Mode: "naive"}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[queryResponse](t, rec)
	require.NotEmpty(t, resp.Results)
	assert.Contains(t, resp.Results[0].Text, "alpha content")
	assert.Empty(t, resp.Answer)
}

func TestQueryDefaultsToHybrid(t *testing.T) {
	server, _ := newTestServer(t, "")
	ingestFile(t, server, "ws", "report.pdf")

	rec := doJSON(t, server, http.MethodPost, "/workspaces/ws/query",
		queryRequest{Query: "alpha"}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[queryResponse](t, rec)
	assert.NotEmpty(t, resp.Results)
}

func TestQueryRejectsEmptyQuery(t *testing.T) {
	server, _ := newTestServer(t, "")

	rec := doJSON(t, server, http.MethodPost, "/workspaces/ws/query",
		queryRequest{Mode: "naive"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryRejectsUnknownMode(t *testing.T) {
	server, _ := newTestServer(t, "")

	rec := doJSON(t, server, http.MethodPost, "/workspaces/ws/query",
		queryRequest{Query: "alpha", Mode: "psychic"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryWithAnswer(t *testing.T) {
	server, _ := newTestServer(t, "")
	ingestFile(t, server, "ws", "report.pdf")

	rec := doJSON(t, server, http.MethodPost, "/workspaces/ws/query",
		queryRequest{Query: "alpha", Mode: "naive", Answer: true}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[queryResponse](t, rec)
	assert.NotEmpty(t, resp.Answer)
	assert.NotEmpty(t, resp.Results)
}

func TestStats(t *testing.T) {
	server, _ := newTestServer(t, "")
	ingestFile(t, server, "ws", "a.pdf")
	ingestFile(t, server, "ws", "b.pdf")

	rec := doJSON(t, server, http.MethodGet, "/workspaces/ws/stats", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[statsResponse](t, rec)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 2, stats.Fragments)
}

func TestResetEmptiesWorkspace(t *testing.T) {
	server, _ := newTestServer(t, "")
	ingestFile(t, server, "ws", "report.pdf")

	rec := doJSON(t, server, http.MethodPost, "/workspaces/ws/reset", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/workspaces/ws/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[statsResponse](t, rec)
	assert.Zero(t, stats.Documents)
}

func TestDeleteWorkspace(t *testing.T) {
	server, dataRoot := newTestServer(t, "")
	ingestFile(t, server, "ws", "report.pdf")

	rec := doJSON(t, server, http.MethodDelete, "/workspaces/ws/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := os.Stat(filepath.Join(dataRoot, "ws"))
	assert.True(t, os.IsNotExist(err))
}

func TestCacheEvictionClosesIdleEngines(t *testing.T) {
	dataRoot := t.TempDir()
	config := &Config{
		Addr:      ":0",
		DataRoot:  dataRoot,
		CacheSize: 1,
		EngineOptions: []omnidoc.EngineOption{
			omnidoc.WithInMemoryStorage(),
			omnidoc.WithProvider(alphaProvider()),
			omnidoc.WithParser(&stubParser{}),
		},
	}
	server, err := NewServer(config, nil)
	require.NoError(t, err)
	t.Cleanup(server.Close)

	ingestFile(t, server, "one", "report.pdf")
	ingestFile(t, server, "two", "report.pdf") // evicts workspace one

	// The in-memory index died with its engine, so a fresh engine for
	// workspace one starts empty.
	rec := doJSON(t, server, http.MethodGet, "/workspaces/one/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[statsResponse](t, rec)
	assert.Zero(t, stats.Documents)
}

func newTestManager(t *testing.T, ttl time.Duration) *WorkspaceManager {
	t.Helper()

	config := &Config{
		Addr:     ":0",
		DataRoot: t.TempDir(),
		CacheTTL: ttl,
		EngineOptions: []omnidoc.EngineOption{
			omnidoc.WithInMemoryStorage(),
			omnidoc.WithProvider(alphaProvider()),
			omnidoc.WithParser(&stubParser{}),
		},
	}
	require.NoError(t, config.Validate())

	manager := NewWorkspaceManager(config, nil)
	t.Cleanup(manager.Close)
	return manager
}

func TestExpiryLeavesCheckedOutEngineOpen(t *testing.T) {
	manager := newTestManager(t, 50*time.Millisecond)

	engine, release, err := manager.Acquire("ws", "")
	require.NoError(t, err)
	defer release()

	// Wait well past the TTL so the reaper has expired the cache entry,
	// then keep using the engine. The close must wait for release.
	time.Sleep(300 * time.Millisecond)

	stats, err := engine.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
}

func TestDropDefersCloseToLastUser(t *testing.T) {
	manager := newTestManager(t, 0)

	engine, release, err := manager.Acquire("ws", "")
	require.NoError(t, err)

	require.NoError(t, manager.Drop("ws"))

	// Still checked out, so the engine survives the eviction.
	_, err = engine.Stats(context.Background())
	require.NoError(t, err)
	release()

	// The next acquire opens a fresh engine.
	engine2, release2, err := manager.Acquire("ws", "")
	require.NoError(t, err)
	defer release2()
	assert.NotSame(t, engine, engine2)
}

func TestWorkspacesAreIsolated(t *testing.T) {
	server, _ := newTestServer(t, "")
	ingestFile(t, server, "one", "report.pdf")

	rec := doJSON(t, server, http.MethodGet, "/workspaces/two/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[statsResponse](t, rec)
	assert.Zero(t, stats.Documents)
}
