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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/poiesic/omnidoc"
)

// ErrInvalidWorkspace rejects workspace names that could escape the
// data root.
var ErrInvalidWorkspace = errors.New("invalid workspace name")

var workspaceNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// workspace is one cached engine with its on-disk location. Engines
// are reference counted: the LRU's expiry reaper runs on its own
// goroutine, so eviction must not close an engine a request is still
// using. Eviction marks the entry instead, and the last release
// performs the close.
type workspace struct {
	engine *omnidoc.Engine
	dir    string

	mu      sync.Mutex
	refs    int
	evicted bool
}

// acquire pins the engine against eviction. Reports false when the
// entry has already been evicted; callers then open a fresh engine.
func (w *workspace) acquire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.evicted {
		return false
	}
	w.refs++
	return true
}

// release undoes acquire. The last user of an evicted entry closes it.
func (w *workspace) release(logger *slog.Logger, key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.refs--
	if w.evicted && w.refs == 0 {
		w.closeEngine(logger, key)
	}
}

// evict marks the entry dead. Closes immediately when idle, otherwise
// the close is deferred to the last release.
func (w *workspace) evict(logger *slog.Logger, key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.evicted {
		return
	}
	w.evicted = true
	if w.refs == 0 {
		w.closeEngine(logger, key)
	}
}

// closeEngine must be called with w.mu held.
func (w *workspace) closeEngine(logger *slog.Logger, key string) {
	if err := w.engine.Close(); err != nil {
		logger.Error("error closing workspace engine", "workspace", key, "err", err)
	} else {
		logger.Debug("workspace engine closed", "workspace", key)
	}
}

// WorkspaceManager opens one engine per (workspace, parser) pair and
// caches them in an expirable LRU. Writes to one workspace serialize
// through a per-workspace lock; engine lifetime is governed by the
// reference counting on workspace entries.
type WorkspaceManager struct {
	dataRoot      string
	defaultParser string
	engineOpts    []omnidoc.EngineOption
	cache         *expirable.LRU[string, *workspace]
	logger        *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWorkspaceManager creates a manager rooted at dataRoot.
func NewWorkspaceManager(cfg *Config, logger *slog.Logger) *WorkspaceManager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &WorkspaceManager{
		dataRoot:      cfg.DataRoot,
		defaultParser: cfg.ParserName,
		engineOpts:    cfg.EngineOptions,
		logger:        logger,
		locks:         make(map[string]*sync.Mutex),
	}

	onEvict := func(key string, ws *workspace) {
		ws.evict(logger, key)
	}
	m.cache = expirable.NewLRU[string, *workspace](cfg.CacheSize, onEvict, cfg.CacheTTL)

	return m
}

// Lock returns the mutex serializing one workspace's operations.
func (m *WorkspaceManager) Lock(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[name] = lock
	}
	return lock
}

// key builds the cache key for a workspace and parser pair.
func (m *WorkspaceManager) key(name, parserName string) string {
	return name + "/" + parserName
}

// resolveParser picks the effective parser name for a request.
func (m *WorkspaceManager) resolveParser(parserName string) string {
	if parserName == "" {
		return m.defaultParser
	}
	return parserName
}

// Dir returns a workspace's on-disk directory.
func (m *WorkspaceManager) Dir(name string) (string, error) {
	if !workspaceNameRe.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidWorkspace, name)
	}
	return filepath.Join(m.dataRoot, name), nil
}

// Acquire returns the cached engine for a workspace, opening it on
// first use, pinned against eviction until the returned release func
// is called. Callers must hold the workspace lock and must call
// release when done with the engine.
func (m *WorkspaceManager) Acquire(name, parserName string) (*omnidoc.Engine, func(), error) {
	dir, err := m.Dir(name)
	if err != nil {
		return nil, nil, err
	}
	parserName = m.resolveParser(parserName)
	cacheKey := m.key(name, parserName)

	if ws, ok := m.cache.Get(cacheKey); ok && ws.acquire() {
		return ws.engine, func() { ws.release(m.logger, cacheKey) }, nil
	}

	dbPath := filepath.Join(dir, "index", parserNameOrDefault(parserName))
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, nil, err
	}

	opts := append([]omnidoc.EngineOption{
		omnidoc.WithParserName(parserName),
		omnidoc.WithLogger(m.logger.With("workspace", name)),
	}, m.engineOpts...)

	engine, err := omnidoc.NewEngine(dbPath, opts...)
	if err != nil {
		return nil, nil, err
	}

	ws := &workspace{engine: engine, dir: dir}
	ws.acquire()
	m.cache.Add(cacheKey, ws)
	m.logger.Info("workspace engine opened", "workspace", name, "parser", parserNameOrDefault(parserName))
	return ws.engine, func() { ws.release(m.logger, cacheKey) }, nil
}

// UploadDir returns (and creates) the workspace's upload directory.
func (m *WorkspaceManager) UploadDir(name string) (string, error) {
	dir, err := m.Dir(name)
	if err != nil {
		return "", err
	}
	uploadDir := filepath.Join(dir, "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", err
	}
	return uploadDir, nil
}

// OutputDir returns (and creates) the workspace's parser output directory.
func (m *WorkspaceManager) OutputDir(name string) (string, error) {
	dir, err := m.Dir(name)
	if err != nil {
		return "", err
	}
	outputDir := filepath.Join(dir, "output")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	return outputDir, nil
}

// Drop evicts all cached engines for a workspace and deletes its data
// directory. Callers must hold the workspace lock.
func (m *WorkspaceManager) Drop(name string) error {
	dir, err := m.Dir(name)
	if err != nil {
		return err
	}

	for _, cacheKey := range m.cache.Keys() {
		if ws, ok := m.cache.Peek(cacheKey); ok && ws.dir == dir {
			m.cache.Remove(cacheKey) // close happens through the evict hook
		}
	}

	return os.RemoveAll(dir)
}

// Close evicts every cached engine.
func (m *WorkspaceManager) Close() {
	m.cache.Purge()
}

func parserNameOrDefault(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
