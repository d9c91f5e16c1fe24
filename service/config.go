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
	"time"

	"github.com/poiesic/omnidoc"
)

// Config holds the HTTP service settings.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// DataRoot is the directory holding per-workspace indexes and
	// uploads.
	DataRoot string

	// Token guards all workspace endpoints. Empty disables auth.
	Token string

	// ParserName is the default document parser for workspaces that do
	// not select one. Empty means the engine default.
	ParserName string

	// CacheSize bounds how many workspace engines stay open at once.
	CacheSize int

	// CacheTTL evicts idle workspace engines. Zero means no TTL.
	CacheTTL time.Duration

	// EngineOptions is appended to every workspace engine's options.
	// Tests use it to inject mock providers and parsers.
	EngineOptions []omnidoc.EngineOption
}

// Config validation errors.
var (
	ErrDataRootRequired = errors.New("data root directory required")
	ErrAddrRequired     = errors.New("listen address required")
)

const (
	defaultCacheSize = 16
	defaultCacheTTL  = 30 * time.Minute
)

// Validate checks the config and fills defaults.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrAddrRequired
	}
	if c.DataRoot == "" {
		return ErrDataRootRequired
	}
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheSize
	}
	if c.CacheTTL < 0 {
		c.CacheTTL = 0
	}
	return nil
}
