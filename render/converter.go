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

package render

import (
	"context"
	"fmt"
	"log/slog"
)

// Converter tries a chain of backends in order until one renders the
// document. An unavailable backend is skipped; a failing one is logged
// and the next is tried. It errors only when every backend failed.
type Converter struct {
	backends []Backend
	logger   *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewConverter creates a converter over backends in fallback order.
func NewConverter(backends []Backend, opts ...Option) (*Converter, error) {
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}

	c := &Converter{
		backends: backends,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Convert renders inputPath to a PDF at outputPath through the first
// backend that succeeds.
func (c *Converter) Convert(ctx context.Context, inputPath, outputPath string) error {
	var lastErr error
	for _, backend := range c.backends {
		if err := backend.Available(ctx); err != nil {
			c.logger.Debug("render backend unavailable", "backend", backend.Name(), "reason", err)
			lastErr = err
			continue
		}

		if err := backend.Convert(ctx, inputPath, outputPath); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("render backend failed, trying next",
				"backend", backend.Name(), "input", inputPath, "err", err)
			lastErr = err
			continue
		}

		c.logger.Debug("document rendered", "backend", backend.Name(), "output", outputPath)
		return nil
	}

	return fmt.Errorf("%w: %v", ErrAllBackendsFailed, lastErr)
}

// Backends reports each backend's availability in chain order.
func (c *Converter) Backends(ctx context.Context) []BackendInfo {
	infos := make([]BackendInfo, 0, len(c.backends))
	for _, backend := range c.backends {
		info := BackendInfo{Name: backend.Name(), Available: true}
		if err := backend.Available(ctx); err != nil {
			info.Available = false
			info.Reason = err.Error()
		}
		infos = append(infos, info)
	}
	return infos
}
