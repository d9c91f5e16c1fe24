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


// Package docling implements the parser contract over the Docling CLI.
package docling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/poiesic/omnidoc/core"
	"github.com/poiesic/omnidoc/parser"
)

// Parser shells out to the docling CLI and reads its output files.
type Parser struct {
	logger *slog.Logger
}

var _ parser.Parser = (*Parser)(nil)

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// New creates a Docling parser.
func New(opts ...Option) *Parser {
	p := &Parser{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns "docling".
func (p *Parser) Name() string {
	return "docling"
}

// CheckInstallation verifies the docling CLI is on PATH and runs.
func (p *Parser) CheckInstallation(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "docling", "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: docling not found, install with: pip install docling", parser.ErrNotInstalled)
	}
	return nil
}

// Parse parses a single document. Docling handles office documents
// natively; the method string is accepted for interface parity but
// docling selects its own pipeline. Text and markdown files are read
// directly.
func (p *Parser) Parse(ctx context.Context, inputPath, outputDir, method string) (*parser.Output, error) {
	if parser.IsText(inputPath) {
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, err
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			return nil, parser.ErrEmptyOutput
		}
		return &parser.Output{
			Markdown: content,
			Fragments: []*core.Fragment{
				{Type: core.FragmentTypeText, Content: content, Order: 0},
			},
		}, nil
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	// Docling needs two passes, one per output format
	if err := p.run(ctx, inputPath, outputDir, "json"); err != nil {
		return nil, err
	}
	if err := p.run(ctx, inputPath, outputDir, "md"); err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return readOutputFiles(outputDir, stem)
}

// run invokes the docling CLI for one output format.
func (p *Parser) run(ctx context.Context, inputPath, outputDir, format string) error {
	cmd := exec.CommandContext(ctx, "docling",
		"--output", outputDir,
		"--to", format,
		inputPath,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	p.logger.Debug("running docling", "input", inputPath, "format", format)

	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && execErr.Err == exec.ErrNotFound {
			return fmt.Errorf("%w: docling not found, install with: pip install docling", parser.ErrNotInstalled)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: docling: %v: %s", parser.ErrParseFailed, err, stderr.String())
	}
	return nil
}

// readOutputFiles reads the markdown and JSON files docling wrote and
// converts the document structure into fragments.
func readOutputFiles(outputDir, stem string) (*parser.Output, error) {
	markdown := ""
	if data, err := os.ReadFile(filepath.Join(outputDir, stem+".md")); err == nil {
		markdown = string(data)
	}

	var fragments []*core.Fragment
	if data, err := os.ReadFile(filepath.Join(outputDir, stem+".json")); err == nil {
		var err error
		fragments, err = convertDocument(data, outputDir)
		if err != nil {
			return nil, err
		}
	}

	if markdown == "" && len(fragments) == 0 {
		return nil, parser.ErrEmptyOutput
	}

	return &parser.Output{
		Markdown:  markdown,
		Fragments: fragments,
	}, nil
}
