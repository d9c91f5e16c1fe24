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


// Package mineru implements the parser contract over the MinerU 2.0 CLI.
package mineru

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

// Parser shells out to the mineru CLI and reads its output files.
type Parser struct {
	backend string
	source  string
	lang    string
	logger  *slog.Logger
}

var _ parser.Parser = (*Parser)(nil)

// Option configures a Parser.
type Option func(*Parser)

// WithBackend sets the mineru parsing backend (default "pipeline").
func WithBackend(backend string) Option {
	return func(p *Parser) { p.backend = backend }
}

// WithSource sets the model source (default "huggingface").
func WithSource(source string) Option {
	return func(p *Parser) { p.source = source }
}

// WithLang sets the document language for OCR optimization.
func WithLang(lang string) Option {
	return func(p *Parser) { p.lang = lang }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// New creates a MinerU parser.
func New(opts ...Option) *Parser {
	p := &Parser{
		backend: "pipeline",
		source:  "huggingface",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns "mineru".
func (p *Parser) Name() string {
	return "mineru"
}

// CheckInstallation verifies the mineru CLI is on PATH and runs.
func (p *Parser) CheckInstallation(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "mineru", "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: mineru not found, install with: pip install -U 'mineru[core]'", parser.ErrNotInstalled)
	}
	return nil
}

// Parse parses a single document. Office files are converted to PDF with
// LibreOffice first; text and markdown files are read directly.
func (p *Parser) Parse(ctx context.Context, inputPath, outputDir, method string) (*parser.Output, error) {
	if parser.IsText(inputPath) {
		return parseTextFile(inputPath)
	}

	toolInput := inputPath
	if parser.IsOffice(inputPath) {
		pdfPath, err := parser.ConvertOfficeToPDF(ctx, inputPath, outputDir)
		if err != nil {
			return nil, err
		}
		toolInput = pdfPath
	}

	// mineru processes images with the OCR method
	toolMethod := method
	if parser.IsImage(toolInput) {
		toolMethod = "ocr"
	}

	if err := p.run(ctx, toolInput, outputDir, toolMethod); err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(toolInput), filepath.Ext(toolInput))
	return readOutputFiles(outputDir, stem, toolMethod)
}

// run invokes the mineru CLI.
func (p *Parser) run(ctx context.Context, inputPath, outputDir, method string) error {
	args := []string{
		"-p", inputPath,
		"-o", outputDir,
		"-m", method,
		"-b", p.backend,
		"--source", p.source,
	}
	if p.lang != "" {
		args = append(args, "-l", p.lang)
	}

	cmd := exec.CommandContext(ctx, "mineru", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	p.logger.Debug("running mineru", "input", inputPath, "method", method, "backend", p.backend)

	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && execErr.Err == exec.ErrNotFound {
			return fmt.Errorf("%w: mineru not found, install with: pip install -U 'mineru[core]'", parser.ErrNotInstalled)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: mineru: %v: %s", parser.ErrParseFailed, err, stderr.String())
	}
	return nil
}

// readOutputFiles reads the markdown and content list files mineru wrote.
// MinerU 2.0 may nest them under <stem>/<method>/.
func readOutputFiles(outputDir, stem, method string) (*parser.Output, error) {
	mdPath := filepath.Join(outputDir, stem+".md")
	jsonPath := filepath.Join(outputDir, stem+"_content_list.json")

	subdir := filepath.Join(outputDir, stem)
	if info, err := os.Stat(subdir); err == nil && info.IsDir() {
		mdPath = filepath.Join(subdir, method, stem+".md")
		jsonPath = filepath.Join(subdir, method, stem+"_content_list.json")
	}

	markdown := ""
	if data, err := os.ReadFile(mdPath); err == nil {
		markdown = string(data)
	}

	var fragments []*core.Fragment
	if data, err := os.ReadFile(jsonPath); err == nil {
		blocks, err := parser.DecodeContentList(data)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", jsonPath, err)
		}
		fragments = parser.BlocksToFragments(blocks)
	}

	if markdown == "" && len(fragments) == 0 {
		return nil, parser.ErrEmptyOutput
	}

	return &parser.Output{
		Markdown:  markdown,
		Fragments: fragments,
	}, nil
}

// parseTextFile reads a text or markdown file directly as one text fragment.
func parseTextFile(inputPath string) (*parser.Output, error) {
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
			{
				Type:    core.FragmentTypeText,
				Content: content,
				Order:   0,
			},
		},
	}, nil
}
