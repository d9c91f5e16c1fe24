package parser

import (
	"context"

	"github.com/poiesic/omnidoc/core"
)

// Output is the result of parsing a single document.
type Output struct {
	// Markdown holds the full document rendered as markdown.
	Markdown string

	// Fragments holds the parsed content blocks in source order.
	// DocId is not set; the caller assigns it during ingestion.
	Fragments []*core.Fragment
}

// Parser converts a single source document into markdown and fragments.
// Implementations shell out to an external parsing tool and read its
// output files from outputDir.
type Parser interface {
	// Name returns the parser's registry name.
	Name() string

	// Parse parses the file at inputPath, writing intermediate artifacts
	// under outputDir. The method string selects the parse mode (auto,
	// ocr, txt) and is passed through to the underlying tool.
	Parse(ctx context.Context, inputPath, outputDir, method string) (*Output, error)

	// CheckInstallation verifies that the underlying tool is available.
	CheckInstallation(ctx context.Context) error
}
