package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// FragmentType identifies the modality of a parsed document fragment.
type FragmentType int

const (
	// FragmentTypeText represents a plain text block.
	FragmentTypeText FragmentType = iota + 1
	// FragmentTypeImage represents an extracted image.
	FragmentTypeImage
	// FragmentTypeTable represents an extracted table.
	FragmentTypeTable
	// FragmentTypeEquation represents an extracted equation.
	FragmentTypeEquation
	// FragmentTypeGeneric represents any other content block.
	FragmentTypeGeneric
)

// String returns the lowercase name of the fragment type.
func (t FragmentType) String() string {
	switch t {
	case FragmentTypeText:
		return "text"
	case FragmentTypeImage:
		return "image"
	case FragmentTypeTable:
		return "table"
	case FragmentTypeEquation:
		return "equation"
	case FragmentTypeGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// FragmentTypeFromString maps a parser content-block type name to a FragmentType.
// Unrecognized names map to FragmentTypeGeneric.
func FragmentTypeFromString(s string) FragmentType {
	switch s {
	case "text":
		return FragmentTypeText
	case "image":
		return FragmentTypeImage
	case "table":
		return FragmentTypeTable
	case "equation":
		return FragmentTypeEquation
	default:
		return FragmentTypeGeneric
	}
}

// Document represents one ingested source file.
type Document struct {
	Id            ID
	Path          string // original input path
	ParseMethod   string // method passed to the parser (auto, ocr, txt)
	FragmentCount int
	InsertedAt    time.Time
	UpdatedAt     time.Time
}

// Fragment represents one parsed unit of a document: a text block, image,
// table, or equation. Modal fragments are enriched with an LLM-generated
// description and embedding during ingestion.
type Fragment struct {
	Id        ID
	DocId     ID
	Type      FragmentType
	Content   string // text body, table body, or LaTeX source
	ImagePath string // populated for image fragments
	Captions  []string
	Footnotes []string
	PageIndex int
	Order     int // position within the source document

	Description string      // LLM description (populated by modal processors)
	Vector      []float32   // embedding for semantic search (populated by processors)
	Entities    []EntityRef // entities linked to this fragment (populated by processors)

	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Text returns the best available textual representation of the fragment.
// For modal fragments this prefers the LLM description over the raw content.
func (f *Fragment) Text() string {
	if f.Type != FragmentTypeText && f.Description != "" {
		return f.Description
	}
	return f.Content
}

// Entity represents a knowledge-graph node extracted from document fragments.
type Entity struct {
	Id          ID
	Name        string
	Type        string
	Description string
	Vector      []float32 // embedding for the entity (populated by processors)
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// Tuple returns a string representation of the entity as "(Type,Name)".
// This is used for generating deterministic IDs.
func (e *Entity) Tuple() string {
	return "(" + e.Type + "," + e.Name + ")"
}

// EntityRef represents a reference to an entity with a relevance weight.
type EntityRef struct {
	EntityId ID
	Weight   int // relevance weight from 1-10
}

// SearchResult represents a search result with the full fragment and relevance score.
type SearchResult struct {
	Fragment *Fragment
	Score    float32
}
