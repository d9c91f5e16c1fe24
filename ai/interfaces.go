package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Describer generates natural-language analyses of textual content.
// Implementations must be thread-safe for concurrent use.
type Describer interface {
	// Describe sends a prompt to the model, optionally preceded by a
	// system prompt (pass "" for none), and returns the model's response.
	Describe(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// VisionDescriber generates natural-language descriptions of images.
// Implementations must be thread-safe for concurrent use.
type VisionDescriber interface {
	// DescribeImage sends a prompt together with a base64-encoded image to a
	// vision-capable model and returns the model's description.
	DescribeImage(ctx context.Context, prompt, systemPrompt, imageBase64 string) (string, error)
}

// EntityExtractor extracts knowledge-graph entities from text.
// Implementations must be thread-safe for concurrent use.
type EntityExtractor interface {
	// ExtractEntities analyzes text and extracts the key entities with their
	// types and relevance weights. Entities are the graph nodes the retrieval
	// index links fragments to.
	// Returns an empty slice if no entities are found.
	// Returns an error if extraction fails.
	ExtractEntities(ctx context.Context, text string) ([]ExtractedEntity, error)
}

// ExtractedEntity represents an entity identified in text.
// Each entity has a name, a type (category), and a weight indicating its
// relevance to the text.
type ExtractedEntity struct {
	// Name is the entity identifier in lowercase, 1-3 words, singular form.
	// Example: "transformer architecture", "marie curie"
	Name string

	// Type categorizes the entity (e.g., "person", "technology", "metric").
	// Must match one of the predefined entity types.
	Type string

	// Weight is a score from 1-10 indicating how central this entity is to
	// the text. Higher scores = more relevant.
	Weight int
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages the embedder, describers and entity extractor,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Describer returns the text analysis service.
	// The returned Describer is safe for concurrent use.
	Describer() Describer

	// Vision returns the image description service.
	// The returned VisionDescriber is safe for concurrent use.
	Vision() VisionDescriber

	// EntityExtractor returns the entity extraction service.
	// The returned EntityExtractor is safe for concurrent use.
	EntityExtractor() EntityExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
