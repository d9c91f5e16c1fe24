package storage

import (
	"context"

	"github.com/poiesic/omnidoc/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// FragmentRepository provides operations for managing document fragments.
type FragmentRepository interface {
	Repository

	// AddFragments adds one or more fragments to storage.
	// For fragments with ID=0, generates new IDs from sequence.
	// Sets InsertedAt timestamp if not already set.
	// Returns the fragments with generated IDs and timestamps populated.
	AddFragments(ctx context.Context, fragments ...*core.Fragment) ([]*core.Fragment, error)

	// UpdateFragments updates existing fragments.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any fragment doesn't exist.
	UpdateFragments(ctx context.Context, fragments ...*core.Fragment) ([]*core.Fragment, error)

	// DeleteFragments removes fragments by their IDs.
	// Also removes associated indices.
	// Returns ErrNotFound if any fragment doesn't exist.
	DeleteFragments(ctx context.Context, ids ...core.ID) error

	// GetFragment retrieves a single fragment by ID.
	// Returns ErrNotFound if the fragment doesn't exist.
	GetFragment(ctx context.Context, id core.ID) (*core.Fragment, error)

	// GetFragments retrieves multiple fragments by their IDs.
	// Returns only the fragments that exist (no error for missing fragments).
	GetFragments(ctx context.Context, ids ...core.ID) ([]*core.Fragment, error)

	// GetFragmentsByDocument retrieves all fragments of a document,
	// ordered by their position within the source document.
	GetFragmentsByDocument(ctx context.Context, docID core.ID) ([]*core.Fragment, error)

	// GetFragmentsByEntity retrieves IDs of fragments associated with an entity.
	// Returns only fragment IDs, not full fragments.
	GetFragmentsByEntity(ctx context.Context, entityID core.ID) ([]core.ID, error)

	// FindSimilar finds fragments similar to the given vector.
	// Returns fragments with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// CountFragments returns the total number of stored fragments.
	CountFragments(ctx context.Context) (int, error)
}

// EntityRepository provides operations for managing extracted entities.
type EntityRepository interface {
	Repository

	// AddEntities adds one or more entities to storage.
	// Uses content-based IDs (IDFromContent of entity tuple).
	// Sets InsertedAt timestamp if not already set.
	// Returns the entities with timestamps populated.
	AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// UpdateEntities updates existing entities.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any entity doesn't exist.
	UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// DeleteEntities removes entities by their IDs.
	// Returns ErrNotFound if any entity doesn't exist.
	DeleteEntities(ctx context.Context, ids ...core.ID) error

	// GetEntity retrieves a single entity by ID.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, id core.ID) (*core.Entity, error)

	// GetEntities retrieves multiple entities by their IDs.
	// Returns only the entities that exist (no error for missing entities).
	GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error)

	// FindEntityByNameAndType finds an entity by its name and type tuple.
	// Returns ErrNotFound if no matching entity exists.
	FindEntityByNameAndType(ctx context.Context, name, entityType string) (*core.Entity, error)

	// GetOrCreateEntity finds or creates an entity by name and type.
	// If the entity exists, returns it.
	// If not, creates it with the provided vector.
	// Thread-safe: handles concurrent creation attempts.
	GetOrCreateEntity(ctx context.Context, name, entityType string, vector []float32) (*core.Entity, error)

	// FindSimilarEntities finds entities similar to the given vector.
	// Returns entities with similarity >= minSimilarity, up to limit results.
	FindSimilarEntities(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.Entity, error)

	// CountEntities returns the total number of stored entities.
	CountEntities(ctx context.Context) (int, error)
}

// DocumentRepository provides operations for managing ingested documents.
type DocumentRepository interface {
	Repository

	// AddDocument adds a document to storage.
	// Uses content-based IDs (IDFromContent of the document path).
	// Sets InsertedAt timestamp if not already set.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// UpdateDocument updates an existing document.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// DeleteDocument removes a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocumentByPath finds a document by its original input path.
	// Returns ErrNotFound if no matching document exists.
	GetDocumentByPath(ctx context.Context, path string) (*core.Document, error)

	// ListDocuments retrieves all stored documents ordered by insertion time.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// CountDocuments returns the total number of stored documents.
	CountDocuments(ctx context.Context) (int, error)
}
