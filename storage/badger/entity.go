package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/omnidoc/core"
	"github.com/poiesic/omnidoc/storage"
)

// EntityRepository implements storage.EntityRepository for BadgerDB.
type EntityRepository struct {
	backend *Backend
}

var _ storage.EntityRepository = (*EntityRepository)(nil)

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(backend *Backend) (*EntityRepository, error) {
	return &EntityRepository{
		backend: backend,
	}, nil
}

// Close releases resources. EntityRepository has no resources to release.
func (r *EntityRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *EntityRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddEntities adds one or more entities to storage.
func (r *EntityRepository) AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			// Use content-based ID if not set
			if entity.Id == 0 {
				entity.Id = core.IDFromContent(entity.Tuple())
			}

			entity.InsertedAt = time.Now().UTC()
			entity.UpdatedAt = entity.InsertedAt

			// Store primary record
			key := makeEntityKey(entity.Id)
			value := storage.MarshalEntity(entity)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Store tuple index
			tupleKey := makeEntityTupleKey(entity.Name, entity.Type)
			if err := tx.Set(tupleKey, storage.MarshalID(entity.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return entities, err
}

// UpdateEntities updates existing entities.
func (r *EntityRepository) UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			key := makeEntityKey(entity.Id)

			// Read old entity to detect changes
			old, err := readEntity(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			entity.UpdatedAt = time.Now().UTC()

			value := storage.MarshalEntity(entity)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update tuple index if name or type changed
			if old.Name != entity.Name || old.Type != entity.Type {
				oldTupleKey := makeEntityTupleKey(old.Name, old.Type)
				if err := tx.Delete(oldTupleKey); err != nil {
					return err
				}
				newTupleKey := makeEntityTupleKey(entity.Name, entity.Type)
				if err := tx.Set(newTupleKey, storage.MarshalID(entity.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return entities, err
}

// DeleteEntities removes entities by their IDs.
func (r *EntityRepository) DeleteEntities(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeEntityKey(id)

			// Read entity to get metadata for index cleanup
			entity, err := readEntity(tx, key)
			if err != nil {
				return err
			}
			if entity == nil {
				return storage.ErrNotFound
			}

			tupleKey := makeEntityTupleKey(entity.Name, entity.Type)
			if err := tx.Delete(tupleKey); err != nil {
				return err
			}

			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetEntity retrieves a single entity by ID.
func (r *EntityRepository) GetEntity(ctx context.Context, id core.ID) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEntityKey(id)
		var err error
		result, err = readEntity(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetEntities retrieves multiple entities by their IDs.
func (r *EntityRepository) GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error) {
	var result []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeEntityKey(id)
			entity, err := readEntity(tx, key)
			if err != nil {
				return err
			}
			if entity != nil {
				result = append(result, entity)
			}
		}
		return nil
	}, false)
	return result, err
}

// FindEntityByNameAndType finds an entity by its name and type tuple.
func (r *EntityRepository) FindEntityByNameAndType(ctx context.Context, name, entityType string) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Look up ID from tuple index
		tupleKey := makeEntityTupleKey(name, entityType)
		item, err := tx.Get(tupleKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var entityID core.ID
		err = item.Value(func(val []byte) error {
			entityID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		// Look up full entity
		entityKey := makeEntityKey(entityID)
		result, err = readEntity(tx, entityKey)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetOrCreateEntity finds or creates an entity by name and type.
func (r *EntityRepository) GetOrCreateEntity(ctx context.Context, name, entityType string, vector []float32) (*core.Entity, error) {
	// Try to find existing entity
	entity, err := r.FindEntityByNameAndType(ctx, name, entityType)
	if err == nil {
		return entity, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}

	newEntity := &core.Entity{
		Id:     core.IDFromContent("(" + entityType + "," + name + ")"),
		Name:   name,
		Type:   entityType,
		Vector: vector,
	}

	// Try to add it (may fail due to race condition)
	added, err := r.AddEntities(ctx, newEntity)
	if err != nil {
		// If add failed, try to find it again (someone else may have created it)
		entity, findErr := r.FindEntityByNameAndType(ctx, name, entityType)
		if findErr == nil {
			return entity, nil
		}
		return nil, err
	}

	return added[0], nil
}

// FindSimilarEntities delegates to the backend.
func (r *EntityRepository) FindSimilarEntities(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.Entity, error) {
	return r.backend.FindSimilarEntities(ctx, vector, minSimilarity, limit)
}

// CountEntities returns the total number of stored entities.
func (r *EntityRepository) CountEntities(ctx context.Context) (int, error) {
	return r.backend.countKeys([]byte(entityRecordPrefix + ":"))
}

// readEntity reads an entity from the transaction.
func readEntity(tx *badger.Txn, key []byte) (*core.Entity, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entity *core.Entity
	err = item.Value(func(val []byte) error {
		var err error
		entity, err = storage.UnmarshalEntity(val)
		return err
	})
	return entity, err
}
