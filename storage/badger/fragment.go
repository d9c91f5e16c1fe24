package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/omnidoc/core"
	"github.com/poiesic/omnidoc/storage"
)

// FragmentRepository implements storage.FragmentRepository for BadgerDB.
type FragmentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.FragmentRepository = (*FragmentRepository)(nil)

// NewFragmentRepository creates a new FragmentRepository.
func NewFragmentRepository(backend *Backend) (*FragmentRepository, error) {
	idSeq, err := backend.GetSequence(fragmentIDSeq)
	if err != nil {
		return nil, err
	}

	return &FragmentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *FragmentRepository) Close() error {
	return r.idSeq.Release()
}

// FindSimilar delegates to the backend.
func (r *FragmentRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilarFragments(ctx, vector, minSimilarity, limit)
}

// WithTransaction delegates to the backend.
func (r *FragmentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddFragments adds one or more fragments to storage.
func (r *FragmentRepository) AddFragments(ctx context.Context, fragments ...*core.Fragment) ([]*core.Fragment, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, fragment := range fragments {
			if fragment.Id == 0 {
				nextID, err := r.idSeq.Next()
				if err != nil {
					return err
				}
				// BadgerDB sequences can return 0 on first call, so we skip it
				if nextID == 0 {
					nextID, err = r.idSeq.Next()
					if err != nil {
						return err
					}
				}
				fragment.Id = core.ID(nextID)
			}

			fragment.InsertedAt = time.Now().UTC()
			fragment.UpdatedAt = fragment.InsertedAt

			// Store primary record
			key := makeFragmentKey(fragment.Id)
			value := storage.MarshalFragment(fragment)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update document index
			docKey := makeFragmentDocKey(fragment.DocId, fragment.Order, fragment.Id)
			if err := tx.Set(docKey, storage.MarshalID(fragment.Id)); err != nil {
				return err
			}

			// Update entity index
			if err := r.updateEntityIndex(tx, fragment); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return fragments, err
}

// UpdateFragments updates existing fragments.
func (r *FragmentRepository) UpdateFragments(ctx context.Context, fragments ...*core.Fragment) ([]*core.Fragment, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, fragment := range fragments {
			key := makeFragmentKey(fragment.Id)

			// Read old fragment to detect changes
			old, err := r.readFragment(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			fragment.UpdatedAt = time.Now().UTC()

			value := storage.MarshalFragment(fragment)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update document index if position changed
			if old.DocId != fragment.DocId || old.Order != fragment.Order {
				oldDocKey := makeFragmentDocKey(old.DocId, old.Order, old.Id)
				if err := tx.Delete(oldDocKey); err != nil {
					return err
				}
				newDocKey := makeFragmentDocKey(fragment.DocId, fragment.Order, fragment.Id)
				if err := tx.Set(newDocKey, storage.MarshalID(fragment.Id)); err != nil {
					return err
				}
			}

			// Update entity index if entity refs changed
			if !entityRefsEqual(old.Entities, fragment.Entities) {
				if err := r.deleteEntityIndex(tx, old); err != nil {
					return err
				}
				if err := r.updateEntityIndex(tx, fragment); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return fragments, err
}

// DeleteFragments removes fragments by their IDs.
func (r *FragmentRepository) DeleteFragments(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeFragmentKey(id)

			// Read fragment to get metadata for index cleanup
			fragment, err := r.readFragment(tx, key)
			if err != nil {
				return err
			}
			if fragment == nil {
				return storage.ErrNotFound
			}

			docKey := makeFragmentDocKey(fragment.DocId, fragment.Order, fragment.Id)
			if err := tx.Delete(docKey); err != nil {
				return err
			}

			if err := r.deleteEntityIndex(tx, fragment); err != nil {
				return err
			}

			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetFragment retrieves a single fragment by ID.
func (r *FragmentRepository) GetFragment(ctx context.Context, id core.ID) (*core.Fragment, error) {
	var result *core.Fragment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFragmentKey(id)
		var err error
		result, err = r.readFragment(tx, key)
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

// GetFragments retrieves multiple fragments by their IDs.
func (r *FragmentRepository) GetFragments(ctx context.Context, ids ...core.ID) ([]*core.Fragment, error) {
	var result []*core.Fragment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeFragmentKey(id)
			fragment, err := r.readFragment(tx, key)
			if err != nil {
				return err
			}
			if fragment != nil {
				result = append(result, fragment)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetFragmentsByDocument retrieves all fragments of a document in source order.
func (r *FragmentRepository) GetFragmentsByDocument(ctx context.Context, docID core.ID) ([]*core.Fragment, error) {
	var results []*core.Fragment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialFragmentDocKey(docID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			// Check if key still has our docID prefix
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var fragmentID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				fragmentID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			fragmentKey := makeFragmentKey(fragmentID)
			fragment, err := r.readFragment(tx, fragmentKey)
			if err != nil {
				return err
			}
			if fragment != nil {
				results = append(results, fragment)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetFragmentsByEntity retrieves IDs of fragments associated with an entity.
func (r *FragmentRepository) GetFragmentsByEntity(ctx context.Context, entityID core.ID) ([]core.ID, error) {
	var fragmentIDs []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialFragmentEntityKey(entityID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var fragmentID core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				fragmentID, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}
			fragmentIDs = append(fragmentIDs, fragmentID)
		}
		return nil
	}, false)

	return fragmentIDs, err
}

// CountFragments returns the total number of stored fragments.
func (r *FragmentRepository) CountFragments(ctx context.Context) (int, error) {
	return r.backend.countKeys([]byte(fragmentPrefix + ":"))
}

// Helper methods

// readFragment reads a fragment from the transaction.
func (r *FragmentRepository) readFragment(tx *badger.Txn, key []byte) (*core.Fragment, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var fragment *core.Fragment
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		fragment, unmarshalErr = storage.UnmarshalFragment(val)
		return unmarshalErr
	})
	return fragment, err
}

// updateEntityIndex adds entity index entries for a fragment.
func (r *FragmentRepository) updateEntityIndex(tx *badger.Txn, fragment *core.Fragment) error {
	if len(fragment.Entities) == 0 {
		return nil
	}
	for _, ref := range fragment.Entities {
		key := makeFragmentEntityKey(ref.EntityId, fragment.Id)
		value := storage.MarshalID(fragment.Id)
		if err := tx.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// deleteEntityIndex removes entity index entries for a fragment.
func (r *FragmentRepository) deleteEntityIndex(tx *badger.Txn, fragment *core.Fragment) error {
	if len(fragment.Entities) == 0 {
		return nil
	}
	for _, ref := range fragment.Entities {
		key := makeFragmentEntityKey(ref.EntityId, fragment.Id)
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// entityRefsEqual compares two entity ref slices for equality.
func entityRefsEqual(a, b []core.EntityRef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].EntityId != b[i].EntityId || a[i].Weight != b[i].Weight {
			return false
		}
	}
	return true
}
