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


package badger

// Repositories bundles the three repositories sharing one backend.
type Repositories struct {
	Fragments *FragmentRepository
	Entities  *EntityRepository
	Documents *DocumentRepository
	Backend   *Backend
}

// Close closes the repositories and the underlying backend.
func (r *Repositories) Close() error {
	r.Fragments.Close()
	r.Entities.Close()
	r.Documents.Close()
	return r.Backend.Close()
}

// NewRepositories opens a BadgerDB database at path and creates the
// fragment, entity and document repositories over it.
func NewRepositories(path string) (*Repositories, error) {
	return newRepositories(path, false)
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must close the returned Repositories when done.
func NewMemoryRepositories() (*Repositories, error) {
	return newRepositories("", true)
}

func newRepositories(path string, inMemory bool) (*Repositories, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	fragments, err := NewFragmentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	entities, err := NewEntityRepository(backend)
	if err != nil {
		fragments.Close()
		backend.Close()
		return nil, err
	}

	documents, err := NewDocumentRepository(backend)
	if err != nil {
		entities.Close()
		fragments.Close()
		backend.Close()
		return nil, err
	}

	return &Repositories{
		Fragments: fragments,
		Entities:  entities,
		Documents: documents,
		Backend:   backend,
	}, nil
}
