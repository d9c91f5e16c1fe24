package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/omnidoc/core"
)

// Key prefixes for different data types
const (
	fragmentPrefix       = "frarec"
	fragmentDocPrefix    = "fradoc"
	fragmentEntityPrefix = "fraent"
	fragmentIDSeq        = "frarecseq"
	entityRecordPrefix   = "entrec"
	entityTypeNamePrefix = "enttyna"
	documentPrefix       = "docrec"
	documentPathPrefix   = "docpath"
)

// makeFragmentKey generates a key for a fragment by ID.
func makeFragmentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", fragmentPrefix, id))
}

// makeFragmentDocKey generates a composite key for the document index.
// Format: prefix:docID:order:fragmentID
func makeFragmentDocKey(docID core.ID, order int, fragmentID core.ID) []byte {
	prefix := fragmentDocPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+24)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(order))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(fragmentID))
	return buf
}

// makePartialFragmentDocKey generates a partial key for per-document queries.
// Format: prefix:docID
func makePartialFragmentDocKey(docID core.ID) []byte {
	prefix := fragmentDocPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}

// makeFragmentEntityKey generates a composite key for the entity index.
// Format: prefix:entityID:fragmentID
func makeFragmentEntityKey(entityID, fragmentID core.ID) []byte {
	prefix := fragmentEntityPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+16)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(entityID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(fragmentID))
	return buf
}

// makePartialFragmentEntityKey generates a partial key for entity queries.
// Format: prefix:entityID
func makePartialFragmentEntityKey(entityID core.ID) []byte {
	prefix := fragmentEntityPrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(entityID))
	return buf
}

// makeEntityKey generates a key for an entity by ID.
func makeEntityKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", entityRecordPrefix, id))
}

// makeEntityTupleKey generates a composite key for entity lookup by (type, name).
// Format: prefix:type:name
func makeEntityTupleKey(name, entityType string) []byte {
	prefix := entityTypeNamePrefix + ":"
	buf := make([]byte, len(prefix)+len(entityType)+len(name))
	offset := copy(buf, []byte(prefix))
	offset += copy(buf[offset:], []byte(entityType))
	copy(buf[offset:], []byte(name))
	return buf
}

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeDocumentPathKey generates a key for document lookup by path.
func makeDocumentPathKey(path string) []byte {
	return []byte(documentPathPrefix + ":" + path)
}
