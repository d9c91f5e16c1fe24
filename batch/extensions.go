package batch

import (
	"path/filepath"
	"strings"
)

// ExtensionSet is a fixed, case-insensitive set of file extensions used
// as a filter predicate. It is immutable after construction.
type ExtensionSet struct {
	members map[string]struct{}
	ordered []string
}

// NewExtensionSet builds an extension set. Extensions are normalized to
// lowercase with a leading dot; duplicates and empty strings are dropped.
func NewExtensionSet(extensions ...string) ExtensionSet {
	set := ExtensionSet{
		members: make(map[string]struct{}, len(extensions)),
	}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, exists := set.members[ext]; exists {
			continue
		}
		set.members[ext] = struct{}{}
		set.ordered = append(set.ordered, ext)
	}
	return set
}

// Contains reports whether the path's extension is in the set.
func (s ExtensionSet) Contains(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := s.members[ext]
	return ok
}

// Extensions returns a copy of the set's extensions in insertion order.
func (s ExtensionSet) Extensions() []string {
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Len returns the number of extensions in the set.
func (s ExtensionSet) Len() int {
	return len(s.members)
}

// FilterSupported retains only the paths whose extension is in the set.
// It inspects strings only, never the filesystem; preserves input order;
// does not deduplicate.
func (s ExtensionSet) FilterSupported(paths []string) []string {
	filtered := make([]string, 0, len(paths))
	for _, path := range paths {
		if s.Contains(path) {
			filtered = append(filtered, path)
		}
	}
	return filtered
}
