package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewExtensionSet(t *testing.T) {
	set := NewExtensionSet(".PDF", "md", " .txt ", ".pdf", "")

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []string{".pdf", ".md", ".txt"}, set.Extensions())
}

func TestExtensionSetContains(t *testing.T) {
	set := NewExtensionSet(".pdf", ".md")

	assert.True(t, set.Contains("report.pdf"))
	assert.True(t, set.Contains("/some/dir/NOTES.MD"))
	assert.False(t, set.Contains("binary.exe"))
	assert.False(t, set.Contains("no_extension"))
	assert.False(t, set.Contains(""))
}

func TestFilterSupported(t *testing.T) {
	set := NewExtensionSet(".pdf", ".md")

	paths := []string{"a.md", "b.pdf", "c.exe", "d.md"}
	filtered := set.FilterSupported(paths)

	assert.Equal(t, []string{"a.md", "b.pdf", "d.md"}, filtered)
	// Original slice untouched
	assert.Equal(t, []string{"a.md", "b.pdf", "c.exe", "d.md"}, paths)
}

func TestFilterSupportedIdempotent(t *testing.T) {
	set := NewExtensionSet(".pdf")

	once := set.FilterSupported([]string{"a.pdf", "b.txt", "c.pdf"})
	twice := set.FilterSupported(once)

	assert.Equal(t, once, twice)
}

func TestFilterSupportedKeepsDuplicates(t *testing.T) {
	set := NewExtensionSet(".pdf")

	filtered := set.FilterSupported([]string{"a.pdf", "a.pdf"})

	assert.Equal(t, []string{"a.pdf", "a.pdf"}, filtered)
}

func TestFilterSupportedEmpty(t *testing.T) {
	set := NewExtensionSet()

	assert.Empty(t, set.FilterSupported([]string{"a.pdf"}))
	assert.Equal(t, 0, set.Len())
}
