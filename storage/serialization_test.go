package storage

import (
	"testing"
	"time"

	"github.com/poiesic/omnidoc/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotNil(t, data)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalFragment(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name     string
		fragment *core.Fragment
	}{
		{
			name: "minimal text fragment",
			fragment: &core.Fragment{
				Id:         core.ID(1),
				DocId:      core.ID(100),
				Type:       core.FragmentTypeText,
				Content:    "Hello world",
				Order:      0,
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "image fragment with everything",
			fragment: &core.Fragment{
				Id:          core.ID(2),
				DocId:       core.ID(100),
				Type:        core.FragmentTypeImage,
				ImagePath:   "images/figure_1.jpg",
				Captions:    []string{"Figure 1: Architecture", "Overview"},
				Footnotes:   []string{"Source: internal"},
				PageIndex:   3,
				Order:       7,
				Description: "A diagram showing system components",
				Vector:      []float32{0.1, -0.5, 0.25, 1.0},
				Entities: []core.EntityRef{
					{EntityId: core.ID(11), Weight: 9},
					{EntityId: core.ID(12), Weight: 4},
				},
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "table fragment with unicode",
			fragment: &core.Fragment{
				Id:      core.ID(3),
				DocId:   core.ID(101),
				Type:    core.FragmentTypeTable,
				Content: "| naïve | 0.85 |\n| héllo | 0.91 |",
				Order:   2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalFragment(tt.fragment)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalFragment(data)
			require.NoError(t, err)
			assert.Equal(t, tt.fragment, decoded)
		})
	}
}

func TestMarshalUnmarshalFragment_Truncated(t *testing.T) {
	fragment := &core.Fragment{
		Id:      core.ID(1),
		DocId:   core.ID(2),
		Type:    core.FragmentTypeText,
		Content: "some content that takes up space",
		Vector:  []float32{0.1, 0.2, 0.3},
	}

	data := MarshalFragment(fragment)
	_, err := UnmarshalFragment(data[:len(data)/2])
	assert.Error(t, err)
}

func TestMarshalUnmarshalEntity(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	entity := &core.Entity{
		Id:          core.IDFromContent("(technology,golang)"),
		Name:        "golang",
		Type:        "technology",
		Description: "A statically typed programming language",
		Vector:      []float32{0.5, 0.5, -0.5},
		InsertedAt:  now,
		UpdatedAt:   now,
	}

	data := MarshalEntity(entity)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalEntity(data)
	require.NoError(t, err)
	assert.Equal(t, entity, decoded)
}

func TestMarshalUnmarshalDocument(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	doc := &core.Document{
		Id:            core.IDFromContent("/data/reports/q3.pdf"),
		Path:          "/data/reports/q3.pdf",
		ParseMethod:   "auto",
		FragmentCount: 42,
		InsertedAt:    now,
		UpdatedAt:     now,
	}

	data := MarshalDocument(doc)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)
}

func TestMarshalUnmarshalDocument_ZeroTimestamps(t *testing.T) {
	doc := &core.Document{
		Id:   core.ID(7),
		Path: "notes.md",
	}

	data := MarshalDocument(doc)
	decoded, err := UnmarshalDocument(data)
	require.NoError(t, err)
	assert.True(t, decoded.InsertedAt.IsZero())
	assert.True(t, decoded.UpdatedAt.IsZero())
	assert.Equal(t, doc.Path, decoded.Path)
}
