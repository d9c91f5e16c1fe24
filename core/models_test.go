package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent_Deterministic(t *testing.T) {
	a := IDFromContent("(person,marie curie)")
	b := IDFromContent("(person,marie curie)")
	assert.Equal(t, a, b, "identical content must produce identical IDs")

	c := IDFromContent("(person,pierre curie)")
	assert.NotEqual(t, a, c, "different content should produce different IDs")
}

func TestFragmentType_String(t *testing.T) {
	assert.Equal(t, "text", FragmentTypeText.String())
	assert.Equal(t, "image", FragmentTypeImage.String())
	assert.Equal(t, "table", FragmentTypeTable.String())
	assert.Equal(t, "equation", FragmentTypeEquation.String())
	assert.Equal(t, "generic", FragmentTypeGeneric.String())
	assert.Equal(t, "unknown", FragmentType(99).String())
}

func TestFragmentTypeFromString_RoundTrip(t *testing.T) {
	for _, ft := range []FragmentType{
		FragmentTypeText, FragmentTypeImage, FragmentTypeTable, FragmentTypeEquation,
	} {
		assert.Equal(t, ft, FragmentTypeFromString(ft.String()))
	}

	// Parser block types with no dedicated processor fall back to generic.
	assert.Equal(t, FragmentTypeGeneric, FragmentTypeFromString("list"))
	assert.Equal(t, FragmentTypeGeneric, FragmentTypeFromString(""))
}

func TestEntity_Tuple(t *testing.T) {
	e := &Entity{Name: "transformer", Type: "technology"}
	assert.Equal(t, "(technology,transformer)", e.Tuple())
}

func TestFragment_Text(t *testing.T) {
	text := &Fragment{Type: FragmentTypeText, Content: "plain body"}
	assert.Equal(t, "plain body", text.Text())

	table := &Fragment{Type: FragmentTypeTable, Content: "a,b\n1,2", Description: "a two column table"}
	assert.Equal(t, "a two column table", table.Text(), "modal fragments prefer the description")

	undescribed := &Fragment{Type: FragmentTypeTable, Content: "a,b\n1,2"}
	assert.Equal(t, "a,b\n1,2", undescribed.Text(), "raw content until a processor runs")
}
