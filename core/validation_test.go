package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFragment(t *testing.T) {
	assert.ErrorIs(t, ValidateFragment(nil), ErrInvalidFragment)

	valid := &Fragment{Type: FragmentTypeText, Content: "hello"}
	assert.NoError(t, ValidateFragment(valid))

	emptyText := &Fragment{Type: FragmentTypeText}
	assert.ErrorIs(t, ValidateFragment(emptyText), ErrEmptyContent)

	badType := &Fragment{Type: FragmentType(42), Content: "x"}
	assert.ErrorIs(t, ValidateFragment(badType), ErrInvalidFragmentType)

	// Image fragments may carry a path, inline content, or captions.
	img := &Fragment{Type: FragmentTypeImage, ImagePath: "/tmp/fig1.png"}
	assert.NoError(t, ValidateFragment(img))

	captioned := &Fragment{Type: FragmentTypeImage, Captions: []string{"Figure 1"}}
	assert.NoError(t, ValidateFragment(captioned))

	bareImg := &Fragment{Type: FragmentTypeImage}
	assert.ErrorIs(t, ValidateFragment(bareImg), ErrEmptyContent)

	// Tables and equations are valid without content; captions may be all there is.
	table := &Fragment{Type: FragmentTypeTable}
	assert.NoError(t, ValidateFragment(table))
}

func TestValidateEntity(t *testing.T) {
	assert.ErrorIs(t, ValidateEntity(nil), ErrInvalidEntity)

	valid := &Entity{Name: "paris", Type: "place"}
	assert.NoError(t, ValidateEntity(valid))

	assert.ErrorIs(t, ValidateEntity(&Entity{Type: "place"}), ErrEmptyEntityName)
	assert.ErrorIs(t, ValidateEntity(&Entity{Name: "paris"}), ErrEmptyEntityType)
}

func TestValidateDocument(t *testing.T) {
	assert.ErrorIs(t, ValidateDocument(nil), ErrInvalidDocument)
	assert.ErrorIs(t, ValidateDocument(&Document{}), ErrEmptyDocumentPath)
	assert.NoError(t, ValidateDocument(&Document{Path: "/data/in/report.pdf"}))
}
