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


package core

import "fmt"

// ValidateFragment validates a Fragment according to domain rules.
//
// Validation rules:
//   - Type must be a known FragmentType
//   - Text fragments must carry content
//   - Image fragments must carry an image path, content, or captions
//
// NOT validated (populated by processors):
//   - Vector (can be empty until the embedding processor runs)
//   - Description and Entities (can be empty until modal processors run)
//   - ID (0 is valid from database sequences)
func ValidateFragment(fragment *Fragment) error {
	if fragment == nil {
		return fmt.Errorf("%w: fragment is nil", ErrInvalidFragment)
	}

	if err := ValidateFragmentType(fragment.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFragment, err)
	}

	switch fragment.Type {
	case FragmentTypeText:
		if fragment.Content == "" {
			return fmt.Errorf("%w: %w", ErrInvalidFragment, ErrEmptyContent)
		}
	case FragmentTypeImage:
		if fragment.ImagePath == "" && fragment.Content == "" && len(fragment.Captions) == 0 {
			return fmt.Errorf("%w: %w", ErrInvalidFragment, ErrEmptyContent)
		}
	}

	return nil
}

// ValidateFragmentType validates that a FragmentType has a valid value.
func ValidateFragmentType(t FragmentType) error {
	switch t {
	case FragmentTypeText, FragmentTypeImage, FragmentTypeTable,
		FragmentTypeEquation, FragmentTypeGeneric:
		return nil
	default:
		return ErrInvalidFragmentType
	}
}

// ValidateEntity validates an Entity according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - Type must not be empty
//
// NOT validated (populated by processors):
//   - Vector (can be empty until embedded)
//   - ID (0 is valid; entity IDs are content-derived)
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}

	if entity.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyEntityName)
	}

	if entity.Type == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyEntityType)
	}

	return nil
}

// ValidateDocument validates a Document according to domain rules.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Path == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocumentPath)
	}

	return nil
}
