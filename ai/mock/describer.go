package mock

import (
	"context"
	"fmt"
)

// MockDescriber is a test double for ai.Describer and ai.VisionDescriber.
// It allows custom behavior injection via function fields.
type MockDescriber struct {
	// DescribeFunc is called by Describe if set.
	// If nil, returns a canned description derived from the prompt.
	DescribeFunc func(ctx context.Context, prompt, systemPrompt string) (string, error)

	// DescribeImageFunc is called by DescribeImage if set.
	// If nil, returns a canned description derived from the prompt.
	DescribeImageFunc func(ctx context.Context, prompt, systemPrompt, imageBase64 string) (string, error)

	callCount int
}

// NewMockDescriber creates a mock describer with canned default responses.
// Note: Returns concrete type to allow test assertions via GetMockDescriber().
func NewMockDescriber() *MockDescriber {
	return &MockDescriber{}
}

// Describe returns a deterministic description for the given prompt.
func (m *MockDescriber) Describe(ctx context.Context, prompt, systemPrompt string) (string, error) {
	m.callCount++

	if m.DescribeFunc != nil {
		return m.DescribeFunc(ctx, prompt, systemPrompt)
	}

	return fmt.Sprintf("mock description for prompt of %d characters", len(prompt)), nil
}

// DescribeImage returns a deterministic description for the given image.
func (m *MockDescriber) DescribeImage(ctx context.Context, prompt, systemPrompt, imageBase64 string) (string, error) {
	m.callCount++

	if m.DescribeImageFunc != nil {
		return m.DescribeImageFunc(ctx, prompt, systemPrompt, imageBase64)
	}

	return fmt.Sprintf("mock image description for %d bytes of image data", len(imageBase64)), nil
}

// CallCount returns the number of times any method was called.
func (m *MockDescriber) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected functions.
func (m *MockDescriber) Reset() {
	m.callCount = 0
	m.DescribeFunc = nil
	m.DescribeImageFunc = nil
}
