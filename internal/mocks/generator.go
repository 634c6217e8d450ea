package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/engage-api/internal/generation"
)

// MockGenerator implements generation.Generator for testing.
type MockGenerator struct {
	// GenerateFn overrides the default Content/Err response when set.
	GenerateFn func(ctx context.Context, src generation.Source) (*generation.Content, error)

	// Default response values
	Content *generation.Content
	Err     error

	mu      sync.Mutex
	sources []generation.Source
}

// Generate implements generation.Generator.
func (m *MockGenerator) Generate(ctx context.Context, src generation.Source) (*generation.Content, error) {
	m.mu.Lock()
	m.sources = append(m.sources, src)
	fn, content, err := m.GenerateFn, m.Content, m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, src)
	}
	return content, err
}

// Calls returns the sources Generate received, in call order.
func (m *MockGenerator) Calls() []generation.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.Source(nil), m.sources...)
}

// NewMockGeneratorWithContent creates a MockGenerator that returns content.
func NewMockGeneratorWithContent(content *generation.Content) *MockGenerator {
	return &MockGenerator{Content: content}
}

// NewMockGeneratorWithError creates a MockGenerator that returns err.
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{Err: err}
}

var _ generation.Generator = (*MockGenerator)(nil)
