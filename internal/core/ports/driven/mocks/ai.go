package mocks

import (
	"context"
	"sync"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

// MockParser is a mock implementation of Parser for testing
type MockParser struct {
	mu    sync.Mutex
	calls []string

	// Result is returned from Parse when set
	Result *driven.ParseResult
	// Err forces Parse to fail when set
	Err error
}

// NewMockParser creates a parser that returns the given text
func NewMockParser(text string) *MockParser {
	return &MockParser{
		Result: &driven.ParseResult{Text: text, PageCount: 1},
	}
}

func (m *MockParser) Parse(ctx context.Context, path, fileType string) (*driven.ParseResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, path)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

func (m *MockParser) Supports(fileType string) bool {
	return true
}

func (m *MockParser) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockClassifier is a mock implementation of Classifier for testing
type MockClassifier struct {
	// Result is returned from Classify when set
	Result *driven.Classification
	// Err forces Classify to fail when set
	Err error
}

// NewMockClassifier creates a classifier that assigns the given category
func NewMockClassifier(category domain.Category, confidence float64) *MockClassifier {
	return &MockClassifier{
		Result: &driven.Classification{Category: category, Confidence: confidence},
	}
}

func (m *MockClassifier) Classify(ctx context.Context, text, filename string) (*driven.Classification, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// MockEntityExtractor is a mock implementation of EntityExtractor
type MockEntityExtractor struct {
	// Entities is returned from Extract
	Entities map[string][]string
	// Err forces Extract to fail when set
	Err error
}

// NewMockEntityExtractor creates an extractor returning the given entities
func NewMockEntityExtractor(entities map[string][]string) *MockEntityExtractor {
	return &MockEntityExtractor{Entities: entities}
}

func (m *MockEntityExtractor) Extract(ctx context.Context, text string) (map[string][]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Entities, nil
}
