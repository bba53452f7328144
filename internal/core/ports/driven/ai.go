package driven

import (
	"context"

	"github.com/docflow-labs/docflow-core/internal/chunker"
	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// ParseResult is the output of parsing one stored file.
type ParseResult struct {
	// Text is the extracted plain text
	Text string

	// PageCount is the parser's page estimate (0 when unknown)
	PageCount int

	// Structured holds tables, images and outline elements the parser
	// recovered alongside the text
	Structured chunker.StructuredContent

	// Metadata carries parser-specific details (title, author, ...)
	Metadata map[string]string
}

// Parser extracts text and structured content from a stored file
type Parser interface {
	// Parse reads the file at path and extracts its content
	Parse(ctx context.Context, path, fileType string) (*ParseResult, error)

	// Supports reports whether the parser can handle the file type
	Supports(fileType string) bool
}

// Classification is a category assignment with its confidence
type Classification struct {
	Category   domain.Category `json:"category"`
	Confidence float64         `json:"confidence"`
}

// Classifier assigns a document category from its content
type Classifier interface {
	// Classify inspects the document text (and filename as a hint) and
	// returns the best matching category
	Classify(ctx context.Context, text, filename string) (*Classification, error)
}

// EntityExtractor pulls typed entities out of document text
type EntityExtractor interface {
	// Extract returns entities grouped by type, e.g.
	// {"equipment": [...], "dates": [...]}
	Extract(ctx context.Context, text string) (map[string][]string, error)
}
