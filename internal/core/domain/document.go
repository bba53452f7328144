package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Category classifies a document by content. The known categories come
// from the classifier's keyword lists; unknown labels are preserved as-is
// so deployments can add their own without a schema change.
type Category string

const (
	CategoryUncategorized Category = "Uncategorized"
	CategoryTechnical     Category = "Technical Documentation"
	CategorySafety        Category = "Safety & Compliance"
	CategoryOperations    Category = "Operations & Procedures"
	CategoryMaintenance   Category = "Maintenance & Engineering"
	CategoryQuality       Category = "Quality Assurance"
	CategoryTraining      Category = "Training & HR"
	CategoryFinancial     Category = "Financial & Legal"
)

// KnownCategories lists the categories the shipped classifier can assign.
func KnownCategories() []Category {
	return []Category{
		CategoryTechnical,
		CategorySafety,
		CategoryOperations,
		CategoryMaintenance,
		CategoryQuality,
		CategoryTraining,
		CategoryFinancial,
	}
}

// IsKnown reports whether the category is one of the shipped categories.
func (c Category) IsKnown() bool {
	if c == CategoryUncategorized {
		return true
	}
	for _, k := range KnownCategories() {
		if c == k {
			return true
		}
	}
	return false
}

// SupportedExtensions is the upload allow-list, without the leading dot.
var SupportedExtensions = []string{"pdf", "docx", "xlsx", "pptx", "txt", "md", "rtf", "html"}

// IsSupportedFile reports whether the filename carries an allowed extension.
func IsSupportedFile(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Document represents an ingested file and its processing outcome.
type Document struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	ContentHash string `json:"content_hash"`
	StoragePath string `json:"storage_path"`

	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`

	PageCount  int `json:"page_count"`
	WordCount  int `json:"word_count"`
	ChunkCount int `json:"chunk_count"`

	Entities map[string][]string `json:"entities,omitempty"`
	Metadata map[string]string   `json:"metadata,omitempty"`

	IsActive   bool       `json:"is_active"`
	IsArchived bool       `json:"is_archived"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`

	UploadedAt  time.Time  `json:"uploaded_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// NewDocument creates a document record for a freshly admitted file.
func NewDocument(filename, fileType string, size int64, contentHash, storagePath string) *Document {
	return &Document{
		Filename:    filename,
		FileType:    fileType,
		FileSize:    size,
		ContentHash: contentHash,
		StoragePath: storagePath,
		Category:    CategoryUncategorized,
		IsActive:    true,
		UploadedAt:  time.Now().UTC(),
	}
}

// ChunkType distinguishes how a chunk was produced.
type ChunkType string

const (
	ChunkTypeText      ChunkType = "text"
	ChunkTypeTable     ChunkType = "table"
	ChunkTypeImage     ChunkType = "image"
	ChunkTypeStructure ChunkType = "structure"
)

// DocumentChunk is a stored, indexable slice of a document.
type DocumentChunk struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`

	ContentHash string `json:"content_hash,omitempty"`
	WordCount   int    `json:"word_count"`
	CharCount   int    `json:"char_count"`

	PageNumber   int       `json:"page_number,omitempty"`
	ChunkType    ChunkType `json:"chunk_type"`
	Section      string    `json:"section,omitempty"`
	SectionTitle string    `json:"section_title,omitempty"`

	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`

	// VectorID links the chunk to its embedding row; nil until indexed.
	VectorID *string `json:"vector_id,omitempty"`

	Embedding []float32 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// DocumentStats aggregates corpus-level counts for the stats endpoint.
type DocumentStats struct {
	TotalDocuments int64            `json:"total_documents"`
	TotalChunks    int64            `json:"total_chunks"`
	TotalWords     int64            `json:"total_words"`
	ByCategory     map[string]int64 `json:"by_category"`
	ByFileType     map[string]int64 `json:"by_file_type"`
}
