package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

type documentService struct {
	documents driven.DocumentStore
	chunks    driven.ChunkStore
	vectors   driven.VectorIndex
	files     driven.FileStore
	logger    *slog.Logger
}

// DocumentServiceConfig holds dependencies for the document service.
type DocumentServiceConfig struct {
	DocumentStore driven.DocumentStore
	ChunkStore    driven.ChunkStore
	VectorIndex   driven.VectorIndex
	FileStore     driven.FileStore
	Logger        *slog.Logger
}

// NewDocumentService creates a new document service.
func NewDocumentService(cfg DocumentServiceConfig) driving.DocumentService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		documents: cfg.DocumentStore,
		chunks:    cfg.ChunkStore,
		vectors:   cfg.VectorIndex,
		files:     cfg.FileStore,
		logger:    logger.With("component", "document_service"),
	}
}

func (s *documentService) Get(ctx context.Context, id int64) (*domain.Document, error) {
	return s.documents.Get(ctx, id)
}

func (s *documentService) GetChunks(ctx context.Context, id int64) ([]*domain.DocumentChunk, error) {
	if _, err := s.documents.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.chunks.GetByDocument(ctx, id)
}

func (s *documentService) List(ctx context.Context, req driving.DocumentListRequest) ([]*domain.Document, int, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	return s.documents.List(ctx, driven.DocumentFilter{
		Category: req.Category,
		FileType: req.FileType,
		Search:   req.Search,
		Archived: req.Archived,
		Limit:    limit,
		Offset:   offset,
	})
}

// Delete hard-deletes a document. Chunk and job rows cascade in the
// database; the vector index and the stored file are cleaned up here,
// best-effort, so a storage hiccup never strands the database rows.
func (s *documentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.documents.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.vectors.DeleteByDocument(ctx, id); err != nil {
		s.logger.Warn("failed to delete vectors", "document_id", id, "error", err)
	}

	if err := s.documents.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if doc.StoragePath != "" {
		if err := s.files.Remove(ctx, doc.StoragePath); err != nil {
			s.logger.Warn("failed to remove stored file", "document_id", id, "path", doc.StoragePath, "error", err)
		}
	}

	s.logger.Info("document deleted", "document_id", id, "filename", doc.Filename)
	return nil
}

func (s *documentService) Stats(ctx context.Context) (*domain.DocumentStats, error) {
	return s.documents.Stats(ctx)
}
