package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore using PostgreSQL
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

const chunkColumns = `
	id, document_id, chunk_index, content, content_hash, word_count,
	char_count, page_number, chunk_type, section, section_title,
	start_offset, end_offset, vector_id, created_at
`

// ReplaceForDocument atomically swaps a document's chunks and vectors.
// Deleting document_chunks cascades to chunk_vectors, so the delete and
// every insert share one transaction.
func (s *ChunkStore) ReplaceForDocument(ctx context.Context, documentID int64, chunks []*domain.DocumentChunk) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
			return fmt.Errorf("delete existing chunks: %w", err)
		}

		insertChunk, err := tx.PrepareContext(ctx, `
			INSERT INTO document_chunks (
				document_id, chunk_index, content, content_hash, word_count,
				char_count, page_number, chunk_type, section, section_title,
				start_offset, end_offset, vector_id
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id
		`)
		if err != nil {
			return fmt.Errorf("prepare chunk insert: %w", err)
		}
		defer insertChunk.Close()

		insertVector, err := tx.PrepareContext(ctx, `
			INSERT INTO chunk_vectors (chunk_id, document_id, embedding)
			VALUES ($1, $2, $3)
		`)
		if err != nil {
			return fmt.Errorf("prepare vector insert: %w", err)
		}
		defer insertVector.Close()

		for _, chunk := range chunks {
			err := insertChunk.QueryRowContext(ctx,
				documentID,
				chunk.ChunkIndex,
				chunk.Content,
				chunk.ContentHash,
				chunk.WordCount,
				chunk.CharCount,
				chunk.PageNumber,
				string(chunk.ChunkType),
				chunk.Section,
				chunk.SectionTitle,
				chunk.StartOffset,
				chunk.EndOffset,
				NullString(chunk.VectorID),
			).Scan(&chunk.ID)
			if err != nil {
				return fmt.Errorf("insert chunk %d: %w", chunk.ChunkIndex, err)
			}
			chunk.DocumentID = documentID

			if len(chunk.Embedding) > 0 {
				if _, err := insertVector.ExecContext(ctx, chunk.ID, documentID, pgvector.NewVector(chunk.Embedding)); err != nil {
					return fmt.Errorf("insert vector for chunk %d: %w", chunk.ChunkIndex, err)
				}
			}
		}
		return nil
	})
}

// Get retrieves a chunk by ID
func (s *ChunkStore) Get(ctx context.Context, id int64) (*domain.DocumentChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM document_chunks WHERE id = $1`
	chunk, err := scanChunk(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return chunk, err
}

// GetByIDs retrieves multiple chunks by ID
func (s *ChunkStore) GetByIDs(ctx context.Context, ids []int64) ([]*domain.DocumentChunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + chunkColumns + ` FROM document_chunks WHERE id = ANY($1)`
	return s.queryChunks(ctx, query, pq.Array(ids))
}

// GetByDocument retrieves a document's chunks ordered by chunk_index
func (s *ChunkStore) GetByDocument(ctx context.Context, documentID int64) ([]*domain.DocumentChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index`
	return s.queryChunks(ctx, query, documentID)
}

// KeywordSearch returns chunks whose content contains the query,
// case-insensitively, honoring the search filters
func (s *ChunkStore) KeywordSearch(ctx context.Context, query string, filters domain.Filters, limit int) ([]domain.KeywordHit, error) {
	sqlQuery := `
		SELECT c.id
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.is_active = TRUE AND c.content ILIKE $1
	`
	args := []any{"%" + query + "%"}
	arg := 2

	if len(filters.Categories) > 0 {
		categories := make([]string, len(filters.Categories))
		for i, c := range filters.Categories {
			categories[i] = string(c)
		}
		sqlQuery += fmt.Sprintf(" AND d.category = ANY($%d)", arg)
		args = append(args, pq.Array(categories))
		arg++
	}
	if len(filters.FileTypes) > 0 {
		sqlQuery += fmt.Sprintf(" AND d.file_type = ANY($%d)", arg)
		args = append(args, pq.Array(filters.FileTypes))
		arg++
	}
	if len(filters.DocumentIDs) > 0 {
		sqlQuery += fmt.Sprintf(" AND c.document_id = ANY($%d)", arg)
		args = append(args, pq.Array(filters.DocumentIDs))
		arg++
	}

	sqlQuery += " ORDER BY c.id"
	if limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT $%d", arg)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	var hits []domain.KeywordHit
	for rows.Next() {
		var hit domain.KeywordHit
		if err := rows.Scan(&hit.ChunkID); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// DeleteByDocument deletes all chunks (and vectors) for a document
func (s *ChunkStore) DeleteByDocument(ctx context.Context, documentID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// Count returns the total chunk count
func (s *ChunkStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

func (s *ChunkStore) queryChunks(ctx context.Context, query string, args ...any) ([]*domain.DocumentChunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*domain.DocumentChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func scanChunk(row rowScanner) (*domain.DocumentChunk, error) {
	var chunk domain.DocumentChunk
	var chunkType string
	var vectorID sql.NullString

	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.ChunkIndex,
		&chunk.Content,
		&chunk.ContentHash,
		&chunk.WordCount,
		&chunk.CharCount,
		&chunk.PageNumber,
		&chunkType,
		&chunk.Section,
		&chunk.SectionTitle,
		&chunk.StartOffset,
		&chunk.EndOffset,
		&vectorID,
		&chunk.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	chunk.ChunkType = domain.ChunkType(chunkType)
	chunk.VectorID = StringPtr(vectorID)
	return &chunk, nil
}
