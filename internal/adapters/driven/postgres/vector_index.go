package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements driven.VectorIndex on the chunk_vectors table
// using pgvector. Similarity is cosine; searches are exact scans, which
// keeps the index honest at the corpus sizes a single instance serves.
type VectorIndex struct {
	db *DB
}

// NewVectorIndex creates a new VectorIndex
func NewVectorIndex(db *DB) *VectorIndex {
	return &VectorIndex{db: db}
}

// Search finds the chunks most similar to the query embedding.
// The <=> operator is cosine distance, so similarity is 1 - distance.
func (v *VectorIndex) Search(ctx context.Context, embedding []float32, limit int, filters domain.Filters, threshold float64) ([]domain.SemanticHit, error) {
	query := `
		SELECT cv.chunk_id, 1 - (cv.embedding <=> $1) AS score
		FROM chunk_vectors cv
		JOIN documents d ON d.id = cv.document_id
		WHERE d.is_active = TRUE
	`
	args := []any{pgvector.NewVector(embedding)}
	arg := 2

	if len(filters.Categories) > 0 {
		categories := make([]string, len(filters.Categories))
		for i, c := range filters.Categories {
			categories[i] = string(c)
		}
		query += fmt.Sprintf(" AND d.category = ANY($%d)", arg)
		args = append(args, pq.Array(categories))
		arg++
	}
	if len(filters.FileTypes) > 0 {
		query += fmt.Sprintf(" AND d.file_type = ANY($%d)", arg)
		args = append(args, pq.Array(filters.FileTypes))
		arg++
	}
	if len(filters.DocumentIDs) > 0 {
		query += fmt.Sprintf(" AND cv.document_id = ANY($%d)", arg)
		args = append(args, pq.Array(filters.DocumentIDs))
		arg++
	}
	if threshold > 0 {
		query += fmt.Sprintf(" AND 1 - (cv.embedding <=> $1) >= $%d", arg)
		args = append(args, threshold)
		arg++
	}

	query += " ORDER BY cv.embedding <=> $1"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", arg)
		args = append(args, limit)
	}

	rows, err := v.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []domain.SemanticHit
	for rows.Next() {
		var hit domain.SemanticHit
		if err := rows.Scan(&hit.ChunkID, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// DeleteByDocument removes all vectors for a document
func (v *VectorIndex) DeleteByDocument(ctx context.Context, documentID int64) error {
	if _, err := v.db.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return nil
}

// Count returns the number of indexed vectors
func (v *VectorIndex) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunk_vectors`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return count, nil
}

// HealthCheck verifies the index is reachable
func (v *VectorIndex) HealthCheck(ctx context.Context) error {
	return v.db.PingContext(ctx)
}
