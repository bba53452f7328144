package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `
	id, filename, file_type, file_size, content_hash, storage_path,
	category, confidence, page_count, word_count, chunk_count,
	entities, metadata, is_active, is_archived, archived_at,
	uploaded_at, processed_at
`

// Save inserts a new document and fills in its generated ID.
// The unique constraint on content_hash turns concurrent duplicate
// admissions into a DuplicateError.
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	entitiesJSON, metadataJSON, err := marshalDocumentJSON(doc)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (
			filename, file_type, file_size, content_hash, storage_path,
			category, confidence, page_count, word_count, chunk_count,
			entities, metadata, is_active, is_archived, archived_at,
			uploaded_at, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`

	err = s.db.QueryRowContext(ctx, query,
		doc.Filename,
		doc.FileType,
		doc.FileSize,
		doc.ContentHash,
		doc.StoragePath,
		string(doc.Category),
		doc.Confidence,
		doc.PageCount,
		doc.WordCount,
		doc.ChunkCount,
		entitiesJSON,
		metadataJSON,
		doc.IsActive,
		doc.IsArchived,
		NullTime(doc.ArchivedAt),
		doc.UploadedAt,
		NullTime(doc.ProcessedAt),
	).Scan(&doc.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if existing, lookupErr := s.GetByHash(ctx, doc.ContentHash); lookupErr == nil {
				return &domain.DuplicateError{ExistingID: existing.ID}
			}
			return &domain.DuplicateError{}
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Update persists changes to an existing document
func (s *DocumentStore) Update(ctx context.Context, doc *domain.Document) error {
	entitiesJSON, metadataJSON, err := marshalDocumentJSON(doc)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents SET
			filename = $1, storage_path = $2, category = $3, confidence = $4,
			page_count = $5, word_count = $6, chunk_count = $7,
			entities = $8, metadata = $9, is_active = $10, is_archived = $11,
			archived_at = $12, processed_at = $13
		WHERE id = $14
	`

	result, err := s.db.ExecContext(ctx, query,
		doc.Filename,
		doc.StoragePath,
		string(doc.Category),
		doc.Confidence,
		doc.PageCount,
		doc.WordCount,
		doc.ChunkCount,
		entitiesJSON,
		metadataJSON,
		doc.IsActive,
		doc.IsArchived,
		NullTime(doc.ArchivedAt),
		NullTime(doc.ProcessedAt),
		doc.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id int64) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(s.db.QueryRowContext(ctx, query, id))
}

// GetByHash retrieves a document by content hash
func (s *DocumentStore) GetByHash(ctx context.Context, hash string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE content_hash = $1`
	return scanDocument(s.db.QueryRowContext(ctx, query, hash))
}

// List retrieves documents matching the filter plus the total count
func (s *DocumentStore) List(ctx context.Context, filter driven.DocumentFilter) ([]*domain.Document, int, error) {
	var conditions []string
	var args []any
	arg := 1

	add := func(cond string, value any) {
		conditions = append(conditions, fmt.Sprintf(cond, arg))
		args = append(args, value)
		arg++
	}

	if filter.Category != "" {
		add("category = $%d", string(filter.Category))
	}
	if filter.FileType != "" {
		add("file_type = $%d", filter.FileType)
	}
	if filter.Active != nil {
		add("is_active = $%d", *filter.Active)
	}
	if filter.Archived != nil {
		add("is_archived = $%d", *filter.Archived)
	}
	if filter.Search != "" {
		add("filename ILIKE $%d", "%"+filter.Search+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM documents` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	query := `SELECT ` + documentColumns + ` FROM documents` + where + ` ORDER BY uploaded_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", arg)
		args = append(args, filter.Limit)
		arg++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", arg)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocumentRow(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Delete removes a document. Chunks, vectors and jobs cascade.
func (s *DocumentStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Stats aggregates corpus-level document counts
func (s *DocumentStore) Stats(ctx context.Context) (*domain.DocumentStats, error) {
	stats := &domain.DocumentStats{
		ByCategory: make(map[string]int64),
		ByFileType: make(map[string]int64),
	}

	totalsQuery := `
		SELECT COUNT(*), COALESCE(SUM(chunk_count), 0), COALESCE(SUM(word_count), 0)
		FROM documents
	`
	err := s.db.QueryRowContext(ctx, totalsQuery).Scan(
		&stats.TotalDocuments,
		&stats.TotalChunks,
		&stats.TotalWords,
	)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	if err := s.groupCount(ctx, `SELECT category, COUNT(*) FROM documents GROUP BY category`, stats.ByCategory); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, `SELECT file_type, COUNT(*) FROM documents GROUP BY file_type`, stats.ByFileType); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *DocumentStore) groupCount(ctx context.Context, query string, into map[string]int64) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query group counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}

func marshalDocumentJSON(doc *domain.Document) ([]byte, []byte, error) {
	entitiesJSON, err := json.Marshal(doc.Entities)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal entities: %w", err)
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return entitiesJSON, metadataJSON, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row *sql.Row) (*domain.Document, error) {
	doc, err := scanDocumentRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

func scanDocumentRow(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var category string
	var entitiesJSON, metadataJSON []byte
	var archivedAt, processedAt sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.FileType,
		&doc.FileSize,
		&doc.ContentHash,
		&doc.StoragePath,
		&category,
		&doc.Confidence,
		&doc.PageCount,
		&doc.WordCount,
		&doc.ChunkCount,
		&entitiesJSON,
		&metadataJSON,
		&doc.IsActive,
		&doc.IsArchived,
		&archivedAt,
		&doc.UploadedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Category = domain.Category(category)
	doc.ArchivedAt = TimePtr(archivedAt)
	doc.ProcessedAt = TimePtr(processedAt)

	if len(entitiesJSON) > 0 {
		if err := json.Unmarshal(entitiesJSON, &doc.Entities); err != nil {
			return nil, fmt.Errorf("unmarshal entities: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}
	return &doc, nil
}
