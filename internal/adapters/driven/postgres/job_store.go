package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobStore = (*JobStore)(nil)

// JobStore implements driven.JobStore using PostgreSQL
type JobStore struct {
	db *DB
}

// NewJobStore creates a new JobStore
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

const jobColumns = `
	id, document_id, status, current_stage, progress_pct, error, result,
	retry_count, max_retries, created_at, started_at, completed_at
`

// Create inserts a new job record
func (s *JobStore) Create(ctx context.Context, job *domain.ProcessingJob) error {
	resultJSON, err := marshalJobResult(job)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO processing_jobs (
			id, document_id, status, current_stage, progress_pct, error,
			result, retry_count, max_retries, created_at, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.DocumentID,
		string(job.Status),
		string(job.CurrentStage),
		job.ProgressPct,
		job.Error,
		resultJSON,
		job.RetryCount,
		job.MaxRetries,
		job.CreatedAt,
		NullTime(job.StartedAt),
		NullTime(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID
func (s *JobStore) Get(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM processing_jobs WHERE id = $1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// Update persists the job's current state
func (s *JobStore) Update(ctx context.Context, job *domain.ProcessingJob) error {
	resultJSON, err := marshalJobResult(job)
	if err != nil {
		return err
	}

	query := `
		UPDATE processing_jobs SET
			status = $1, current_stage = $2, progress_pct = $3, error = $4,
			result = $5, retry_count = $6, started_at = $7, completed_at = $8
		WHERE id = $9
	`

	result, err := s.db.ExecContext(ctx, query,
		string(job.Status),
		string(job.CurrentStage),
		job.ProgressPct,
		job.Error,
		resultJSON,
		job.RetryCount,
		NullTime(job.StartedAt),
		NullTime(job.CompletedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
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

// List retrieves jobs matching the filter plus the total count
func (s *JobStore) List(ctx context.Context, filter driven.JobFilter) ([]*domain.ProcessingJob, int, error) {
	var conditions []string
	var args []any
	arg := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", arg))
		args = append(args, string(filter.Status))
		arg++
	}
	if filter.DocumentID != 0 {
		conditions = append(conditions, fmt.Sprintf("document_id = $%d", arg))
		args = append(args, filter.DocumentID)
		arg++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM processing_jobs` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	query := `SELECT ` + jobColumns + ` FROM processing_jobs` + where + ` ORDER BY created_at DESC`
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
		return nil, 0, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.ProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// Delete removes a terminal job record
func (s *JobStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM processing_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
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

// GetActiveForDocument returns the document's non-terminal job.
// Newest first so a stale pending record never shadows a running one.
func (s *JobStore) GetActiveForDocument(ctx context.Context, documentID int64) (*domain.ProcessingJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM processing_jobs
		WHERE document_id = $1 AND status IN ('PENDING', 'PROGRESS')
		ORDER BY created_at DESC
		LIMIT 1
	`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// Stats aggregates job counts by status
func (s *JobStore) Stats(ctx context.Context) (*domain.JobStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM processing_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query job stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.JobStats{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch domain.JobStatus(status) {
		case domain.JobStatusPending:
			stats.Pending = count
		case domain.JobStatusProgress:
			stats.Progress = count
		case domain.JobStatusSuccess:
			stats.Success = count
		case domain.JobStatusFailure:
			stats.Failure = count
		case domain.JobStatusCancelled:
			stats.Cancelled = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func marshalJobResult(job *domain.ProcessingJob) ([]byte, error) {
	if job.Result == nil {
		return nil, nil
	}
	resultJSON, err := json.Marshal(job.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal job result: %w", err)
	}
	return resultJSON, nil
}

func scanJob(row rowScanner) (*domain.ProcessingJob, error) {
	var job domain.ProcessingJob
	var status, stage string
	var resultJSON []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.DocumentID,
		&status,
		&stage,
		&job.ProgressPct,
		&job.Error,
		&resultJSON,
		&job.RetryCount,
		&job.MaxRetries,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(status)
	job.CurrentStage = domain.Stage(stage)
	job.StartedAt = TimePtr(startedAt)
	job.CompletedAt = TimePtr(completedAt)

	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &job.Result); err != nil {
			return nil, fmt.Errorf("unmarshal job result: %w", err)
		}
	}
	return &job, nil
}
