package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driving"
)

// Ensure jobService implements JobService
var _ driving.JobService = (*jobService)(nil)

type jobService struct {
	jobs   driven.JobStore
	driver driving.PipelineDriver
	logger *slog.Logger
}

// JobServiceConfig holds dependencies for the job service.
type JobServiceConfig struct {
	JobStore driven.JobStore
	Driver   driving.PipelineDriver
	Logger   *slog.Logger
}

// NewJobService creates a new job service.
func NewJobService(cfg JobServiceConfig) driving.JobService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &jobService{
		jobs:   cfg.JobStore,
		driver: cfg.Driver,
		logger: logger.With("component", "job_service"),
	}
}

func (s *jobService) Get(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	return s.jobs.Get(ctx, id)
}

func (s *jobService) List(ctx context.Context, status domain.JobStatus, documentID int64, limit, offset int) ([]*domain.ProcessingJob, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.jobs.List(ctx, driven.JobFilter{
		Status:     status,
		DocumentID: documentID,
		Limit:      limit,
		Offset:     offset,
	})
}

// Retry resets a failed or cancelled job to PENDING and puts its task
// back on the queue. With force set the retry budget is bypassed.
func (s *jobService) Retry(ctx context.Context, id string, force bool) (*domain.ProcessingJob, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := job.Retry(force, true); err != nil {
		return nil, err
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	if err := s.driver.RequeueJob(ctx, job); err != nil {
		return nil, fmt.Errorf("requeue job: %w", err)
	}
	s.logger.Info("job retried", "job_id", id, "document_id", job.DocumentID, "force", force)
	return job, nil
}

func (s *jobService) Cancel(ctx context.Context, id, reason string) (*domain.ProcessingJob, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := job.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	s.logger.Info("job cancelled", "job_id", id, "reason", reason)
	return job, nil
}

func (s *jobService) Delete(ctx context.Context, id string) error {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := job.CanDelete(); err != nil {
		return fmt.Errorf("%w: job %s is %s", err, id, job.Status)
	}
	return s.jobs.Delete(ctx, id)
}

// Bulk applies an action to a set of jobs. Failures on individual jobs
// are collected rather than aborting the batch.
func (s *jobService) Bulk(ctx context.Context, action driving.BulkJobAction, ids []string, force bool) (*driving.BulkResult, error) {
	result := &driving.BulkResult{}
	for _, id := range ids {
		result.Processed++
		var err error
		switch action {
		case driving.BulkActionRetry:
			_, err = s.Retry(ctx, id, force)
		case driving.BulkActionCancel:
			_, err = s.Cancel(ctx, id, "bulk cancel")
		case driving.BulkActionDelete:
			err = s.Delete(ctx, id)
		default:
			return nil, fmt.Errorf("%w: unknown bulk action %q", domain.ErrInvalidInput, action)
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		result.Updated++
	}
	return result, nil
}

func (s *jobService) Stats(ctx context.Context) (*domain.JobStats, error) {
	return s.jobs.Stats(ctx)
}
