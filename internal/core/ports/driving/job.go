package driving

import (
	"context"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// BulkJobAction names an operation applied to a set of jobs
type BulkJobAction string

const (
	BulkActionRetry  BulkJobAction = "retry"
	BulkActionCancel BulkJobAction = "cancel"
	BulkActionDelete BulkJobAction = "delete"
)

// BulkResult reports how a bulk operation went: every requested job is
// counted as processed, only those whose state actually changed as updated.
type BulkResult struct {
	Processed int      `json:"processed"`
	Updated   int      `json:"updated"`
	Errors    []string `json:"errors,omitempty"`
}

// JobService provides operator control over processing jobs
type JobService interface {
	// Get retrieves a job by ID
	Get(ctx context.Context, id string) (*domain.ProcessingJob, error)

	// List retrieves jobs filtered by status and/or document, newest
	// first, plus the total count before pagination
	List(ctx context.Context, status domain.JobStatus, documentID int64, limit, offset int) ([]*domain.ProcessingJob, int, error)

	// Retry re-queues a failed or cancelled job. force bypasses the
	// retry budget without consuming it.
	Retry(ctx context.Context, id string, force bool) (*domain.ProcessingJob, error)

	// Cancel marks a pending or running job cancelled. The cancellation
	// is advisory: an in-flight worker notices it at its next status check.
	Cancel(ctx context.Context, id string, reason string) (*domain.ProcessingJob, error)

	// Delete removes a terminal job record
	Delete(ctx context.Context, id string) error

	// Bulk applies an action to many jobs, with per-job guard checks
	Bulk(ctx context.Context, action BulkJobAction, ids []string, force bool) (*BulkResult, error)

	// Stats aggregates job counts by status
	Stats(ctx context.Context) (*domain.JobStats, error)
}
