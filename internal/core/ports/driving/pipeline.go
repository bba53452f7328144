package driving

import (
	"context"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// PipelineDriver sequences a document's processing run and owns the
// enqueue path.
type PipelineDriver interface {
	// EnqueueDocument creates a PENDING job for the document and puts a
	// matching task on the queue. A document with a non-terminal job is
	// refused with domain.ErrJobActive; the check and the enqueue run
	// under a per-document lock to close the check-then-act window.
	EnqueueDocument(ctx context.Context, documentID int64, reprocess bool) (*domain.ProcessingJob, error)

	// RequeueJob puts an already retried (PENDING) job back on the queue
	RequeueJob(ctx context.Context, job *domain.ProcessingJob) error

	// RunTask executes one queued pipeline run. Called by workers.
	RunTask(ctx context.Context, task *domain.Task) (*domain.TaskResult, error)
}
