package services

import (
	"context"
	"errors"
	"testing"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven/mocks"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driving"
)

func newTestJobService() (driving.JobService, *mocks.MockJobStore, *mocks.MockTaskQueue) {
	jobs := mocks.NewMockJobStore()
	queue := mocks.NewMockTaskQueue()
	driver := NewPipelineDriver(PipelineDriverConfig{
		JobStore:  jobs,
		TaskQueue: queue,
		Lock:      mocks.NewMockDistributedLock(),
	})
	svc := NewJobService(JobServiceConfig{JobStore: jobs, Driver: driver})
	return svc, jobs, queue
}

func seedJob(t *testing.T, jobs *mocks.MockJobStore, id string, documentID int64, status domain.JobStatus) *domain.ProcessingJob {
	t.Helper()
	job := domain.NewProcessingJob(id, documentID)
	switch status {
	case domain.JobStatusPending:
	case domain.JobStatusProgress:
		if err := job.Start(); err != nil {
			t.Fatal(err)
		}
	case domain.JobStatusSuccess:
		if err := job.Start(); err != nil {
			t.Fatal(err)
		}
		if err := job.Complete(nil); err != nil {
			t.Fatal(err)
		}
	case domain.JobStatusFailure:
		if err := job.Start(); err != nil {
			t.Fatal(err)
		}
		if err := job.Fail("boom"); err != nil {
			t.Fatal(err)
		}
	case domain.JobStatusCancelled:
		if err := job.Cancel("test"); err != nil {
			t.Fatal(err)
		}
	}
	if err := jobs.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	return job
}

func TestJobRetry(t *testing.T) {
	svc, jobs, queue := newTestJobService()
	seedJob(t, jobs, "job-1", 1, domain.JobStatusFailure)

	job, err := svc.Retry(context.Background(), "job-1", false)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if job.Status != domain.JobStatusPending {
		t.Errorf("Status = %s, want PENDING", job.Status)
	}
	if job.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", job.RetryCount)
	}
	if job.Error != "" {
		t.Errorf("Error = %q, want cleared", job.Error)
	}
	if queue.PendingCount() != 1 {
		t.Errorf("pending tasks = %d, want 1", queue.PendingCount())
	}
}

func TestJobRetry_BudgetExceeded(t *testing.T) {
	svc, jobs, _ := newTestJobService()
	job := seedJob(t, jobs, "job-1", 1, domain.JobStatusFailure)
	job.RetryCount = domain.DefaultMaxRetries

	_, err := svc.Retry(context.Background(), "job-1", false)
	if !errors.Is(err, domain.ErrRetryBudgetExceeded) {
		t.Fatalf("Retry() error = %v, want ErrRetryBudgetExceeded", err)
	}

	// force bypasses the budget without consuming it
	forced, err := svc.Retry(context.Background(), "job-1", true)
	if err != nil {
		t.Fatalf("Retry(force) error = %v", err)
	}
	if forced.RetryCount != domain.DefaultMaxRetries {
		t.Errorf("RetryCount = %d, want unchanged %d", forced.RetryCount, domain.DefaultMaxRetries)
	}
}

func TestJobRetry_ActiveJob(t *testing.T) {
	svc, jobs, _ := newTestJobService()
	seedJob(t, jobs, "job-1", 1, domain.JobStatusProgress)

	_, err := svc.Retry(context.Background(), "job-1", false)
	if !errors.Is(err, domain.ErrJobActive) {
		t.Errorf("Retry() error = %v, want ErrJobActive", err)
	}
}

func TestJobCancel(t *testing.T) {
	svc, jobs, _ := newTestJobService()
	seedJob(t, jobs, "job-1", 1, domain.JobStatusPending)

	job, err := svc.Cancel(context.Background(), "job-1", "operator request")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if job.Status != domain.JobStatusCancelled {
		t.Errorf("Status = %s, want CANCELLED", job.Status)
	}
	if job.Error != "operator request" {
		t.Errorf("Error = %q, want the cancel reason", job.Error)
	}
}

func TestJobCancel_Terminal(t *testing.T) {
	svc, jobs, _ := newTestJobService()
	seedJob(t, jobs, "job-1", 1, domain.JobStatusSuccess)

	_, err := svc.Cancel(context.Background(), "job-1", "")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Cancel() error = %v, want ErrInvalidTransition", err)
	}
}

func TestJobDelete(t *testing.T) {
	svc, jobs, _ := newTestJobService()
	seedJob(t, jobs, "done", 1, domain.JobStatusSuccess)
	seedJob(t, jobs, "running", 2, domain.JobStatusProgress)

	if err := svc.Delete(context.Background(), "done"); err != nil {
		t.Errorf("Delete(terminal) error = %v", err)
	}
	if err := svc.Delete(context.Background(), "running"); !errors.Is(err, domain.ErrJobActive) {
		t.Errorf("Delete(active) error = %v, want ErrJobActive", err)
	}
	if jobs.Count() != 1 {
		t.Errorf("job count = %d, want 1", jobs.Count())
	}
}

func TestJobBulk(t *testing.T) {
	svc, jobs, _ := newTestJobService()
	seedJob(t, jobs, "failed", 1, domain.JobStatusFailure)
	seedJob(t, jobs, "running", 2, domain.JobStatusProgress)

	result, err := svc.Bulk(context.Background(), driving.BulkActionRetry, []string{"failed", "running", "missing"}, false)
	if err != nil {
		t.Fatalf("Bulk() error = %v", err)
	}
	if result.Processed != 3 {
		t.Errorf("Processed = %d, want 3", result.Processed)
	}
	if result.Updated != 1 {
		t.Errorf("Updated = %d, want 1", result.Updated)
	}
	if len(result.Errors) != 2 {
		t.Errorf("Errors = %v, want 2 entries", result.Errors)
	}
}

func TestJobBulk_UnknownAction(t *testing.T) {
	svc, _, _ := newTestJobService()
	_, err := svc.Bulk(context.Background(), "explode", []string{"a"}, false)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Bulk() error = %v, want ErrInvalidInput", err)
	}
}

func TestJobList_FilterByStatus(t *testing.T) {
	svc, jobs, _ := newTestJobService()
	seedJob(t, jobs, "a", 1, domain.JobStatusFailure)
	seedJob(t, jobs, "b", 2, domain.JobStatusSuccess)
	seedJob(t, jobs, "c", 3, domain.JobStatusFailure)

	listed, total, err := svc.List(context.Background(), domain.JobStatusFailure, 0, 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || len(listed) != 2 {
		t.Fatalf("List() = %d jobs (total %d), want 2", len(listed), total)
	}
	// newest first
	if listed[0].ID != "c" || listed[1].ID != "a" {
		t.Errorf("List() order = [%s %s], want [c a]", listed[0].ID, listed[1].ID)
	}
}
