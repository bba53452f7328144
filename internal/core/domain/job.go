package domain

import (
	"time"
)

// JobStatus represents the lifecycle state of a processing job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusProgress  JobStatus = "PROGRESS"
	JobStatusSuccess   JobStatus = "SUCCESS"
	JobStatusFailure   JobStatus = "FAILURE"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// Stage names a step of the processing pipeline.
type Stage string

const (
	StageParse    Stage = "parse"
	StageClassify Stage = "classify"
	StageExtract  Stage = "extract"
	StageChunk    Stage = "chunk"
	StageEmbed    Stage = "embed"
	StageIndex    Stage = "index"
	StageFinalize Stage = "finalize"
)

// DefaultMaxRetries bounds how many times a failed job may be retried
// without force.
const DefaultMaxRetries = 3

// ProcessingJob tracks one document's trip through the pipeline.
//
// Allowed transitions:
//
//	PENDING  -> PROGRESS            (Start)
//	PROGRESS -> SUCCESS | FAILURE   (Complete / Fail)
//	PENDING | PROGRESS -> CANCELLED (Cancel)
//	FAILURE | CANCELLED -> PENDING  (Retry)
//
// All other transitions return ErrInvalidTransition.
type ProcessingJob struct {
	// ID doubles as the task-queue task ID.
	ID         string `json:"id"`
	DocumentID int64  `json:"document_id"`

	Status       JobStatus `json:"status"`
	CurrentStage Stage     `json:"current_stage,omitempty"`
	ProgressPct  int       `json:"progress_pct"`

	Error  string         `json:"error,omitempty"`
	Result map[string]any `json:"result,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewProcessingJob creates a pending job for a document.
func NewProcessingJob(id string, documentID int64) *ProcessingJob {
	return &ProcessingJob{
		ID:         id,
		DocumentID: documentID,
		Status:     JobStatusPending,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  time.Now().UTC(),
	}
}

// IsTerminal reports whether the job has finished for good.
func (j *ProcessingJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusSuccess, JobStatusFailure, JobStatusCancelled:
		return true
	}
	return false
}

// Start moves the job from PENDING to PROGRESS.
func (j *ProcessingJob) Start() error {
	if j.Status != JobStatusPending {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	j.Status = JobStatusProgress
	j.StartedAt = &now
	j.ProgressPct = 0
	return nil
}

// Advance records stage progress. Only valid while the job is running.
func (j *ProcessingJob) Advance(stage Stage, pct int) error {
	if j.Status != JobStatusProgress {
		return ErrInvalidTransition
	}
	if pct < j.ProgressPct {
		pct = j.ProgressPct
	}
	if pct > 100 {
		pct = 100
	}
	j.CurrentStage = stage
	j.ProgressPct = pct
	return nil
}

// Complete moves the job from PROGRESS to SUCCESS with an optional result.
func (j *ProcessingJob) Complete(result map[string]any) error {
	if j.Status != JobStatusProgress {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
	j.ProgressPct = 100
	j.Result = result
	j.Error = ""
	return nil
}

// Fail moves the job to FAILURE, preserving the error message.
func (j *ProcessingJob) Fail(msg string) error {
	if j.Status != JobStatusPending && j.Status != JobStatusProgress {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	j.Status = JobStatusFailure
	j.CompletedAt = &now
	j.Error = msg
	return nil
}

// Cancel moves a pending or running job to CANCELLED.
func (j *ProcessingJob) Cancel(reason string) error {
	if j.Status != JobStatusPending && j.Status != JobStatusProgress {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	if reason != "" {
		j.Error = reason
	}
	return nil
}

// Retry resets a failed or cancelled job back to PENDING.
// The retry counter increments unless force is set; force also bypasses
// the retry budget. resetProgress clears the recorded stage and percent.
func (j *ProcessingJob) Retry(force, resetProgress bool) error {
	switch j.Status {
	case JobStatusFailure, JobStatusCancelled:
		// retryable
	case JobStatusPending, JobStatusProgress:
		return ErrJobActive
	default:
		return ErrInvalidTransition
	}
	if !force {
		if j.RetryCount >= j.MaxRetries {
			return ErrRetryBudgetExceeded
		}
		j.RetryCount++
	}
	j.Status = JobStatusPending
	j.Error = ""
	j.Result = nil
	j.StartedAt = nil
	j.CompletedAt = nil
	if resetProgress {
		j.CurrentStage = ""
		j.ProgressPct = 0
	}
	return nil
}

// CanDelete reports whether the job record may be removed.
// Active jobs must be cancelled first.
func (j *ProcessingJob) CanDelete() error {
	if !j.IsTerminal() {
		return ErrJobActive
	}
	return nil
}

// JobStats aggregates job counts by status for the stats endpoint.
type JobStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Progress  int64 `json:"progress"`
	Success   int64 `json:"success"`
	Failure   int64 `json:"failure"`
	Cancelled int64 `json:"cancelled"`
}
