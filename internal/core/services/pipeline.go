package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/docflow-labs/docflow-core/internal/chunker"
	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driving"
)

// Ensure PipelineDriver implements the driving port
var _ driving.PipelineDriver = (*PipelineDriver)(nil)

const (
	defaultEmbedBatchSize   = 32
	defaultEmbedConcurrency = 4
	enqueueLockTTL          = 10 * time.Second
)

// PipelineDriver owns the processing pipeline: it admits documents onto
// the task queue and executes queued runs stage by stage, recording
// progress on the job record as it goes.
type PipelineDriver struct {
	documents driven.DocumentStore
	jobs      driven.JobStore
	chunks    driven.ChunkStore
	queue     driven.TaskQueue
	lock      driven.DistributedLock
	files     driven.FileStore
	parser    driven.Parser
	classify  driven.Classifier
	extract   driven.EntityExtractor
	embedding driven.EmbeddingService
	chunker   *chunker.Chunker

	embedBatchSize   int
	embedConcurrency int
	logger           *slog.Logger
}

// PipelineDriverConfig holds dependencies for the PipelineDriver.
type PipelineDriverConfig struct {
	DocumentStore driven.DocumentStore
	JobStore      driven.JobStore
	ChunkStore    driven.ChunkStore
	TaskQueue     driven.TaskQueue
	Lock          driven.DistributedLock
	FileStore     driven.FileStore
	Parser        driven.Parser
	Classifier    driven.Classifier
	Extractor     driven.EntityExtractor
	Embedding     driven.EmbeddingService
	Chunker       *chunker.Chunker

	EmbedBatchSize   int
	EmbedConcurrency int
	Logger           *slog.Logger
}

// NewPipelineDriver creates a new PipelineDriver.
func NewPipelineDriver(cfg PipelineDriverConfig) *PipelineDriver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batch := cfg.EmbedBatchSize
	if batch <= 0 {
		batch = defaultEmbedBatchSize
	}
	concurrency := cfg.EmbedConcurrency
	if concurrency <= 0 {
		concurrency = defaultEmbedConcurrency
	}
	return &PipelineDriver{
		documents:        cfg.DocumentStore,
		jobs:             cfg.JobStore,
		chunks:           cfg.ChunkStore,
		queue:            cfg.TaskQueue,
		lock:             cfg.Lock,
		files:            cfg.FileStore,
		parser:           cfg.Parser,
		classify:         cfg.Classifier,
		extract:          cfg.Extractor,
		embedding:        cfg.Embedding,
		chunker:          cfg.Chunker,
		embedBatchSize:   batch,
		embedConcurrency: concurrency,
		logger:           logger.With("component", "pipeline"),
	}
}

// EnqueueDocument creates a PENDING job and puts a matching task on the
// queue. The active-job check and the enqueue run under a per-document
// lock so two concurrent requests cannot both pass the check.
func (d *PipelineDriver) EnqueueDocument(ctx context.Context, documentID int64, reprocess bool) (*domain.ProcessingJob, error) {
	lockName := fmt.Sprintf("pipeline:enqueue:%d", documentID)
	acquired, err := d.lock.Acquire(ctx, lockName, enqueueLockTTL)
	if err != nil {
		// The lock is a coordination aid, not a correctness requirement:
		// the active-job check below still catches most races.
		d.logger.Warn("lock acquire failed, proceeding unlocked", "document_id", documentID, "error", err)
	} else if !acquired {
		return nil, fmt.Errorf("%w: enqueue already in flight for document %d", domain.ErrJobActive, documentID)
	} else {
		defer func() {
			if err := d.lock.Release(ctx, lockName); err != nil {
				d.logger.Warn("lock release failed", "lock", lockName, "error", err)
			}
		}()
	}

	if _, err := d.documents.Get(ctx, documentID); err != nil {
		return nil, err
	}

	if active, err := d.jobs.GetActiveForDocument(ctx, documentID); err == nil {
		return nil, fmt.Errorf("%w: job %s", domain.ErrJobActive, active.ID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("active job lookup: %w", err)
	}

	var task *domain.Task
	if reprocess {
		task = domain.NewReprocessDocumentTask(documentID)
	} else {
		task = domain.NewProcessDocumentTask(documentID)
	}

	job := domain.NewProcessingJob(task.ID, documentID)
	if err := d.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := d.queue.Enqueue(ctx, task); err != nil {
		if ferr := job.Fail(fmt.Sprintf("enqueue failed: %v", err)); ferr == nil {
			if uerr := d.jobs.Update(ctx, job); uerr != nil {
				d.logger.Error("failed to record enqueue failure", "job_id", job.ID, "error", uerr)
			}
		}
		return nil, fmt.Errorf("enqueue task: %w", err)
	}

	d.logger.Info("document enqueued", "document_id", documentID, "job_id", job.ID, "reprocess", reprocess)
	return job, nil
}

// RequeueJob puts an already retried (PENDING) job's task back on the
// queue. The task reuses the job ID so queue state and job state stay
// linked.
func (d *PipelineDriver) RequeueJob(ctx context.Context, job *domain.ProcessingJob) error {
	if job.Status != domain.JobStatusPending {
		return fmt.Errorf("%w: job %s is %s", domain.ErrInvalidTransition, job.ID, job.Status)
	}
	task := domain.NewProcessDocumentTask(job.DocumentID)
	task.ID = job.ID
	if err := d.queue.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// RunTask executes one queued pipeline run.
//
// Stage failures mark the job FAILURE and return a failed result with a
// nil error: the job record is the retry mechanism, the queue must not
// redeliver on its own. Between stages the job is re-read from the
// store; a cancellation observed there stops the run without writing
// further progress.
func (d *PipelineDriver) RunTask(ctx context.Context, task *domain.Task) (*domain.TaskResult, error) {
	start := time.Now()
	log := d.logger.With("task_id", task.ID, "document_id", task.DocumentID())

	job, err := d.jobs.Get(ctx, task.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Job record deleted after enqueue. Nothing to run.
			log.Warn("no job record for task, skipping")
			return &domain.TaskResult{TaskID: task.ID, Success: true, Duration: time.Since(start)}, nil
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job.IsTerminal() {
		log.Info("job already terminal, skipping", "status", job.Status)
		return &domain.TaskResult{TaskID: task.ID, Success: true, Duration: time.Since(start)}, nil
	}

	doc, err := d.documents.Get(ctx, job.DocumentID)
	if err != nil {
		return d.failRun(ctx, job, nil, domain.StageParse, fmt.Errorf("load document: %w", err), start)
	}

	if err := job.Start(); err != nil {
		log.Warn("job not startable, skipping", "status", job.Status)
		return &domain.TaskResult{TaskID: task.ID, Success: true, Duration: time.Since(start)}, nil
	}
	if err := d.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	log.Info("pipeline run started", "filename", doc.Filename)

	var stop bool

	// parse
	if job, stop, err = d.advance(ctx, job.ID, domain.StageParse, 10); err != nil {
		return nil, err
	} else if stop {
		return d.cancelledResult(job, task.ID, start, log)
	}
	parsed, err := d.parser.Parse(ctx, doc.StoragePath, doc.FileType)
	if err != nil {
		return d.failRun(ctx, job, doc, domain.StageParse, err, start)
	}
	if strings.TrimSpace(parsed.Text) == "" && parsed.Structured.IsEmpty() {
		return d.failRun(ctx, job, doc, domain.StageParse, errors.New("no content extracted"), start)
	}

	// classify, falling back to Uncategorized rather than failing the run
	if job, stop, err = d.advance(ctx, job.ID, domain.StageClassify, 25); err != nil {
		return nil, err
	} else if stop {
		return d.cancelledResult(job, task.ID, start, log)
	}
	category := domain.CategoryUncategorized
	confidence := 0.0
	if cls, err := d.classify.Classify(ctx, parsed.Text, doc.Filename); err != nil {
		log.Warn("classification failed, using fallback category", "error", err)
	} else {
		category = cls.Category
		confidence = cls.Confidence
	}

	// extract
	if job, stop, err = d.advance(ctx, job.ID, domain.StageExtract, 40); err != nil {
		return nil, err
	} else if stop {
		return d.cancelledResult(job, task.ID, start, log)
	}
	entities, err := d.extract.Extract(ctx, parsed.Text)
	if err != nil {
		return d.failRun(ctx, job, doc, domain.StageExtract, err, start)
	}

	// chunk
	if job, stop, err = d.advance(ctx, job.ID, domain.StageChunk, 55); err != nil {
		return nil, err
	} else if stop {
		return d.cancelledResult(job, task.ID, start, log)
	}
	textChunks := d.chunker.Chunk(parsed.Text)
	structured := d.chunker.ChunkStructured(parsed.Structured, len(textChunks))
	allChunks := append(textChunks, structured...)
	if len(allChunks) == 0 {
		return d.failRun(ctx, job, doc, domain.StageChunk, errors.New("no chunks produced"), start)
	}

	// embed
	if job, stop, err = d.advance(ctx, job.ID, domain.StageEmbed, 70); err != nil {
		return nil, err
	} else if stop {
		return d.cancelledResult(job, task.ID, start, log)
	}
	vectors, err := d.embedAll(ctx, allChunks)
	if err != nil {
		return d.failRun(ctx, job, doc, domain.StageEmbed, err, start)
	}

	// index
	if job, stop, err = d.advance(ctx, job.ID, domain.StageIndex, 85); err != nil {
		return nil, err
	} else if stop {
		return d.cancelledResult(job, task.ID, start, log)
	}
	rows := buildChunkRows(doc.ID, allChunks, vectors)
	if err := d.chunks.ReplaceForDocument(ctx, doc.ID, rows); err != nil {
		return d.failRun(ctx, job, doc, domain.StageIndex, err, start)
	}

	// finalize
	if job, stop, err = d.advance(ctx, job.ID, domain.StageFinalize, 95); err != nil {
		return nil, err
	} else if stop {
		return d.cancelledResult(job, task.ID, start, log)
	}
	now := time.Now().UTC()
	doc.Category = category
	doc.Confidence = confidence
	doc.Entities = entities
	doc.PageCount = parsed.PageCount
	doc.WordCount = len(strings.Fields(parsed.Text))
	doc.ChunkCount = len(rows)
	doc.ProcessedAt = &now
	mergeMetadata(doc, parsed.Metadata)

	if newPath, err := d.files.Archive(ctx, doc.StoragePath); err != nil {
		log.Warn("failed to archive source file", "path", doc.StoragePath, "error", err)
	} else {
		doc.StoragePath = newPath
	}

	if err := d.documents.Update(ctx, doc); err != nil {
		return d.failRun(ctx, job, doc, domain.StageFinalize, err, start)
	}

	// Re-read before completing: a cancellation during the run must win.
	job, err = d.jobs.Get(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("reload job: %w", err)
	}
	stats := chunker.Statistics(allChunks)
	result := map[string]any{
		"chunks":      len(rows),
		"category":    string(category),
		"word_count":  doc.WordCount,
		"chunk_stats": stats,
	}
	if err := job.Complete(result); err != nil {
		log.Info("job no longer running, discarding completion", "status", job.Status)
		return &domain.TaskResult{TaskID: task.ID, Success: true, Duration: time.Since(start)}, nil
	}
	if err := d.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	log.Info("pipeline run completed",
		"chunks", len(rows),
		"category", category,
		"duration", time.Since(start),
	)
	return &domain.TaskResult{
		TaskID:     task.ID,
		Success:    true,
		Duration:   time.Since(start),
		ItemsCount: len(rows),
	}, nil
}

// advance re-reads the job and records stage progress. stop is true
// when the job is no longer running (cancelled, typically) and the
// caller must end the run without writing anything further.
func (d *PipelineDriver) advance(ctx context.Context, jobID string, stage domain.Stage, pct int) (job *domain.ProcessingJob, stop bool, err error) {
	job, err = d.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, false, fmt.Errorf("reload job: %w", err)
	}
	if err := job.Advance(stage, pct); err != nil {
		return job, true, nil
	}
	if err := d.jobs.Update(ctx, job); err != nil {
		return job, false, fmt.Errorf("update job: %w", err)
	}
	return job, false, nil
}

func (d *PipelineDriver) cancelledResult(job *domain.ProcessingJob, taskID string, start time.Time, log *slog.Logger) (*domain.TaskResult, error) {
	status := domain.JobStatus("unknown")
	if job != nil {
		status = job.Status
	}
	log.Info("pipeline run stopped", "status", status)
	return &domain.TaskResult{TaskID: taskID, Success: true, Duration: time.Since(start)}, nil
}

// failRun marks the job FAILURE, moves the source file aside, and
// returns a failed result with a nil error so the queue acks the task.
func (d *PipelineDriver) failRun(ctx context.Context, job *domain.ProcessingJob, doc *domain.Document, stage domain.Stage, cause error, start time.Time) (*domain.TaskResult, error) {
	stageErr := &domain.StageError{Stage: stage, Err: cause}
	d.logger.Error("pipeline stage failed",
		"job_id", job.ID,
		"document_id", job.DocumentID,
		"stage", stage,
		"error", cause,
	)

	// Re-read so a concurrent cancellation is not overwritten.
	current, err := d.jobs.Get(ctx, job.ID)
	if err == nil {
		job = current
	}
	if err := job.Fail(stageErr.Error()); err == nil {
		if uerr := d.jobs.Update(ctx, job); uerr != nil {
			d.logger.Error("failed to record job failure", "job_id", job.ID, "error", uerr)
		}
	}

	if doc != nil && doc.StoragePath != "" {
		if newPath, merr := d.files.MoveToFailed(ctx, doc.StoragePath); merr != nil {
			d.logger.Warn("failed to quarantine source file", "path", doc.StoragePath, "error", merr)
		} else {
			doc.StoragePath = newPath
			if uerr := d.documents.Update(ctx, doc); uerr != nil {
				d.logger.Warn("failed to record quarantined path", "document_id", doc.ID, "error", uerr)
			}
		}
	}

	return &domain.TaskResult{
		TaskID:      job.ID,
		Success:     false,
		Error:       stageErr.Error(),
		Duration:    time.Since(start),
		ErrorsCount: 1,
	}, nil
}

// embedAll embeds chunk texts in parallel batches, writing each batch
// back by index so vector order matches chunk order.
func (d *PipelineDriver) embedAll(ctx context.Context, chunks []chunker.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, ck := range chunks {
		texts[i] = ck.Text
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.embedConcurrency)

	for begin := 0; begin < len(texts); begin += d.embedBatchSize {
		begin := begin
		end := begin + d.embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			out, err := d.embedding.Embed(gctx, texts[begin:end])
			if err != nil {
				return fmt.Errorf("embed batch at %d: %w", begin, err)
			}
			if len(out) != end-begin {
				return fmt.Errorf("embed batch at %d: got %d vectors for %d texts", begin, len(out), end-begin)
			}
			copy(vectors[begin:end], out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func buildChunkRows(documentID int64, chunks []chunker.Chunk, vectors [][]float32) []*domain.DocumentChunk {
	now := time.Now().UTC()
	rows := make([]*domain.DocumentChunk, len(chunks))
	for i, ck := range chunks {
		sum := blake2b.Sum256([]byte(ck.Text))
		vectorID := uuid.NewString()
		rows[i] = &domain.DocumentChunk{
			DocumentID:   documentID,
			ChunkIndex:   ck.Index,
			Content:      ck.Text,
			ContentHash:  hex.EncodeToString(sum[:]),
			WordCount:    ck.WordCount,
			CharCount:    len(ck.Text),
			ChunkType:    ck.Type,
			Section:      ck.Section,
			SectionTitle: ck.SectionTitle,
			StartOffset:  ck.Start,
			EndOffset:    ck.End,
			VectorID:     &vectorID,
			Embedding:    vectors[i],
			CreatedAt:    now,
		}
	}
	return rows
}

func mergeMetadata(doc *domain.Document, meta map[string]string) {
	if len(meta) == 0 {
		return
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string, len(meta))
	}
	for k, v := range meta {
		doc.Metadata[k] = v
	}
}
