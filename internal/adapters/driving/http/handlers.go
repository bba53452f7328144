package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks database, queue and optional Redis connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "A dependency is unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "task queue unreachable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Document endpoints

// uploadResponse pairs the admitted document with its queued job
// @Description Upload result
type uploadResponse struct {
	Document *domain.Document      `json:"document"`
	Job      *domain.ProcessingJob `json:"job"`
}

// duplicateResponse points the client at the already-ingested document
// @Description Duplicate upload response
type duplicateResponse struct {
	Error              string `json:"error" example:"duplicate content"`
	ExistingDocumentID int64  `json:"existing_document_id" example:"42"`
}

// handleUploadDocument godoc
// @Summary      Upload document
// @Description  Admit an uploaded file and queue it for processing. Duplicate content (by hash) is rejected with the existing document's ID.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Document file"
// @Success      201   {object}  uploadResponse
// @Failure      400   {object}  ErrorResponse       "Invalid or unsupported file"
// @Failure      401   {object}  ErrorResponse       "Unauthorized"
// @Failure      409   {object}  duplicateResponse   "Duplicate content"
// @Failure      500   {object}  ErrorResponse       "Internal server error"
// @Router       /documents/upload [post]
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	// Slack on top of the document limit for multipart framing. The
	// Gatekeeper enforces the real per-file cap.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+(1<<20))

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	doc, err := s.ingestService.Admit(r.Context(), file, header.Filename, header.Size)
	if err != nil {
		if existingID, ok := domain.IsDuplicate(err); ok {
			writeJSON(w, http.StatusConflict, duplicateResponse{
				Error:              "duplicate content",
				ExistingDocumentID: existingID,
			})
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to admit upload")
		return
	}

	job, err := s.pipeline.EnqueueDocument(r.Context(), doc.ID, false)
	if err != nil {
		// The document is persisted; it can be reprocessed once the
		// queue recovers.
		writeError(w, http.StatusInternalServerError, "document admitted but processing could not be queued")
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{Document: doc, Job: job})
}

// documentListResponse is a paginated document listing
// @Description Paginated document listing
type documentListResponse struct {
	Documents []*domain.Document `json:"documents"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// handleListDocuments godoc
// @Summary      List documents
// @Description  List documents filtered by category, file type, filename search and archived state
// @Tags         Documents
// @Produce      json
// @Param        category   query     string  false  "Category filter"
// @Param        file_type  query     string  false  "File type filter"
// @Param        search     query     string  false  "Filename substring"
// @Param        archived   query     bool    false  "Archived filter"
// @Param        limit      query     int     false  "Page size"
// @Param        offset     query     int     false  "Page offset"
// @Success      200  {object}  documentListResponse
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := driving.DocumentListRequest{
		Category: domain.Category(q.Get("category")),
		FileType: q.Get("file_type"),
		Search:   q.Get("search"),
		Limit:    queryInt(q.Get("limit"), 50),
		Offset:   queryInt(q.Get("offset"), 0),
	}
	if v := q.Get("archived"); v != "" {
		archived := v == "true" || v == "1"
		req.Archived = &archived
	}

	docs, total, err := s.docService.List(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, documentListResponse{
		Documents: docs,
		Total:     total,
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
}

// handleDocumentStats godoc
// @Summary      Document statistics
// @Description  Aggregate corpus counts by category and file type
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  domain.DocumentStats
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /documents/stats [get]
func (s *Server) handleDocumentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.docService.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get document stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleGetDocument godoc
// @Summary      Get document
// @Description  Get a document by ID
// @Tags         Documents
// @Produce      json
// @Param        id   path      int  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Failure      400  {object}  ErrorResponse  "Invalid document ID"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	doc, err := s.docService.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get document")
		}
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleGetDocumentChunks godoc
// @Summary      Get document chunks
// @Description  Get a document's chunks ordered by index
// @Tags         Documents
// @Produce      json
// @Param        id   path      int  true  "Document ID"
// @Success      200  {array}   domain.DocumentChunk
// @Failure      400  {object}  ErrorResponse  "Invalid document ID"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /documents/{id}/chunks [get]
func (s *Server) handleGetDocumentChunks(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	chunks, err := s.docService.GetChunks(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get chunks")
		}
		return
	}

	writeJSON(w, http.StatusOK, chunks)
}

// handleDeleteDocument godoc
// @Summary      Delete document
// @Description  Hard-delete a document; chunks, vectors and jobs cascade
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Document ID"
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse  "Invalid document ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /documents/{id} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	if err := s.docService.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete document")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleReprocessDocument godoc
// @Summary      Reprocess document
// @Description  Queue a fresh processing run for a document. Refused while a pending or running job exists.
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Document ID"
// @Success      202  {object}  domain.ProcessingJob
// @Failure      400  {object}  ErrorResponse  "Invalid document ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Failure      409  {object}  ErrorResponse  "A job is already active"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /documents/{id}/reprocess [post]
func (s *Server) handleReprocessDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}

	job, err := s.pipeline.EnqueueDocument(r.Context(), id, true)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		case errors.Is(err, domain.ErrJobActive):
			writeError(w, http.StatusConflict, "a job is already active for this document")
		default:
			writeError(w, http.StatusInternalServerError, "failed to queue reprocessing")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

// Job endpoints

// jobListResponse is a paginated job listing
// @Description Paginated job listing
type jobListResponse struct {
	Jobs   []*domain.ProcessingJob `json:"jobs"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// handleListJobs godoc
// @Summary      List jobs
// @Description  List processing jobs filtered by status and document, newest first
// @Tags         Jobs
// @Produce      json
// @Param        status       query     string  false  "Status filter"  Enums(PENDING, PROGRESS, SUCCESS, FAILURE, CANCELLED)
// @Param        document_id  query     int     false  "Document filter"
// @Param        limit        query     int     false  "Page size"
// @Param        offset       query     int     false  "Page offset"
// @Success      200  {object}  jobListResponse
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := domain.JobStatus(strings.ToUpper(q.Get("status")))
	documentID, _ := strconv.ParseInt(q.Get("document_id"), 10, 64)
	limit := queryInt(q.Get("limit"), 50)
	offset := queryInt(q.Get("offset"), 0)

	jobs, total, err := s.jobService.List(r.Context(), status, documentID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	writeJSON(w, http.StatusOK, jobListResponse{
		Jobs:   jobs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// handleJobStats godoc
// @Summary      Job statistics
// @Description  Aggregate job counts by status
// @Tags         Jobs
// @Produce      json
// @Success      200  {object}  domain.JobStats
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /jobs/stats [get]
func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.jobService.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get job stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleGetJob godoc
// @Summary      Get job
// @Description  Get a processing job by ID
// @Tags         Jobs
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  domain.ProcessingJob
// @Failure      404  {object}  ErrorResponse  "Job not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /jobs/{id} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	job, err := s.jobService.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get job")
		}
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// retryRequest carries retry options
// @Description Retry options
type retryRequest struct {
	Force bool `json:"force"`
}

// handleRetryJob godoc
// @Summary      Retry job
// @Description  Re-queue a failed or cancelled job. With force set the retry budget is bypassed.
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string        true   "Job ID"
// @Param        request  body      retryRequest  false  "Retry options"
// @Success      200      {object}  domain.ProcessingJob
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      404      {object}  ErrorResponse  "Job not found"
// @Failure      409      {object}  ErrorResponse  "Job not retryable or retry budget exceeded"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /jobs/{id}/retry [post]
func (s *Server) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req retryRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.jobService.Retry(r.Context(), id, req.Force)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, domain.ErrRetryBudgetExceeded):
			writeError(w, http.StatusConflict, "retry budget exceeded")
		case errors.Is(err, domain.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "job is not in a retryable state")
		default:
			writeError(w, http.StatusInternalServerError, "failed to retry job")
		}
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// cancelRequest carries an optional cancellation reason
// @Description Cancel options
type cancelRequest struct {
	Reason string `json:"reason"`
}

// handleCancelJob godoc
// @Summary      Cancel job
// @Description  Mark a pending or running job cancelled. In-flight workers notice at their next status check.
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true   "Job ID"
// @Param        request  body      cancelRequest  false  "Cancel options"
// @Success      200      {object}  domain.ProcessingJob
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      404      {object}  ErrorResponse  "Job not found"
// @Failure      409      {object}  ErrorResponse  "Job already terminal"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /jobs/{id}/cancel [post]
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req cancelRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.jobService.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "job is already terminal")
		default:
			writeError(w, http.StatusInternalServerError, "failed to cancel job")
		}
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// handleDeleteJob godoc
// @Summary      Delete job
// @Description  Remove a terminal job record
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Job not found"
// @Failure      409  {object}  ErrorResponse  "Job still active"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /jobs/{id} [delete]
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.jobService.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, domain.ErrJobActive):
			writeError(w, http.StatusConflict, "job is still active")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete job")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// bulkJobRequest applies one action to many jobs
// @Description Bulk job request
type bulkJobRequest struct {
	Action driving.BulkJobAction `json:"action" example:"retry" enums:"retry,cancel,delete"`
	IDs    []string              `json:"ids"`
	Force  bool                  `json:"force"`
}

// handleBulkJobs godoc
// @Summary      Bulk job operation
// @Description  Apply retry, cancel or delete to a set of jobs. Per-job failures are reported, not fatal.
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      bulkJobRequest  true  "Bulk action"
// @Success      200      {object}  driving.BulkResult
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /jobs/bulk [post]
func (s *Server) handleBulkJobs(w http.ResponseWriter, r *http.Request) {
	var req bulkJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}

	result, err := s.jobService.Bulk(r.Context(), req.Action, req.IDs, req.Force)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "bulk operation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Search endpoints

// searchRequest represents a search query request
// @Description Search query request
type searchRequest struct {
	Query          string            `json:"query" example:"pump seal inspection interval"`
	Mode           domain.SearchMode `json:"mode,omitempty" example:"hybrid" enums:"hybrid,semantic,keyword"`
	Limit          int               `json:"limit,omitempty" example:"10"`
	Offset         int               `json:"offset,omitempty" example:"0"`
	Threshold      float64           `json:"threshold,omitempty" example:"0.3"`
	SemanticWeight float64           `json:"semantic_weight,omitempty" example:"0.7"`
	KeywordWeight  float64           `json:"keyword_weight,omitempty" example:"0.3"`
	Filters        domain.Filters    `json:"filters,omitempty"`
}

// handleSearch godoc
// @Summary      Search chunks
// @Description  Run a query in the requested mode (hybrid by default) and return fused, ranked results.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      searchRequest  true  "Search query"
// @Success      200      {object}  domain.SearchResult
// @Failure      400      {object}  ErrorResponse  "Invalid request or missing query"
// @Failure      500      {object}  ErrorResponse  "Search failed"
// @Router       /search [post]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.search(w, r, "")
}

// handleSearchHybrid godoc
// @Summary      Hybrid search
// @Description  Run a query with semantic and keyword passes fused by weighted score.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      searchRequest  true  "Search query"
// @Success      200      {object}  domain.SearchResult
// @Failure      400      {object}  ErrorResponse  "Invalid request or missing query"
// @Failure      500      {object}  ErrorResponse  "Search failed"
// @Router       /search/hybrid [post]
func (s *Server) handleSearchHybrid(w http.ResponseWriter, r *http.Request) {
	s.search(w, r, domain.SearchModeHybrid)
}

// handleSearchSemantic godoc
// @Summary      Semantic search
// @Description  Run a query against the vector index only.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      searchRequest  true  "Search query"
// @Success      200      {object}  domain.SearchResult
// @Failure      400      {object}  ErrorResponse  "Invalid request or missing query"
// @Failure      500      {object}  ErrorResponse  "Search failed"
// @Router       /search/semantic [post]
func (s *Server) handleSearchSemantic(w http.ResponseWriter, r *http.Request) {
	s.search(w, r, domain.SearchModeSemantic)
}

// search decodes the request and runs it, forcing mode when non-empty.
func (s *Server) search(w http.ResponseWriter, r *http.Request, mode domain.SearchMode) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	if mode == "" {
		mode = req.Mode
	}
	opts := domain.SearchOptions{
		Mode:           mode,
		Limit:          req.Limit,
		Offset:         req.Offset,
		Threshold:      req.Threshold,
		SemanticWeight: req.SemanticWeight,
		KeywordWeight:  req.KeywordWeight,
		Filters:        req.Filters,
	}

	result, err := s.searchService.Search(r.Context(), req.Query, opts)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrServiceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "search backend unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "search failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Helper functions

func documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return id, true
}

func queryInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// decodeOptionalBody decodes a JSON body into dst, treating an empty
// body as the zero value.
func decodeOptionalBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
