package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driving"
)

// Ensure Gatekeeper implements IngestService
var _ driving.IngestService = (*Gatekeeper)(nil)

// DefaultMaxFileSize caps uploads at 100 MB.
const DefaultMaxFileSize = 100 << 20

// Gatekeeper is the ingestion gate: it validates uploads, fingerprints
// their content and persists the Document record. It never enqueues
// processing; the pipeline driver owns the enqueue path.
type Gatekeeper struct {
	documents   driven.DocumentStore
	files       driven.FileStore
	maxFileSize int64
	logger      *slog.Logger
}

// GatekeeperConfig holds dependencies for the Gatekeeper.
type GatekeeperConfig struct {
	DocumentStore driven.DocumentStore
	FileStore     driven.FileStore
	MaxFileSize   int64
	Logger        *slog.Logger
}

// NewGatekeeper creates a new Gatekeeper.
func NewGatekeeper(cfg GatekeeperConfig) *Gatekeeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Gatekeeper{
		documents:   cfg.DocumentStore,
		files:       cfg.FileStore,
		maxFileSize: maxSize,
		logger:      logger.With("component", "gatekeeper"),
	}
}

// Admit validates an upload, streams it into storage while hashing it,
// rejects duplicates, and persists the Document.
//
// The content hash is computed with BLAKE2b-256 through an io.TeeReader
// while the bytes are spooled to the file store, so the file is never
// buffered in memory. On a duplicate the spooled copy is discarded and
// the error carries the existing document's ID.
func (g *Gatekeeper) Admit(ctx context.Context, r io.Reader, filename string, size int64) (*domain.Document, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: missing filename", domain.ErrInvalidInput)
	}
	if !domain.IsSupportedFile(filename) {
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrInvalidInput, filepath.Ext(filename))
	}
	if size > g.maxFileSize {
		return nil, fmt.Errorf("%w: file size %d exceeds limit %d", domain.ErrInvalidInput, size, g.maxFileSize)
	}

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return nil, fmt.Errorf("init hasher: %w", err)
	}

	// Cap the spool one byte past the limit so oversized uploads with a
	// lying (or absent) declared size are caught without reading them fully.
	limited := io.LimitReader(r, g.maxFileSize+1)
	path, written, err := g.files.Store(ctx, io.TeeReader(limited, hasher), filename)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if written == 0 {
		g.discard(ctx, path)
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}
	if written > g.maxFileSize {
		g.discard(ctx, path)
		return nil, fmt.Errorf("%w: file exceeds size limit %d", domain.ErrInvalidInput, g.maxFileSize)
	}

	hash := hex.EncodeToString(hasher.Sum(nil))

	if existing, err := g.documents.GetByHash(ctx, hash); err == nil {
		g.discard(ctx, path)
		g.logger.Info("duplicate upload rejected",
			"filename", filename,
			"existing_document_id", existing.ID,
		)
		return nil, &domain.DuplicateError{ExistingID: existing.ID}
	} else if !errors.Is(err, domain.ErrNotFound) {
		g.discard(ctx, path)
		return nil, fmt.Errorf("hash lookup: %w", err)
	}

	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	doc := domain.NewDocument(filename, fileType, written, hash, path)

	if err := g.documents.Save(ctx, doc); err != nil {
		g.discard(ctx, path)
		// Two concurrent admissions of the same content can both pass the
		// hash lookup; the unique constraint is the backstop.
		var dup *domain.DuplicateError
		if errors.As(err, &dup) {
			return nil, dup
		}
		return nil, fmt.Errorf("save document: %w", err)
	}

	g.logger.Info("document admitted",
		"document_id", doc.ID,
		"filename", filename,
		"size", written,
		"hash", hash[:12],
	)
	return doc, nil
}

func (g *Gatekeeper) discard(ctx context.Context, path string) {
	if err := g.files.Remove(ctx, path); err != nil {
		g.logger.Warn("failed to discard spooled upload", "path", path, "error", err)
	}
}
