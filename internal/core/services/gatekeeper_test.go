package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven/mocks"
)

func newTestGatekeeper(maxSize int64) (*Gatekeeper, *mocks.MockDocumentStore, *mocks.MockFileStore) {
	docs := mocks.NewMockDocumentStore()
	files := mocks.NewMockFileStore()
	gk := NewGatekeeper(GatekeeperConfig{
		DocumentStore: docs,
		FileStore:     files,
		MaxFileSize:   maxSize,
	})
	return gk, docs, files
}

func TestAdmit_Success(t *testing.T) {
	gk, docs, files := newTestGatekeeper(0)

	content := "Relief valve inspection procedure for unit 4."
	doc, err := gk.Admit(context.Background(), strings.NewReader(content), "manual.pdf", int64(len(content)))
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	if doc.ID == 0 {
		t.Error("expected document ID to be assigned")
	}
	if doc.FileType != "pdf" {
		t.Errorf("FileType = %q, want %q", doc.FileType, "pdf")
	}
	if doc.FileSize != int64(len(content)) {
		t.Errorf("FileSize = %d, want %d", doc.FileSize, len(content))
	}
	if len(doc.ContentHash) != 64 {
		t.Errorf("ContentHash length = %d, want 64 hex chars", len(doc.ContentHash))
	}
	if doc.Category != domain.CategoryUncategorized {
		t.Errorf("Category = %q, want uncategorized before processing", doc.Category)
	}
	if !files.Exists(doc.StoragePath) {
		t.Errorf("stored file missing at %q", doc.StoragePath)
	}
	if docs.Count() != 1 {
		t.Errorf("document count = %d, want 1", docs.Count())
	}
}

func TestAdmit_Validation(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		size     int64
	}{
		{"empty filename", "", "content", 7},
		{"whitespace filename", "   ", "content", 7},
		{"unsupported extension", "virus.exe", "content", 7},
		{"no extension", "README", "content", 7},
		{"declared size over limit", "big.pdf", "content", 1 << 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gk, docs, _ := newTestGatekeeper(0)
			_, err := gk.Admit(context.Background(), strings.NewReader(tt.content), tt.filename, tt.size)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("Admit() error = %v, want ErrInvalidInput", err)
			}
			if docs.Count() != 0 {
				t.Errorf("document count = %d, want 0", docs.Count())
			}
		})
	}
}

func TestAdmit_EmptyFile(t *testing.T) {
	gk, _, files := newTestGatekeeper(0)

	_, err := gk.Admit(context.Background(), strings.NewReader(""), "empty.txt", 0)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("Admit() error = %v, want ErrInvalidInput", err)
	}
	if files.Exists("/storage/empty.txt") {
		t.Error("spooled empty file was not discarded")
	}
}

func TestAdmit_OversizedStream(t *testing.T) {
	// Declared size of zero but actual content over the limit: the
	// stream cap has to catch it.
	gk, docs, files := newTestGatekeeper(10)

	_, err := gk.Admit(context.Background(), strings.NewReader(strings.Repeat("x", 50)), "big.txt", 0)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("Admit() error = %v, want ErrInvalidInput", err)
	}
	if docs.Count() != 0 {
		t.Errorf("document count = %d, want 0", docs.Count())
	}
	if files.Exists("/storage/big.txt") {
		t.Error("oversized spool was not discarded")
	}
}

func TestAdmit_Duplicate(t *testing.T) {
	gk, docs, files := newTestGatekeeper(0)
	content := "identical bytes in both uploads"

	first, err := gk.Admit(context.Background(), strings.NewReader(content), "first.txt", int64(len(content)))
	if err != nil {
		t.Fatalf("first Admit() error = %v", err)
	}

	_, err = gk.Admit(context.Background(), strings.NewReader(content), "second.txt", int64(len(content)))
	existingID, ok := domain.IsDuplicate(err)
	if !ok {
		t.Fatalf("second Admit() error = %v, want DuplicateError", err)
	}
	if existingID != first.ID {
		t.Errorf("duplicate ExistingID = %d, want %d", existingID, first.ID)
	}
	if docs.Count() != 1 {
		t.Errorf("document count = %d, want 1", docs.Count())
	}
	if files.Exists("/storage/second.txt") {
		t.Error("duplicate spool was not discarded")
	}
	if !files.Exists(first.StoragePath) {
		t.Error("original stored file must survive the duplicate rejection")
	}
}

func TestAdmit_SaveFailureDiscardsSpool(t *testing.T) {
	gk, docs, files := newTestGatekeeper(0)
	docs.SaveErr = errors.New("connection refused")

	_, err := gk.Admit(context.Background(), strings.NewReader("content"), "doc.md", 7)
	if err == nil {
		t.Fatal("Admit() expected error")
	}
	if files.Exists("/storage/doc.md") {
		t.Error("spool was not discarded after save failure")
	}
}
