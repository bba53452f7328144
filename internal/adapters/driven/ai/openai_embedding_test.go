package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newEmbeddingServer(t *testing.T, vectors [][]float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/embeddings" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Error("expected Authorization header")
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		resp := embeddingResponse{Object: "list", Model: req.Model}
		for i, v := range vectors {
			resp.Data = append(resp.Data, struct {
				Object    string    `json:"object"`
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}{Object: "embedding", Index: i, Embedding: v})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestNewOpenAIEmbedding_Defaults(t *testing.T) {
	if _, err := NewOpenAIEmbedding("", "text-embedding-3-small", ""); err == nil {
		t.Error("expected error for empty API key")
	}

	svc, err := NewOpenAIEmbedding("sk-test", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	emb := svc.(*OpenAIEmbedding)
	if emb.model != "text-embedding-3-small" {
		t.Errorf("expected default model, got %s", emb.model)
	}
	if emb.baseURL != "https://api.openai.com/v1" {
		t.Errorf("expected default base URL, got %s", emb.baseURL)
	}
}

func TestOpenAIEmbedding_Dimensions(t *testing.T) {
	tests := []struct {
		model      string
		dimensions int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
		{"unknown-model", 1536},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			svc, err := NewOpenAIEmbedding("sk-test", tt.model, "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if svc.Dimensions() != tt.dimensions {
				t.Errorf("expected %d dimensions, got %d", tt.dimensions, svc.Dimensions())
			}
			if svc.Model() != tt.model {
				t.Errorf("expected model %s, got %s", tt.model, svc.Model())
			}
		})
	}
}

func TestOpenAIEmbedding_Embed(t *testing.T) {
	server := newEmbeddingServer(t, [][]float32{
		{0.1, 0.2, 0.3},
		{0.4, 0.5, 0.6},
	})
	defer server.Close()

	svc, err := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks := []string{
		"Section 1: Safety procedures for lockout-tagout.",
		"All maintenance staff must complete annual recertification.",
	}
	result, err := svc.Embed(context.Background(), chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result))
	}
	if len(result[0]) != 3 || result[0][0] != 0.1 {
		t.Error("unexpected embedding values")
	}
	if result[1][2] != 0.6 {
		t.Error("expected embeddings in input order")
	}
}

func TestOpenAIEmbedding_Embed_EmptyInput(t *testing.T) {
	svc, err := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Embed(context.Background(), nil)
	if err != nil {
		t.Errorf("unexpected error for empty input: %v", err)
	}
	if result != nil {
		t.Error("expected nil result for empty input")
	}
}

func TestOpenAIEmbedding_EmbedQuery(t *testing.T) {
	server := newEmbeddingServer(t, [][]float32{{0.7, 0.8, 0.9}})
	defer server.Close()

	svc, err := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.EmbedQuery(context.Background(), "lockout procedure")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 3 {
		t.Errorf("expected 3 dimensions, got %d", len(result))
	}
}

func TestOpenAIEmbedding_Embed_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resp := embeddingResponse{
				Error: &struct {
					Message string `json:"message"`
					Type    string `json:"type"`
					Code    string `json:"code"`
				}{Message: "Invalid API key", Type: "invalid_request_error", Code: "invalid_api_key"},
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		svc, err := NewOpenAIEmbedding("sk-bad", "text-embedding-3-small", server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.Embed(context.Background(), []string{"text"}); err == nil {
			t.Error("expected error for API error response")
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		svc, err := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.Embed(context.Background(), []string{"text"}); err == nil {
			t.Error("expected error for malformed response")
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		svc, err := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", "http://localhost:99999")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.Embed(context.Background(), []string{"text"}); err == nil {
			t.Error("expected error for unreachable host")
		}
	})
}

func TestOpenAIEmbedding_HealthCheck(t *testing.T) {
	server := newEmbeddingServer(t, [][]float32{{0.1}})
	defer server.Close()

	svc, err := NewOpenAIEmbedding("sk-test", "text-embedding-3-small", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy backend, got %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("expected no error from Close, got %v", err)
	}
}
