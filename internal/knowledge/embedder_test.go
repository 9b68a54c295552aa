package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/consilium-health/consilium/internal/config"
)

var (
	_ Embedder = (*OllamaEmbedder)(nil)
	_ Embedder = (*GenAIEmbedder)(nil)
)

func TestNewEmbedderProviderSwitch(t *testing.T) {
	e, err := NewEmbedder(config.EmbeddingConfig{Provider: "none"})
	if err != nil {
		t.Fatalf("provider none: %v", err)
	}
	if e != nil {
		t.Error("provider none should return a nil embedder")
	}

	e, err = NewEmbedder(config.EmbeddingConfig{})
	if err != nil {
		t.Fatalf("default provider: %v", err)
	}
	if e.Name() != "ollama:embeddinggemma" {
		t.Errorf("default embedder = %q", e.Name())
	}

	if _, err := NewEmbedder(config.EmbeddingConfig{Provider: "genai"}); err == nil {
		t.Error("genai without an API key should fail")
	}
	if _, err := NewEmbedder(config.EmbeddingConfig{Provider: "pinecone"}); err == nil {
		t.Error("unknown provider should fail")
	}
}

func TestNewGenAIEmbedderDefaults(t *testing.T) {
	e, err := NewGenAIEmbedder("test-key", "")
	if err != nil {
		t.Fatalf("NewGenAIEmbedder failed: %v", err)
	}
	if e.Name() != "genai:gemini-embedding-001" {
		t.Errorf("name = %q", e.Name())
	}
}

func TestOllamaEmbedderPostsPrompt(t *testing.T) {
	var gotModel, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		gotModel, gotPrompt = req.Model, req.Prompt
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "test-model")
	vec, err := e.Embed(context.Background(), "honeycombing on HRCT")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("embedding length = %d, want 2", len(vec))
	}
	if gotModel != "test-model" {
		t.Errorf("model = %q", gotModel)
	}
	if gotPrompt != "honeycombing on HRCT" {
		t.Errorf("prompt = %q", gotPrompt)
	}
}

func TestOllamaEmbedBatchStopsOnError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{1}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "test-model")
	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"}); err == nil {
		t.Error("expected error from failing backend")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
