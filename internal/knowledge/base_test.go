package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/consilium-health/consilium/internal/config"
	"github.com/consilium-health/consilium/pkg/models"
)

func newTestBase(t *testing.T) *Base {
	t.Helper()
	dir := t.TempDir()
	b, err := NewBase(config.KnowledgeConfig{
		DBPath:       filepath.Join(dir, "knowledge.db"),
		ChunkSize:    200,
		ChunkOverlap: 40,
		ContextLimit: 1500,
		Embedding:    config.EmbeddingConfig{Provider: "none"},
	})
	if err != nil {
		t.Fatalf("NewBase failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIngestDirPicksUpTxtAndMd(t *testing.T) {
	b := newTestBase(t)
	docs := t.TempDir()

	writeDoc(t, docs, "guidelines.md", "UIP pattern on HRCT supports a diagnosis of IPF.")
	writeDoc(t, docs, "notes.txt", "Serum KL-6 correlates with ILD activity.")
	writeDoc(t, docs, "image.png", "binary noise to skip")

	result, err := b.IngestDir(context.Background(), docs)
	if err != nil {
		t.Fatalf("IngestDir failed: %v", err)
	}
	if len(result.Ingested) != 2 {
		t.Errorf("ingested %d files, want 2: %v", len(result.Ingested), result.Ingested)
	}
	if result.Chunks < 2 {
		t.Errorf("chunks = %d, want at least 2", result.Chunks)
	}
}

func TestIngestDirSkipsUnchangedFiles(t *testing.T) {
	b := newTestBase(t)
	docs := t.TempDir()
	path := writeDoc(t, docs, "doc.md", "stable content about fibrosis")

	if _, err := b.IngestDir(context.Background(), docs); err != nil {
		t.Fatal(err)
	}

	result, err := b.IngestDir(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Skipped) != 1 || len(result.Ingested) != 0 {
		t.Errorf("second run: ingested=%v skipped=%v", result.Ingested, result.Skipped)
	}

	// Changed content is re-ingested
	if err := os.WriteFile(path, []byte("updated content about fibrosis"), 0644); err != nil {
		t.Fatal(err)
	}
	result, err = b.IngestDir(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Ingested) != 1 {
		t.Errorf("after change: ingested=%v", result.Ingested)
	}
}

func TestContextForCaseIncludesSourceLabel(t *testing.T) {
	b := newTestBase(t)
	docs := t.TempDir()
	writeDoc(t, docs, "hrct.md", "Honeycombing with basal predominance is the hallmark of UIP.")

	if _, err := b.IngestDir(context.Background(), docs); err != nil {
		t.Fatal(err)
	}

	caseData := models.Case{Symptoms: "progressive dyspnea with honeycombing on CT"}
	out, err := b.ContextForCase(context.Background(), caseData, models.SpecialtyRadiology)
	if err != nil {
		t.Fatalf("ContextForCase failed: %v", err)
	}
	if !strings.Contains(out, "[source: hrct.md") {
		t.Errorf("missing source label: %q", out)
	}
	if !strings.Contains(out, "Honeycombing") {
		t.Errorf("missing content: %q", out)
	}
}

func TestContextRespectsLimit(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBase(config.KnowledgeConfig{
		DBPath:       filepath.Join(dir, "knowledge.db"),
		ChunkSize:    100,
		ChunkOverlap: 0,
		ContextLimit: 150,
		Embedding:    config.EmbeddingConfig{Provider: "none"},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	docs := t.TempDir()
	writeDoc(t, docs, "long.md", strings.Repeat("fibrosis findings accumulate over time.\n\n", 20))
	if _, err := b.IngestDir(context.Background(), docs); err != nil {
		t.Fatal(err)
	}

	out, err := b.Query(context.Background(), "fibrosis", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) > 150 {
		t.Errorf("context length = %d, want <= 150", len(out))
	}
}

func TestQueryEmptyStore(t *testing.T) {
	b := newTestBase(t)
	out, err := b.Query(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty context, got %q", out)
	}
}
