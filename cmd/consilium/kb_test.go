package main

import (
	"testing"

	"github.com/consilium-health/consilium/internal/knowledge"
)

func TestIngestSummaryCountsFiles(t *testing.T) {
	result := &knowledge.IngestResult{
		Ingested: []string{"docs/ild.md", "docs/uip.txt"},
		Skipped:  []string{"docs/older.md"},
		Chunks:   9,
	}
	got := ingestSummary(result)
	want := "ingested 2 file(s) (9 chunks), 1 unchanged"
	if got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestIngestSummaryEmptyRun(t *testing.T) {
	got := ingestSummary(&knowledge.IngestResult{})
	want := "ingested 0 file(s) (0 chunks), 0 unchanged"
	if got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}
