package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/consilium-health/consilium/internal/config"
	"github.com/consilium-health/consilium/pkg/models"
)

// Base is the knowledge base used by the discussion agents: a chunk store
// plus a splitter, with retrieval helpers for case context.
type Base struct {
	store        *Store
	splitter     *Splitter
	contextLimit int
}

// IngestResult reports what one ingestion run did.
type IngestResult struct {
	Ingested []string `json:"ingested"`
	Skipped  []string `json:"skipped"`
	Chunks   int      `json:"chunks"`
}

// NewBase opens the knowledge base described by cfg.
func NewBase(cfg config.KnowledgeConfig) (*Base, error) {
	embedder, err := NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(cfg.DBPath, embedder)
	if err != nil {
		return nil, err
	}

	limit := cfg.ContextLimit
	if limit <= 0 {
		limit = 1500
	}

	return &Base{
		store:        store,
		splitter:     NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		contextLimit: limit,
	}, nil
}

// Close closes the underlying store.
func (b *Base) Close() error { return b.store.Close() }

// Store exposes the chunk store for stats and maintenance commands.
func (b *Base) Store() *Store { return b.store }

// IngestDir walks dir and ingests every .txt and .md file. Files whose
// checksum matches a previous ingestion are skipped.
func (b *Base) IngestDir(ctx context.Context, dir string) (*IngestResult, error) {
	result := &IngestResult{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		sum := sha256.Sum256(raw)
		checksum := hex.EncodeToString(sum[:])

		prev, err := b.store.FileChecksum(path)
		if err != nil {
			return err
		}
		if prev == checksum {
			result.Skipped = append(result.Skipped, path)
			return nil
		}

		chunks := b.splitter.Split(string(raw))
		if len(chunks) == 0 {
			result.Skipped = append(result.Skipped, path)
			return nil
		}
		if err := b.store.AddDocument(ctx, path, checksum, chunks); err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}

		log.Printf("knowledge: ingested %s (%d chunks)", path, len(chunks))
		result.Ingested = append(result.Ingested, path)
		result.Chunks += len(chunks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Query returns the formatted top-k context block for a free-text query,
// truncated to the context limit.
func (b *Base) Query(ctx context.Context, query string, k int) (string, error) {
	chunks, err := b.store.Search(ctx, query, k)
	if err != nil {
		return "", err
	}
	return b.format(chunks), nil
}

// specialtyQueryTerms bias retrieval toward each specialist's concerns.
var specialtyQueryTerms = map[models.Specialty]string{
	models.SpecialtyPulmonology:  "interstitial lung disease diagnosis treatment pulmonary function",
	models.SpecialtyRadiology:    "HRCT imaging pattern UIP honeycombing ground-glass",
	models.SpecialtyPathology:    "histopathology biopsy BAL cytology fibrosis pattern",
	models.SpecialtyRheumatology: "connective tissue disease autoantibody CTD-ILD",
	models.SpecialtyDataAnalysis: "pulmonary function trends biomarkers prognosis FVC DLCO",
	models.SpecialtyCoordinator:  "multidisciplinary diagnosis management guidelines",
}

// ContextForCase retrieves knowledge relevant to the case from the standpoint
// of one specialty, formatted with source and score labels.
func (b *Base) ContextForCase(ctx context.Context, c models.Case, specialty models.Specialty) (string, error) {
	parsed := models.ParseCase(c)
	query := parsed.Symptoms
	if terms := specialtyQueryTerms[specialty]; terms != "" {
		query = query + " " + terms
	}

	chunks, err := b.store.Search(ctx, query, 5)
	if err != nil {
		return "", err
	}
	return b.format(chunks), nil
}

// format renders chunks with source labels, deduplicated and truncated to the
// context limit. Empty input yields "".
func (b *Base) format(chunks []Chunk) string {
	var sb strings.Builder
	seen := make(map[string]struct{})

	for _, c := range chunks {
		content := strings.TrimSpace(c.Content)
		if content == "" {
			continue
		}
		if _, dup := seen[content]; dup {
			continue
		}
		seen[content] = struct{}{}

		label := fmt.Sprintf("[source: %s", filepath.Base(c.Source))
		if c.Similarity > 0 {
			label += fmt.Sprintf(" | score: %.2f", c.Similarity)
		}
		label += "]"

		entry := label + "\n" + content + "\n\n"
		if sb.Len()+len(entry) > b.contextLimit {
			remaining := b.contextLimit - sb.Len()
			if remaining > len(label)+20 {
				sb.WriteString(label + "\n")
				sb.WriteString(truncateRunes(content, remaining-len(label)-1))
			}
			break
		}
		sb.WriteString(entry)
	}
	return strings.TrimSpace(sb.String())
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
