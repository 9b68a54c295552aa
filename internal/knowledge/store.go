package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists document chunks and their embeddings in SQLite. Recall is
// brute-force cosine similarity over the stored embeddings, with a keyword
// LIKE fallback when no embedder is available.
type Store struct {
	conn     *sql.DB
	path     string
	embedder Embedder
	mu       sync.RWMutex
}

// Chunk is one retrievable piece of an ingested document.
type Chunk struct {
	ID         int64
	Source     string
	Index      int
	Content    string
	Similarity float64
	CreatedAt  time.Time
}

// Stats summarizes store contents.
type Stats struct {
	Chunks    int    `json:"chunks"`
	Files     int    `json:"files"`
	Embedded  int    `json:"embedded"`
	Embedder  string `json:"embedder"`
	StorePath string `json:"store_path"`
}

// OpenStore opens the chunk database at path, creating parent directories and
// applying migrations. embedder may be nil for keyword-only recall.
func OpenStore(path string, embedder Embedder) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{conn: conn, path: path, embedder: embedder}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

const migrationV1Chunks = `
CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	content TEXT NOT NULL,
	embedding TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(source, chunk_index)
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);

CREATE TABLE IF NOT EXISTS ingested_files (
	path TEXT PRIMARY KEY,
	checksum TEXT NOT NULL,
	chunk_count INTEGER NOT NULL,
	ingested_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Chunks},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// AddDocument stores the chunks of one source document, replacing any earlier
// chunks from the same source. Embeddings are computed when an embedder is
// configured; embedding failure degrades to keyword-only chunks rather than
// failing ingestion.
func (s *Store) AddDocument(ctx context.Context, source, checksum string, chunks []string) error {
	var embeddings [][]float32
	if s.embedder != nil {
		var err error
		embeddings, err = s.embedder.EmbedBatch(ctx, chunks)
		if err != nil {
			embeddings = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM chunks WHERE source = ?", source); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear old chunks: %w", err)
	}

	for i, content := range chunks {
		var embeddingJSON any
		if embeddings != nil {
			raw, err := json.Marshal(embeddings[i])
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("marshal embedding: %w", err)
			}
			embeddingJSON = string(raw)
		}
		if _, err := tx.Exec(
			"INSERT INTO chunks (source, chunk_index, content, embedding) VALUES (?, ?, ?, ?)",
			source, i, content, embeddingJSON,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert chunk %d of %s: %w", i, source, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO ingested_files (path, checksum, chunk_count, ingested_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
		source, checksum, len(chunks),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("record ingested file: %w", err)
	}

	return tx.Commit()
}

// FileChecksum returns the recorded checksum for an ingested path, or "".
func (s *Store) FileChecksum(path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var checksum string
	err := s.conn.QueryRow("SELECT checksum FROM ingested_files WHERE path = ?", path).Scan(&checksum)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup checksum: %w", err)
	}
	return checksum, nil
}

// Search returns the limit chunks most relevant to query: cosine similarity
// over stored embeddings when possible, keyword match otherwise.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Chunk, error) {
	if limit <= 0 {
		limit = 5
	}

	if s.embedder != nil {
		queryVec, err := s.embedder.Embed(ctx, query)
		if err == nil && len(queryVec) > 0 {
			results, err := s.vectorSearch(queryVec, limit)
			if err == nil && len(results) > 0 {
				return results, nil
			}
		}
	}
	return s.keywordSearch(query, limit)
}

func (s *Store) vectorSearch(queryVec []float32, limit int) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(
		"SELECT id, source, chunk_index, content, embedding, created_at FROM chunks WHERE embedding IS NOT NULL",
	)
	if err != nil {
		return nil, fmt.Errorf("vector search query: %w", err)
	}
	defer rows.Close()

	var results []Chunk
	for rows.Next() {
		var c Chunk
		var embeddingJSON string
		if err := rows.Scan(&c.ID, &c.Source, &c.Index, &c.Content, &embeddingJSON, &c.CreatedAt); err != nil {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &vec); err != nil {
			continue
		}
		sim, err := CosineSimilarity(queryVec, vec)
		if err != nil {
			continue
		}
		c.Similarity = sim
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) keywordSearch(query string, limit int) ([]Chunk, error) {
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []any
	for _, kw := range keywords {
		conditions = append(conditions, "LOWER(content) LIKE ?")
		args = append(args, "%"+kw+"%")
	}
	args = append(args, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(fmt.Sprintf(
		"SELECT id, source, chunk_index, content, created_at FROM chunks WHERE %s ORDER BY created_at DESC LIMIT ?",
		strings.Join(conditions, " OR "),
	), args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search query: %w", err)
	}
	defer rows.Close()

	var results []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Source, &c.Index, &c.Content, &c.CreatedAt); err != nil {
			continue
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// Stats reports chunk and file counts.
func (s *Store) Stats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{StorePath: s.path}
	if s.embedder != nil {
		stats.Embedder = s.embedder.Name()
	}

	if err := s.conn.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&stats.Chunks); err != nil {
		return stats, err
	}
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL").Scan(&stats.Embedded); err != nil {
		return stats, err
	}
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM ingested_files").Scan(&stats.Files); err != nil {
		return stats, err
	}
	return stats, nil
}

// Clear removes all chunks and ingestion records.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.Exec("DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := s.conn.Exec("DELETE FROM ingested_files"); err != nil {
		return fmt.Errorf("clear ingested files: %w", err)
	}
	return nil
}
