// Package knowledge provides the vector knowledge base: document chunking,
// embedding generation, and semantic retrieval backed by SQLite.
package knowledge

import "strings"

// defaultSeparators orders split points from strongest to weakest. The empty
// separator is the character-level last resort.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter chunks documents recursively: paragraph breaks first, then lines,
// then words, then characters, keeping chunks at or under ChunkSize with
// Overlap characters carried between adjacent chunks.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

// NewSplitter creates a splitter. Non-positive arguments fall back to
// 1000/200.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 200
		if overlap >= chunkSize {
			overlap = chunkSize / 5
		}
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}
}

// Split chunks text. Empty and whitespace-only input yields no chunks.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	chunks := s.split(text, defaultSeparators)
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

func (s *Splitter) split(text string, separators []string) []string {
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	sep := separators[len(separators)-1]
	rest := separators
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var parts []string
	if sep == "" {
		parts = splitRunes(text, s.ChunkSize)
	} else {
		parts = strings.Split(text, sep)
	}

	var pieces []string
	for _, part := range parts {
		if len(part) > s.ChunkSize && len(rest) > 0 {
			pieces = append(pieces, s.split(part, rest)...)
		} else {
			pieces = append(pieces, part)
		}
	}

	return s.merge(pieces, sep)
}

// merge packs pieces into chunks up to ChunkSize, carrying Overlap characters
// from the tail of each chunk into the next.
func (s *Splitter) merge(pieces []string, sep string) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		tail := overlapTail(current.String(), s.Overlap)
		current.Reset()
		current.WriteString(tail)
	}

	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		addition := len(piece)
		if current.Len() > 0 {
			addition += len(sep)
		}
		if current.Len() > 0 && current.Len()+addition > s.ChunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(piece)
	}
	if strings.TrimSpace(current.String()) != "" {
		chunk := strings.TrimSpace(current.String())
		if len(chunks) == 0 || chunks[len(chunks)-1] != chunk {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// overlapTail returns the last n bytes of text, extended left to the nearest
// rune boundary.
func overlapTail(text string, n int) string {
	if n <= 0 || len(text) <= n {
		if n <= 0 {
			return ""
		}
		return text
	}
	start := len(text) - n
	for start > 0 && !isRuneStart(text[start]) {
		start--
	}
	return text[start:]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// splitRunes cuts text into size-byte pieces on rune boundaries.
func splitRunes(text string, size int) []string {
	var parts []string
	for len(text) > size {
		cut := size
		for cut > 0 && !isRuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = size
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
