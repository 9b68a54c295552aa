package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

//go:embed templates
var defaultTemplates embed.FS

// Meta is the YAML front-matter carried by a prompt file.
type Meta struct {
	Label       string `yaml:"label"`
	Role        string `yaml:"role"`
	Group       string `yaml:"group"`
	Description string `yaml:"description"`
}

// Store loads prompt templates by ID. Embedded defaults are always available;
// files under an override directory shadow them. Loads are cached until
// Invalidate or a watched file changes.
type Store struct {
	overrideDir string

	mu      sync.RWMutex
	texts   map[ID]string
	metas   map[ID]Meta
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore creates a prompt store. overrideDir may be empty, in which case
// only the embedded templates are used.
func NewStore(overrideDir string) *Store {
	return &Store{
		overrideDir: overrideDir,
		texts:       make(map[ID]string),
		metas:       make(map[ID]Meta),
	}
}

// Get returns the prompt body for id, with front-matter stripped.
func (s *Store) Get(id ID) (string, error) {
	s.mu.RLock()
	if text, ok := s.texts[id]; ok {
		s.mu.RUnlock()
		return text, nil
	}
	s.mu.RUnlock()

	rel, ok := registry[id]
	if !ok {
		return "", fmt.Errorf("unregistered prompt id %q", id)
	}

	raw, err := s.read(rel)
	if err != nil {
		return "", fmt.Errorf("loading prompt %q: %w", id, err)
	}

	body, meta := splitFrontMatter(raw)

	s.mu.Lock()
	s.texts[id] = body
	s.metas[id] = meta
	s.mu.Unlock()

	return body, nil
}

// Meta returns the front-matter metadata for id. The zero Meta is returned
// when the file carries none.
func (s *Store) Meta(id ID) (Meta, error) {
	if _, err := s.Get(id); err != nil {
		return Meta{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metas[id], nil
}

// List returns every registered prompt ID in sorted order.
func (s *Store) List() []ID {
	ids := make([]ID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Invalidate drops the cache so the next Get re-reads from disk.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.texts = make(map[ID]string)
	s.metas = make(map[ID]Meta)
	s.mu.Unlock()
}

// Watch starts an fsnotify watcher on the override directory and invalidates
// the cache when any file there changes. It is a no-op without an override
// directory. Close stops the watcher.
func (s *Store) Watch() error {
	if s.overrideDir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating prompt watcher: %w", err)
	}

	if err := addRecursive(watcher, s.overrideDir); err != nil {
		watcher.Close()
		return err
	}

	s.mu.Lock()
	s.watcher = watcher
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					s.Invalidate()
				}
			case <-watcher.Errors:
				// Keep watching
			}
		}
	}()

	return nil
}

// Close stops the watcher if one is running.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

// read returns the raw file contents, preferring the override directory.
func (s *Store) read(rel string) ([]byte, error) {
	if s.overrideDir != "" {
		path := filepath.Join(s.overrideDir, filepath.FromSlash(rel))
		if raw, err := os.ReadFile(path); err == nil {
			return raw, nil
		}
	}
	return defaultTemplates.ReadFile("templates/" + rel)
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

var frontMatterDelim = []byte("---\n")

// splitFrontMatter strips a leading YAML front-matter block and parses it.
// Files without front-matter are returned unchanged with a zero Meta.
func splitFrontMatter(raw []byte) (string, Meta) {
	var meta Meta
	if !bytes.HasPrefix(raw, frontMatterDelim) {
		return string(bytes.TrimSpace(raw)), meta
	}
	rest := raw[len(frontMatterDelim):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return string(bytes.TrimSpace(raw)), meta
	}
	head := rest[:end]
	body := rest[end+len("\n---"):]
	if err := yaml.Unmarshal(head, &meta); err != nil {
		meta = Meta{}
	}
	return string(bytes.TrimSpace(body)), meta
}
