package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/consilium-health/consilium/pkg/models"
)

func TestGetStripsFrontMatter(t *testing.T) {
	s := NewStore("")

	body, err := s.Get(SystemBase)
	if err != nil {
		t.Fatalf("Get(SystemBase) failed: %v", err)
	}
	if strings.Contains(body, "---") {
		t.Errorf("front-matter not stripped: %q", body[:60])
	}
	if !strings.Contains(body, "multidisciplinary team") {
		t.Errorf("unexpected body: %q", body[:60])
	}
}

func TestGetUnknownID(t *testing.T) {
	s := NewStore("")
	if _, err := s.Get(ID("no_such_prompt")); err == nil {
		t.Error("expected error for unregistered id")
	}
}

func TestAllRegisteredPromptsLoad(t *testing.T) {
	s := NewStore("")
	for _, id := range s.List() {
		body, err := s.Get(id)
		if err != nil {
			t.Errorf("Get(%s) failed: %v", id, err)
			continue
		}
		if strings.TrimSpace(body) == "" {
			t.Errorf("prompt %s is empty", id)
		}
	}
}

func TestMeta(t *testing.T) {
	s := NewStore("")
	meta, err := s.Meta(ConflictDetection)
	if err != nil {
		t.Fatalf("Meta failed: %v", err)
	}
	if meta.Group != "coordinator" {
		t.Errorf("group = %q, want coordinator", meta.Group)
	}
	if meta.Label == "" {
		t.Error("expected non-empty label")
	}
}

func TestOverrideDirShadowsEmbedded(t *testing.T) {
	dir := t.TempDir()
	override := filepath.Join(dir, "system")
	if err := os.MkdirAll(override, 0755); err != nil {
		t.Fatal(err)
	}
	content := "---\nlabel: Override\n---\nOVERRIDDEN BODY\n"
	if err := os.WriteFile(filepath.Join(override, "base.md"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(dir)
	body, err := s.Get(SystemBase)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if body != "OVERRIDDEN BODY" {
		t.Errorf("got %q, want override body", body)
	}
}

func TestInvalidateRereads(t *testing.T) {
	dir := t.TempDir()
	sysDir := filepath.Join(dir, "system")
	if err := os.MkdirAll(sysDir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(sysDir, "base.md")
	if err := os.WriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(dir)
	if body, _ := s.Get(SystemBase); body != "first" {
		t.Fatalf("got %q, want first", body)
	}

	if err := os.WriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatal(err)
	}

	// Cached until invalidated
	if body, _ := s.Get(SystemBase); body != "first" {
		t.Errorf("cache miss: got %q", body)
	}
	s.Invalidate()
	if body, _ := s.Get(SystemBase); body != "second" {
		t.Errorf("got %q, want second after invalidate", body)
	}
}

func TestSpecialtyPromptLookups(t *testing.T) {
	for _, sp := range models.Specialists() {
		if _, ok := SystemFor(sp); !ok {
			t.Errorf("no system prompt for %s", sp)
		}
		if _, ok := AnalysisFor(sp); !ok {
			t.Errorf("no analysis prompt for %s", sp)
		}
		if _, ok := ChecklistFor(sp); !ok {
			t.Errorf("no checklist prompt for %s", sp)
		}
	}
	if id, ok := SystemFor(models.SpecialtyCoordinator); !ok || id != CoordinatorSystem {
		t.Errorf("coordinator system lookup = %v %v", id, ok)
	}
	if _, ok := AnalysisFor(models.SpecialtyCoordinator); ok {
		t.Error("coordinator should have no specialist analysis prompt")
	}
}
