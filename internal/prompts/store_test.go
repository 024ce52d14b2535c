package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"storeline/voice/internal/agents"
)

func TestMissingPromptFallsBack(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := s.Get(agents.Router)
	if got != agents.FallbackInstructions(agents.Router) {
		t.Fatalf("expected fallback instructions, got %q", got)
	}
}

func TestReloadPicksUpFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	if err := os.WriteFile(filepath.Join(dir, "items.txt"), []byte("custom items prompt"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := s.Get(agents.Items); got != "custom items prompt" {
		t.Fatalf("got %q", got)
	}
	// Router still on its fallback.
	if got := s.Get(agents.Router); got != agents.FallbackInstructions(agents.Router) {
		t.Fatalf("router should fall back, got %q", got)
	}
}

func TestBlankPromptFallsBack(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pickup.txt"), []byte("   \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := New(dir)
	if err := s.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := s.Get(agents.Pickup); got != agents.FallbackInstructions(agents.Pickup) {
		t.Fatalf("blank prompt should fall back, got %q", got)
	}
}

func TestConcurrentReloadAndRead(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "router.txt"), []byte("v1 router"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := New(dir)
	if err := s.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got := s.Get(agents.Router)
				// A reader sees a complete set: either a stored prompt or
				// the fallback, never a torn value.
				if !strings.Contains(got, "router") && got != agents.FallbackInstructions(agents.Router) {
					t.Errorf("unexpected prompt %q", got)
					return
				}
			}
		}()
	}
	for j := 0; j < 20; j++ {
		if err := s.Reload(); err != nil {
			t.Fatalf("reload: %v", err)
		}
	}
	wg.Wait()
}
