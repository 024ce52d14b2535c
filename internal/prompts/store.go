package prompts

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"storeline/voice/internal/agents"
)

// Store holds the agent instruction texts. The whole set is replaced
// atomically on reload so a concurrent reader sees either the old set or the
// new one, never a mix.
type Store struct {
	dir string

	mu  sync.RWMutex
	set map[agents.Agent]string
}

func New(dir string) *Store {
	return &Store{dir: dir, set: map[agents.Agent]string{}}
}

// Get returns the stored instructions for an agent, falling back to the
// built-in default when the set has nothing usable. A missing prompt is never
// an error.
func (s *Store) Get(a agents.Agent) string {
	s.mu.RLock()
	text := s.set[a]
	s.mu.RUnlock()
	if strings.TrimSpace(text) == "" {
		return agents.FallbackInstructions(a)
	}
	return text
}

// Reload reads <agent>.txt files from the prompt directory and swaps the
// whole set in one step. Unreadable files leave that agent on its fallback.
func (s *Store) Reload() error {
	next := map[agents.Agent]string{}
	for _, a := range []agents.Agent{agents.Router, agents.Items, agents.Pickup} {
		path := filepath.Join(s.dir, string(a)+".txt")
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Printf("[prompts] read %s: %v", path, err)
			}
			continue
		}
		next[a] = string(b)
	}

	s.mu.Lock()
	s.set = next
	s.mu.Unlock()
	log.Printf("[prompts] reloaded %d prompt(s) from %s", len(next), s.dir)
	return nil
}
