package editor

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// History is rush's own persisted command history, kept independent of
// readline's in-memory ring so its backing file can be read lazily: the
// prompt must appear before any history I/O happens (spec.md §4.7), and
// chzyer/readline's own HistoryFile loading happens eagerly inside NewEx,
// too early for that rule.
type History struct {
	mu      sync.Mutex
	path    string
	entries []string
	limit   int
	once    sync.Once
}

// NewHistory builds a History backed by path, capped at limit entries. It
// does not touch disk until Load is called.
func NewHistory(path string, limit int) *History {
	return &History{path: path, limit: limit}
}

// Load reads the history file if it hasn't been read yet. Safe to call
// from a goroutine started right after the prompt is drawn.
func (h *History) Load() {
	h.once.Do(func() {
		if h.path == "" {
			return
		}
		f, err := os.Open(h.path)
		if err != nil {
			return
		}
		defer f.Close()
		var lines []string
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := sc.Text()
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
		h.mu.Lock()
		h.entries = append(lines, h.entries...)
		if len(h.entries) > h.limit {
			h.entries = h.entries[len(h.entries)-h.limit:]
		}
		h.mu.Unlock()
	})
}

// Add appends a line to history, skipping an exact repeat of the previous
// entry, and persists the full log.
func (h *History) Add(line string) {
	line = strings.TrimRight(line, "\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	h.mu.Lock()
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		h.mu.Unlock()
		return
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
	snapshot := append([]string(nil), h.entries...)
	h.mu.Unlock()
	h.save(snapshot)
}

// Entries returns every history line, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

// Clear empties history, both in memory and on disk.
func (h *History) Clear() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
	h.save(nil)
}

func (h *History) save(entries []string) {
	if h.path == "" {
		return
	}
	if dir := filepath.Dir(h.path); dir != "" {
		os.MkdirAll(dir, 0o755)
	}
	os.WriteFile(h.path, []byte(strings.Join(entries, "\n")+"\n"), 0o600)
}

// DefaultHistoryPath returns ~/.rush_history, or "" if HOME is unset.
func DefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".rush_history")
}
