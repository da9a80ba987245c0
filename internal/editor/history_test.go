package editor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHistoryAddAndEntries(t *testing.T) {
	dir := t.TempDir()
	h := NewHistory(filepath.Join(dir, "hist"), 100)
	h.Add("echo one")
	h.Add("echo two")
	got := h.Entries()
	want := []string{"echo one", "echo two"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHistorySkipsExactRepeat(t *testing.T) {
	dir := t.TempDir()
	h := NewHistory(filepath.Join(dir, "hist"), 100)
	h.Add("ls")
	h.Add("ls")
	if got := h.Entries(); len(got) != 1 {
		t.Fatalf("got %v, want a single entry (repeat skipped)", got)
	}
}

func TestHistoryIgnoresBlankLines(t *testing.T) {
	dir := t.TempDir()
	h := NewHistory(filepath.Join(dir, "hist"), 100)
	h.Add("   ")
	h.Add("")
	if got := h.Entries(); len(got) != 0 {
		t.Fatalf("got %v, want no entries", got)
	}
}

func TestHistoryRespectsLimit(t *testing.T) {
	dir := t.TempDir()
	h := NewHistory(filepath.Join(dir, "hist"), 2)
	h.Add("a")
	h.Add("b")
	h.Add("c")
	got := h.Entries()
	want := []string{"b", "c"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestHistoryPersistsAndLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist")
	h1 := NewHistory(path, 100)
	h1.Add("cmd one")
	h1.Add("cmd two")

	h2 := NewHistory(path, 100)
	h2.Load()
	got := h2.Entries()
	want := []string{"cmd one", "cmd two"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHistoryLoadMergesBeforeInMemoryEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist")
	if err := os.WriteFile(path, []byte("old one\nold two\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	h := NewHistory(path, 100)
	h.entries = []string{"new one"}
	h.Load()
	got := h.Entries()
	want := []string{"old one", "old two", "new one"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestHistoryClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist")
	h := NewHistory(path, 100)
	h.Add("something")
	h.Clear()
	if got := h.Entries(); len(got) != 0 {
		t.Fatalf("got %v, want empty after Clear", got)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "\n" {
		t.Errorf("persisted file = %q, want just a newline", string(data))
	}
}

func TestDefaultHistoryPathUnderHome(t *testing.T) {
	got := DefaultHistoryPath()
	home, _ := os.UserHomeDir()
	if home == "" {
		if got != "" {
			t.Errorf("got %q, want empty when HOME is unset", got)
		}
		return
	}
	want := filepath.Join(home, ".rush_history")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
