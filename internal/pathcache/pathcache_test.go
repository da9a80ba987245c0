package pathcache

import (
	"os"
	"path/filepath"
	"testing"
)

func mkExecutable(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestNewScansExecutables(t *testing.T) {
	dir := t.TempDir()
	mkExecutable(t, dir, "foo")
	mkExecutable(t, dir, "bar")
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(dir)
	if !c.Has("foo") || !c.Has("bar") {
		t.Fatal("expected foo and bar to be cached")
	}
	if c.Has("readme.txt") {
		t.Fatal("non-executable file should not be cached")
	}
}

func TestWithPrefix(t *testing.T) {
	dir := t.TempDir()
	mkExecutable(t, dir, "grep")
	mkExecutable(t, dir, "greple")
	mkExecutable(t, dir, "ls")

	c := New(dir)
	got := c.WithPrefix("gre")
	want := []string{"grep", "greple"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRefreshPicksUpNewExecutable(t *testing.T) {
	dir := t.TempDir()
	mkExecutable(t, dir, "one")
	c := New(dir)
	if c.Has("two") {
		t.Fatal("two should not exist yet")
	}

	// Creating a file bumps the directory's mtime, so Refresh must notice.
	mkExecutable(t, dir, "two")
	c.Refresh(dir)
	if !c.Has("two") {
		t.Fatal("Refresh should have picked up the new executable")
	}
}

func TestRefreshNoOpWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	mkExecutable(t, dir, "one")
	c := New(dir)
	c.Refresh(dir) // should be a cheap no-op, not crash or drop entries
	if !c.Has("one") {
		t.Fatal("one should still be cached after a no-op Refresh")
	}
}
