package state

import (
	"os"
	"strconv"
	"testing"
)

func TestGetSetRoundTrip(t *testing.T) {
	sh := New("", nil)
	sh.Set("FOO", "bar")
	if v, ok := sh.Get("FOO"); !ok || v != "bar" {
		t.Fatalf("Get(FOO) = %q, %v, want bar, true", v, ok)
	}
}

func TestExportAddsToEnviron(t *testing.T) {
	sh := New("", nil)
	sh.Export("FOO", "bar", true)
	if !sh.Exported("FOO") {
		t.Fatal("FOO should be exported")
	}
	found := false
	for _, kv := range sh.Environ() {
		if kv == "FOO=bar" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Environ() = %v, want FOO=bar present", sh.Environ())
	}
}

func TestUnsetRemovesVariable(t *testing.T) {
	sh := New("", nil)
	sh.Set("FOO", "bar")
	sh.Export("FOO", "", false)
	sh.Unset("FOO")
	if _, ok := sh.Get("FOO"); ok {
		t.Fatal("FOO should be gone after Unset")
	}
	if sh.Exported("FOO") {
		t.Fatal("FOO should not be exported after Unset")
	}
}

func TestSpecialVariables(t *testing.T) {
	sh := New("myscript", []string{"a", "b"})
	if v, _ := sh.Get("0"); v != "myscript" {
		t.Errorf("$0 = %q, want myscript", v)
	}
	if v, _ := sh.Get("1"); v != "a" {
		t.Errorf("$1 = %q, want a", v)
	}
	if v, _ := sh.Get("#"); v != "2" {
		t.Errorf("$# = %q, want 2", v)
	}
	if v, _ := sh.Get("@"); v != "a b" {
		t.Errorf("$@ = %q, want \"a b\"", v)
	}
	sh.LastStatus = 42
	if v, _ := sh.Get("?"); v != "42" {
		t.Errorf("$? = %q, want 42", v)
	}
	if v, ok := sh.Get("$"); !ok {
		t.Error("$$ should always be set")
	} else if _, err := strconv.Atoi(v); err != nil {
		t.Errorf("$$ = %q, want an integer pid", v)
	}
}

func TestRandomStaysInBashRange(t *testing.T) {
	sh := New("", nil)
	for i := 0; i < 100; i++ {
		v, ok := sh.Get("RANDOM")
		if !ok {
			t.Fatal("RANDOM should always be set")
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			t.Fatalf("RANDOM = %q, not an integer", v)
		}
		if n < 0 || n > 32767 {
			t.Fatalf("RANDOM = %d, out of bash's [0, 32767] range", n)
		}
	}
}

func TestAliasTable(t *testing.T) {
	sh := New("", nil)
	sh.SetAlias("ll", "ls -l")
	if v, ok := sh.Alias("ll"); !ok || v != "ls -l" {
		t.Fatalf("Alias(ll) = %q, %v", v, ok)
	}
	sh.UnsetAlias("ll")
	if _, ok := sh.Alias("ll"); ok {
		t.Fatal("ll should be gone after UnsetAlias")
	}
	sh.SetAlias("a", "x")
	sh.SetAlias("b", "y")
	sh.UnsetAllAliases()
	if len(sh.Aliases()) != 0 {
		t.Fatalf("Aliases() = %v, want empty after UnsetAllAliases", sh.Aliases())
	}
}

func TestChdirTracksOldPWD(t *testing.T) {
	sh := New("", nil)
	start, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	tmp := t.TempDir()
	if err := sh.Chdir(tmp); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(start)

	if sh.OldPWD != start {
		t.Errorf("OldPWD = %q, want %q", sh.OldPWD, start)
	}
	if pwd, _ := sh.Get("PWD"); pwd == "" {
		t.Error("PWD should be set after Chdir")
	}
}
