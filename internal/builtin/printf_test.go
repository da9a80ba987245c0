package builtin

import (
	"bytes"
	"testing"
)

func newTestContext() (*Context, *bytes.Buffer) {
	var out bytes.Buffer
	return &Context{Stdout: &out, Stderr: &out}, &out
}

func TestPrintfBasicConversions(t *testing.T) {
	c, out := newTestContext()
	if err := biPrintf(c, []string{"%s-%d-%%\n", "abc", "42"}); err != nil {
		t.Fatalf("biPrintf: %v", err)
	}
	if got, want := out.String(), "abc-42-%\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrintfRecyclesFormatOverExtraArgs(t *testing.T) {
	c, out := newTestContext()
	if err := biPrintf(c, []string{"%s\n", "a", "b", "c"}); err != nil {
		t.Fatalf("biPrintf: %v", err)
	}
	if got, want := out.String(), "a\nb\nc\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrintfEscapes(t *testing.T) {
	c, out := newTestContext()
	if err := biPrintf(c, []string{`a\tb\nc`}); err != nil {
		t.Fatalf("biPrintf: %v", err)
	}
	if got, want := out.String(), "a\tb\nc"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPrintfNoArgsIsUsageError(t *testing.T) {
	c, _ := newTestContext()
	if err := biPrintf(c, nil); err == nil {
		t.Fatal("expected usage error for missing format")
	}
}

func TestPrintfBadNumberDefaultsToZero(t *testing.T) {
	c, out := newTestContext()
	if err := biPrintf(c, []string{"%d\n", "notanumber"}); err != nil {
		t.Fatalf("biPrintf: %v", err)
	}
	if got, want := out.String(), "0\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
