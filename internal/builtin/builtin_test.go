package builtin

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"rush/internal/job"
	"rush/internal/state"
)

func newTestContextFull(t *testing.T) (*Context, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	sh := state.New("", nil)
	var out, errw bytes.Buffer
	return &Context{
		Sh:       sh,
		Jobs:     job.NewTable(),
		Stdin:    bytes.NewReader(nil),
		Stdout:   &out,
		Stderr:   &errw,
		SetDebug: func(bool) {},
	}, &out, &errw
}

func TestBiEchoNoNewlineFlag(t *testing.T) {
	c, out, _ := newTestContextFull(t)
	if err := biEcho(c, []string{"-n", "hi", "there"}); err != nil {
		t.Fatalf("biEcho: %v", err)
	}
	if out.String() != "hi there" {
		t.Errorf("got %q, want %q", out.String(), "hi there")
	}
}

func TestBiEchoPlainPrintsNewline(t *testing.T) {
	c, out, _ := newTestContextFull(t)
	if err := biEcho(c, []string{"hi"}); err != nil {
		t.Fatalf("biEcho: %v", err)
	}
	if out.String() != "hi\n" {
		t.Errorf("got %q, want %q", out.String(), "hi\n")
	}
}

func TestBiEchoUnknownFlagTreatedAsText(t *testing.T) {
	c, out, _ := newTestContextFull(t)
	if err := biEcho(c, []string{"-5", "apples"}); err != nil {
		t.Fatalf("biEcho: %v", err)
	}
	if out.String() != "-5 apples\n" {
		t.Errorf("got %q, want %q", out.String(), "-5 apples\n")
	}
}

func TestBiCdDashPrintsAndUsesOldPWD(t *testing.T) {
	c, out, _ := newTestContextFull(t)
	start := t.TempDir()
	dest := t.TempDir()
	c.Sh.Chdir(start)
	c.Sh.Chdir(dest)
	out.Reset()

	if err := biCd(c, []string{"-"}); err != nil {
		t.Fatalf("biCd: %v", err)
	}
	wd, _ := os.Getwd()
	resolved, _ := filepath.EvalSymlinks(start)
	gotWd, _ := filepath.EvalSymlinks(wd)
	if gotWd != resolved {
		t.Errorf("cwd = %q, want %q", gotWd, resolved)
	}
}

func TestBiCdPlainDirectory(t *testing.T) {
	c, _, _ := newTestContextFull(t)
	dest := t.TempDir()
	if err := biCd(c, []string{dest}); err != nil {
		t.Fatalf("biCd: %v", err)
	}
	wd, _ := os.Getwd()
	gotWd, _ := filepath.EvalSymlinks(wd)
	wantWd, _ := filepath.EvalSymlinks(dest)
	if gotWd != wantWd {
		t.Errorf("cwd = %q, want %q", gotWd, wantWd)
	}
}

func TestBiReadWithPromptFlag(t *testing.T) {
	c, _, errw := newTestContextFull(t)
	c.Stdin = bytes.NewBufferString("answer\n")
	if err := biRead(c, []string{"-p", "> ", "NAME"}); err != nil {
		t.Fatalf("biRead: %v", err)
	}
	if errw.String() != "> " {
		t.Errorf("prompt = %q, want %q", errw.String(), "> ")
	}
	if got, _ := c.Sh.Get("NAME"); got != "answer" {
		t.Errorf("NAME = %q, want %q", got, "answer")
	}
}

func TestBiCommandVerbosePrintsName(t *testing.T) {
	c, out, _ := newTestContextFull(t)
	if err := biCommand(c, []string{"-v", "echo"}); err != nil {
		t.Fatalf("biCommand: %v", err)
	}
	if out.String() != "echo\n" {
		t.Errorf("got %q, want %q", out.String(), "echo\n")
	}
}

func TestBiSetTogglesDebug(t *testing.T) {
	var got bool
	c := &Context{SetDebug: func(on bool) { got = on }}

	if err := biSet(c, []string{"-x"}); err != nil {
		t.Fatalf("biSet: %v", err)
	}
	if !got {
		t.Error("set -x should enable debug")
	}

	if err := biSet(c, []string{"+x"}); err != nil {
		t.Fatalf("biSet: %v", err)
	}
	if got {
		t.Error("set +x should disable debug")
	}

	if err := biSet(c, []string{"-o", "xtrace"}); err != nil {
		t.Fatalf("biSet: %v", err)
	}
	if !got {
		t.Error("set -o xtrace should enable debug")
	}
}
