// Package editor implements spec.md §4.7's raw-mode line editor: history,
// reverse-incremental search, Tab completion, and syntax highlighting.
// Grounded in the teacher's internal/shell (Shell.Run's readline.Config
// wiring, History, Completer), rebuilt around chzyer/readline's own
// emacs-style key bindings (Ctrl+A/E/B/F/K/U/W/Y, Alt+F/B/D, Ctrl+R) instead
// of hand-rolled termios handling, since readline already implements
// spec.md §4.7's key table faithfully.
package editor

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"

	"rush/internal/state"
)

// Editor owns one interactive readline session plus rush's own
// lazily-loaded history log.
type Editor struct {
	rl   *readline.Instance
	sh   *state.Shell
	hist *History
}

// New opens a readline session against the controlling terminal. The
// history file is not read here — ReadLine starts Load in the background on
// its first call — so startup never blocks on history I/O (spec.md §4.7).
func New(sh *state.Shell) (*Editor, error) {
	hist := NewHistory(DefaultHistoryPath(), 1000)

	cfg := &readline.Config{
		Prompt:          "",
		AutoComplete:    newCompleter(sh),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Painter:         newPainter(sh),
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}
	return &Editor{rl: rl, sh: sh, hist: hist}, nil
}

// ReadLine displays prompt and reads one line, loading history in the
// background the first time it is called so the prompt itself never waits
// on disk I/O.
func (e *Editor) ReadLine(prompt string) (string, error) {
	go e.hist.Load()
	e.rl.SetPrompt(prompt)
	return e.rl.Readline()
}

// IsInterrupt reports whether err is the Ctrl+C sentinel readline.Readline
// returns: the caller clears its buffer and redraws rather than exiting
// (spec.md §5's Ctrl+C-at-the-prompt rule).
func IsInterrupt(err error) bool { return err == readline.ErrInterrupt }

// IsEOF reports whether err is the Ctrl+D-at-empty-line sentinel.
func IsEOF(err error) bool { return err == io.EOF }

// Accept records line in history (in-memory + on-disk log, and readline's
// own ring so Up/Down sees it this session).
func (e *Editor) Accept(line string) {
	e.hist.Add(line)
	e.rl.SaveHistory(line)
}

// Entries implements builtin.History.
func (e *Editor) Entries() []string { return e.hist.Entries() }

// Clear implements builtin.History.
func (e *Editor) Clear() { e.hist.Clear() }

// Close restores the terminal to cooked mode, the editor's side of spec.md
// §5's "original termios is restored on any exit path" rule.
func (e *Editor) Close() error { return e.rl.Close() }

// Refresh re-renders the prompt, used after a background job prints a
// completion notice so the user's in-progress line isn't left stranded
// below it.
func (e *Editor) Refresh() { e.rl.Refresh() }

// PrintAbove writes msg above the current prompt line without disturbing
// the user's in-progress input, grounded in original_source's job
// notification behaviour (spec.md §4.6).
func (e *Editor) PrintAbove(msg string) {
	fmt.Fprint(os.Stderr, msg)
	e.rl.Refresh()
}
