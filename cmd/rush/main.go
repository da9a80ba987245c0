// Command rush is a POSIX-lite interactive shell: lexer, parser, word
// expansion, builtin/external executor, spawner, job controller, and a
// raw-mode line editor, wired together the way the teacher's cmd/gobash
// wires its own Shell, but driving internal/executor directly instead of
// gobash's Program/Executor.Execute split (spec.md §6's three entry forms:
// interactive REPL, `-c CMD`, and `rush SCRIPT args...`).
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pborman/getopt/v2"
	"golang.org/x/term"

	"rush/internal/editor"
	"rush/internal/executor"
	"rush/internal/job"
	"rush/internal/state"
)

func main() {
	os.Exit(run())
}

func run() int {
	cmdStr := getopt.StringLong("command", 'c', "", "run COMMAND then exit")
	getopt.Parse()
	args := getopt.Args()

	var scriptName string
	var scriptArgs []string
	if *cmdStr == "" && len(args) > 0 {
		scriptName = args[0]
		scriptArgs = args[1:]
	}

	sh := state.New(scriptName, scriptArgs)
	jobs := job.NewTable()
	ex := executor.New(sh, jobs)
	ex.Debug = os.Getenv("RUSH_DEBUG") != ""

	switch {
	case *cmdStr != "":
		status, _ := ex.RunLine(*cmdStr)
		return status
	case scriptName != "":
		f, err := os.Open(scriptName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rush: %s: %v\n", scriptName, err)
			return 127
		}
		defer f.Close()
		return runFeed(ex, f)
	default:
		return runInteractive(ex, sh, jobs)
	}
}

// runFeed executes every non-blank, non-comment line of r in sequence,
// stopping early on `exit`, matching spec.md §6's non-interactive script
// mode (no control-flow constructs to track, so a line is always a
// complete statement once continuation is satisfied).
func runFeed(ex *executor.Executor, r io.Reader) int {
	sc := bufio.NewScanner(r)
	var pending strings.Builder
	status := 0
	for sc.Scan() {
		line := sc.Text()
		if pending.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
		} else {
			pending.WriteString("\n")
		}
		pending.WriteString(line)

		s, err := ex.RunLine(pending.String())
		if err != nil && executor.NeedsContinuation(err) {
			continue
		}
		pending.Reset()
		status = s
		if ex.Sh.ExitRequested {
			return ex.Sh.ExitCode
		}
	}
	return status
}

// runInteractive drives the raw-mode line editor when stdin is a terminal,
// falling back to runFeed otherwise (spec.md §6: "non-interactive stdin
// runs as a script feed").
func runInteractive(ex *executor.Executor, sh *state.Shell, jobs *job.Table) int {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return runFeed(ex, os.Stdin)
	}

	ed, err := editor.New(sh)
	if err != nil {
		return runFeed(ex, os.Stdin)
	}
	defer ed.Close()
	ex.History = ed
	ex.ShellPgid = os.Getpid()

	var pending strings.Builder
	for {
		job.Reap(jobs)
		job.NotifyAndClean(jobs, os.Stderr)

		prompt := promptFor(sh)
		if pending.Len() > 0 {
			prompt = "> "
		}
		line, rerr := ed.ReadLine(prompt)
		if editor.IsInterrupt(rerr) {
			pending.Reset()
			fmt.Println()
			continue
		}
		if rerr != nil {
			break
		}

		if pending.Len() > 0 {
			pending.WriteString("\n")
		}
		pending.WriteString(line)
		full := pending.String()

		status, runErr := ex.RunLine(full)
		if runErr != nil && executor.NeedsContinuation(runErr) {
			continue
		}
		pending.Reset()
		ed.Accept(full)
		_ = status

		if sh.ExitRequested {
			return sh.ExitCode
		}
	}
	return sh.LastStatus
}

// promptFor renders the primary prompt as spec.md §6 requires: `[N] rush$ `,
// N being the exit status of the last command run.
func promptFor(sh *state.Shell) string {
	return fmt.Sprintf("[%d] rush$ ", sh.LastStatus)
}
