// Package executor implements spec.md §4.4: alias expansion, inline
// assignments, builtin/external dispatch, pipeline assembly, and/or/sequence
// evaluation, and backgrounding. Grounded in the teacher's Executor (env map,
// executeStatement-style dispatch) generalised from os/exec to rush's own
// spawn package and pipe plumbing so builtins can sit mid-pipeline the way
// spec.md §4.4's pipeline assembly requires.
package executor

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"rush/internal/builtin"
	"rush/internal/expand"
	"rush/internal/job"
	"rush/internal/parser"
	"rush/internal/shellerr"
	"rush/internal/state"
)

// Executor ties shell state, the job table, and the current stdio triple
// together to run parsed command trees.
type Executor struct {
	Sh        *state.Shell
	Jobs      *job.Table
	Stdin     *os.File
	Stdout    *os.File
	Stderr    *os.File
	History   builtin.History
	ShellPgid int
	Debug     bool

	aliasDepth int
}

// New creates an Executor wired to the process's own stdio.
func New(sh *state.Shell, jobs *job.Table) *Executor {
	return &Executor{
		Sh:        sh,
		Jobs:      jobs,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		ShellPgid: os.Getpid(),
	}
}

// RunLine parses and executes one line of input, returning the resulting
// exit status and setting $? on the shell state. A *shellerr.LexError that
// indicates the line is incomplete (needs continuation) is returned as-is
// so the REPL can prompt for more input instead of treating it as final.
func (e *Executor) RunLine(line string) (int, error) {
	if e.Debug {
		fmt.Fprintf(e.Stderr, "+ %s\n", line)
	}
	tree, err := parser.Parse(line)
	if err != nil {
		if NeedsContinuation(err) {
			return 0, err
		}
		fmt.Fprintln(e.Stderr, err.Error())
		e.Sh.LastStatus = shellerr.StatusOf(err)
		return e.Sh.LastStatus, nil
	}
	status, err := e.runTree(tree)
	if err != nil {
		if _, ok := err.(*builtin.ReturnSignal); ok {
			return status, err
		}
		fmt.Fprintln(e.Stderr, err.Error())
		status = shellerr.StatusOf(err)
	}
	e.Sh.LastStatus = status
	return status, nil
}

// NeedsContinuation reports whether err signals an incomplete line (spec.md
// §6): an unterminated quote or command substitution.
func NeedsContinuation(err error) bool {
	le, ok := err.(*shellerr.LexError)
	if !ok {
		return false
	}
	return strings.Contains(le.Msg, "unterminated")
}

func (e *Executor) runTree(tree *parser.CommandTree) (int, error) {
	status := e.Sh.LastStatus
	for _, stmt := range tree.Statements {
		var err error
		if stmt.Separator == parser.SeparatorAmp {
			err = e.runBackground(stmt.AndOr)
			status = 0
		} else {
			status, err = e.runAndOr(stmt.AndOr)
		}
		if err != nil {
			return status, err
		}
		e.Sh.LastStatus = status
	}
	return status, nil
}

// runAndOr evaluates a left-associative &&/|| chain, left to right.
func (e *Executor) runAndOr(ao *parser.AndOr) (int, error) {
	status := 0
	var err error
	for i, part := range ao.Parts {
		if i > 0 {
			if part.Op == parser.OpAnd && status != 0 {
				continue
			}
			if part.Op == parser.OpOr && status == 0 {
				continue
			}
		}
		status, err = e.runPipeline(part.Pipeline)
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

// runBackground runs every pipeline before the last one in ao through the
// normal &&/|| short-circuit rule, synchronously, then places the rightmost
// pipeline's process group in the background and registers it as a Job
// (spec.md §4.2: a trailing `&` backgrounds only the rightmost pipeline of
// the chain, so everything left of it runs to completion first).
func (e *Executor) runBackground(ao *parser.AndOr) error {
	n := len(ao.Parts)
	status := 0
	var err error
	for i := 0; i < n-1; i++ {
		part := ao.Parts[i]
		if i > 0 {
			if part.Op == parser.OpAnd && status != 0 {
				continue
			}
			if part.Op == parser.OpOr && status == 0 {
				continue
			}
		}
		status, err = e.runPipeline(part.Pipeline)
		if err != nil {
			return err
		}
	}

	last := ao.Parts[n-1]
	if n > 1 {
		if last.Op == parser.OpAnd && status != 0 {
			return nil
		}
		if last.Op == parser.OpOr && status == 0 {
			return nil
		}
	}

	pl := last.Pipeline
	stages, err := e.buildStages(pl)
	if err != nil {
		return err
	}
	pgid, pids, real, err := e.startStages(stages, false)
	if err != nil {
		return err
	}
	if real {
		e.Jobs.Insert(pgid, pipelineText(pl), pids)
		e.Sh.LastBgPid = pids[len(pids)-1]
	}
	return nil
}

func pipelineText(pl *parser.Pipeline) string {
	var parts []string
	for _, c := range pl.Commands {
		var words []string
		for _, w := range c.Words {
			words = append(words, w.Raw)
		}
		parts = append(parts, strings.Join(words, " "))
	}
	return strings.Join(parts, " | ")
}

// RunCapture implements expand.Runner: it runs cmdline as a nested pipeline
// with stdout captured, stripping trailing newlines per spec.md §4.3's
// command-substitution rule (the caller, scanSubstitutions, also trims, but
// trimming here too keeps this method usable standalone).
func (e *Executor) RunCapture(cmdline string) (string, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return "", &shellerr.IOError{File: "pipe", Err: err}
	}
	sub := *e
	sub.Stdout = w
	var out []byte
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf, _ := io.ReadAll(r)
		out = buf
		r.Close()
	}()

	tree, err := parser.Parse(cmdline)
	if err == nil {
		_, err = sub.runTree(tree)
	}
	w.Close()
	wg.Wait()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// vars adapts *state.Shell to expand.Vars (already satisfies it structurally
// via Get/Set, kept as a doc anchor for the dependency).
var _ expand.Vars = (*state.Shell)(nil)
