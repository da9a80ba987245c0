package executor

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"rush/internal/builtin"
	"rush/internal/expand"
	"rush/internal/job"
	"rush/internal/lexer"
	"rush/internal/parser"
	"rush/internal/shellerr"
	"rush/internal/spawn"
)

// resolvedRedir is a redirection after its target word has been expanded.
type resolvedRedir struct {
	fd     int
	op     lexer.Type
	target string
}

// stage is one pipeline command after alias expansion and word expansion:
// everything the executor needs to either run it in-process (builtin) or
// hand it to the spawner (external).
type stage struct {
	assigns      map[string]string
	words        []string
	redirs       []resolvedRedir
	forcePath    bool
	forceBuiltin bool
}

// runPipeline assembles and runs pl per spec.md §4.4's pipeline assembly:
// N-1 pipes for N stages, each stage's stdio wired to the adjoining pipes,
// each pipe end closed by the stage that uses it once that stage finishes.
func (e *Executor) runPipeline(pl *parser.Pipeline) (int, error) {
	stages, err := e.buildStages(pl)
	if err != nil {
		return 1, err
	}
	return e.runStagesForeground(stages)
}

func (e *Executor) buildStages(pl *parser.Pipeline) ([]*stage, error) {
	stages := make([]*stage, len(pl.Commands))
	for i, cmd := range pl.Commands {
		expanded, err := e.expandAlias(cmd, map[string]bool{})
		if err != nil {
			return nil, err
		}
		st, err := e.buildStage(expanded)
		if err != nil {
			return nil, err
		}
		stages[i] = st
	}
	return stages, nil
}

// expandAlias replaces cmd's leading word with its alias body if it names
// one, recursing into the (possibly also aliased) first word of the
// replacement, guarded against the name re-expanding within its own
// expansion (spec.md §4.4).
func (e *Executor) expandAlias(cmd *parser.SimpleCommand, guard map[string]bool) (*parser.SimpleCommand, error) {
	if len(cmd.Words) == 0 {
		return cmd, nil
	}
	w := cmd.Words[0]
	if len(w.Segments) != 1 || w.Segments[0].Kind != lexer.Bare {
		return cmd, nil
	}
	name := w.Segments[0].Text
	val, ok := e.Sh.Alias(name)
	if !ok || guard[name] {
		return cmd, nil
	}
	guard[name] = true

	lx := lexer.New(val)
	var prefixWords []lexer.Token
	var prefixRedirs []parser.Redirection
	for {
		tok, err := lx.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == lexer.EOF || tok.Type == lexer.Newline {
			break
		}
		if tok.Type.IsRedirOp() {
			target, err := lx.NextToken()
			if err != nil {
				return nil, err
			}
			prefixRedirs = append(prefixRedirs, parser.Redirection{FD: tok.FD, Op: tok.Type, Target: target})
			continue
		}
		prefixWords = append(prefixWords, tok)
	}

	merged := &parser.SimpleCommand{
		Assigns: cmd.Assigns,
		Words:   append(append([]lexer.Token{}, prefixWords...), cmd.Words[1:]...),
		Redirs:  append(append([]parser.Redirection{}, prefixRedirs...), cmd.Redirs...),
	}
	return e.expandAlias(merged, guard)
}

func (e *Executor) buildStage(cmd *parser.SimpleCommand) (*stage, error) {
	assigns := map[string]string{}
	for _, a := range cmd.Assigns {
		v, err := expand.Single(a.Value, e.Sh, e)
		if err != nil {
			return nil, err
		}
		assigns[a.Name] = v
	}

	redirs := make([]resolvedRedir, 0, len(cmd.Redirs))
	for _, r := range cmd.Redirs {
		target, err := expand.Single(r.Target, e.Sh, e)
		if err != nil {
			return nil, err
		}
		redirs = append(redirs, resolvedRedir{fd: r.FD, op: r.Op, target: target})
	}

	var words []string
	for _, w := range cmd.Words {
		fs, err := expand.Fields(w, e.Sh, e)
		if err != nil {
			return nil, err
		}
		words = append(words, fs...)
	}

	return &stage{assigns: assigns, words: words, redirs: redirs}, nil
}

// runStagesForeground starts every stage, wires pipes for N>1, waits for
// completion, and returns the rightmost stage's exit status (spec.md
// §4.4): "the pipeline's exit status is the rightmost stage's".
func (e *Executor) runStagesForeground(stages []*stage) (int, error) {
	if len(stages) == 1 {
		return e.runStageDirect(stages[0], e.Stdin, e.Stdout, e.Stderr)
	}

	pipes := make([][2]*os.File, len(stages)-1)
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			return 1, &shellerr.IOError{File: "pipe", Err: err}
		}
		pipes[i] = [2]*os.File{r, w}
	}

	statuses := make([]int, len(stages))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, st := range stages {
		stdin := e.Stdin
		if i > 0 {
			stdin = pipes[i-1][0]
		}
		stdout := e.Stdout
		if i < len(stages)-1 {
			stdout = pipes[i][1]
		}
		wg.Add(1)
		go func(i int, st *stage, stdin, stdout *os.File) {
			defer wg.Done()
			status, err := e.runStageDirect(st, stdin, stdout, e.Stderr)
			// The stage goroutines share the parent's *os.File pipe ends, so
			// each one closes its own ends only after its stage has finished;
			// that gives the next stage EOF and the previous one EPIPE.
			if i > 0 {
				stdin.Close()
			}
			if i < len(stages)-1 {
				stdout.Close()
			}
			statuses[i] = status
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(i, st, stdin, stdout)
	}
	wg.Wait()

	return statuses[len(statuses)-1], firstErr
}

// runStageDirect runs a single stage with the given stdio, either in-process
// (builtin) or via the spawner (external), per spec.md §4.4's dispatch rule.
func (e *Executor) runStageDirect(st *stage, stdin, stdout, stderr *os.File) (int, error) {
	if len(st.words) == 0 {
		for name, v := range st.assigns {
			e.Sh.Set(name, v)
		}
		return 0, nil
	}
	name := st.words[0]
	args := st.words[1:]
	return e.dispatch(name, args, st.assigns, st.redirs, stdin, stdout, stderr, st.forcePath, st.forceBuiltin)
}

// dispatch resolves name against the builtin table (unless forcePath) and
// either runs it in-process or spawns it externally, applying redirections
// and the per-command temporary environment either way.
func (e *Executor) dispatch(name string, args []string, assigns map[string]string, redirs []resolvedRedir, stdin, stdout, stderr *os.File, forcePath, forceBuiltin bool) (int, error) {
	if forceBuiltin {
		fn, ok := builtin.Table[name]
		if !ok {
			return 1, &shellerr.BuiltinUsageError{Name: "builtin", Usage: name + ": not a shell builtin"}
		}
		return e.runBuiltin(fn, name, args, assigns, redirs, stdin, stdout, stderr)
	}
	if !forcePath {
		if fn, ok := builtin.Table[name]; ok {
			return e.runBuiltin(fn, name, args, assigns, redirs, stdin, stdout, stderr)
		}
	}
	return e.runExternal(name, args, assigns, redirs, stdin, stdout, stderr)
}

func (e *Executor) runBuiltin(fn builtin.Func, name string, args []string, assigns map[string]string, redirs []resolvedRedir, stdin, stdout, stderr *os.File) (int, error) {
	restoreEnv := e.applyTempEnv(assigns)
	defer restoreEnv()

	in, out, errw, restoreFDs, err := e.applyRedirsDirect(redirs, stdin, stdout, stderr)
	if err != nil {
		return 1, err
	}
	defer restoreFDs()

	ctx := e.newContext(in, out, errw)
	err = fn(ctx, args)
	if _, ok := err.(*builtin.ReturnSignal); ok {
		return shellerr.StatusOf(err), err
	}
	return shellerr.StatusOf(err), wrapNonNilMessage(name, err)
}

// wrapNonNilMessage suppresses the generic statusError sentinel (used by
// `false` and `test`) from ever reaching the REPL's error-printing path: it
// carries no message, only a status.
func wrapNonNilMessage(_ string, err error) error {
	if err == nil {
		return nil
	}
	if err.Error() == "" {
		return nil
	}
	return err
}

func (e *Executor) runExternal(name string, args []string, assigns map[string]string, redirs []resolvedRedir, stdin, stdout, stderr *os.File) (int, error) {
	env := e.Sh.Environ()
	for k, v := range assigns {
		env = append(env, k+"="+v)
	}
	actions, err := buildFileActions(redirs)
	if err != nil {
		return 1, err
	}
	pid, err := spawn.Spawn(name, args, env, stdin, stdout, stderr, actions, spawn.Attr{Foreground: true}, e.Sh.Path)
	if err != nil {
		return shellerr.StatusOf(err), err
	}
	j := e.Jobs.Insert(pid, name+" "+strings.Join(args, " "), []int{pid})
	status, stopped := job.WaitForeground(e.Jobs, pid)
	job.TakeTerminalBack(e.ShellPgid)
	if stopped {
		fmt.Fprintf(e.Stderr, "\n[%d]+  Stopped                 %s\n", j.ID, j.Command)
	} else {
		e.Jobs.RemoveDone()
	}
	return status, nil
}

func buildFileActions(redirs []resolvedRedir) ([]spawn.FileAction, error) {
	var actions []spawn.FileAction
	for _, r := range redirs {
		a, err := redirToFileAction(r)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// redirToFileAction turns one resolved redirection into a spawn.FileAction,
// per spec.md §4.5's flags table.
func redirToFileAction(r resolvedRedir) (spawn.FileAction, error) {
	dst := r.fd
	switch r.op {
	case lexer.Less:
		if dst < 0 {
			dst = 0
		}
		return spawn.FileAction{DstFD: dst, Path: r.target, Flags: os.O_RDONLY}, nil
	case lexer.Great:
		if dst < 0 {
			dst = 1
		}
		return spawn.FileAction{DstFD: dst, Path: r.target, Flags: os.O_WRONLY | os.O_CREATE | os.O_TRUNC, Perm: 0o644}, nil
	case lexer.TwoGreat:
		return spawn.FileAction{DstFD: dst, Path: r.target, Flags: os.O_WRONLY | os.O_CREATE | os.O_TRUNC, Perm: 0o644}, nil
	case lexer.DGreat:
		if dst < 0 {
			dst = 1
		}
		return spawn.FileAction{DstFD: dst, Path: r.target, Flags: os.O_WRONLY | os.O_CREATE | os.O_APPEND, Perm: 0o644}, nil
	case lexer.TwoDGreat:
		return spawn.FileAction{DstFD: dst, Path: r.target, Flags: os.O_WRONLY | os.O_CREATE | os.O_APPEND, Perm: 0o644}, nil
	case lexer.LessAnd, lexer.GreatAnd:
		if dst < 0 {
			if r.op == lexer.LessAnd {
				dst = 0
			} else {
				dst = 1
			}
		}
		srcFD, err := parseFD(r.target)
		if err != nil {
			return spawn.FileAction{}, err
		}
		return spawn.FileAction{DstFD: dst, SrcFD: srcFD}, nil
	}
	return spawn.FileAction{}, &shellerr.ParseError{Kind: shellerr.BadRedirect, Near: r.target}
}

// startStages launches a pipeline for backgrounding: an all-external
// pipeline gets a real shared process group and returns immediately; a
// pipeline touching a builtin stage has nothing to put in a group, so it
// runs to completion inline instead (builtins are sub-1ms, so there is
// nothing to gain from pretending to background one). The returned bool
// is false for the inline case, telling the caller not to register a job
// for what is actually the shell's own pid.
func (e *Executor) startStages(stages []*stage, _ bool) (int, []int, bool, error) {
	if allExternal(stages) {
		pgid, pids, err := e.startExternalPipeline(stages)
		return pgid, pids, true, err
	}
	status, err := e.runStagesForeground(stages)
	e.Sh.LastStatus = status
	pid := e.ShellPgid
	return pid, []int{pid}, false, err
}

func allExternal(stages []*stage) bool {
	for _, st := range stages {
		if len(st.words) > 0 && builtin.Is(st.words[0]) {
			return false
		}
	}
	return true
}

func (e *Executor) startExternalPipeline(stages []*stage) (int, []int, error) {
	n := len(stages)
	pipes := make([][2]*os.File, n-1)
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			return 0, nil, &shellerr.IOError{File: "pipe", Err: err}
		}
		pipes[i] = [2]*os.File{r, w}
	}

	pids := make([]int, n)
	pgid := 0
	for i, st := range stages {
		stdin := e.Stdin
		if i > 0 {
			stdin = pipes[i-1][0]
		}
		stdout := e.Stdout
		if i < n-1 {
			stdout = pipes[i][1]
		}
		env := e.Sh.Environ()
		for k, v := range st.assigns {
			env = append(env, k+"="+v)
		}
		actions, err := buildFileActions(st.redirs)
		if err != nil {
			return 0, nil, err
		}
		if len(st.words) == 0 {
			pids[i] = e.ShellPgid
			continue
		}
		name := st.words[0]
		args := st.words[1:]
		pid, err := spawn.Spawn(name, args, env, stdin, stdout, e.Stderr, actions, spawn.Attr{Pgid: pgid}, e.Sh.Path)
		if err != nil {
			return 0, nil, err
		}
		if pgid == 0 {
			pgid = pid
		}
		pids[i] = pid
	}
	for _, p := range pipes {
		p[0].Close()
		p[1].Close()
	}
	return pgid, pids, nil
}

func parseFD(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, &shellerr.ParseError{Kind: shellerr.BadRedirect, Near: s}
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, &shellerr.ParseError{Kind: shellerr.BadRedirect, Near: s}
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, nil
}
