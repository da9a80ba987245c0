package executor

import (
	"os"
	"syscall"

	"rush/internal/builtin"
	"rush/internal/lexer"
	"rush/internal/shellerr"
	"rush/internal/spawn"
)

// newContext builds the Context a builtin runs with: redirected stdio plus
// the callbacks that let `source`, `command`, `builtin`, and `exec` re-enter
// command dispatch without internal/builtin importing internal/executor.
func (e *Executor) newContext(in, out, errw *os.File) *builtin.Context {
	return &builtin.Context{
		Sh:        e.Sh,
		Jobs:      e.Jobs,
		Stdin:     in,
		Stdout:    out,
		Stderr:    errw,
		History:   e.History,
		ShellPgid: e.ShellPgid,
		RunLine: func(line string) (int, error) {
			sub := *e
			sub.Stdin, sub.Stdout, sub.Stderr = in, out, errw
			return sub.RunLine(line)
		},
		Dispatch: func(name string, args []string, forcePath, forceBuiltin bool) (int, error) {
			return e.dispatch(name, args, nil, nil, in, out, errw, forcePath, forceBuiltin)
		},
		ReplaceProcess: func(name string, args []string) error {
			path, err := spawn.LookPath(name, e.Sh.Path)
			if err != nil {
				return err
			}
			return syscall.Exec(path, append([]string{name}, args...), e.Sh.Environ())
		},
		SetDebug: func(on bool) { e.Debug = on },
	}
}

// applyTempEnv sets assigns on shell state for the duration of a builtin
// call and restores whatever was there before, matching spec.md §4.4's rule
// that a leading assignment on a builtin invocation is visible to it but
// does not persist past it.
func (e *Executor) applyTempEnv(assigns map[string]string) func() {
	if len(assigns) == 0 {
		return func() {}
	}
	type saved struct {
		val string
		had bool
	}
	prev := make(map[string]saved, len(assigns))
	for name, v := range assigns {
		old, had := e.Sh.Get(name)
		prev[name] = saved{old, had}
		e.Sh.Set(name, v)
	}
	return func() {
		for name, s := range prev {
			if s.had {
				e.Sh.Set(name, s.val)
			} else {
				e.Sh.Unset(name)
			}
		}
	}
}

// applyRedirsDirect opens the files a builtin's redirections name and
// returns the resulting stdin/stdout/stderr triple plus a closer for
// whatever got opened. Dup forms (N>&M, N<&M) alias one of the three
// descriptors already in play rather than opening anything.
func (e *Executor) applyRedirsDirect(redirs []resolvedRedir, stdin, stdout, stderr *os.File) (in, out, errw *os.File, restore func(), err error) {
	in, out, errw = stdin, stdout, stderr
	var opened []*os.File
	restore = func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, r := range redirs {
		dst := r.fd
		switch r.op {
		case lexer.Less:
			f, oerr := os.Open(r.target)
			if oerr != nil {
				restore()
				return nil, nil, nil, func() {}, &shellerr.IOError{File: r.target, Err: oerr}
			}
			opened = append(opened, f)
			in = f
		case lexer.Great, lexer.TwoGreat:
			f, oerr := os.OpenFile(r.target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if oerr != nil {
				restore()
				return nil, nil, nil, func() {}, &shellerr.IOError{File: r.target, Err: oerr}
			}
			opened = append(opened, f)
			if dst == 2 {
				errw = f
			} else {
				out = f
			}
		case lexer.DGreat, lexer.TwoDGreat:
			f, oerr := os.OpenFile(r.target, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
			if oerr != nil {
				restore()
				return nil, nil, nil, func() {}, &shellerr.IOError{File: r.target, Err: oerr}
			}
			opened = append(opened, f)
			if dst == 2 {
				errw = f
			} else {
				out = f
			}
		case lexer.LessAnd:
			if f := dupTarget(r.target, in, out, errw); f != nil {
				in = f
			}
		case lexer.GreatAnd:
			if f := dupTarget(r.target, in, out, errw); f != nil {
				if dst == 2 {
					errw = f
				} else {
					out = f
				}
			}
		}
	}
	return in, out, errw, restore, nil
}

func dupTarget(target string, in, out, errw *os.File) *os.File {
	switch target {
	case "0":
		return in
	case "1":
		return out
	case "2":
		return errw
	}
	return nil
}
