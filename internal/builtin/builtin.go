// Package builtin implements the in-process command catalogue of spec.md
// §4.4: exit, cd, pwd, echo, export, unset, source, alias/unalias, history,
// read, exec, wait, type, command, builtin, jobs, bg, fg, true, false, :,
// return, test/[, printf. Each runs with the caller's stdio unless the
// executor has duplicated descriptors around the call for a redirection.
package builtin

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pborman/getopt/v2"
	"golang.org/x/sys/unix"

	"rush/internal/job"
	"rush/internal/shellerr"
	"rush/internal/spawn"
	"rush/internal/state"

	"rush/pkg/platform"
)

const sigCONT = unix.SIGCONT

func unixKillGroup(pgid int, sig unix.Signal) {
	unix.Kill(-pgid, sig)
}

// History is the subset of the line editor's history rush's builtins need;
// kept as a small interface so this package never imports internal/editor.
type History interface {
	Entries() []string
	Clear()
}

// Context is the shared handle every builtin function receives: shell
// state, job table, stdio (already redirected by the executor if needed),
// and a handful of callbacks into the executor for the builtins (`source`,
// `exec`, `command`, `builtin`) that need to re-enter command dispatch.
type Context struct {
	Sh       *state.Shell
	Jobs     *job.Table
	Stdin    io.Reader
	Stdout   io.Writer
	Stderr   io.Writer
	History  History
	ShellPgid int

	// RunLine parses and executes one line of shell source, used by `source`.
	RunLine func(line string) (status int, err error)
	// Dispatch runs name with args through the executor's normal command
	// resolution, used by `command` (forcePath=true skips aliases/builtins)
	// and `builtin` (forceBuiltin=true rejects externals).
	Dispatch func(name string, args []string, forcePath, forceBuiltin bool) (status int, err error)
	// ReplaceProcess execs name in place of the shell process, used by `exec`.
	ReplaceProcess func(name string, args []string) error
	// SetDebug toggles `-x` trace-mode printing of each command before it
	// runs, used by `set -x`/`set +x`.
	SetDebug func(on bool)

	// InSource is true while executing a `source`d file, the only context
	// `return` is valid in.
	InSource bool
}

// ReturnSignal unwinds a `source` call when `return [N]` runs inside it.
type ReturnSignal struct{ Code int }

func (r *ReturnSignal) Error() string  { return "return outside source" }
func (r *ReturnSignal) ExitStatus() int { return r.Code }

// Func is one builtin's implementation.
type Func func(c *Context, args []string) error

// Table maps builtin names to their implementations. Names match spec.md
// §4.4's catalogue exactly.
var Table map[string]Func

func init() {
	Table = map[string]Func{
		"exit":    biExit,
		"cd":      biCd,
		"pwd":     biPwd,
		"echo":    biEcho,
		"export":  biExport,
		"unset":   biUnset,
		"source":  biSource,
		".":       biSource,
		"alias":   biAlias,
		"unalias": biUnalias,
		"history": biHistory,
		"read":    biRead,
		"exec":    biExec,
		"wait":    biWait,
		"type":    biType,
		"command": biCommand,
		"builtin": biBuiltin,
		"jobs":    biJobs,
		"bg":      biBg,
		"fg":      biFg,
		"true":    biTrue,
		"false":   biFalse,
		":":       biTrue,
		"return":  biReturn,
		"test":    biTest,
		"[":       biTestBracket,
		"printf":  biPrintf,
		"set":     biSet,
	}
}

// Is reports whether name is a builtin.
func Is(name string) bool {
	_, ok := Table[name]
	return ok
}

func biExit(c *Context, args []string) error {
	code := c.Sh.LastStatus
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return &shellerr.BuiltinUsageError{Name: "exit", Usage: "[N]"}
		}
		code = n & 0xff
	}
	c.Sh.ExitRequested = true
	c.Sh.ExitCode = code
	return nil
}

func biCd(c *Context, args []string) error {
	opts := getopt.New()
	if err := opts.Getopt(append([]string{"cd"}, args...), nil); err != nil {
		return &shellerr.BuiltinUsageError{Name: "cd", Usage: "[-|dir]"}
	}
	args = opts.Args()

	dir, _ := c.Sh.Get("HOME")
	if len(args) > 0 {
		if args[0] == "-" {
			dir = c.Sh.OldPWD
			fmt.Fprintln(c.Stdout, dir)
		} else {
			dir = args[0]
		}
	}
	if dir == "" {
		return &shellerr.BuiltinUsageError{Name: "cd", Usage: "[-|dir]"}
	}
	dir = platform.NormalizePath(dir)
	if err := c.Sh.Chdir(dir); err != nil {
		return &shellerr.IOError{File: dir, Err: err}
	}
	return nil
}

func biPwd(c *Context, _ []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return &shellerr.IOError{File: ".", Err: err}
	}
	fmt.Fprintln(c.Stdout, wd)
	return nil
}

func biEcho(c *Context, args []string) error {
	opts := getopt.New()
	noNewline := opts.Bool('n', "do not print the trailing newline")
	if err := opts.Getopt(append([]string{"echo"}, args...), nil); err == nil {
		args = opts.Args()
	}
	fmt.Fprint(c.Stdout, strings.Join(args, " "))
	if !*noNewline {
		fmt.Fprint(c.Stdout, "\n")
	}
	return nil
}

func biExport(c *Context, args []string) error {
	if len(args) == 0 {
		for _, kv := range c.Sh.Environ() {
			fmt.Fprintf(c.Stdout, "export %s\n", kv)
		}
		return nil
	}
	for _, a := range args {
		if i := strings.IndexByte(a, '='); i >= 0 {
			c.Sh.Export(a[:i], a[i+1:], true)
		} else {
			c.Sh.Export(a, "", false)
		}
	}
	return nil
}

func biUnset(c *Context, args []string) error {
	for _, a := range args {
		c.Sh.Unset(a)
	}
	return nil
}

// biSet implements the subset of `set` rush cares about: `-x`/`+x` toggles
// the `+ <command>` trace mode (bash's `set -x`), and `-o xtrace`/`+o xtrace`
// spell the same thing out long-form. getopt's short-option parser has no
// notion of `+flag` meaning "turn off" (that's a shell-specific convention,
// not POSIX getopt syntax), so this one is hand-rolled rather than routed
// through github.com/pborman/getopt/v2 like cd/echo/read/command are.
func biSet(c *Context, args []string) error {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-x":
			c.SetDebug(true)
		case "+x":
			c.SetDebug(false)
		case "-o":
			if i+1 < len(args) && args[i+1] == "xtrace" {
				c.SetDebug(true)
				i++
			}
		case "+o":
			if i+1 < len(args) && args[i+1] == "xtrace" {
				c.SetDebug(false)
				i++
			}
		}
	}
	return nil
}

func biSource(c *Context, args []string) error {
	if len(args) == 0 {
		return &shellerr.BuiltinUsageError{Name: "source", Usage: "FILE"}
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return &shellerr.IOError{File: args[0], Err: err}
	}
	c.InSource = true
	defer func() { c.InSource = false }()
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		_, err := c.RunLine(line)
		if r, ok := err.(*ReturnSignal); ok {
			c.Sh.LastStatus = r.Code
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func biAlias(c *Context, args []string) error {
	if len(args) == 0 {
		for name, val := range c.Sh.Aliases() {
			fmt.Fprintf(c.Stdout, "alias %s='%s'\n", name, val)
		}
		return nil
	}
	for _, a := range args {
		if i := strings.IndexByte(a, '='); i >= 0 {
			c.Sh.SetAlias(a[:i], a[i+1:])
		} else if v, ok := c.Sh.Alias(a); ok {
			fmt.Fprintf(c.Stdout, "alias %s='%s'\n", a, v)
		}
	}
	return nil
}

func biUnalias(c *Context, args []string) error {
	if len(args) == 1 && args[0] == "-a" {
		c.Sh.UnsetAllAliases()
		return nil
	}
	for _, a := range args {
		c.Sh.UnsetAlias(a)
	}
	return nil
}

func biHistory(c *Context, args []string) error {
	if c.History == nil {
		return nil
	}
	if len(args) == 1 && args[0] == "-c" {
		c.History.Clear()
		return nil
	}
	entries := c.History.Entries()
	n := len(entries)
	if len(args) == 1 {
		if v, err := strconv.Atoi(args[0]); err == nil && v < n {
			n = v
		}
	}
	for i, e := range entries[len(entries)-n:] {
		fmt.Fprintf(c.Stdout, "%5d  %s\n", len(entries)-n+i+1, e)
	}
	return nil
}

func biRead(c *Context, args []string) error {
	opts := getopt.New()
	prompt := opts.StringLong("prompt", 'p', "", "display PROMPT before reading, on stderr")
	if err := opts.Getopt(append([]string{"read"}, args...), nil); err != nil {
		return &shellerr.BuiltinUsageError{Name: "read", Usage: "[-p PROMPT] [NAME...]"}
	}
	args = opts.Args()
	if *prompt != "" {
		fmt.Fprint(c.Stderr, *prompt)
	}
	reader := bufio.NewReader(c.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return &statusError{1} // EOF: read returns non-zero status
	}
	line = strings.TrimSuffix(line, "\n")
	if len(args) == 0 {
		c.Sh.Set("REPLY", line)
		return nil
	}
	fields := strings.Fields(line)
	for i, name := range args {
		switch {
		case i == len(args)-1 && len(fields) > i:
			c.Sh.Set(name, strings.Join(fields[i:], " "))
		case i < len(fields):
			c.Sh.Set(name, fields[i])
		default:
			c.Sh.Set(name, "")
		}
	}
	return nil
}

func biExec(c *Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	return c.ReplaceProcess(args[0], args[1:])
}

func biWait(c *Context, args []string) error {
	if len(args) == 0 {
		for _, j := range c.Jobs.All() {
			job.WaitForeground(c.Jobs, j.Pgid)
		}
		return nil
	}
	for _, a := range args {
		id, err := parseJobRef(a)
		if err != nil {
			return err
		}
		j, ok := c.Jobs.Get(id)
		if !ok {
			return &shellerr.JobControlError{Msg: fmt.Sprintf("%s: no such job", a)}
		}
		job.WaitForeground(c.Jobs, j.Pgid)
	}
	return nil
}

func biType(c *Context, args []string) error {
	for _, name := range args {
		switch {
		case Is(name):
			fmt.Fprintf(c.Stdout, "%s is a shell builtin\n", name)
		default:
			if v, ok := c.Sh.Alias(name); ok {
				fmt.Fprintf(c.Stdout, "%s is aliased to `%s'\n", name, v)
				continue
			}
			if path, err := spawn.LookPath(name, c.Sh.Path); err == nil {
				fmt.Fprintf(c.Stdout, "%s is %s\n", name, path)
				continue
			}
			fmt.Fprintf(c.Stderr, "rush: type: %s: not found\n", name)
		}
	}
	return nil
}

func biCommand(c *Context, args []string) error {
	opts := getopt.New()
	verbose := opts.Bool('v', "print a description of NAME rather than running it")
	if err := opts.Getopt(append([]string{"command"}, args...), nil); err != nil {
		return &shellerr.BuiltinUsageError{Name: "command", Usage: "[-v] NAME [ARG...]"}
	}
	args = opts.Args()
	if len(args) == 0 {
		return nil
	}
	if *verbose {
		fmt.Fprintln(c.Stdout, args[0])
		return nil
	}
	_, err := c.Dispatch(args[0], args[1:], true, false)
	return err
}

func biBuiltin(c *Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	_, err := c.Dispatch(args[0], args[1:], false, true)
	return err
}

func biJobs(c *Context, _ []string) error {
	for _, j := range c.Jobs.All() {
		st, _ := j.Status()
		fmt.Fprintf(c.Stdout, "[%d]  %-8s %s\n", j.ID, st, j.Command)
	}
	return nil
}

func biBg(c *Context, args []string) error {
	j, err := resolveJob(c, args)
	if err != nil {
		return err
	}
	unixKillGroup(j.Pgid, sigCONT)
	for _, p := range j.Processes {
		p.Stopped = false
	}
	return nil
}

func biFg(c *Context, args []string) error {
	j, err := resolveJob(c, args)
	if err != nil {
		return err
	}
	job.GiveTerminalTo(j.Pgid)
	unixKillGroup(j.Pgid, sigCONT)
	for _, p := range j.Processes {
		p.Stopped = false
	}
	status, stopped := job.WaitForeground(c.Jobs, j.Pgid)
	job.TakeTerminalBack(c.ShellPgid)
	c.Sh.LastStatus = status
	if !stopped {
		c.Jobs.RemoveDone()
	}
	return nil
}

func resolveJob(c *Context, args []string) (*job.Job, error) {
	if len(args) == 0 {
		j, ok := c.Jobs.Current()
		if !ok {
			return nil, &shellerr.JobControlError{Msg: "no current job"}
		}
		return j, nil
	}
	id, err := parseJobRef(args[0])
	if err != nil {
		return nil, err
	}
	j, ok := c.Jobs.Get(id)
	if !ok {
		return nil, &shellerr.JobControlError{Msg: fmt.Sprintf("%s: no such job", args[0])}
	}
	return j, nil
}

func parseJobRef(s string) (int, error) {
	s = strings.TrimPrefix(s, "%")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &shellerr.JobControlError{Msg: fmt.Sprintf("%s: bad job reference", s)}
	}
	return n, nil
}

func biTrue(_ *Context, _ []string) error  { return nil }
func biFalse(_ *Context, _ []string) error { return &statusError{1} }

type statusError struct{ code int }

func (e *statusError) Error() string   { return "" }
func (e *statusError) ExitStatus() int { return e.code }

func biReturn(c *Context, args []string) error {
	code := c.Sh.LastStatus
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			code = n
		}
	}
	return &ReturnSignal{Code: code}
}
