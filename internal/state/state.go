// Package state holds the single mutable "shell" context spec.md §9 calls
// for: environment, variables, aliases, exit status, and the handle onto
// the PATH cache; the job table is not held here. Every operation takes it by exclusive
// reference; there is no global mutable state beyond errno.
package state

import (
	"os"
	"strconv"
	"strings"
	"time"

	"rush/internal/pathcache"
)

// Shell is the owning context threaded through the expander, executor,
// and line editor. Its lifetime equals the shell process.
type Shell struct {
	vars     map[string]string
	exported map[string]bool
	aliases  map[string]string

	LastStatus int
	OldPWD     string
	Pid        int
	LastBgPid  int
	started    time.Time

	ExitRequested bool
	ExitCode      int

	Path *pathcache.Cache

	// randState is the $RANDOM generator; a shell-local PRNG rather than
	// crypto/rand keeps $RANDOM cheap and reproducible across a session
	// the way bash's is.
	randState uint32

	ScriptName string
	Args       []string
}

// New builds shell state seeded from the process environment, matching the
// teacher's Executor.New, which copies os.Environ() into its own map rather
// than reading through os.Getenv on every lookup.
func New(scriptName string, args []string) *Shell {
	sh := &Shell{
		vars:       make(map[string]string),
		exported:   make(map[string]bool),
		aliases:    make(map[string]string),
		Pid:        os.Getpid(),
		started:    time.Now(),
		Path:       pathcache.New(os.Getenv("PATH")),
		randState:  uint32(os.Getpid()) ^ 0x9e3779b9,
		ScriptName: scriptName,
		Args:       args,
	}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			name, val := kv[:i], kv[i+1:]
			sh.vars[name] = val
			sh.exported[name] = true
		}
	}
	if _, ok := sh.vars["PWD"]; !ok {
		if wd, err := os.Getwd(); err == nil {
			sh.vars["PWD"] = wd
		}
	}
	sh.OldPWD = sh.vars["OLDPWD"]
	return sh
}

// Get returns a variable's value, special variables included. Unset
// variables expand to empty string per spec.md §4.3.
func (s *Shell) Get(name string) (string, bool) {
	switch name {
	case "$":
		return strconv.Itoa(s.Pid), true
	case "!":
		if s.LastBgPid == 0 {
			return "", false
		}
		return strconv.Itoa(s.LastBgPid), true
	case "?":
		return strconv.Itoa(s.LastStatus), true
	case "0":
		return s.ScriptName, true
	case "RANDOM":
		return strconv.Itoa(int(s.nextRandom())), true
	case "SECONDS":
		return strconv.Itoa(int(time.Since(s.started).Seconds())), true
	case "#":
		return strconv.Itoa(len(s.Args)), true
	case "@", "*":
		return strings.Join(s.Args, " "), true
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 {
		if n <= len(s.Args) {
			return s.Args[n-1], true
		}
		return "", false
	}
	v, ok := s.vars[name]
	return v, ok
}

// Set assigns a shell variable. Assigning PATH refreshes the PATH cache's
// signature check (spec.md §5: "validity rechecked when $PATH assignment
// occurs").
func (s *Shell) Set(name, value string) {
	s.vars[name] = value
	if s.exported[name] {
		os.Setenv(name, value)
	}
	if name == "PATH" {
		s.Path.Refresh(value)
	}
}

// Export marks name for inclusion in the environment of spawned children,
// optionally assigning it first.
func (s *Shell) Export(name string, value string, hasValue bool) {
	if hasValue {
		s.vars[name] = value
	}
	s.exported[name] = true
	if v, ok := s.vars[name]; ok {
		os.Setenv(name, v)
	}
}

// Unset removes a variable and its exported status.
func (s *Shell) Unset(name string) {
	delete(s.vars, name)
	delete(s.exported, name)
	os.Unsetenv(name)
}

// Exported reports whether name is in the exported-names set.
func (s *Shell) Exported(name string) bool { return s.exported[name] }

// Environ builds the environment array passed to spawned children: every
// exported name, in the form NAME=value.
func (s *Shell) Environ() []string {
	env := make([]string, 0, len(s.exported))
	for name := range s.exported {
		if v, ok := s.vars[name]; ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}

// Alias returns an alias's replacement text.
func (s *Shell) Alias(name string) (string, bool) {
	v, ok := s.aliases[name]
	return v, ok
}

// SetAlias defines or redefines an alias.
func (s *Shell) SetAlias(name, value string) { s.aliases[name] = value }

// UnsetAlias removes one alias; UnsetAllAliases clears the table.
func (s *Shell) UnsetAlias(name string) { delete(s.aliases, name) }
func (s *Shell) UnsetAllAliases()       { s.aliases = make(map[string]string) }

// Aliases returns the alias table for iteration (`alias` with no args).
func (s *Shell) Aliases() map[string]string { return s.aliases }

// Chdir changes the working directory and maintains PWD/OLDPWD, mirroring
// the teacher's cd builtin but folded into shell state so both the `cd`
// builtin and script-level cd share one code path.
func (s *Shell) Chdir(dir string) error {
	if err := os.Chdir(dir); err != nil {
		return err
	}
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	s.OldPWD = s.vars["PWD"]
	s.vars["OLDPWD"] = s.OldPWD
	s.vars["PWD"] = wd
	os.Setenv("OLDPWD", s.OldPWD)
	os.Setenv("PWD", wd)
	return nil
}

// nextRandom is a xorshift32 PRNG bounded to bash's $RANDOM range [0, 32767].
func (s *Shell) nextRandom() uint32 {
	x := s.randState
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	s.randState = x
	return x % 32768
}
