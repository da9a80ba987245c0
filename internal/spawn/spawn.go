// Package spawn wraps the OS's direct-spawn primitive (spec.md §4.5): Go
// has no posix_spawn binding, so syscall.ForkExec — the stdlib's own
// fork+exec-in-child primitive, driven by the same file-actions-then-exec
// shape posix_spawn uses internally — stands in for it. No example in the
// corpus offers a posix_spawn wrapper, so this is the one package in rush
// built directly on the standard library rather than a third-party dep.
package spawn

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"rush/internal/pathcache"
	"rush/internal/shellerr"
)

// FileAction is one dup2/close/open step applied in the child between fork
// and exec, mirroring original_source's FileActions builder (spec.md §4.5).
type FileAction struct {
	// Dup2 duplicates SrcFD onto DstFD. Open (if Path != "") opens Path with
	// Flags/Perm and dups the result onto DstFD instead.
	DstFD int
	SrcFD int
	Path  string
	Flags int
	Perm  uint32
	Close bool // if true, DstFD is closed rather than dup'd or opened
}

// Attr configures process-group membership and signal disposition for a
// spawned child, mirroring original_source's SpawnAttr (spec.md §4.5).
type Attr struct {
	// Pgid is the target process group. 0 means "use the child's own pid as
	// pgid" (the first process of a new job); a nonzero value joins an
	// existing group (later pipeline stages).
	Pgid int
	// Foreground requests the new group be given the controlling terminal.
	Foreground bool
}

// Spawn starts name with args and env, applying actions in order in the
// child before exec. It returns the child's pid immediately; the caller is
// responsible for waiting on it via the job controller. cache, if non-nil, is
// consulted as a hint for where to find name on $PATH (spec.md §4.5); a miss
// or a stale hit always falls back to a real search.
func Spawn(name string, args []string, env []string, stdin, stdout, stderr *os.File, actions []FileAction, attr Attr, cache *pathcache.Cache) (int, error) {
	path, lookErr := resolve(name, cache)
	if lookErr != nil {
		return 0, lookErr
	}

	sys := &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    attr.Pgid,
	}

	// Build the child's fd table explicitly: ForkExec's Files slice becomes
	// fds 0,1,2 (and any extra) in the child, taking the place of a
	// dup2-based file-actions list since ForkExec has no action hook of its
	// own. stdin/stdout/stderr seed the base table; actions then layer
	// per-stage redirections and pipe wiring on top, in source order.
	files := []uintptr{stdin.Fd(), stdout.Fd(), stderr.Fd()}
	for _, a := range actions {
		if a.Path != "" {
			f, err := os.OpenFile(a.Path, a.Flags, os.FileMode(a.Perm))
			if err != nil {
				return 0, &shellerr.IOError{File: a.Path, Err: err}
			}
			defer f.Close()
			files = setFD(files, a.DstFD, f.Fd())
		} else if a.Close {
			files = setFD(files, a.DstFD, invalidFD)
		} else {
			// SrcFD names the child's descriptor as earlier actions left it,
			// so `> out 2>&1` sends fd 2 to out, as dup2 in the child would.
			src := uintptr(a.SrcFD)
			if a.SrcFD < len(files) {
				src = files[a.SrcFD]
			}
			files = setFD(files, a.DstFD, src)
		}
	}

	pid, err := syscall.ForkExec(path, append([]string{name}, args...), &syscall.ProcAttr{
		Env:   env,
		Files: files,
		Sys:   sys,
	})
	if err != nil {
		return 0, classify(name, err)
	}
	if attr.Foreground {
		pgid := attr.Pgid
		if pgid == 0 {
			pgid = pid
		}
		unix.IoctlSetPointerInt(0, unix.TIOCSPGRP, pgid)
	}
	return pid, nil
}

func setFD(files []uintptr, dst int, fd uintptr) []uintptr {
	for len(files) <= dst {
		files = append(files, invalidFD)
	}
	files[dst] = fd
	return files
}

// invalidFD pads unused slots in the child's fd table; ForkExec closes the
// child's descriptor at any slot holding this sentinel.
const invalidFD = ^uintptr(0)

// LookPath resolves name to an executable path the same way Spawn does,
// exported for the `type` and `exec` builtins. cache may be nil, in which
// case resolution falls straight to the full PATH walk.
func LookPath(name string, cache *pathcache.Cache) (string, error) { return resolve(name, cache) }

// resolve looks up name on PATH (or uses it directly if it contains a `/`),
// classifying the failure per spec.md §4.5. cache is consulted first as a
// hint: a hit lets resolve stat just the one directory it names instead of
// walking all of $PATH; a miss or a stale hit (cache says yes but the file is
// gone, or says nothing but the file exists elsewhere on PATH) always falls
// through to the real, authoritative walk below.
func resolve(name string, cache *pathcache.Cache) (string, error) {
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			if st, err := os.Stat(name); err == nil && !st.IsDir() {
				return name, nil
			}
			return "", &shellerr.SpawnError{Kind: shellerr.NotFound, Name: name}
		}
	}
	if cache != nil {
		if dir, ok := cache.Dir(name); ok {
			candidate := dir + "/" + name
			if st, err := os.Stat(candidate); err == nil && !st.IsDir() && st.Mode()&0o111 != 0 {
				return candidate, nil
			}
		}
	}
	path := os.Getenv("PATH")
	for _, dir := range splitPath(path) {
		if dir == "" {
			dir = "."
		}
		candidate := dir + "/" + name
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			if st.Mode()&0o111 != 0 {
				return candidate, nil
			}
			return "", &shellerr.SpawnError{Kind: shellerr.Permission, Name: name}
		}
	}
	return "", &shellerr.SpawnError{Kind: shellerr.NotFound, Name: name}
}

func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == ':' {
			out = append(out, path[start:i])
			start = i + 1
		}
	}
	return out
}

func classify(name string, err error) error {
	switch err {
	case syscall.ENOENT:
		return &shellerr.SpawnError{Kind: shellerr.NotFound, Name: name, Err: err}
	case syscall.EACCES:
		return &shellerr.SpawnError{Kind: shellerr.Permission, Name: name, Err: err}
	default:
		return &shellerr.SpawnError{Kind: shellerr.Other, Name: name, Err: err}
	}
}
