// Package job implements the job controller of spec.md §4.6: job table,
// state transitions (Running/Stopped/Done), terminal foreground handoff,
// and reaping. Grounded directly in original_source's job.rs, translated
// from its Job/JobTable/wait_for_fg shape into Go with golang.org/x/sys/unix
// standing in for the raw waitpid/tcsetpgrp calls the Rust used libc for.
package job

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/sys/unix"
)

// Status is a job's coarse run state.
type Status int

const (
	Running Status = iota
	Stopped
	Done
)

func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	default:
		return "Done"
	}
}

// Process is one member of a job's process group.
type Process struct {
	Pid       int
	Completed bool
	Stopped   bool
	ExitCode  int
}

// Job is one pipeline placed in the background, or retained after a
// foreground pipeline stopped (spec.md §3).
type Job struct {
	ID        int
	Pgid      int
	Command   string
	Processes []*Process
	Notified  bool
}

// Status derives the job's coarse state from its processes: Stopped if any
// process is stopped, Done (with the rightmost process's exit code) once
// every process has completed, Running otherwise.
func (j *Job) Status() (Status, int) {
	allDone := true
	anyStopped := false
	code := 0
	for _, p := range j.Processes {
		if p.Stopped {
			anyStopped = true
		}
		if !p.Completed {
			allDone = false
		} else {
			code = p.ExitCode
		}
	}
	if anyStopped {
		return Stopped, 0
	}
	if allDone {
		return Done, code
	}
	return Running, 0
}

// Table is the shell's job table, indexed by a small reused job id the way
// original_source's JobTable.insert hands out the smallest unused integer.
type Table struct {
	mu   sync.Mutex
	jobs []*Job
}

// NewTable creates an empty job table.
func NewTable() *Table { return &Table{} }

// Insert adds a new job, assigning it the smallest unused id.
func (t *Table) Insert(pgid int, command string, pids []int) *Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	used := make(map[int]bool)
	for _, j := range t.jobs {
		used[j.ID] = true
	}
	id := 1
	for used[id] {
		id++
	}
	procs := make([]*Process, len(pids))
	for i, pid := range pids {
		procs[i] = &Process{Pid: pid}
	}
	j := &Job{ID: id, Pgid: pgid, Command: command, Processes: procs}
	t.jobs = append(t.jobs, j)
	return j
}

// Get returns the job with the given id.
func (t *Table) Get(id int) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, j := range t.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return nil, false
}

// Current returns the job most recently inserted that is not yet Done, the
// target of a bare `fg`/`bg` with no %N argument.
func (t *Table) Current() (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.jobs) - 1; i >= 0; i-- {
		if st, _ := t.jobs[i].Status(); st != Done {
			return t.jobs[i], true
		}
	}
	return nil, false
}

// All returns every job, sorted by id, for the `jobs` builtin.
func (t *Table) All() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := append([]*Job(nil), t.jobs...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MarkPID updates the process-table entry for pid given a wait status,
// mirroring original_source's mark_pid.
func (t *Table) MarkPID(pid int, ws unix.WaitStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, j := range t.jobs {
		for _, p := range j.Processes {
			if p.Pid != pid {
				continue
			}
			switch {
			case ws.Stopped():
				p.Stopped = true
			case ws.Exited():
				p.Completed = true
				p.Stopped = false
				p.ExitCode = ws.ExitStatus()
			case ws.Signaled():
				p.Completed = true
				p.Stopped = false
				p.ExitCode = 128 + int(ws.Signal())
			case ws.Continued():
				p.Stopped = false
			}
			return
		}
	}
}

// RemoveDone drops every job that is Done and has already been notified,
// mirroring original_source's remove_done.
func (t *Table) RemoveDone() {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.jobs[:0]
	for _, j := range t.jobs {
		st, _ := j.Status()
		if st == Done && j.Notified {
			continue
		}
		kept = append(kept, j)
	}
	t.jobs = kept
}

// WaitForeground blocks on waitpid(-pgid, WUNTRACED), updating process state
// as events arrive, until every process in the group has completed or until
// the first stop event arrives; after a stop, members that have not stopped
// yet are not waited for. It returns the status to assign `$?` and whether
// it returned on a stop rather than on completion (spec.md §4.6).
func WaitForeground(t *Table, pgid int) (status int, stopped bool) {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-pgid, &ws, unix.WUNTRACED, nil)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return status, stopped
		}
		if pid <= 0 {
			return status, stopped
		}
		t.MarkPID(pid, ws)
		if ws.Stopped() {
			status = 128 + int(unix.SIGTSTP)
			stopped = true
		} else if ws.Exited() {
			status = ws.ExitStatus()
		} else if ws.Signaled() {
			status = 128 + int(ws.Signal())
		}
		if allDone(t, pgid) {
			return status, false
		}
		if stopped {
			return status, true
		}
	}
}

func allDone(t *Table, pgid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, j := range t.jobs {
		if j.Pgid != pgid {
			continue
		}
		st, _ := j.Status()
		return st == Done
	}
	return true
}

// Reap performs a non-blocking waitpid(-1, WNOHANG|WUNTRACED|WCONTINUED),
// called at every prompt per spec.md §4.6, to pick up background state
// changes without the shell ever blocking in its own loop.
func Reap(t *Table) {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if err != nil || pid <= 0 {
			return
		}
		t.MarkPID(pid, ws)
	}
}

// NotifyAndClean prints a status line for every job whose state changed
// since the last prompt and removes finished, already-notified jobs.
func NotifyAndClean(t *Table, w *os.File) {
	for _, j := range t.All() {
		st, _ := j.Status()
		if st == Done && !j.Notified {
			fmt.Fprintf(w, "[%d]   Done                    %s\n", j.ID, j.Command)
			j.Notified = true
		} else if st == Stopped && !j.Notified {
			fmt.Fprintf(w, "[%d]   Stopped                 %s\n", j.ID, j.Command)
			j.Notified = true
		}
	}
	t.RemoveDone()
}

// GiveTerminalTo makes pgid the terminal's foreground process group.
func GiveTerminalTo(pgid int) error {
	return unix.IoctlSetPointerInt(0, unix.TIOCSPGRP, pgid)
}

// TakeTerminalBack restores the shell's own process group as foreground.
func TakeTerminalBack(shellPgid int) error {
	return unix.IoctlSetPointerInt(0, unix.TIOCSPGRP, shellPgid)
}
