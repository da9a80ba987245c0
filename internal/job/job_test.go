package job

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestInsertAssignsSmallestUnusedID(t *testing.T) {
	tbl := NewTable()
	j1 := tbl.Insert(100, "sleep 10", []int{100})
	j2 := tbl.Insert(101, "sleep 20", []int{101})
	if j1.ID != 1 || j2.ID != 2 {
		t.Fatalf("got ids %d, %d, want 1, 2", j1.ID, j2.ID)
	}

	tbl.MarkPID(100, exitedStatus(0))
	tbl.RemoveDone()
	// j1 never notified, so RemoveDone (which requires Notified) keeps it.
	if _, ok := tbl.Get(1); !ok {
		t.Fatal("job 1 should still be present until notified")
	}

	j1.Notified = true
	tbl.RemoveDone()
	if _, ok := tbl.Get(1); ok {
		t.Fatal("job 1 should be removed once Done and Notified")
	}

	j3 := tbl.Insert(102, "sleep 30", []int{102})
	if j3.ID != 1 {
		t.Errorf("got id %d, want reused id 1", j3.ID)
	}
}

func TestJobStatusTransitions(t *testing.T) {
	j := &Job{Processes: []*Process{{Pid: 1}, {Pid: 2}}}

	if st, _ := j.Status(); st != Running {
		t.Fatalf("initial status = %v, want Running", st)
	}

	j.Processes[0].Stopped = true
	if st, _ := j.Status(); st != Stopped {
		t.Fatalf("status = %v, want Stopped", st)
	}

	j.Processes[0].Stopped = false
	j.Processes[0].Completed = true
	j.Processes[0].ExitCode = 0
	j.Processes[1].Completed = true
	j.Processes[1].ExitCode = 7
	st, code := j.Status()
	if st != Done || code != 7 {
		t.Fatalf("status = %v, code = %d, want Done, 7", st, code)
	}
}

func TestCurrentSkipsDoneJobs(t *testing.T) {
	tbl := NewTable()
	done := tbl.Insert(1, "echo a", []int{1})
	done.Processes[0].Completed = true

	running := tbl.Insert(2, "sleep 5", []int{2})

	cur, ok := tbl.Current()
	if !ok || cur.ID != running.ID {
		t.Fatalf("Current() = %+v, ok=%v, want job %d", cur, ok, running.ID)
	}
}

func TestAllSortedByID(t *testing.T) {
	tbl := NewTable()
	tbl.Insert(1, "a", []int{1})
	tbl.Insert(2, "b", []int{2})
	tbl.Insert(3, "c", []int{3})

	all := tbl.All()
	for i := 1; i < len(all); i++ {
		if all[i-1].ID > all[i].ID {
			t.Fatalf("All() not sorted: %+v", all)
		}
	}
}

// exitedStatus builds a unix.WaitStatus as if the process exited with code,
// matching the bit layout unix.WaitStatus.Exited()/ExitStatus() expect.
func exitedStatus(code int) unix.WaitStatus {
	return unix.WaitStatus(code << 8)
}
