package kernel

import "github.com/docweirdo/rost-kernel-sim/internal/kconfig"

// cfg holds the tunables InitRuntime is given; schedule() reads
// cfg.SchedulerInterval at step 6. Defaults match kconfig.Default until
// InitRuntime rebinds it.
var cfg = kconfig.Default()

// schedule implements §4.5 steps 1-6. Caller must already hold the kernel
// lock (it is always invoked from inside withKernelLock). nextID, when
// non-nil, is the explicit override of step 2; nil lets the round-robin
// scan of step 3 decide. Every current caller passes nil.
func schedule(nextID *ThreadID) {
	reap()

	out := current()

	var in *Thread
	if nextID != nil {
		if t, ok := byID(*nextID); ok && t.State == Ready {
			in = t
		}
	}
	if in == nil {
		in = scanReady(out)
	}
	if in == nil {
		if out.State == Running {
			return // nobody else is Ready; keep running out (step 3 first branch)
		}
		in = tbl.byID[0] // idle fallback (step 3 second branch)
	}

	outWasRunning := out.State == Running
	in.State = Running
	if outWasRunning && in.ID != out.ID {
		out.State = Ready
	}
	tbl.currentID = in.ID

	if in.ID != out.ID {
		switchTo(out, in)
	}

	tbl.preemptCounter = cfg.SchedulerInterval
	tbl.preemptDue = false
}

// scanReady implements §4.5 step 3's cyclic scan starting from the
// position after the current thread, in table (creation) order, wrapping
// around. Returns nil if no other thread is Ready.
func scanReady(out *Thread) *Thread {
	n := len(tbl.threads)
	if n == 0 {
		return nil
	}
	startPos := -1
	for i, t := range tbl.threads {
		if t.ID == out.ID {
			startPos = i
			break
		}
	}
	if startPos == -1 {
		startPos = 0
	}
	for i := 1; i <= n; i++ {
		t := tbl.threads[(startPos+i)%n]
		if t.State == Ready {
			return t
		}
	}
	return nil
}

// reap implements §4.5 step 1: remove every Stopped TCB except the one
// matching the current-thread id, releasing its stack. The currently
// running thread's own Stopped TCB survives until the *next* scheduler
// pass where it is no longer current, matching §3's lifecycle note
// ("reaped lazily ... but the currently-running Stopped TCB survives until
// its context is no longer needed").
func reap() {
	cur := tbl.currentID
	var keep []*Thread
	for _, t := range tbl.threads {
		if t.State == Stopped && t.ID != cur {
			freeStack(t)
			delete(tbl.byID, t.ID)
			continue
		}
		keep = append(keep, t)
	}
	tbl.threads = keep
}
