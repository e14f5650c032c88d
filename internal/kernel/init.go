package kernel

import "github.com/docweirdo/rost-kernel-sim/internal/kconfig"

// idleThread is the well-known id-0 thread, §3's reserved idle thread: its
// state is always Running or Ready, never Waiting or Stopped. Once stop is
// closed (RequestShutdown) it halts and stops scheduling.
func idleThread(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			select {} // halt
		default:
		}
		checkpoint() // WFI-equivalent: give a newly-Ready thread its turn
	}
}

// InitRuntime implements §4.4's init_runtime: builds the idle thread (id 0)
// and the first real thread (id 1), marks the first thread Running, and
// hands it its first turn. Every thread, including this first one, is
// driven by its own goroutine spawned uniformly inside newThread — there is
// no special-cased "boot goroutine becomes thread 1" path, which keeps
// exactly one code path for "a thread's first scheduling" (resumeAndLock)
// regardless of which thread it is.
//
// Unlike the bare-metal original this does return: there is no host OS to
// "never return" to, and cmd/ksim needs InitRuntime to come back once the
// shell thread calls RequestShutdown — the host-process equivalent of a
// bare-metal `halt: b halt`, which has no process to return control to.
func InitRuntime(config kconfig.Config, first func()) {
	cfg = config
	stackHeap = newStackHeap(cfg.HeapSize)

	var firstThread *Thread
	withKernelLock(func() {
		stop := done
		newThread(0, 0, func() { idleThread(stop) }) // id 0 is hard-reserved for idle, not drawn from tbl.nextID

		firstID := tbl.nextID
		tbl.nextID++
		newThread(firstID, 0, first)
		firstThread, _ = byID(firstID)
		tbl.currentID = firstID
		firstThread.State = Running
		tbl.preemptCounter = cfg.SchedulerInterval
	})

	firstThread.resume <- struct{}{}

	<-done
}

// done is closed by RequestShutdown to let InitRuntime's caller (cmd/ksim)
// return cleanly once the shell thread's `quit` command runs.
var done = make(chan struct{})

// RequestShutdown unblocks InitRuntime. Safe to call more than once.
func RequestShutdown() {
	select {
	case <-done:
	default:
		close(done)
	}
}
