package kernel

import (
	"github.com/docweirdo/rost-kernel-sim/internal/kernelpanic"
)

// SendDBGU implements §4.7 service 10: busy-write one byte to the DBGU
// transmit holding register.
func SendDBGU(b byte) {
	checkpoint()
	dbguDevice.WriteTHR(b)
}

// Allocate implements §4.7 service 20, delegating to the process-wide heap
// shared with thread-stack allocation (§6). Returns ok=false on exhaustion,
// the §7 class 3 benign "null" signal — never a kernel panic.
func Allocate(size, alignTo uint32) (ptr uintptr, ok bool) {
	checkpoint()
	withKernelLock(func() {
		if inInterrupt {
			kernelpanic.Panic("Allocate: called from interrupt context")
		}
		ptr, ok = stackHeap.Allocate(size, alignTo)
	})
	return ptr, ok
}

// Deallocate implements §4.7 service 21.
func Deallocate(ptr uintptr, size, alignTo uint32) {
	checkpoint()
	withKernelLock(func() {
		if inInterrupt {
			kernelpanic.Panic("Deallocate: called from interrupt context")
		}
		stackHeap.Deallocate(ptr, size, alignTo)
	})
}

// ExitThread implements §4.7 service 31: mark the calling thread Stopped,
// notify its parent if the parent is joined on it, and reschedule. Invoked
// both directly by the syscall layer and by threadTrampoline when a
// thread's entry closure simply returns (§4.4 step (d)).
func ExitThread() {
	withKernelLock(func() {
		t := current()
		t.State = Stopped
		t.Reason = WaitNone
		notifyParentOfExit(t)
		schedule(nil)
	})
}

// notifyParentOfExit implements §4.7's "ExitThread parent notification":
// if the parent is Waiting(Join) on this thread's id, remove it from the
// join set and, if the set is now empty, make the parent Ready. Caller
// must hold the kernel lock.
func notifyParentOfExit(t *Thread) {
	parent, ok := byID(t.ParentID)
	if !ok || parent.State != Waiting || parent.Reason != WaitJoin {
		return
	}
	if _, waiting := parent.joinSet[t.ID]; !waiting {
		return
	}
	delete(parent.joinSet, t.ID)
	parent.joinCompleted = true
	if len(parent.joinSet) == 0 {
		parent.State = Ready
		parent.Reason = WaitNone
	}
}

// YieldThread implements §4.7 service 32: an unconditional cooperative
// reschedule.
func YieldThread() {
	checkpoint()
	withKernelLock(func() {
		schedule(nil)
	})
}

// JoinThread implements §4.7 service 33. Returns true if target reached
// Stopped (immediately, if it already had), false if timeoutMS elapsed
// first. A timeoutMS of 0 means unbounded per §5's "Cancellation &
// timeouts". Joining a thread that is not the caller's child is a §3
// invariant violation ("only the parent thread may Join on a child"),
// fatal per §7 class 1.
func JoinThread(target ThreadID, timeoutMS uint32) (completed bool) {
	checkpoint()
	withKernelLock(func() {
		t := current()

		targetThread, ok := byID(target)
		if !ok || targetThread.State == Stopped {
			completed = true
			return
		}
		if targetThread.ParentID != t.ID {
			kernelpanic.Panic("JoinThread: thread %d is not the parent of thread %d", t.ID, target)
		}

		if t.joinSet == nil {
			t.joinSet = map[ThreadID]struct{}{}
		}
		t.joinSet[target] = struct{}{}
		t.joinCompleted = false

		t.State = Waiting
		t.Reason = WaitJoin
		t.HasDeadline = timeoutMS > 0
		if t.HasDeadline {
			t.WakeupTick = stDevice.Now() + msToTicks(timeoutMS)
		}

		schedule(nil)
		completed = t.joinCompleted
	})
	return completed
}

// GetCurrentRealTime implements §4.7 service 40: read the ST real-time
// tick counter.
func GetCurrentRealTime() uint64 {
	checkpoint()
	return stDevice.Now()
}

// Sleep implements §4.7 service 41: convert ms to ticks, park the calling
// thread in Waiting(Sleep) until that deadline, and return the actually
// elapsed milliseconds (§7 class 3 — never the requested value verbatim,
// since scheduling jitter can overshoot it). Sleeping for 0ms returns 0
// without blocking (§8's boundary case).
func Sleep(ms uint32) (elapsedMS uint32) {
	checkpoint()
	if ms == 0 {
		return 0
	}

	withKernelLock(func() {
		t := current()
		start := stDevice.Now()
		t.State = Waiting
		t.Reason = WaitSleep
		t.HasDeadline = true
		t.WakeupTick = start + msToTicks(ms)

		schedule(nil)

		elapsedMS = ticksToMS(stDevice.Now() - start)
	})
	return elapsedMS
}

// msToTicks/ticksToMS convert between milliseconds and ST ticks using
// cfg.TimerHz, the periodic clock base §6 fixes at 32768 Hz.
func msToTicks(ms uint32) uint64 {
	return uint64(ms) * uint64(cfg.TimerHz) / 1000
}

func ticksToMS(ticks uint64) uint32 {
	return uint32(ticks * 1000 / uint64(cfg.TimerHz))
}
