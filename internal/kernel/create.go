package kernel

import (
	"github.com/docweirdo/rost-kernel-sim/internal/heap"
	"github.com/docweirdo/rost-kernel-sim/internal/kernelpanic"
	"github.com/docweirdo/rost-kernel-sim/internal/procmode"
	"github.com/docweirdo/rost-kernel-sim/internal/sysabi"
	"github.com/docweirdo/rost-kernel-sim/internal/trampoline"
)

// stackHeap backs every thread's simulated stack region (§3). It starts
// sized from kconfig.Default and is replaced by InitRuntime once the real
// configuration is known, so a thread-creation storm and a user Allocate
// storm compete for the same arena, exactly as on the real target where
// both come out of the single SRAM heap region (§6).
var stackHeap = heap.New(cfg.HeapSize)

// newStackHeap builds (and, via InitRuntime, replaces) the shared stack/
// Allocate arena once a real kconfig.Config is known.
func newStackHeap(size uint32) *heap.Heap {
	return heap.New(size)
}

// inInterrupt marks the dynamic extent of onTick/onDBGUChar (irq.go); it is
// checked by newThread and by Allocate/Deallocate (syscall.go) so a
// (hypothetical) interrupt-context allocation is
// a kernel-fatal error per §5 ("allocation from interrupt context is
// forbidden") rather than a silent corruption.
var inInterrupt bool

// CreateThread implements §4.4/§4.7 service 30: allocate a TCB and stack
// region and synthesize a fake initial context such that the next
// scheduling of this thread resumes at threadTrampoline. Returns the new
// thread id, or kernel-panics on stack exhaustion (stack allocation
// failure is not one of §7 class 3's benign signals — only syscall 20's
// direct Allocate is allowed to return null).
func CreateThread(entry func()) ThreadID {
	var id ThreadID
	withKernelLock(func() {
		parent := tbl.currentID
		id = tbl.nextID
		tbl.nextID++
		newThread(id, parent, entry)
	})
	return id
}

// newThread does the actual allocation and table insertion; factored out so
// InitRuntime can create the idle thread and the first real thread before
// any thread is "current". id is drawn by the caller rather than here, so
// InitRuntime can hard-assign the idle thread id 0 (§3: "id 0 is reserved
// for the idle thread") without it ever competing with tbl.nextID, which is
// seeded at 1 and only ever used for real threads. Caller must hold the
// kernel lock.
func newThread(id, parent ThreadID, entry func()) ThreadID {
	if inInterrupt {
		kernelpanic.Panic("CreateThread: called from interrupt context")
	}

	ptr, ok := stackHeap.Allocate(cfg.StackSize, 8)
	if !ok {
		kernelpanic.Panic("CreateThread: out of memory allocating stack")
	}

	t := &Thread{
		ID:            id,
		ParentID:      parent,
		State:         Ready,
		entry:         entry,
		stackMem:      ptr,
		stackLen:      cfg.StackSize,
		resume:        make(chan struct{}, 1),
		subscriptions: map[sysabi.ServiceKind]*queue[sysabi.Message]{},
		frame:         &trampoline.Frame{}, // fake initial saved context
	}
	tbl.add(t)

	go runThread(t)
	return id
}

// freeStack releases a reaped TCB's stack region back to stackHeap.
func freeStack(t *Thread) {
	stackHeap.Deallocate(t.stackMem, t.stackLen, 8)
}

// runThread is the goroutine body standing in for §4.4's trampoline: block
// until first scheduled, then behave exactly like threadTrampoline.
func runThread(t *Thread) {
	resumeAndLock(t)
	t.frame = nil
	threadTrampoline(t)
}

// threadTrampoline implements §4.4's trampoline entry: enables IRQ,
// switches to User mode (System mode for the idle thread so it can run its
// WFI-equivalent loop), invokes the user closure, and on return invokes
// ExitThread. Caller must already hold the kernel lock (it is only ever
// reached via resumeAndLock, which leaves it held).
func threadTrampoline(t *Thread) {
	procmode.EnableIRQ()
	mode := procmode.ModeUser
	if t.ID == 0 {
		mode = procmode.ModeSystem
	}
	runMu.Unlock() // user closure runs as ordinary Go code, not kernel code
	procmode.SwitchPreservingLR(mode, func() {
		t.entry()
	})
	ExitThread() // re-takes the kernel lock itself, per §4.4 step (d)
}
