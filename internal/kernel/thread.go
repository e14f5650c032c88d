// Package kernel implements the core of spec.md: the thread control block
// and table (§3), the round-robin scheduler (§4.5), the context-switch
// primitive (§4.3), the SWI-equivalent syscall dispatcher (§4.7), and the
// interrupt demultiplexer (§4.6). User code (internal/shell, internal/demo)
// never imports this package directly — it goes through internal/ustub,
// the same privilege boundary spec.md §4.9 describes.
package kernel

import (
	"github.com/docweirdo/rost-kernel-sim/internal/sysabi"
	"github.com/docweirdo/rost-kernel-sim/internal/trampoline"
)

// ThreadID is a dense, monotonic identifier, unique for the process
// lifetime (§3). 0 is reserved for the idle thread.
type ThreadID uint32

// State is the TCB's coarse scheduling state (§3).
type State int

const (
	Ready State = iota
	Running
	Waiting
	Stopped
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Waiting:
		return "Waiting"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// WaitReason is the sum type of §3's Waiting(reason).
type WaitReason int

const (
	WaitNone WaitReason = iota
	WaitDBGU
	WaitSleep
	WaitJoin
)

func (r WaitReason) String() string {
	switch r {
	case WaitDBGU:
		return "DBGU"
	case WaitSleep:
		return "Sleep"
	case WaitJoin:
		return "Join"
	default:
		return "None"
	}
}

// Thread is the TCB of §3. Unlike the bare-metal original, there is no
// literal byte-addressed stack to allocate and release; stackMem stands in
// for "a dedicated downward-growing stack region exclusively owned by the
// TCB", backed by internal/heap so CreateThread can fail the way §8's
// "creating threads until allocation fails" boundary case expects.
type Thread struct {
	ID       ThreadID
	ParentID ThreadID
	State    State
	Reason   WaitReason

	// WakeupTick is the ST tick at which a Waiting(Sleep) thread becomes
	// Ready, or the optional timeout deadline for Waiting(Join); it is only
	// consulted when HasDeadline is set.
	WakeupTick    uint64
	HasDeadline   bool
	joinSet       map[ThreadID]struct{}
	joinCompleted bool // result read back by JoinThread once woken

	entry func()

	stackMem uintptr
	stackLen uint32

	// resume is the rendezvous channel of the contextswitch.go handoff:
	// buffered 1, sent to by whoever switches control onto this thread,
	// received from by this thread's own goroutine when parking.
	resume chan struct{}

	subscriptions map[sysabi.ServiceKind]*queue[sysabi.Message]

	// frame stands in for §3's saved_sp: non-nil whenever this TCB is not
	// Running, mirroring the invariant "saved_sp points strictly inside
	// [stack_base, stack_limit) whenever not Running" (here, simply
	// "non-nil", since there is no literal stack pointer arithmetic to
	// check against).
	frame *trampoline.Frame
}

// subscribedTo reports whether this thread currently holds a subscription
// queue for kind. Callers must already hold the kernel lock.
func (t *Thread) subscribedTo(kind sysabi.ServiceKind) bool {
	_, ok := t.subscriptions[kind]
	return ok
}
