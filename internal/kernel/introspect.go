package kernel

// ThreadInfo is a read-only snapshot of one TCB, exposed to internal/ustub
// for the `threads` shell command and tests — never a *Thread itself, so
// nothing outside this package can reach into live kernel state.
type ThreadInfo struct {
	ID       ThreadID
	ParentID ThreadID
	State    State
	Reason   WaitReason
}

// Threads returns a snapshot of every live TCB in creation order.
func Threads() []ThreadInfo {
	all := All()
	out := make([]ThreadInfo, len(all))
	for i, t := range all {
		out[i] = ThreadInfo{ID: t.ID, ParentID: t.ParentID, State: t.State, Reason: t.Reason}
	}
	return out
}

// HeapUsed reports bytes currently allocated out of the shared stack/
// Allocate arena (§6), for the `heap_size` shell command.
func HeapUsed() uint32 {
	return stackHeap.Used()
}

// HeapCapacity reports the arena's total configured size.
func HeapCapacity() uint32 {
	return cfg.HeapSize
}
