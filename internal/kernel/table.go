package kernel

// table is the process-wide thread list of §3: all live TCBs plus the
// current-thread id and the monotonic id counter. Every field here is
// mutated only while runMu is held (withKernelLock/switchTo), per §9's
// "document this discipline as a single critical-section primitive".
type table struct {
	threads   []*Thread
	byID      map[ThreadID]*Thread
	currentID ThreadID
	nextID    ThreadID

	preemptCounter uint32
	preemptDue     bool
}

var tbl = &table{
	byID:   map[ThreadID]*Thread{},
	nextID: 1,
}

// current returns the TCB the scheduler currently considers Running.
// Caller must hold the kernel lock.
func current() *Thread {
	return tbl.byID[tbl.currentID]
}

// byID looks up a TCB by id. Caller must hold the kernel lock.
func byID(id ThreadID) (*Thread, bool) {
	t, ok := tbl.byID[id]
	return t, ok
}

// add inserts a newly created TCB into the table. Caller must hold the
// kernel lock.
func (tb *table) add(t *Thread) {
	tb.threads = append(tb.threads, t)
	tb.byID[t.ID] = t
}

// remove deletes a reaped TCB from the table. Caller must hold the kernel
// lock.
func (tb *table) remove(id ThreadID) {
	delete(tb.byID, id)
	for i, t := range tb.threads {
		if t.ID == id {
			tb.threads = append(tb.threads[:i], tb.threads[i+1:]...)
			break
		}
	}
}

// All returns a snapshot of every live TCB, ordered by table position
// (creation order), for the `threads` shell command and tests.
func All() []*Thread {
	var out []*Thread
	withKernelLock(func() {
		out = make([]*Thread, len(tbl.threads))
		copy(out, tbl.threads)
	})
	return out
}
