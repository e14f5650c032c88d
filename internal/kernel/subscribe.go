package kernel

import (
	"github.com/docweirdo/rost-kernel-sim/internal/kernelpanic"
	"github.com/docweirdo/rost-kernel-sim/internal/sysabi"
)

// Subscribe implements §4.7 service 34: insert an empty queue for kind on
// the calling thread's subscription map. Subscribing twice to the same
// service is a §3 invariant violation, fatal per §7 class 1.
func Subscribe(kind sysabi.ServiceKind) {
	checkpoint()
	withKernelLock(func() {
		t := current()
		if t.subscribedTo(kind) {
			kernelpanic.Panic("Subscribe: service %s already subscribed (thread %d)", kind, t.ID)
		}
		t.subscriptions[kind] = newQueue[sysabi.Message]()
	})
}

// Unsubscribe implements §4.7 service 35: remove kind's queue from the
// calling thread. Unsubscribing from a service never subscribed to is
// fatal, symmetric with Subscribe.
func Unsubscribe(kind sysabi.ServiceKind) {
	checkpoint()
	withKernelLock(func() {
		t := current()
		if !t.subscribedTo(kind) {
			kernelpanic.Panic("Unsubscribe: service %s not subscribed (thread %d)", kind, t.ID)
		}
		delete(t.subscriptions, kind)
	})
}

// ReceiveDBGU implements §4.7 service 11: pop the first queued character on
// the DBGU service. Non-blocking with nothing queued returns
// sysabi.ReceiveDBGUEmpty per §7 class 3; blocking parks the thread
// in Waiting(DBGU) until the interrupt demultiplexer (§4.6 on_dbgu_char)
// wakes it, then pops the character the wakeup is guaranteed to have
// queued.
func ReceiveDBGU(block bool) uint16 {
	checkpoint()

	var result uint16
	withKernelLock(func() {
		t := current()
		q, ok := t.subscriptions[sysabi.ServiceDBGU]
		if !ok {
			kernelpanic.Panic("ReceiveDBGU: thread %d not subscribed to DBGU", t.ID)
		}

		if msg, popped := q.pop(); popped {
			result = uint16(msg.DBGU)
			return
		}
		if !block {
			result = sysabi.ReceiveDBGUEmpty
			return
		}

		t.State = Waiting
		t.Reason = WaitDBGU
		schedule(nil)

		// Resumed only by onDBGUChar having just pushed a character and
		// set this thread Ready, so the pop below always succeeds.
		msg, popped := q.pop()
		if !popped {
			kernelpanic.Panic("ReceiveDBGU: woke with no character queued (thread %d)", t.ID)
		}
		result = uint16(msg.DBGU)
	})
	return result
}
