package kernel

import (
	"github.com/docweirdo/rost-kernel-sim/internal/device"
	"github.com/docweirdo/rost-kernel-sim/internal/sysabi"
)

// stDevice, dbguDevice and aicDevice are the devices WireInterrupts binds;
// the syscall layer (syscall.go) reads/writes them directly, standing in
// for §6's memory-mapped register access.
var (
	stDevice   *device.ST
	dbguDevice *device.DBGU
	aicDevice  *device.AIC
)

// WireInterrupts installs the single AIC system-interrupt handler of §2
// item 7 / §4.6: it inspects st and dbgu status and invokes onTick and/or
// onDBGUChar, in that order, delivering both per entry when both are
// pending — the later revision's behavior §9's Open Question resolves in
// favor of, since the single-delivery variant loses characters under
// bursty input. cmd/ksim calls this once at boot; tests call it to wire a
// fake clock/DBGU pair.
func WireInterrupts(aic *device.AIC, st *device.ST, dbgu *device.DBGU) {
	stDevice, dbguDevice, aicDevice = st, dbgu, aic
	aic.SetSystemHandler(func() {
		onSystemInterrupt(aic, st, dbgu)
	})
	dbgu.SetInterruptHandler(func(pending bool) {
		if pending {
			aic.Raise()
		}
	})
}

// onSystemInterrupt is the demultiplexer itself, invoked on whichever
// goroutine drives the devices (cmd/ksim's real-time ST ticker, or whatever
// goroutine feeds a character in). On real hardware this interrupt runs on
// top of whichever thread's context the CPU happened to be executing, so
// the scheduler it can invoke directly switches that same context; hosted
// on goroutines there is no way to force a switch out of a *different*
// goroutine's arbitrary running code, so onTick below only marks the
// quantum expired (tbl.preemptDue) rather than calling schedule() itself —
// the actual switch happens at the next checkpoint the running thread's own
// goroutine passes through (any syscall, or the cooperative checkpoint()
// idleThread and the CPU-bound demo scenario call directly).
func onSystemInterrupt(aic *device.AIC, st *device.ST, dbgu *device.DBGU) {
	withKernelLock(func() {
		inInterrupt = true
		defer func() { inInterrupt = false }()

		if sr := st.SR(); sr&device.STSRPeriodicElapsed != 0 {
			onTick(aic, st)
		}
		if dbgu.RXPending() {
			onDBGUChar(aic, dbgu)
		}
	})
}

// onTick implements §4.6's on_tick: wake every thread whose sleep or join
// deadline has elapsed and decrement the preemption counter. At zero it
// marks the quantum expired (tbl.preemptDue) instead of invoking the
// scheduler itself; the switch happens at the running thread's next
// checkpoint, so a thread that never reaches one is not preempted.
func onTick(aic *device.AIC, st *device.ST) {
	aic.WriteEOICR()

	now := st.Now()
	for _, t := range tbl.threads {
		if t.State != Waiting || !t.HasDeadline || t.WakeupTick > now {
			continue
		}
		switch t.Reason {
		case WaitSleep:
			t.State = Ready
			t.Reason = WaitNone
		case WaitJoin:
			// joinCompleted stays false: the caller observes a timeout,
			// not a completed join (§5).
			t.State = Ready
			t.Reason = WaitNone
		}
	}

	if tbl.preemptCounter > 0 {
		tbl.preemptCounter--
	}
	if tbl.preemptCounter == 0 {
		tbl.preemptDue = true
	}
}

// onDBGUChar implements §4.6's on_dbgu_char: read the one pending byte,
// broadcast it to every subscribed thread's queue (§4.8's no-backpressure
// broadcast), and wake every Waiting(DBGU) subscriber.
func onDBGUChar(aic *device.AIC, dbgu *device.DBGU) {
	b, ok := dbgu.ReadRHR()
	if !ok {
		aic.WriteEOICR()
		return
	}

	for _, t := range tbl.threads {
		q, subscribed := t.subscriptions[sysabi.ServiceDBGU]
		if !subscribed {
			continue
		}
		q.push(sysabi.Message{Kind: sysabi.ServiceDBGU, DBGU: b})
		if t.State == Waiting && t.Reason == WaitDBGU {
			t.State = Ready
			t.Reason = WaitNone
		}
	}

	aic.WriteEOICR()
}

// checkpoint services a pending preemption: if onTick has marked the
// quantum expired (or the caller is the idle thread, which always yields
// back to the scanner), it invokes the scheduler. Every syscall entry point
// in syscall.go and subscribe.go except ExitThread (which reschedules
// unconditionally) calls this first, which is what actually makes
// tbl.preemptDue take effect for any thread making normal syscalls;
// idleThread's WFI loop and internal/demo's CPU-bound spin scenario (§8
// scenario 4) call it directly since they otherwise never enter the
// syscall layer.
func checkpoint() {
	withKernelLock(func() {
		if tbl.preemptDue || current().ID == 0 {
			schedule(nil)
		}
	})
}

// Checkpoint exposes checkpoint to callers outside the syscall layer: the
// CPU-bound preemption scenario (§8 scenario 4) spins without ever making a
// syscall, so it must call this directly to give tbl.preemptDue a chance to
// take effect, the same way idleThread's WFI-equivalent loop does.
func Checkpoint() {
	checkpoint()
}
