package kernel

import "github.com/docweirdo/rost-kernel-sim/internal/trampoline"

// switchTo implements §4.3's context-switch contract as a token-passing
// rendezvous instead of a naked assembly routine: every Thread owns a
// buffered-1 `resume` channel. switchTo always runs on the *outgoing*
// thread's own goroutine (it is called from deep inside that thread's
// current syscall, via schedule()). It wakes `in`'s goroutine — parked
// here on a previous switch, or at its very first resumeAndLock — releases
// runMu for the duration of the handoff (mirroring "must be called only
// from System mode with IRQs disabled", which is what runMu otherwise
// enforces), and then blocks until some future switchTo hands control back
// to `out`. The observable effect matches §4.3 exactly: once switchTo
// returns, the caller's continuation is running because *this* thread was
// the one some later switch chose to resume, never because two threads'
// code ran at once.
func switchTo(out, in *Thread) {
	out.frame = &trampoline.Frame{} // saved_sp: non-nil iff not Running (§3)
	in.resume <- struct{}{}
	runMu.Unlock()
	resumeAndLock(out)
	out.frame = nil
}

// resumeAndLock is the prologue every thread's goroutine runs the first
// time it is scheduled, and the second half of switchTo's handoff for the
// thread being resumed: block for the token, then reacquire the kernel
// lock before touching any shared state. Only one goroutine ever holds
// runMu at a time; everyone else is parked here or inside switchTo.
func resumeAndLock(t *Thread) {
	<-t.resume
	runMu.Lock()
}
