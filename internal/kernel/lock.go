package kernel

import (
	"sync"

	"github.com/docweirdo/rost-kernel-sim/internal/procmode"
)

// runMu is the single lock behind withKernelLock: the software half of the
// "single-core" discipline §9 DESIGN NOTES asks for. It is held by exactly
// one goroutine at a time — whichever thread's Go code is currently
// executing kernel logic, or the boot goroutine driving the interrupt
// demultiplexer — and released only while that goroutine is parked inside
// switchTo's rendezvous receive (contextswitch.go). Ordinary (non-syscall)
// user code runs without holding runMu at all; only the table/subscription
// mutations spec.md calls out as shared state ever take it.
var runMu sync.Mutex

// withKernelLock is the critical-section primitive of §9: every mutation of
// the thread table, current-thread id, last-id counter and subscription
// maps goes through it. It disables the simulated IRQ mask, runs fn, and
// restores the previous mask — "every mutation occurs in System mode with
// IRQs disabled" (§5).
func withKernelLock(fn func()) {
	runMu.Lock()
	wasEnabled := procmode.DisableIRQ()
	defer func() {
		procmode.RestoreIRQ(wasEnabled)
		runMu.Unlock()
	}()
	fn()
}
