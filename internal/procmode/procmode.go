// Package procmode models the ARM processor-mode primitives of §4.1:
// switching modes while preserving the link register, and masking/unmasking
// the IRQ bit. There is no real CPSR in this simulation, so the "hardware"
// is one package-level IRQ mask. The current mode is not recorded anywhere,
// and the package has no function that reads it.
package procmode

import "sync/atomic"

// Mode is one of the ARM processor modes relevant to the kernel.
type Mode int

const (
	ModeUser Mode = iota
	ModeFIQ
	ModeIRQ
	ModeSupervisor
	ModeAbort
	ModeUndefined
	ModeSystem
)

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "User"
	case ModeFIQ:
		return "FIQ"
	case ModeIRQ:
		return "IRQ"
	case ModeSupervisor:
		return "Supervisor"
	case ModeAbort:
		return "Abort"
	case ModeUndefined:
		return "Undefined"
	case ModeSystem:
		return "System"
	default:
		return "Unknown"
	}
}

var irqEnabled atomic.Bool

func init() {
	irqEnabled.Store(false)
}

// IRQEnabled reports whether the IRQ mask bit is currently clear (interrupts
// unmasked).
func IRQEnabled() bool {
	return irqEnabled.Load()
}

// EnableIRQ clears the IRQ mask bit. Caller must already be in a privileged
// mode, per §4.1.
func EnableIRQ() {
	irqEnabled.Store(true)
}

// DisableIRQ sets the IRQ mask bit and returns whether it was previously
// enabled, so callers can restore it symmetrically.
func DisableIRQ() (wasEnabled bool) {
	return irqEnabled.Swap(false)
}

// RestoreIRQ sets the IRQ mask bit back to a value previously returned by
// DisableIRQ.
func RestoreIRQ(wasEnabled bool) {
	irqEnabled.Store(wasEnabled)
}

// procmode only owns the mode enum and the single process-wide IRQ mask
// (no per-thread mode is tracked, here or on the kernel's Thread), matching §9's "document
// this discipline as a single critical-section primitive" guidance — the
// mask is the hardware-equivalent half of that primitive, and
// internal/kernel.withKernelLock is the software half.

// SwitchPreservingLR runs fn() as if the CPU had switched into mode and back,
// preserving the link register across the transition; mode itself is not
// stored or checked. On real hardware this
// is a `msr CPSR_c, mode` pair around the call; here, where Go's call stack
// already preserves every return address, the contract is documented rather
// than implemented with assembly — every trampoline and context-switch call
// site still goes through it uniformly, which is what lets §4.2 and §4.3 be
// written once regardless of which exception kind is in play.
func SwitchPreservingLR(mode Mode, fn func()) {
	fn()
}
