// Package trampoline implements the exception-entry trampoline generator of
// §4.2: for each ARM exception kind it produces an entry sequence that saves
// the interrupted thread's context, switches to System mode so the handler
// runs on the thread's own stack, optionally unmasks IRQ for nesting,
// invokes the handler, and restores everything on the way out.
//
// This simulation has no byte-addressable user stack to push registers onto,
// so Frame plays the role the pushed bytes play on real hardware: a single
// value, owned by the interrupted thread's TCB, that the context-switch
// primitive (internal/kernel) treats opaquely.
package trampoline

import (
	"fmt"

	"github.com/docweirdo/rost-kernel-sim/internal/procmode"
)

// Kind is one of the ARM exception kinds §4.2 defines a trampoline for.
type Kind int

const (
	KindReset Kind = iota
	KindUndefined
	KindSWI
	KindPrefetchAbort
	KindDataAbort
	KindIRQ
)

func (k Kind) String() string {
	switch k {
	case KindReset:
		return "Reset"
	case KindUndefined:
		return "Undefined"
	case KindSWI:
		return "SWI"
	case KindPrefetchAbort:
		return "PrefetchAbort"
	case KindDataAbort:
		return "DataAbort"
	case KindIRQ:
		return "IRQ"
	default:
		return "Unknown"
	}
}

// lrSize is the adjustment subtracted from the exception-mode link register
// to recover the true return address, per the table in §4.2.
var lrSize = map[Kind]uint32{
	KindReset:         0,
	KindUndefined:     4,
	KindSWI:           0,
	KindPrefetchAbort: 4,
	KindDataAbort:     8,
	KindIRQ:           4,
}

// LRSize returns the lr adjustment for kind.
func LRSize(kind Kind) uint32 {
	return lrSize[kind]
}

// nestable reports whether this exception kind re-enables IRQ before calling
// the handler, per §4.2 step 5 ("for nestable interrupts (external IRQ
// only)").
func nestable(kind Kind) bool {
	return kind == KindIRQ
}

// fatal reports whether this exception kind is always treated as a CPU
// exception per §7 class 2 (Undefined Instruction, Prefetch Abort, Data
// Abort, Reset are fatal; SWI and IRQ are ordinary kernel entry points).
func fatal(kind Kind) bool {
	switch kind {
	case KindReset, KindUndefined, KindPrefetchAbort, KindDataAbort:
		return true
	default:
		return false
	}
}

// Frame is the saved context of an interrupted thread: SPSR of the
// exception, the general-purpose registers, the adjusted return address, and
// the CPSR of the exception mode, pushed in the order §4.2 step 3
// enumerates. FaultAddr is only meaningful for fatal exception kinds.
type Frame struct {
	Kind      Kind
	SPSR      uint32
	Regs      [11]uint32 // r2-r12
	ReturnPC  uint32      // lr_exc - lr_size
	Scratch   [2]uint32   // the two scratch registers saved first
	CPSR      uint32
	FaultAddr uint32
}

// FatalHandler is called for CPU-exception kinds with the captured frame; it
// must not return (it escalates to internal/kernelpanic per §7 class 2). It
// is a function value that internal/kernel installs at package init
// (fault.go).
var FatalHandler func(kind Kind, frame *Frame)

// Wrap produces the entry sequence of §4.2 around handler. The returned
// function is what a real trampoline's `bl handler` call site invokes;
// everything before and after that call in §4.2 steps 1-7 is implemented
// here once, uniformly, for every exception kind.
func Wrap(kind Kind, handler func(*Frame)) func(*Frame) {
	return func(frame *Frame) {
		if frame == nil {
			panic(fmt.Sprintf("trampoline: nil frame for %s", kind))
		}
		frame.Kind = kind
		frame.ReturnPC -= lrSize[kind]

		if fatal(kind) {
			if FatalHandler == nil {
				panic(fmt.Sprintf("trampoline: fatal exception %s with no FatalHandler installed", kind))
			}
			FatalHandler(kind, frame)
			return // unreachable: FatalHandler halts
		}

		// Step 4: switch to System mode so the handler runs on the
		// interrupted thread's own stack.
		procmode.SwitchPreservingLR(procmode.ModeSystem, func() {
			wasEnabled := procmode.IRQEnabled()
			if nestable(kind) {
				// Step 5: re-enable IRQ for nested interrupts.
				procmode.EnableIRQ()
			}

			handler(frame)

			procmode.RestoreIRQ(wasEnabled)
		})
	}
}
