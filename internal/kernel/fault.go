package kernel

import (
	"github.com/docweirdo/rost-kernel-sim/internal/kernelpanic"
	"github.com/docweirdo/rost-kernel-sim/internal/sysabi"
	"github.com/docweirdo/rost-kernel-sim/internal/trampoline"
)

// init wires trampoline.FatalHandler once, at package load: every CPU
// exception kind (§4.2's fatal table) funnels through here into
// kernelpanic.Panic. The unknown-SWI-id path below (Dispatch) calls
// kernelpanic.Panic directly from its SWI handler instead.
func init() {
	trampoline.FatalHandler = func(kind trampoline.Kind, frame *trampoline.Frame) {
		kernelpanic.Panic("%s exception at pc=0x%08x fault=0x%08x", kind, frame.ReturnPC, frame.FaultAddr)
	}
}

// Dispatch is the literal SWI entry point: §4.7 names "unknown SWI id" as
// kernel-fatal, which the named syscall functions (syscall.go) never trigger on
// its own since each is called directly by a typed ustub stub. The
// `software_interrupt` shell command calls this with a deliberately-unknown
// id to exercise that path end to end.
func Dispatch(id sysabi.ServiceID) {
	trampoline.Wrap(trampoline.KindSWI, func(*trampoline.Frame) {
		kernelpanic.Panic("syscall: unknown service id %d", id)
	})(&trampoline.Frame{})
}

// RaiseUndefinedInstruction and RaiseDataAbort let the `undefined_instruction`
// and `data_abort` shell commands exercise §4.2's fatal exception path
// without a real CPU to fault on; faultAddr stands in for the address a
// real MMU/decoder would have reported.
func RaiseUndefinedInstruction() {
	trampoline.Wrap(trampoline.KindUndefined, func(*trampoline.Frame) {})(&trampoline.Frame{})
}

func RaiseDataAbort(faultAddr uint32) {
	trampoline.Wrap(trampoline.KindDataAbort, func(*trampoline.Frame) {})(&trampoline.Frame{FaultAddr: faultAddr})
}
