// Package ustub is the user-mode syscall stub layer of §4.9: the only way
// internal/shell and internal/demo reach the kernel. Each function here
// stands in for a `SWI #id` trap — in this hosted simulation that is simply
// a direct call into internal/kernel, but the package boundary itself is
// the privilege boundary spec.md describes: nothing outside internal/kernel
// ever sees a *kernel.Thread or the kernel lock.
package ustub

import (
	"github.com/docweirdo/rost-kernel-sim/internal/kernel"
	"github.com/docweirdo/rost-kernel-sim/internal/sysabi"
)

// ThreadID is re-exported so user code never has to import internal/kernel
// to name a thread id.
type ThreadID = kernel.ThreadID

// ServiceKind is re-exported for Subscribe/Unsubscribe callers.
type ServiceKind = sysabi.ServiceKind

// ServiceDBGU is the only ServiceKind currently defined (§3).
const ServiceDBGU = sysabi.ServiceDBGU

// SendDBGU is syscall 10.
func SendDBGU(c byte) {
	kernel.SendDBGU(c)
}

// ReceiveDBGU is syscall 11. The bool return reports whether a character
// was actually available, collapsing the sentinel value of §7 class 3 into
// an ordinary Go two-value return instead of a magic uint16.
func ReceiveDBGU(block bool) (byte, bool) {
	v := kernel.ReceiveDBGU(block)
	if v == sysabi.ReceiveDBGUEmpty {
		return 0, false
	}
	return byte(v), true
}

// CreateThread is syscall 30.
func CreateThread(entry func()) ThreadID {
	return kernel.CreateThread(entry)
}

// ExitThread is syscall 31. Callers rarely need to call this directly — a
// thread entry closure returning has the same effect (§4.4).
func ExitThread() {
	kernel.ExitThread()
}

// YieldThread is syscall 32.
func YieldThread() {
	kernel.YieldThread()
}

// JoinThread is syscall 33. Returns true once target has stopped (or was
// already stopped, or unknown); false if timeoutMS elapsed first. A
// timeoutMS of 0 waits indefinitely.
func JoinThread(target ThreadID, timeoutMS uint32) bool {
	return kernel.JoinThread(target, timeoutMS)
}

// Subscribe is syscall 34.
func Subscribe(kind ServiceKind) {
	kernel.Subscribe(kind)
}

// Unsubscribe is syscall 35.
func Unsubscribe(kind ServiceKind) {
	kernel.Unsubscribe(kind)
}

// GetCurrentRealTime is syscall 40.
func GetCurrentRealTime() uint64 {
	return kernel.GetCurrentRealTime()
}

// Sleep is syscall 41. Returns the actually elapsed milliseconds, per §7
// class 3 — never assume it equals ms exactly.
func Sleep(ms uint32) uint32 {
	return kernel.Sleep(ms)
}

// ThreadInfo is a read-only snapshot of one thread, for the `threads` shell
// command.
type ThreadInfo = kernel.ThreadInfo

// Threads lists every live thread in creation order; not a real syscall,
// but the same kind of read-only introspection `uptime`/`heap_size` need.
func Threads() []ThreadInfo {
	return kernel.Threads()
}

// HeapUsed and HeapCapacity back the `heap_size` shell command.
func HeapUsed() uint32     { return kernel.HeapUsed() }
func HeapCapacity() uint32 { return kernel.HeapCapacity() }

// RequestShutdown unblocks InitRuntime's caller, the `quit` shell command's
// effect.
func RequestShutdown() {
	kernel.RequestShutdown()
}

// RaiseUnknownSyscall exercises the `software_interrupt` shell command:
// calling the SWI dispatcher with a service id outside sysabi's table is
// kernel-fatal per §7 class 1.
func RaiseUnknownSyscall() {
	kernel.Dispatch(sysabi.ServiceID(0xFFFF))
}

// RaiseUndefinedInstruction and RaiseDataAbort back the
// `undefined_instruction`/`data_abort` shell commands (§7 class 2).
func RaiseUndefinedInstruction() {
	kernel.RaiseUndefinedInstruction()
}

func RaiseDataAbort(faultAddr uint32) {
	kernel.RaiseDataAbort(faultAddr)
}

// Checkpoint gives a pending preemption a chance to take effect. Ordinary
// syscalls do this on their own; a CPU-bound loop that never calls one (§8
// scenario 4) must call this directly to stay cooperative.
func Checkpoint() {
	kernel.Checkpoint()
}
