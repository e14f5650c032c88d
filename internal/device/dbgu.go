// Package device models the memory-mapped peripherals spec.md §1 names as
// out-of-scope external collaborators but whose register-level behavior the
// core kernel depends on: the Debug Unit (DBGU), the System Timer (ST), and
// the Advanced Interrupt Controller (AIC). Register names and bit positions
// follow §6's "Hardware register protocols".
//
// DBGU is adapted from internal/devices/serial's UART8250MMIO: the same
// register-bank-as-struct-fields shape and "recompute pending interrupt on
// every register write" discipline, but with the 16550 8-register/DLAB/FIFO
// layout replaced by the AT91 DBGU's actual SR/THR/RHR/IER set, and with the
// MMIO read/write interface replaced by a direct Go API since this
// simulation's "bus" is the kernel syscall layer, not a trapped guest
// memory access.
package device

import "sync"

const (
	// DBGUSRTXRDY latches when the transmit holding register is empty and
	// ready to accept another byte.
	DBGUSRTXRDY = 1 << 0
	// DBGUSRRXRDY latches when a received byte is waiting in RHR.
	DBGUSRRXRDY = 1 << 1

	// DBGUIERRXRDY enables the receive-ready interrupt (§6: "enable RX
	// interrupt via IER bit 0" — the bit position is spec.md's). SR's RXRDY
	// stays at bit 1, so the two registers use different bit numbers;
	// updateInterrupt tests each against its own mask.
	DBGUIERRXRDY = 1 << 0
)

// DBGU is the Debug Unit: a single-byte-buffered UART with one pending
// receive-ready interrupt source.
type DBGU struct {
	mu sync.Mutex

	sr  uint32
	ier uint32
	rhr byte

	// out receives every byte written to THR, standing in for the physical
	// wire; nil is valid and simply discards output (used in tests that
	// only care about kernel-side state).
	out func(b byte)

	// onInterruptChange is invoked after every PushRX and SetIER with the
	// recomputed RXRDY-and-enabled condition (not only on changes, and not
	// from ReadRHR), so internal/kernel's AIC wiring can raise the shared
	// system-interrupt line. May be nil.
	onInterruptChange func(pending bool)

	pending bool
}

// NewDBGU builds a DBGU with TXRDY already set (the transmitter is always
// immediately ready in this simulation — there is no real shift-register
// delay to model).
func NewDBGU(out func(b byte)) *DBGU {
	return &DBGU{sr: DBGUSRTXRDY, out: out}
}

// SetInterruptHandler registers the callback invoked with the interrupt-
// pending state after every PushRX and SetIER.
func (d *DBGU) SetInterruptHandler(fn func(pending bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onInterruptChange = fn
}

// SR reads the status register.
func (d *DBGU) SR() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sr
}

// WriteTHR busy-writes one byte to the transmit holding register, per §6
// ("poll SR bit TXRDY before writing THR"). In this simulation TXRDY never
// actually clears — there is no transmit-shift latency to model — so
// WriteTHR does not poll it and hands the byte to out at once; the call is
// kept because the syscall layer (SendDBGU, service id 10) is specified in
// terms of it.
func (d *DBGU) WriteTHR(b byte) {
	d.mu.Lock()
	out := d.out
	d.mu.Unlock()
	if out != nil {
		out(b)
	}
}

// PushRX delivers one byte as if it had arrived on the physical wire: it
// sets RHR, latches RXRDY, and raises the interrupt line if RX interrupts
// are enabled. This is the host-simulated entry point standing in for real
// hardware's RXRDY-triggered AIC line (cmd/ksim's terminal driver and the
// integration tests call this).
func (d *DBGU) PushRX(b byte) {
	d.mu.Lock()
	d.rhr = b
	d.sr |= DBGUSRRXRDY
	d.updateInterrupt()
	cb := d.onInterruptChange
	pending := d.pending
	d.mu.Unlock()
	if cb != nil {
		cb(pending)
	}
}

// ReadRHR reads and clears the pending received byte, per §6 ("read RHR when
// SR RXRDY is set"). Returns ok=false if no byte is pending.
func (d *DBGU) ReadRHR() (b byte, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sr&DBGUSRRXRDY == 0 {
		return 0, false
	}
	b = d.rhr
	d.sr &^= DBGUSRRXRDY
	d.updateInterrupt()
	return b, true
}

// SetIER writes the interrupt-enable register.
func (d *DBGU) SetIER(v uint32) {
	d.mu.Lock()
	d.ier = v
	d.updateInterrupt()
	cb := d.onInterruptChange
	pending := d.pending
	d.mu.Unlock()
	if cb != nil {
		cb(pending)
	}
}

// updateInterrupt recomputes the pending flag; caller must hold d.mu.
func (d *DBGU) updateInterrupt() {
	d.pending = d.ier&DBGUIERRXRDY != 0 && d.sr&DBGUSRRXRDY != 0
}

// RXPending reports whether a received byte is waiting, without consuming
// it — used by the interrupt demultiplexer (§4.6) to decide whether to
// invoke the DBGU-RX handler.
func (d *DBGU) RXPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sr&DBGUSRRXRDY != 0
}
