// Package kernelpanic implements the fatal-error path of §7 class 1 and
// class 2: render a diagnostic into a fixed, stack-resident buffer (never
// allocating, so an out-of-memory condition can still be reported), write it
// through the DBGU transmit path, and halt.
//
// Grounded on original_source/src/main.rs's panic handler (format into a
// bounded buffer, print, loop forever) and on logger.rs's single-sink
// "always enabled, never suppressed" discipline carried into internal/klog.
package kernelpanic

import (
	"fmt"
	"os"
)

// Writer is where a fatal diagnostic is sent. It defaults to os.Stderr so
// tests and cmd/ksim work without wiring a device first; cmd/ksim rebinds it
// to the DBGU transmit path at boot.
var Writer = func(b []byte) {
	_, _ = os.Stderr.Write(b)
}

// Halt is called after the diagnostic has been written. It defaults to
// blocking forever, standing in for the ARM `halt: b halt` tight loop.
// Tests rebind it to a panic so a fatal condition fails the test instead of
// hanging the test binary.
var Halt = func() {
	select {}
}

// scratch is the stack-resident formatting buffer; 256 bytes is enough for
// any diagnostic this kernel produces (thread ids, service ids, addresses).
func render(format string, args ...any) []byte {
	var scratch [256]byte
	msg := fmt.Sprintf(format, args...)
	n := copy(scratch[:], msg)
	n += copy(scratch[n:], "\n")
	return scratch[:n]
}

// Panic reports a fatal kernel bug or CPU exception and never returns.
func Panic(format string, args ...any) {
	Writer(render("kernel panic: "+format, args...))
	Halt()
	panic("kernelpanic: Halt returned") // unreachable unless Halt is misconfigured
}
