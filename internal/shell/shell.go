// Package shell implements the interactive console of §6's "CLI / shell":
// a line-editing REPL thread running over the DBGU, built only atop
// internal/ustub — the shell has no special privilege, it is just another
// user thread, exactly like internal/demo.
package shell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/docweirdo/rost-kernel-sim/internal/demo"
	"github.com/docweirdo/rost-kernel-sim/internal/ustub"
)

// commands is the set §6 names, in the order they're listed there, plus
// `help`.
var commands = []string{
	"uptime", "threads", "heap_size", "sleep_test", "thread_test",
	"dbgu_test", "software_interrupt", "undefined_instruction",
	"data_abort", "quit", "help",
}

const prompt = "ksim> "

// Run is the shell thread's entry point, passed to kernel.InitRuntime as
// the first real thread (§4.4). It never returns except via the `quit`
// command.
func Run() {
	ustub.Subscribe(ustub.ServiceDBGU)
	defer ustub.Unsubscribe(ustub.ServiceDBGU)

	write(prompt)
	var history []string
	for {
		line, ok := readLine(&history)
		if !ok {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			write(prompt)
			continue
		}
		history = append(history, line)
		if dispatch(line) {
			return
		}
		write(prompt)
	}
}

// lineEditor holds one in-progress input line plus its cursor position,
// redrawn after every edit with charmbracelet/x/ansi escapes the same way
// the teacher's VT emulation composes cursor-movement sequences.
type lineEditor struct {
	buf     []byte
	cursor  int
	history *[]string
	histPos int // len(*history) means "not browsing history"
}

// readLine reads one line from the DBGU, handling backspace/delete,
// tab-complete, and up/down history recall. It returns only once CR or LF
// ends the line, and its second result is then always true.
func readLine(history *[]string) (string, bool) {
	ed := &lineEditor{histPos: len(*history), history: history}

	for {
		c, ok := ustub.ReceiveDBGU(true)
		if !ok {
			continue
		}

		switch c {
		case '\r', '\n':
			write("\r\n")
			return string(ed.buf), true
		case 0x7f, 0x08: // backspace
			ed.backspace()
		case '\t':
			ed.completeCommand()
		case 0x1b: // start of a CSI escape sequence (arrow/delete keys)
			ed.readEscape()
		default:
			ed.insert(c)
		}
	}
}

// readEscape consumes the remainder of a "\x1b[" CSI sequence and dispatches
// the arrow/delete keys the shell supports; unrecognized sequences are
// silently discarded.
func (ed *lineEditor) readEscape() {
	b1, ok := ustub.ReceiveDBGU(true)
	if !ok || b1 != '[' {
		return
	}
	b2, ok := ustub.ReceiveDBGU(true)
	if !ok {
		return
	}
	switch b2 {
	case 'A': // up arrow
		ed.historyPrev()
	case 'B': // down arrow
		ed.historyNext()
	case '3': // delete key is "\x1b[3~"
		if b3, ok := ustub.ReceiveDBGU(true); ok && b3 == '~' {
			ed.deleteForward()
		}
	}
}

func (ed *lineEditor) insert(c byte) {
	ed.buf = append(ed.buf[:ed.cursor], append([]byte{c}, ed.buf[ed.cursor:]...)...)
	ed.cursor++
	ed.redraw()
}

func (ed *lineEditor) backspace() {
	if ed.cursor == 0 {
		return
	}
	ed.buf = append(ed.buf[:ed.cursor-1], ed.buf[ed.cursor:]...)
	ed.cursor--
	ed.redraw()
}

func (ed *lineEditor) deleteForward() {
	if ed.cursor >= len(ed.buf) {
		return
	}
	ed.buf = append(ed.buf[:ed.cursor], ed.buf[ed.cursor+1:]...)
	ed.redraw()
}

// completeCommand completes the word at the cursor if it is an unambiguous
// prefix of exactly one command name.
func (ed *lineEditor) completeCommand() {
	word := string(ed.buf[:ed.cursor])
	var matches []string
	for _, name := range commands {
		if strings.HasPrefix(name, word) {
			matches = append(matches, name)
		}
	}
	if len(matches) != 1 {
		return
	}
	rest := matches[0][len(word):]
	ed.buf = append(append(append([]byte{}, ed.buf[:ed.cursor]...), rest...), ed.buf[ed.cursor:]...)
	ed.cursor += len(rest)
	ed.redraw()
}

func (ed *lineEditor) historyPrev() {
	if ed.histPos == 0 {
		return
	}
	ed.histPos--
	ed.loadHistory()
}

func (ed *lineEditor) historyNext() {
	if ed.histPos >= len(*ed.history) {
		return
	}
	ed.histPos++
	ed.loadHistory()
}

func (ed *lineEditor) loadHistory() {
	if ed.histPos == len(*ed.history) {
		ed.buf = nil
	} else {
		ed.buf = []byte((*ed.history)[ed.histPos])
	}
	ed.cursor = len(ed.buf)
	ed.redraw()
}

// redraw clears the current input line and rewrites it from scratch,
// positioning the cursor. Using ansi's escape builders rather than raw
// byte literals matches the DOMAIN STACK's stated reason for carrying
// charmbracelet/x/ansi.
func (ed *lineEditor) redraw() {
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(ansi.EraseLine(2))
	b.WriteString(prompt)
	b.Write(ed.buf)
	if back := len(ed.buf) - ed.cursor; back > 0 {
		b.WriteString(ansi.CursorBackward(back))
	}
	write(b.String())
}

func write(s string) {
	for i := 0; i < len(s); i++ {
		ustub.SendDBGU(s[i])
	}
}

// dispatch runs one command line, returning true if the shell should stop
// (the `quit` command).
func dispatch(line string) bool {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "uptime":
		write(fmt.Sprintf("uptime: %d ticks\r\n", ustub.GetCurrentRealTime()))
	case "threads":
		cmdThreads()
	case "heap_size":
		write(fmt.Sprintf("heap: %d/%d bytes used\r\n", ustub.HeapUsed(), ustub.HeapCapacity()))
	case "sleep_test":
		elapsed := demo.SleepAccuracy()
		write(fmt.Sprintf("slept, elapsed=%dms\r\n", elapsed))
	case "thread_test":
		cmdThreadTest()
	case "dbgu_test":
		write("type characters, 'q' ends the echo test\r\n")
		demo.Echo()
	case "software_interrupt":
		write("raising unknown SWI id, expect a kernel panic\r\n")
		ustub.RaiseUnknownSyscall()
	case "undefined_instruction":
		write("raising undefined instruction, expect a kernel panic\r\n")
		ustub.RaiseUndefinedInstruction()
	case "data_abort":
		addr := uint32(0xdeadbeef)
		if len(args) > 0 {
			if v, err := strconv.ParseUint(args[0], 0, 32); err == nil {
				addr = uint32(v)
			}
		}
		write("raising data abort, expect a kernel panic\r\n")
		ustub.RaiseDataAbort(addr)
	case "quit":
		write("shutting down\r\n")
		ustub.RequestShutdown()
		return true
	case "help":
		write(strings.Join(commands, " ") + "\r\n")
	default:
		write(fmt.Sprintf("unknown command: %s\r\n", name))
	}
	return false
}

func cmdThreads() {
	for _, t := range ustub.Threads() {
		write(fmt.Sprintf("%4d  parent=%-4d  %-8s %s\r\n", t.ID, t.ParentID, t.State, t.Reason))
	}
}

func cmdThreadTest() {
	write(fmt.Sprintf("spawning %d threads...\r\n", demo.ThreadTestThreadCount))
	counter := demo.ThreadTest(nil)
	status := "ok"
	if counter != demo.ThreadTestExpectedCounter {
		status = "MISMATCH"
	}
	write(fmt.Sprintf("done, counter=%d expected=%d (%s)\r\n", counter, demo.ThreadTestExpectedCounter, status))
}
