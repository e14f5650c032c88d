// Package demo hosts the end-to-end scenario threads of §8: named,
// directly re-runnable functions that internal/shell's commands and
// cmd/ksim's -bench mode both call, built only atop internal/ustub exactly
// like internal/shell.
package demo

import (
	"sync/atomic"

	"github.com/docweirdo/rost-kernel-sim/internal/ustub"
)

// Echo implements §8 scenario 1: subscribe to DBGU, echo every received
// character back out, and terminate on 'q'. Runs on the calling thread —
// callers that want it concurrent should wrap it in ustub.CreateThread.
func Echo() {
	ustub.Subscribe(ustub.ServiceDBGU)
	defer ustub.Unsubscribe(ustub.ServiceDBGU)

	for {
		c, ok := ustub.ReceiveDBGU(true)
		if !ok {
			continue
		}
		ustub.SendDBGU(c)
		if c == 'q' {
			return
		}
	}
}

// ThreadTestThreadCount and ThreadTestExpectedCounter are §8 scenario 2's
// fixed parameters: 251 threads, each incrementing the shared counter three
// times (once before either sleep, once between the two sleeps, once
// after), for a final count of 3*251 = 753.
const (
	ThreadTestThreadCount     = 251
	ThreadTestExpectedCounter = 3 * ThreadTestThreadCount
)

// ThreadTest implements §8 scenario 2: spawn ThreadTestThreadCount threads,
// each sleeping id*50ms then id*75ms with an increment of a shared counter
// before, between and after, under the implicit single-threaded discipline
// §3's Non-goals rely on (no lock needed — only one thread's Go code ever
// runs kernel-adjacent logic at a time, and this increment is plain
// unsynchronized user code running one thread at a time by construction).
// progress, if non-nil, is called once per thread after it is joined —
// cmd/ksim's -bench mode uses it to drive a progressbar/v3 bar.
func ThreadTest(progress func(joined, total int)) uint32 {
	var counter uint32
	ids := make([]ustub.ThreadID, ThreadTestThreadCount)

	for i := range ids {
		id := uint32(i + 1)
		ids[i] = ustub.CreateThread(func() {
			counter++
			ustub.Sleep(id * 50)
			counter++
			ustub.Sleep(id * 75)
			counter++
		})
	}

	for i, id := range ids {
		ustub.JoinThread(id, 0)
		if progress != nil {
			progress(i+1, len(ids))
		}
	}

	return counter
}

// SleepAccuracy implements §8 scenario 3: measure the elapsed real time
// across a single Sleep(5000) call. Returns the reported elapsed
// milliseconds for the caller to compare against the 50ms tolerance §8
// specifies.
func SleepAccuracy() uint32 {
	return ustub.Sleep(5000)
}

// PreemptionProbe implements §8 scenario 4: thread A spins in a tight,
// cooperative-checkpoint-calling busy loop (the adaptation irq.go documents
// — a real ARM9 core would be forcibly preempted mid-instruction, which a
// goroutine-hosted simulation cannot do to another goroutine's arbitrary
// code) while thread B sleeps 100ms; the function returns once B's sleep
// completes, alongside how many checkpoint spins A made in the meantime, so
// a caller can sanity-check that A actually ran rather than starving.
func PreemptionProbe() (spinCount uint64) {
	var spins atomic.Uint64
	var stop atomic.Bool

	aID := ustub.CreateThread(func() {
		for !stop.Load() {
			spins.Add(1)
			ustub.Checkpoint()
		}
	})

	bID := ustub.CreateThread(func() {
		ustub.Sleep(100)
	})

	ustub.JoinThread(bID, 0)
	stop.Store(true)
	ustub.JoinThread(aID, 0)

	return spins.Load()
}
