package heap

import "testing"

func TestAllocateBumpPointer(t *testing.T) {
	h := New(1024)

	p1, ok := h.Allocate(64, 8)
	if !ok {
		t.Fatalf("allocate 1: expected ok")
	}
	p2, ok := h.Allocate(64, 8)
	if !ok {
		t.Fatalf("allocate 2: expected ok")
	}
	if p2 == p1 {
		t.Fatalf("expected distinct allocations, got p1=%d p2=%d", p1, p2)
	}
	if h.Used() != 128 {
		t.Fatalf("used = %d, want 128", h.Used())
	}
}

func TestAllocateAlignment(t *testing.T) {
	h := New(1024)
	if _, ok := h.Allocate(3, 1); !ok {
		t.Fatalf("allocate 3 bytes: expected ok")
	}
	p, ok := h.Allocate(16, 16)
	if !ok {
		t.Fatalf("allocate aligned: expected ok")
	}
	if p%16 != 0 {
		t.Fatalf("pointer %d not aligned to 16", p)
	}
}

func TestDeallocateReusedByBestFit(t *testing.T) {
	h := New(1024)

	a, _ := h.Allocate(32, 8)
	b, _ := h.Allocate(16, 8)
	_, _ = h.Allocate(32, 8)

	h.Deallocate(b, 16, 8)
	if h.Used() != 64 {
		t.Fatalf("used after dealloc = %d, want 64", h.Used())
	}

	c, ok := h.Allocate(16, 8)
	if !ok {
		t.Fatalf("reallocate: expected ok")
	}
	if c != b {
		t.Fatalf("expected best-fit reuse of freed block at %d, got %d", b, c)
	}

	h.Deallocate(a, 32, 8)
}

func TestAllocateExhaustion(t *testing.T) {
	h := New(64)

	if _, ok := h.Allocate(64, 1); !ok {
		t.Fatalf("allocate entire arena: expected ok")
	}
	if _, ok := h.Allocate(1, 1); ok {
		t.Fatalf("allocate past exhaustion: expected ok=false")
	}
}

func TestFreeReportsBumpRemainder(t *testing.T) {
	h := New(100)
	h.Allocate(40, 1)
	if got := h.Free(); got != 60 {
		t.Fatalf("free = %d, want 60", got)
	}
}
