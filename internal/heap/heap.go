// Package heap implements the process-wide allocator spec.md §1 names as an
// out-of-scope external collaborator, but which §4.7 syscalls 20/21
// (Allocate/Deallocate) and §7's OOM behavior still need a real
// implementation of. Grounded on original_source/src/allocator.rs's
// bump-pointer design; unlike that Rust revision's "never deallocates"
// comment (an explicit limitation, not a spec requirement), Deallocate here
// threads freed blocks onto a best-fit free list so the bump pointer isn't
// the only source of space once a thread's stack region is reaped.
package heap

import "sync"

// block is a free region on the free list. There is no backing byte array
// to store a link in (addresses here are pure accounting, not real memory),
// so the link lives in the struct itself instead of being written into the
// freed block's first bytes the way a real allocator would.
type block struct {
	offset uintptr
	size   uint32
	next   *block
}

// Heap is a fixed-size bump/free-list arena, §6's "heap occupies
// 0x2300_0000-0x2400_0000" realized as an accounting range starting at 0
// rather than the real SRAM address (nothing in this simulation
// dereferences the returned value as a real pointer).
type Heap struct {
	mu       sync.Mutex
	size     uint32
	bump     uint32
	freeList *block
	used     uint32
}

// New creates a Heap of the given size in bytes.
func New(size uint32) *Heap {
	return &Heap{size: size}
}

func align(v uint32, a uint32) uint32 {
	if a == 0 {
		a = 1
	}
	return (v + a - 1) &^ (a - 1)
}

// Allocate reserves size bytes aligned to align, first checking the free
// list for a best fit, then falling back to the bump pointer. Returns
// ok=false (the §7 class 3 "null" signal) on exhaustion; never panics —
// OOM is a documented return value, not a kernel-fatal condition, per
// §7's classification (Allocate returning null is explicitly benign).
func (h *Heap) Allocate(size, alignTo uint32) (ptr uintptr, ok bool) {
	if size == 0 {
		size = 1
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if b, prev := h.bestFit(size, alignTo); b != nil {
		aligned := align(uint32(b.offset), alignTo)
		h.used += size
		h.unlinkFree(b, prev)
		if leftover := b.size - (size + (aligned - uint32(b.offset))); leftover > 0 {
			h.pushFree(&block{offset: uintptr(aligned + size), size: leftover})
		}
		return uintptr(aligned), true
	}

	start := align(h.bump, alignTo)
	if uint64(start)+uint64(size) > uint64(h.size) {
		return 0, false
	}
	h.bump = start + size
	h.used += size
	return uintptr(start), true
}

// Deallocate returns a previously allocated block to the free list.
func (h *Heap) Deallocate(ptr uintptr, size, alignTo uint32) {
	if size == 0 {
		size = 1
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.used -= size
	h.pushFree(&block{offset: ptr, size: size})
}

// Used reports the number of bytes currently allocated (the `heap_size`
// shell command's "used" figure).
func (h *Heap) Used() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.used
}

// Free reports the number of bytes the bump pointer has not yet touched,
// ignoring the free list (a lower bound on remaining capacity).
func (h *Heap) Free() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size - h.bump
}

// bestFit scans the free list for the smallest block that still fits size
// bytes at the given alignment, returning it and its predecessor (nil if
// it is the head). Caller must hold h.mu.
func (h *Heap) bestFit(size, alignTo uint32) (best, bestPrev *block) {
	var prev *block
	for b := h.freeList; b != nil; b = b.next {
		aligned := align(uint32(b.offset), alignTo)
		need := size + (aligned - uint32(b.offset))
		if need <= b.size && (best == nil || b.size < best.size) {
			best, bestPrev = b, prev
		}
		prev = b
	}
	return best, bestPrev
}

// unlinkFree removes b (whose predecessor is prev, nil if b is the head)
// from the free list. Caller must hold h.mu.
func (h *Heap) unlinkFree(b, prev *block) {
	if prev == nil {
		h.freeList = b.next
		return
	}
	prev.next = b.next
}

// pushFree prepends b onto the free list. Caller must hold h.mu.
func (h *Heap) pushFree(b *block) {
	b.next = h.freeList
	h.freeList = b
}
