// Package heap implements the kernel's dynamic-allocation arena: a fixed
// 1MiB, 16-byte-aligned region served by a singly-linked free list using
// first-fit placement (spec.md §4.2). Alloc keeps blocks in address order
// when it splits them; Free pushes a returned block onto the head, so
// once anything has been freed the list is not sorted by address.
package heap

import (
	"sync"
	"unsafe"
)

const (
	// Size is the total size of the backing arena in bytes.
	Size = 1 << 20
	// Align is the minimum alignment of any allocation and of the arena
	// itself.
	Align = 16
)

// node_t is the free-list node header, stored in-place at the start of
// every free block. A freed block must always be large enough to host
// one, which is why allocation sizes are rounded up to at least
// unsafe.Sizeof(node_t{}).
type node_t struct {
	size uintptr // size of this free block, including the header
	next *node_t
}

var headerSize = roundUp(unsafe.Sizeof(node_t{}), Align)

// Heap_t is the kernel's single dynamic-allocation arena.
type Heap_t struct {
	sync.Mutex
	arena []uint8
	base  uintptr
	free  *node_t // head of the free list
}

// Heap is the global kernel heap instance.
var Heap = &Heap_t{}

// Init reserves and carves up the backing arena. Must be called exactly
// once before any Alloc.
func (h *Heap_t) Init() {
	h.Lock()
	defer h.Unlock()
	h.arena = make([]uint8, Size+Align)
	h.base = roundUp(uintptr(unsafe.Pointer(&h.arena[0])), Align)
	first := (*node_t)(unsafe.Pointer(h.base))
	first.size = uintptr(Size)
	first.next = nil
	h.free = first
}

func roundUp(v, b uintptr) uintptr {
	return (v + b - 1) &^ (b - 1)
}

// Alloc returns a pointer to a block of at least size bytes aligned to
// align (which must be a power of two >= Align), or nil when no free
// block is large enough. First-fit over the free list in list order;
// the tail of the chosen block is split off as a new free node when the
// remainder can host one header, otherwise the whole block is handed
// over (spec.md §4.2).
func (h *Heap_t) Alloc(size, align uintptr) unsafe.Pointer {
	if align < Align {
		align = Align
	}
	if size < headerSize {
		size = headerSize
	}
	size = roundUp(size, Align)

	h.Lock()
	defer h.Unlock()

	var prev *node_t
	for n := h.free; n != nil; n = n.next {
		addr := uintptr(unsafe.Pointer(n))
		userAddr := roundUp(addr, align)
		pad := userAddr - addr
		need := pad + size

		if n.size >= need {
			remaining := n.size - need
			var nextFree *node_t
			if remaining >= headerSize {
				tail := (*node_t)(unsafe.Pointer(addr + need))
				tail.size = remaining
				tail.next = n.next
				nextFree = tail
			} else {
				// Not enough room to split off a usable free
				// node: the whole block, including any
				// trailing slack, goes to the caller.
				nextFree = n.next
			}
			if prev == nil {
				h.free = nextFree
			} else {
				prev.next = nextFree
			}
			return unsafe.Pointer(userAddr)
		}
		prev = n
	}
	return nil
}

// Free returns a previously allocated block to the free list. size must
// match (or exceed) the size passed to Alloc, including the alignment
// padding the allocator may have consumed; callers that don't track this
// precisely should over-report size, since Free only needs size to
// satisfy the minimum node_t footprint, never to merge with neighbors
// (no coalescing is attempted — see spec.md §4.2's "fragmentation is
// accepted" rationale).
func (h *Heap_t) Free(p unsafe.Pointer, size uintptr) {
	if size < headerSize {
		size = headerSize
	}
	size = roundUp(size, Align)

	n := (*node_t)(p)
	n.size = size

	h.Lock()
	defer h.Unlock()
	n.next = h.free
	h.free = n
}
