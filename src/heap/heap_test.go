package heap

import (
	"testing"
	"unsafe"
)

func freshHeap(t *testing.T) *Heap_t {
	t.Helper()
	h := &Heap_t{}
	h.Init()
	return h
}

func TestAllocBasic(t *testing.T) {
	h := freshHeap(t)
	p := h.Alloc(64, 16)
	if p == nil {
		t.Fatal("alloc of 64 bytes failed on a fresh 1MiB heap")
	}
	if uintptr(p)%16 != 0 {
		t.Fatalf("allocation not 16-byte aligned: %x", p)
	}
}

func TestAllocAlignmentGreaterThanHeader(t *testing.T) {
	h := freshHeap(t)
	// Boundary case from spec.md §8: alignment greater than the header's
	// own alignment must still place the user block at an aligned
	// address.
	p := h.Alloc(32, 64)
	if p == nil {
		t.Fatal("alloc failed")
	}
	if uintptr(p)%64 != 0 {
		t.Fatalf("allocation not 64-byte aligned: %x", p)
	}
}

func TestAllocExhaustion(t *testing.T) {
	h := freshHeap(t)
	p := h.Alloc(Size*2, 16)
	if p != nil {
		t.Fatal("expected nil on an allocation larger than the arena")
	}
}

func TestFreeThenReallocSameSize(t *testing.T) {
	h := freshHeap(t)
	p1 := h.Alloc(128, 16)
	if p1 == nil {
		t.Fatal("first alloc failed")
	}
	h.Free(p1, 128)
	p2 := h.Alloc(128, 16)
	if p2 == nil {
		t.Fatal("realloc after free failed")
	}
}

func TestAllocMinimumSizeHostsHeader(t *testing.T) {
	h := freshHeap(t)
	// A 1-byte allocation must still be large enough that freeing it
	// can host a free-list node.
	p := h.Alloc(1, 16)
	if p == nil {
		t.Fatal("alloc failed")
	}
	if headerSize < unsafe.Sizeof(node_t{}) {
		t.Fatalf("headerSize too small: %d", headerSize)
	}
	h.Free(p, 1)
}

func TestManySmallAllocationsDontOverlap(t *testing.T) {
	h := freshHeap(t)
	seen := map[uintptr]bool{}
	for i := 0; i < 100; i++ {
		p := h.Alloc(32, 16)
		if p == nil {
			t.Fatalf("alloc %d failed", i)
		}
		if seen[uintptr(p)] {
			t.Fatalf("allocation %d reused address %x", i, p)
		}
		seen[uintptr(p)] = true
	}
}
