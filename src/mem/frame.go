// Package mem implements the kernel's physical frame allocator: a bump
// allocator that hands out zeroed 4KiB frames from the end of the kernel
// image to the top of RAM. It never frees (spec.md §4.1).
package mem

import "sync"

// PGSHIFT/PGSIZE follow the donor's mem.go naming.
const (
	PGSHIFT uint = 12
	PGSIZE  int  = 1 << PGSHIFT
)

// Pa_t is a physical address. Kept as a distinct type (not a bare
// uintptr) so a physical/virtual address mixup is a compile error, per
// biscuit/src/mem/mem.go.
type Pa_t uintptr

// Bytepg_t is a byte-addressed 4KiB page, the unit the allocator hands out.
type Bytepg_t [PGSIZE]uint8

func roundUp(v, b uintptr) uintptr {
	return (v + b - 1) &^ (b - 1)
}

// Physmem_t is the single-hart bump allocator described in spec.md §4.1.
// Unlike biscuit's refcounted, per-CPU freelist allocator, there is no
// free list here: frames are never returned.
type Physmem_t struct {
	sync.Mutex
	next Pa_t // next free physical address
	end  Pa_t // one past the last usable physical address
}

// Physmem is the global frame allocator instance.
var Physmem = &Physmem_t{}

// Init sets up the allocator from the linker-supplied end-of-kernel-image
// address, rounded up to a page boundary, through ramEnd (exclusive).
func (p *Physmem_t) Init(endOfKernel, ramEnd uintptr) {
	p.Lock()
	defer p.Unlock()
	p.next = Pa_t(roundUp(endOfKernel, uintptr(PGSIZE)))
	p.end = Pa_t(ramEnd)
}

// AllocFrame returns a zero-filled 4KiB frame, or 0 on exhaustion. The
// caller must treat 0 as fatal (spec.md §4.1); the allocator itself never
// panics so that exhaustion can be tested without tearing down a process.
func (p *Physmem_t) AllocFrame() Pa_t {
	p.Lock()
	if p.next+Pa_t(PGSIZE) > p.end {
		p.Unlock()
		return 0
	}
	pa := p.next
	p.next += Pa_t(PGSIZE)
	p.Unlock()

	pg := p.Dmap(pa)
	for i := range pg {
		pg[i] = 0
	}
	return pa
}

// Dmap returns a direct-mapped, kernel-reachable byte slice spanning one
// full frame starting at pa. On real hardware this would index into a
// direct-map window established at boot (biscuit/src/mem/dmap.go); in
// this single-address-space kernel RAM is always kernel-reachable
// because the kernel runs in M-mode, so Dmap is the identity mapping
// reinterpreted as a byte slice.
func (p *Physmem_t) Dmap(pa Pa_t) []uint8 {
	return dmapFunc(pa, PGSIZE)
}

// DmapRange is Dmap generalized to an arbitrary, possibly unaligned byte
// range. Physical RAM is contiguous, so a range that spans a page
// boundary is still a single contiguous slice — unlike a virtual range,
// which may not be backed by contiguous frames at all.
func (p *Physmem_t) DmapRange(pa Pa_t, length int) []uint8 {
	return dmapFunc(pa, length)
}

// dmapFunc is replaced through SetBackend: by kernel.Boot with the real
// physical-memory view, and by tests with internal/simhw's fake RAM.
var dmapFunc = func(pa Pa_t, length int) []uint8 {
	panic("mem: Dmap not wired to a physical memory backend")
}

// SetBackend installs the function used to turn a physical address plus
// length into a kernel-reachable byte slice. kernel.Boot calls this once,
// early, with a view over the RAM identity mapping; tests call it with a
// plain Go byte-slice-backed fake (internal/simhw).
func SetBackend(f func(Pa_t, int) []uint8) {
	dmapFunc = f
}

// Next reports the allocator's current bump pointer, for diagnostics and
// tests; it is not part of the spec'd interface.
func (p *Physmem_t) Next() Pa_t {
	p.Lock()
	defer p.Unlock()
	return p.next
}
