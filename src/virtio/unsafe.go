package virtio

import (
	"mem"
	"unsafe"
)

// A legacy split virtqueue's descriptor table and available ring share
// one guest page; the used ring — written by the device — lives on the
// page immediately after it (spec.md §3 "Virtqueue": "three aligned
// regions in one 4 KiB page" for desc+avail, with the device's own
// alignment rules reserving the next page for the used ring).
// original_source/eos1/src/virtio.rs's init allocates exactly this
// pair ("分配兩頁以確保空間足夠" — two pages, to be safe) and QUEUE_PFN
// names only the first.
const (
	availRingOff = 512 // desc table (32*16=512 bytes) ends here
)

// virtqDesc_t is one descriptor table entry (spec.md §3).
type virtqDesc_t struct {
	addr  uint64
	len   uint32
	flags uint16
	next  uint16
}

// virtqAvail_t is the available ring the driver owns.
type virtqAvail_t struct {
	flags uint16
	idx   uint16
	ring  [queueSize]uint16
}

// virtqUsedElem_t/virtqUsed_t make up the used ring the device owns.
type virtqUsedElem_t struct {
	id  uint32
	len uint32
}

type virtqUsed_t struct {
	flags uint16
	idx   uint16
	ring  [queueSize]virtqUsedElem_t
}

// queuePage_t is the direct-mapped view of the descriptor+avail page.
type queuePage_t struct {
	desc  [queueSize]virtqDesc_t
	_     [availRingOff - queueSize*16]uint8
	avail virtqAvail_t
}

// queueView_t exposes the three virtqueue regions as slices/pointers so
// submit() doesn't need to reason about byte offsets directly, following
// vm/unsafe.go's isolated-cast pattern (vm.tableAtPtr) for the one
// unsafe reinterpretation this package needs.
type queueView_t struct {
	desc  []virtqDesc_t
	avail *virtqAvail_t
	used  *virtqUsed_t
}

// tableAt reinterprets the direct-mapped descriptor/avail page at
// descPA and the used-ring page at usedPA (the page immediately after
// it) as a queueView_t.
func tableAt(descPA, usedPA mem.Pa_t) *queueView_t {
	db := mem.Physmem.Dmap(descPA)
	ub := mem.Physmem.Dmap(usedPA)
	qp := (*queuePage_t)(unsafe.Pointer(&db[0]))
	used := (*virtqUsed_t)(unsafe.Pointer(&ub[0]))
	return &queueView_t{desc: qp.desc[:], avail: &qp.avail, used: used}
}

// reqHeader_t is the VirtIO block request header (spec.md §4.10).
type reqHeader_t struct {
	typ    uint32
	_      uint32
	sector uint64
}

const headerSize = 16 // 2*u32 + u64

// The scratch*Off offsets lay out the per-request header, 512-byte data buffer,
// and status byte the descriptor chain points at, all on one page the
// device can DMA into and out of (original_source/eos1/src/virtio.rs
// used separate static globals for these; a single scratch page keeps
// the three physical addresses simple to compute here).
const (
	scratchHeaderOff = 0
	scratchDataOff   = 64 // 8-byte aligned, well clear of the 16-byte header
	scratchStatusOff = scratchDataOff + sectorSize
)

func writeHeader(pa mem.Pa_t, h *reqHeader_t) {
	b := mem.Physmem.DmapRange(pa, headerSize)
	dst := (*reqHeader_t)(unsafe.Pointer(&b[0]))
	*dst = *h
}

// fence orders the descriptor/avail-ring writes above it before the
// QUEUE_NOTIFY write below (spec.md §5 "Memory ordering"). A real
// riscv64 build issues the `fence` instruction here; archrv carries the
// CSR/fence-class primitives a booted kernel would call from this hook.
func fence() {}

// spin is the busy-wait body while polling used.idx (spec.md §4.10:
// "Complete: spin until used.idx changes").
func spin() {}
