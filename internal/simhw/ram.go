// Package simhw provides in-memory fakes for the hardware this kernel
// depends on (RAM, UART, VirtIO block device) so packages above mem, vm,
// fs, and virtio can be unit tested without QEMU. Modeled on
// smoynes-elsie's simulated-device bridging (internal/tty.Console wiring
// a real terminal to a simulated keyboard/display).
package simhw

import "mem"

// RAM is a flat byte-slice simulation of physical memory, addressable
// starting at defs.RAMBase. Tests construct one and wire it in with
// mem.SetBackend so the frame allocator and page-table walker operate on
// ordinary Go memory instead of real physical RAM.
type RAM struct {
	base mem.Pa_t
	buf  []uint8
}

// NewRAM allocates a simulated RAM region of size bytes starting at base.
func NewRAM(base mem.Pa_t, size int) *RAM {
	return &RAM{base: base, buf: make([]uint8, size)}
}

// Dmap returns the byte slice backing the length-byte range starting at
// pa, suitable for use as a mem.SetBackend callback.
func (r *RAM) Dmap(pa mem.Pa_t, length int) []uint8 {
	off := int(pa - r.base)
	if off < 0 || off+length > len(r.buf) {
		panic("simhw: RAM.Dmap out of range")
	}
	return r.buf[off : off+length]
}

// Base returns the simulated RAM's starting physical address.
func (r *RAM) Base() mem.Pa_t { return r.base }

// End returns one past the last simulated physical address.
func (r *RAM) End() mem.Pa_t { return r.base + mem.Pa_t(len(r.buf)) }
