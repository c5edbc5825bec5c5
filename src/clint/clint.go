// Package clint drives the Core-Local INTerruptor's timer registers:
// reading the free-running counter and re-arming the next timer
// interrupt (spec.md §4.6, §6.1). Grounded on
// original_source/eos1/src/timer.rs's set_next, generalized from a bare
// pointer pair into a Reg_i-backed device the way uart.Uart_t separates
// register access from the MMIO address.
package clint

import (
	"mem"
	"util"
)

// Interval is the number of mtime ticks between timer interrupts
// (original_source/eos1/src/timer.rs's INTERVAL; SPEC_FULL.md §4).
const Interval = uint64(1_000_000)

// Reg_i is the 64-bit register read/write primitive a CLINT backend
// provides.
type Reg_i interface {
	Read64(off int) uint64
	Write64(off int, v uint64)
}

type mmioReg struct {
	base mem.Pa_t
}

func (r mmioReg) Read64(off int) uint64 {
	return uint64(util.Readn(mem.Physmem.DmapRange(r.base+mem.Pa_t(off), 8), 8, 0))
}

func (r mmioReg) Write64(off int, v uint64) {
	util.Writen(mem.Physmem.DmapRange(r.base+mem.Pa_t(off), 8), 8, 0, int(v))
}

// Clint_t is the CLINT device: mtimecmp at +MtimecmpOff, mtime at
// +MtimeOff relative to its base (spec.md §6.1).
type Clint_t struct {
	reg Reg_i
}

// Clint is the single-hart CLINT instance wired at boot.
var Clint = &Clint_t{}

const (
	mtimecmpOff = 0x4000
	mtimeOff    = 0xBFF8
)

// Init wires the device at the given MMIO base (spec.md §6.1, CLINT =
// 0x0200_0000).
func (c *Clint_t) Init(base mem.Pa_t) {
	c.reg = mmioReg{base: base}
}

// InitReg wires an arbitrary Reg_i backend, used by tests.
func (c *Clint_t) InitReg(reg Reg_i) {
	c.reg = reg
}

// Now returns the free-running mtime counter.
func (c *Clint_t) Now() uint64 {
	return c.reg.Read64(mtimeOff)
}

// SetNext re-arms the timer Interval ticks past the current count
// (original_source/eos1/src/timer.rs's set_next).
func (c *Clint_t) SetNext() {
	c.reg.Write64(mtimecmpOff, c.Now()+Interval)
}
