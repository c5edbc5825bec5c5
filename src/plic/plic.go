// Package plic drives the Platform-Level Interrupt Controller: enabling
// the UART's IRQ line, claiming/completing external interrupts, and
// draining the UART into a 256-byte keyboard ring buffer the getchar
// syscall pops from (spec.md §3 "Keyboard ring buffer", §4.12).
// Grounded on original_source/eos1/src/plic.rs's init/handle_interrupt,
// with the ring buffer reworked in the shape of
// biscuit/src/circbuf/circbuf.go's head/tail bookkeeping (single
// producer, single consumer, no backing-page indirection needed since
// this buffer is fixed-size and kernel-only).
package plic

import (
	"defs"
	"mem"
	"uart"
)

const (
	offPriority  = 0x0
	offEnable    = 0x2000
	offThreshold = 0x200000
	offClaim     = 0x200004
)

// Reg_i is the 32-bit register read/write primitive a PLIC backend
// provides.
type Reg_i interface {
	Read32(off int) uint32
	Write32(off int, v uint32)
}

type mmioReg struct {
	base mem.Pa_t
}

func (r mmioReg) Read32(off int) uint32 {
	b := mem.Physmem.DmapRange(r.base+mem.Pa_t(off), 4)
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (r mmioReg) Write32(off int, v uint32) {
	b := mem.Physmem.DmapRange(r.base+mem.Pa_t(off), 4)
	b[0], b[1], b[2], b[3] = uint8(v), uint8(v>>8), uint8(v>>16), uint8(v>>24)
}

// keyBufSize is the keyboard ring buffer's capacity (spec.md §3).
const keyBufSize = 256

// Plic_t owns the interrupt controller's register access and the
// keyboard ring buffer it fills from UART external interrupts.
type Plic_t struct {
	reg  Reg_i
	uart *uart.Uart_t

	buf  [keyBufSize]uint8
	head int
	tail int
}

// Plic is the single PLIC instance wired at boot.
var Plic = &Plic_t{}

// Init wires the device at the given MMIO base, enables the UART's IRQ
// line at priority 1 with threshold 0, and enables UART receive
// interrupts (spec.md §4.12).
func (p *Plic_t) Init(base mem.Pa_t, u *uart.Uart_t, irq int) {
	p.reg = mmioReg{base: base}
	p.initCommon(u, irq)
}

// InitReg wires an arbitrary Reg_i backend, used by tests.
func (p *Plic_t) InitReg(reg Reg_i, u *uart.Uart_t, irq int) {
	p.reg = reg
	p.initCommon(u, irq)
}

func (p *Plic_t) initCommon(u *uart.Uart_t, irq int) {
	p.uart = u
	p.head, p.tail = 0, 0
	u.EnableInterrupt()
	p.reg.Write32(offPriority+4*irq, 1)
	p.reg.Write32(offEnable, 1<<uint(irq))
	p.reg.Write32(offThreshold, 0)
}

// HandleInterrupt claims the pending IRQ, and if it is the UART line,
// drains every ready byte into the keyboard ring buffer before
// completing the claim (spec.md §4.12).
func (p *Plic_t) HandleInterrupt(uartIRQ int) {
	irq := p.reg.Read32(offClaim)
	if int(irq) == uartIRQ {
		for {
			c, ok := p.uart.Getc()
			if !ok {
				break
			}
			p.pushKey(c)
		}
	}
	p.reg.Write32(offClaim, irq)
}

func (p *Plic_t) pushKey(c uint8) {
	next := (p.head + 1) % keyBufSize
	if next != p.tail {
		p.buf[p.head] = c
		p.head = next
	}
	// Buffer full: byte dropped, matching
	// original_source/eos1/src/plic.rs's push_key.
}

// PopKey removes and returns the oldest buffered keystroke, or (0,
// false) if the buffer is empty. getchar (spec.md §6.3 #2) returns 0 on
// the empty case per spec.md's "byte or 0".
func (p *Plic_t) PopKey() (uint8, bool) {
	if p.head == p.tail {
		return 0, false
	}
	c := p.buf[p.tail]
	p.tail = (p.tail + 1) % keyBufSize
	return c, true
}

// Getchar implements the getchar syscall semantics directly: byte or 0.
func (p *Plic_t) Getchar() defs.Err_t {
	c, ok := p.PopKey()
	if !ok {
		return 0
	}
	return defs.Err_t(c)
}
