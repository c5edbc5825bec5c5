// Package uart drives the 8250-style serial console at UART0 (spec.md
// §2 item 1, §6.1). It offers byte-level polling I/O and the IRQ-enable
// toggle the PLIC driver flips during boot, grounded on
// original_source/eos1/src/uart.rs's Uart type reworked into Biscuit's
// device-interface idiom (fs/blk.go's Disk_i separates the block driver
// from the thing issuing requests; Port_i does the same here so the
// register-level device can be swapped for internal/simhw's fake without
// touching anything above this package).
package uart

import "mem"

// 8250 register offsets from the UART's base address (spec.md §6.1).
const (
	regRBR = 0 // receiver buffer register (read)
	regTHR = 0 // transmitter holding register (write)
	regIER = 1 // interrupt enable register
	regLSR = 5 // line status register
)

const (
	lsrDataReady = 1 << 0
	lsrThrEmpty  = 1 << 5
)

// Port_i is the single-byte register read/write primitive a UART backend
// provides, whether real MMIO or internal/simhw's fake.
type Port_i interface {
	RegRead(off int) uint8
	RegWrite(off int, v uint8)
}

// mmioPort is the real backend: a direct-mapped view of the UART's MMIO
// registers, one byte per offset (spec.md §6.1: "1-byte-strided
// 8250-style").
type mmioPort struct {
	base mem.Pa_t
}

func (p mmioPort) RegRead(off int) uint8 {
	return mem.Physmem.DmapRange(p.base+mem.Pa_t(off), 1)[0]
}

func (p mmioPort) RegWrite(off int, v uint8) {
	mem.Physmem.DmapRange(p.base+mem.Pa_t(off), 1)[0] = v
}

// Uart_t is a single 8250-compatible device, register access abstracted
// behind Port_i.
type Uart_t struct {
	port Port_i
}

// Uart is the console wired at boot; the diag/shell/kernel packages write
// through it rather than holding their own handle, mirroring the donor's
// single package-level uart.WRITER.
var Uart = &Uart_t{}

// Init wires the device at the given MMIO base address (spec.md §6.1
// UART0 = 0x1000_0000). Tests call InitPort with internal/simhw's fake
// instead.
func (u *Uart_t) Init(base mem.Pa_t) {
	u.port = mmioPort{base: base}
}

// InitPort wires an arbitrary Port_i backend, used by tests.
func (u *Uart_t) InitPort(port Port_i) {
	u.port = port
}

// Putc transmits one byte, polling until the transmit holding register is
// empty so back-to-back writes do not race the device.
func (u *Uart_t) Putc(c uint8) {
	for u.port.RegRead(regLSR)&lsrThrEmpty == 0 {
	}
	u.port.RegWrite(regTHR, c)
}

// Getc returns a received byte and true, or (0, false) if none is
// pending — the non-blocking poll original_source/eos1/src/uart.rs's
// getc performs.
func (u *Uart_t) Getc() (uint8, bool) {
	if u.port.RegRead(regLSR)&lsrDataReady == 0 {
		return 0, false
	}
	return u.port.RegRead(regRBR), true
}

// EnableInterrupt sets IER bit 0 (receive-data-available), the toggle
// plic.Init flips during boot so UART RX raises IRQ 10 (spec.md §4.12).
func (u *Uart_t) EnableInterrupt() {
	u.port.RegWrite(regIER, 1)
}

// Write implements io.Writer so kernel.Printf can wrap the console in an
// ordinary fmt.Fprintf call.
func (u *Uart_t) Write(p []uint8) (int, error) {
	for _, c := range p {
		u.Putc(c)
	}
	return len(p), nil
}
