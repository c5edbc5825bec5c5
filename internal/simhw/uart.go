package simhw

// Uart fakes an 8250-style serial port as a pair of byte queues so
// uart.Uart_t (and anything layered on it — plic, shell, kernel.Printf)
// can be exercised without QEMU. Modeled on smoynes-elsie's simulated
// Console bridging a real terminal to a fake keyboard/display.
type Uart struct {
	out []uint8
	in  []uint8
	ier uint8
}

// NewUart returns an empty fake UART.
func NewUart() *Uart {
	return &Uart{}
}

// Feed queues bytes as if they had arrived over the wire, for Getc to
// drain later.
func (u *Uart) Feed(b ...uint8) {
	u.in = append(u.in, b...)
}

// Out returns everything written so far via Putc.
func (u *Uart) Out() []uint8 {
	return u.out
}

// RegRead/RegWrite implement the single-byte register protocol of
// uart.Uart_t's Port_i interface: offset 0 is
// RBR/THR, offset 1 is IER, offset 5 is LSR.
func (u *Uart) RegRead(off int) uint8 {
	switch off {
	case 0:
		if len(u.in) == 0 {
			return 0
		}
		c := u.in[0]
		u.in = u.in[1:]
		return c
	case 5:
		var lsr uint8 = 1 << 5 // THR always empty in the fake
		if len(u.in) > 0 {
			lsr |= 1 << 0
		}
		return lsr
	default:
		return 0
	}
}

func (u *Uart) RegWrite(off int, v uint8) {
	switch off {
	case 0:
		u.out = append(u.out, v)
	case 1:
		u.ier = v
	}
}

// IER returns the last value written to the interrupt-enable register,
// for tests asserting plic.Init flips it.
func (u *Uart) IER() uint8 {
	return u.ier
}
