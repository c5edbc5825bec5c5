package simhw

// Plic fakes the PLIC's priority/enable/threshold/claim register file as
// a small map, plus a pending-IRQ queue Raise appends to and Read32(claim)
// drains, so plic.Plic_t's claim/complete cycle is testable without a
// real interrupt controller.
type Plic struct {
	regs    map[int]uint32
	pending []uint32
}

// NewPlic returns an empty fake PLIC.
func NewPlic() *Plic {
	return &Plic{regs: make(map[int]uint32)}
}

// Raise queues irq as the next claim result.
func (p *Plic) Raise(irq uint32) {
	p.pending = append(p.pending, irq)
}

func (p *Plic) Read32(off int) uint32 {
	if off == 0x200004 { // CLAIM
		if len(p.pending) == 0 {
			return 0
		}
		irq := p.pending[0]
		p.pending = p.pending[1:]
		return irq
	}
	return p.regs[off]
}

func (p *Plic) Write32(off int, v uint32) {
	p.regs[off] = v
}

// Reg returns the last value written at off, for assertions on
// priority/enable/threshold setup.
func (p *Plic) Reg(off int) uint32 {
	return p.regs[off]
}
