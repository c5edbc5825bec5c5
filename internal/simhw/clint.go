package simhw

// Clint fakes the CLINT's mtime/mtimecmp register pair so clint.Clint_t
// is testable without real hardware: mtime auto-advances between reads
// the way the caller expects the free-running counter to behave, and
// mtimecmp is just whatever was last written.
type Clint struct {
	mtime    uint64
	mtimecmp uint64
	tick     uint64
}

// NewClint returns a fake CLINT whose mtime advances by tickPerRead on
// every Read64 call (0 to freeze it, for deterministic tests).
func NewClint(tickPerRead uint64) *Clint {
	return &Clint{tick: tickPerRead}
}

func (c *Clint) Read64(off int) uint64 {
	switch off {
	case 0xBFF8:
		v := c.mtime
		c.mtime += c.tick
		return v
	case 0x4000:
		return c.mtimecmp
	default:
		return 0
	}
}

func (c *Clint) Write64(off int, v uint64) {
	if off == 0x4000 {
		c.mtimecmp = v
	}
}

// SetMtime pins the counter to an exact value, bypassing the auto-advance.
func (c *Clint) SetMtime(v uint64) {
	c.mtime = v
}
