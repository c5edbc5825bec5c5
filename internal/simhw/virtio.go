package simhw

// VirtioBlk fakes a legacy VirtIO-MMIO block device: it answers the
// magic/version/device-ID probe, accepts any feature negotiation, and
// completes descriptor chains written to its backing RAM immediately
// (no ring polling loop) by copying between a sector store and whatever
// RAM addresses the driver's descriptors name. Modeled on the same
// register-fake pattern as Plic/Clint above.
type VirtioBlk struct {
	ram     *RAM
	regs    map[int]uint32
	sectors map[uint64][512]byte
	usedIdx uint32
}

// NewVirtioBlk returns a fake block device backed by ram, whose sector
// contents the driver's descriptor chain addresses point into.
func NewVirtioBlk(ram *RAM) *VirtioBlk {
	return &VirtioBlk{
		ram:     ram,
		regs:    make(map[int]uint32),
		sectors: make(map[uint64][512]byte),
	}
}

// SeedSector installs the initial 512 bytes of sector s, as the image
// packer would have written them to the real disk image.
func (v *VirtioBlk) SeedSector(s uint64, data []uint8) {
	var buf [512]byte
	copy(buf[:], data)
	v.sectors[s] = buf
}

// Sector returns the current contents of sector s, for assertions after
// a simulated write.
func (v *VirtioBlk) Sector(s uint64) [512]byte {
	return v.sectors[s]
}

const (
	regMagic    = 0x000
	regVersion  = 0x004
	regDeviceID = 0x008
	regQueueMax = 0x034
	regQueuePFN = 0x040
	regNotify   = 0x050
)

func (v *VirtioBlk) Read32(off int) uint32 {
	switch off {
	case regMagic:
		return 0x74726976
	case regVersion:
		return 1
	case regDeviceID:
		return 2
	case regQueueMax:
		return 32
	default:
		return v.regs[off]
	}
}

func (v *VirtioBlk) Write32(off int, val uint32) {
	v.regs[off] = val
	if off != regNotify {
		return
	}
	v.handleNotify()
}

// handleNotify walks the one descriptor chain the avail ring names,
// performs the read or write against v.sectors, writes the status byte,
// and advances the used ring — synchronously, since this fake has no
// separate device thread to race against the driver's spin loop.
func (v *VirtioBlk) handleNotify() {
	descPA := uint64(v.regs[regQueuePFN]) << 12
	descBase := int(descPA - uint64(v.ram.Base()))

	avail := descBase + 512
	availIdx := v.ram.buf[avail+2 : avail+4]
	idx := uint16(availIdx[0]) | uint16(availIdx[1])<<8
	ring := v.ram.buf[avail+4:]
	head := uint16(ring[(int(idx-1)%32)*2]) | uint16(ring[(int(idx-1)%32)*2+1])<<8

	hdrDesc := v.descAt(descBase, int(head))
	dataDesc := v.descAt(descBase, int(hdrDesc.next))
	statusDesc := v.descAt(descBase, int(dataDesc.next))

	hdrOff := int(hdrDesc.addr - uint64(v.ram.Base()))
	typ := uint32(v.ram.buf[hdrOff]) | uint32(v.ram.buf[hdrOff+1])<<8 |
		uint32(v.ram.buf[hdrOff+2])<<16 | uint32(v.ram.buf[hdrOff+3])<<24
	sectorOff := hdrOff + 8
	sector := uint64(0)
	for i := 0; i < 8; i++ {
		sector |= uint64(v.ram.buf[sectorOff+i]) << (8 * i)
	}

	dataOff := int(dataDesc.addr - uint64(v.ram.Base()))
	sec := v.sectors[sector]
	if typ == 0 { // read
		copy(v.ram.buf[dataOff:dataOff+512], sec[:])
	} else { // write
		copy(sec[:], v.ram.buf[dataOff:dataOff+512])
		v.sectors[sector] = sec
	}

	statusOff := int(statusDesc.addr - uint64(v.ram.Base()))
	v.ram.buf[statusOff] = 0

	usedBase := descBase + 4096
	v.usedIdx++
	v.ram.buf[usedBase+2] = uint8(v.usedIdx)
	v.ram.buf[usedBase+3] = uint8(v.usedIdx >> 8)
}

type fakeDesc struct {
	addr uint64
	next uint16
}

func (v *VirtioBlk) descAt(descBase, i int) fakeDesc {
	off := descBase + i*16
	b := v.ram.buf
	addr := uint64(0)
	for j := 0; j < 8; j++ {
		addr |= uint64(b[off+j]) << (8 * j)
	}
	next := uint16(b[off+14]) | uint16(b[off+15])<<8
	return fakeDesc{addr: addr, next: next}
}
