// Package virtio drives a legacy (version 1) VirtIO-MMIO block device
// over a single 32-entry split virtqueue (spec.md §2 item 5, §3
// "Virtqueue", §4.10). Grounded on original_source/eos1/src/virtio.rs's
// init/read_disk, generalized to also issue writes (spec.md §4.11's
// write_file needs a disk write primitive the original's read-only path
// didn't have) and to track in-flight requests with container/list the
// way biscuit/src/fs/blk.go's BlkList_t does, instead of the original's
// single static request/status pair.
package virtio

import (
	"container/list"
	"mem"
)

// MMIO register offsets, legacy (version 1) layout.
const (
	offMagic          = 0x000
	offVersion        = 0x004
	offDeviceID       = 0x008
	offDeviceFeatures = 0x010
	offDriverFeatures = 0x020
	offGuestPageSize  = 0x028
	offQueueSel       = 0x030
	offQueueNumMax    = 0x034
	offQueueNum       = 0x038
	offQueuePFN       = 0x040
	offQueueNotify    = 0x050
	offStatus         = 0x070
)

const (
	magicValue  = 0x74726976
	versionLeg  = 1
	deviceBlock = 2
)

const (
	statusAcknowledge = 1
	statusDriver      = 2
	statusDriverOK    = 4
	statusFeaturesOK  = 8
)

const (
	queueSize  = 32
	sectorSize = 512
)

const (
	descFNext  = 1
	descFWrite = 2
)

const (
	blkTypeIn  = 0 // read
	blkTypeOut = 1 // write
)

// Reg_i is the 32-bit register read/write primitive a VirtIO-MMIO
// backend provides.
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

// reqCmd_t enumerates the two operations this driver issues.
type reqCmd_t int

const (
	cmdRead reqCmd_t = iota
	cmdWrite
)

// ioReq_t describes one pending block request, the unit
// Disk_t.pending tracks via container/list exactly as fs/blk.go's
// Bdev_req_t does for its block cache.
type ioReq_t struct {
	cmd    reqCmd_t
	sector uint64
	buf    []uint8 // 512 bytes; read fills it, write supplies it
	done   chan struct{}
}

// reqList_t wraps a list.List of *ioReq_t, the same thin container
// fs/blk.go's BlkList_t is over Bdev_block_t.
type reqList_t struct {
	l *list.List
}

func newReqList() *reqList_t {
	return &reqList_t{l: list.New()}
}

func (rl *reqList_t) pushBack(r *ioReq_t) *list.Element {
	return rl.l.PushBack(r)
}

func (rl *reqList_t) remove(e *list.Element) {
	rl.l.Remove(e)
}

func (rl *reqList_t) len() int {
	return rl.l.Len()
}

// Disk_t is the block device driver: its MMIO registers, the virtqueue
// and scratch frames it allocated during negotiation, and the in-flight
// request bookkeeping.
type Disk_t struct {
	reg     Reg_i
	descPA  mem.Pa_t // descriptor table + available ring page
	usedPA  mem.Pa_t // used ring page, immediately after descPA
	scratch mem.Pa_t // per-request header/data/status page
	pending *reqList_t
	usedIdx uint16
}

// Disk is the single block device instance wired at boot.
var Disk = &Disk_t{}

// Init negotiates the legacy VirtIO-MMIO block device at base: verifies
// the magic/version/device-ID, resets, ACKs, negotiates zero features,
// sizes queue 0 at queueSize, and hands the device freshly allocated
// frames: one for the descriptor table and avail ring, the next for the
// used ring, plus a third scratch frame for request buffers (spec.md
// §4.10).
// Any mismatch is a boot-time configuration failure and is fatal
// (spec.md §7).
func (d *Disk_t) Init(base mem.Pa_t) {
	d.InitReg(mmioReg{base: base})
}

// InitReg wires an arbitrary Reg_i backend (used by tests) and runs the
// same negotiation sequence Init does.
func (d *Disk_t) InitReg(reg Reg_i) {
	d.reg = reg
	d.pending = newReqList()

	if d.reg.Read32(offMagic) != magicValue {
		panic("virtio: bad magic")
	}
	if d.reg.Read32(offVersion) != versionLeg {
		panic("virtio: unsupported version, want legacy (1)")
	}
	if d.reg.Read32(offDeviceID) != deviceBlock {
		panic("virtio: device is not a block device")
	}

	d.reg.Write32(offStatus, 0)
	status := uint32(statusAcknowledge | statusDriver)
	d.reg.Write32(offStatus, status)

	d.reg.Read32(offDeviceFeatures)
	d.reg.Write32(offDriverFeatures, 0)
	status |= statusFeaturesOK
	d.reg.Write32(offStatus, status)

	d.reg.Write32(offQueueSel, 0)
	if d.reg.Read32(offQueueNumMax) == 0 {
		panic("virtio: queue 0 has no capacity")
	}
	d.reg.Write32(offQueueNum, queueSize)

	// Two consecutive frames: descriptor table + avail ring, then the
	// used ring (original_source/eos1/src/virtio.rs's init: "allocate
	// two pages to be safe"). The bump allocator hands out consecutive
	// addresses as long as nothing else allocates between these two
	// calls, which boot-time VirtIO negotiation guarantees.
	descPA := mem.Physmem.AllocFrame()
	usedPA := mem.Physmem.AllocFrame()
	scratchPA := mem.Physmem.AllocFrame()
	if descPA == 0 || usedPA == 0 || scratchPA == 0 {
		panic("virtio: out of memory allocating the virtqueue")
	}
	d.descPA = descPA
	d.usedPA = usedPA
	d.scratch = scratchPA

	d.reg.Write32(offGuestPageSize, uint32(mem.PGSIZE))
	d.reg.Write32(offQueuePFN, uint32(descPA>>mem.PGSHIFT))

	status |= statusDriverOK
	d.reg.Write32(offStatus, status)
}

// ReadSector reads one 512-byte sector into buf (len(buf) must be
// sectorSize).
func (d *Disk_t) ReadSector(sector uint64, buf []uint8) {
	d.submit(cmdRead, sector, buf)
}

// WriteSector writes the 512 bytes of data to sector.
func (d *Disk_t) WriteSector(sector uint64, data []uint8) {
	buf := make([]uint8, sectorSize)
	copy(buf, data)
	d.submit(cmdWrite, sector, buf)
}

// submit fills the three-descriptor chain (header, data, status), publishes
// it to the available ring, notifies the device, and spins on the used
// ring's idx until the device completes it (spec.md §4.10 — no IRQ-driven
// completion, one request in flight). It tracks the request in
// d.pending for the duration, mirroring fs/blk.go's Write/Read methods
// wrapping a synchronous MkRequest+AckCh round trip.
func (d *Disk_t) submit(cmd reqCmd_t, sector uint64, buf []uint8) {
	req := &ioReq_t{cmd: cmd, sector: sector, buf: buf, done: make(chan struct{})}
	elem := d.pending.pushBack(req)
	defer d.pending.remove(elem)

	q := tableAt(d.descPA, d.usedPA)

	hdr := &reqHeader_t{typ: blkReqType(cmd), sector: sector}
	hdrPA := d.scratch + scratchHeaderOff
	writeHeader(hdrPA, hdr)

	dataPA := d.scratch + scratchDataOff
	dataBuf := mem.Physmem.DmapRange(dataPA, sectorSize)
	statusPA := d.scratch + scratchStatusOff

	descFlags1 := uint16(descFNext)
	if cmd == cmdRead {
		descFlags1 |= descFWrite
		for i := range dataBuf {
			dataBuf[i] = 0
		}
	} else {
		copy(dataBuf, buf)
	}

	q.desc[0] = virtqDesc_t{addr: uint64(hdrPA), len: uint32(headerSize), flags: descFNext, next: 1}
	q.desc[1] = virtqDesc_t{addr: uint64(dataPA), len: sectorSize, flags: descFlags1, next: 2}
	q.desc[2] = virtqDesc_t{addr: uint64(statusPA), len: 1, flags: descFWrite, next: 0}

	idx := q.avail.idx
	q.avail.ring[idx%queueSize] = 0
	fence()
	q.avail.idx = idx + 1

	d.reg.Write32(offQueueNotify, 0)

	for q.used.idx == d.usedIdx {
		spin()
	}
	d.usedIdx = q.used.idx

	if cmd == cmdRead {
		copy(buf, dataBuf)
	}
	close(req.done)
}

func blkReqType(cmd reqCmd_t) uint32 {
	if cmd == cmdWrite {
		return blkTypeOut
	}
	return blkTypeIn
}
