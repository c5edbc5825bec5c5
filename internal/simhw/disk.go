package simhw

// Disk is a flat, infinitely-sized fake block device keyed by sector
// number, for testing packages (like fs) that only need fs.Disk_i's
// ReadSector/WriteSector — unlike VirtioBlk, it has no virtqueue
// protocol to simulate.
type Disk struct {
	sectors map[uint64][512]byte
}

// NewDisk returns an empty fake disk.
func NewDisk() *Disk {
	return &Disk{sectors: make(map[uint64][512]byte)}
}

func (d *Disk) ReadSector(sector uint64, buf []uint8) {
	s := d.sectors[sector]
	copy(buf, s[:])
}

func (d *Disk) WriteSector(sector uint64, data []uint8) {
	var s [512]byte
	copy(s[:], data)
	d.sectors[sector] = s
}
