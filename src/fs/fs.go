// Package fs implements the flat-sector filesystem: a superblock at
// sector 0, directory tables of 8 fixed-size entries, and a data area
// starting at sector 10 (spec.md §4.11, §6.2). Grounded on
// biscuit/src/fs/super.go's superblock-validation idiom and
// biscuit/src/ufs/ufs.go's linear directory-entry scan, collapsed from
// Biscuit's full inode/log/journaled UFS down to the spec's single flat
// directory table with no free-space tracking beyond a per-scan max.
package fs

import "util"

const (
	sectorSize = 512

	magic         = 0x53465331
	superblockSec = 0
	rootDirSec    = 1
	dataAreaStart = 10

	dirEntries   = 8
	dirEntrySize = 64
	nameSize     = 32

	offStartSector = nameSize     // 32
	offSize        = nameSize + 4 // 36
	offFileType    = nameSize + 8 // 40
)

// FileType_t distinguishes a regular file from a subdirectory table
// (spec.md §3 "Directory entry").
type FileType_t uint8

const (
	TypeFile FileType_t = 0
	TypeDir  FileType_t = 1
)

// Chdir/WriteFile error returns, wire-compatible with spec.md §6.3's
// syscall return codes — these are the exact values file_write and
// chdir hand back, not the generic defs.Err_t taxonomy (EFAULT and
// friends are for page-table/translation failures, a different layer).
const (
	ErrNotFound = -1
	ErrNotDir   = -2
	ErrDirFull  = -2
)

// Disk_i is the block device primitive fs needs: 512-byte sector
// read/write. *virtio.Disk_t satisfies it directly, the same way
// biscuit/src/fs/blk.go's Disk_i abstracts its AHCI driver away from the
// block cache above it.
type Disk_i interface {
	ReadSector(sector uint64, buf []uint8)
	WriteSector(sector uint64, data []uint8)
}

// DirEntry is the caller-facing view of one occupied directory slot.
type DirEntry struct {
	Name        string
	StartSector uint32
	Size        uint32
	Type        FileType_t
}

// FS_t is the filesystem driver: the disk it sits on and the current
// directory sector. Single-tasking of FS calls (spec.md §5) makes the
// bare uint32 safe with no lock, the same way the donor's scheduler
// index and keyboard ring are touched only with interrupts masked.
type FS_t struct {
	disk Disk_i
	cwd  uint32
}

// FS is the single filesystem instance wired at boot.
var FS = &FS_t{}

// Init validates the superblock magic and resets the current directory
// to the root (sector 1). A bad magic is a boot-time configuration
// failure and is fatal (spec.md §7).
func (f *FS_t) Init(disk Disk_i) {
	f.disk = disk
	f.cwd = rootDirSec

	sb := make([]uint8, sectorSize)
	f.disk.ReadSector(superblockSec, sb)
	if got := uint32(util.Readn(sb, 4, 0)); got != magic {
		panic("fs: bad superblock magic")
	}
}

// readDir reads the dirEntries-entry directory table at sector.
func (f *FS_t) readDir(sector uint32) []byte {
	buf := make([]uint8, sectorSize)
	f.disk.ReadSector(uint64(sector), buf)
	return buf
}

// entryAt decodes the i'th 64-byte slot of a directory sector buffer.
func entryAt(buf []byte, i int) DirEntry {
	off := i * dirEntrySize
	raw := buf[off : off+dirEntrySize]
	return DirEntry{
		Name:        nulString(raw[:nameSize]),
		StartSector: uint32(util.Readn(raw, 4, offStartSector)),
		Size:        uint32(util.Readn(raw, 4, offSize)),
		Type:        FileType_t(util.Readn(raw, 1, offFileType)),
	}
}

// putEntryAt encodes e into the i'th 64-byte slot of a directory sector
// buffer, zeroing the name field first so a shorter new name doesn't
// leave trailing bytes of a longer old one.
func putEntryAt(buf []byte, i int, e DirEntry) {
	off := i * dirEntrySize
	raw := buf[off : off+dirEntrySize]
	for j := range raw {
		raw[j] = 0
	}
	copy(raw[:nameSize], e.Name)
	util.Writen(raw, 4, offStartSector, int(e.StartSector))
	util.Writen(raw, 4, offSize, int(e.Size))
	util.Writen(raw, 1, offFileType, int(e.Type))
}

// nulString trims b at its first NUL byte, the same truncation
// biscuit/src/ustr/ustr.go's MkUstrSlice does for on-disk names.
func nulString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// List returns (type, name) for every occupied slot of the current
// directory (spec.md §4.11 "list").
func (f *FS_t) List() []DirEntry {
	buf := f.readDir(f.cwd)
	var out []DirEntry
	for i := 0; i < dirEntries; i++ {
		e := entryAt(buf, i)
		if e.StartSector == 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// lookup scans the current directory for name and reports the matching
// entry along with its slot index.
func (f *FS_t) lookup(name string) (DirEntry, int, bool) {
	buf := f.readDir(f.cwd)
	for i := 0; i < dirEntries; i++ {
		e := entryAt(buf, i)
		if e.StartSector == 0 {
			continue
		}
		if e.Name == name {
			return e, i, true
		}
	}
	return DirEntry{}, 0, false
}

// ReadFile returns the contents of name in the current directory, or
// ok=false if it doesn't exist or is a directory (spec.md §4.11 "read
// file").
func (f *FS_t) ReadFile(name string) ([]byte, bool) {
	e, _, found := f.lookup(name)
	if !found || e.Type != TypeFile {
		return nil, false
	}

	content := make([]byte, 0, e.Size)
	sector := uint64(e.StartSector)
	remaining := e.Size
	buf := make([]byte, sectorSize)
	for remaining > 0 {
		f.disk.ReadSector(sector, buf)
		n := util.Min(remaining, uint32(sectorSize))
		content = append(content, buf[:n]...)
		remaining -= n
		sector++
	}
	return content, true
}

// WriteFile creates or overwrites name in the current directory with
// data (spec.md §4.11 "write file"). Overwriting a file leaks its old
// data sectors — the flat filesystem tracks no free list, an accepted
// tradeoff (spec.md §9 "Non-goals"/Open Questions).
//
// The append position is the maximum end-sector observed across the
// *current directory's* entries, starting from dataAreaStart. This
// matches spec.md's stated algorithm exactly; the ambiguity it flags —
// that a sibling directory's files aren't accounted for, so two
// directories can collide on the same sectors — is inherited
// deliberately rather than silently fixed (spec.md §9 Open Questions).
func (f *FS_t) WriteFile(name string, data []byte) int {
	buf := f.readDir(f.cwd)

	maxSector := uint32(dataAreaStart)
	targetIdx := -1
	freeIdx := -1
	for i := 0; i < dirEntries; i++ {
		e := entryAt(buf, i)
		if e.StartSector == 0 {
			if freeIdx == -1 {
				freeIdx = i
			}
			continue
		}
		used := (e.Size + sectorSize - 1) / sectorSize
		if end := e.StartSector + used; end > maxSector {
			maxSector = end
		}
		if e.Name == name {
			targetIdx = i
		}
	}

	idx := targetIdx
	if idx == -1 {
		idx = freeIdx
	}
	if idx == -1 {
		return ErrDirFull
	}

	startSector := uint64(maxSector)
	sector := startSector
	remaining := len(data)
	off := 0
	sec := make([]byte, sectorSize)
	for remaining > 0 {
		n := util.Min(remaining, sectorSize)
		for i := range sec {
			sec[i] = 0
		}
		copy(sec[:n], data[off:off+n])
		f.disk.WriteSector(sector, sec)
		remaining -= n
		off += n
		sector++
	}

	putEntryAt(buf, idx, DirEntry{
		Name:        name,
		StartSector: uint32(startSector),
		Size:        uint32(len(data)),
		Type:        TypeFile,
	})
	f.disk.WriteSector(uint64(f.cwd), buf)
	return 0
}

// Chdir changes the current directory (spec.md §4.11 "chdir"). "/"
// resets to the root directory table at sector 1.
func (f *FS_t) Chdir(name string) int {
	if name == "/" {
		f.cwd = rootDirSec
		return 0
	}

	e, _, found := f.lookup(name)
	if !found {
		return ErrNotFound
	}
	if e.Type != TypeDir {
		return ErrNotDir
	}
	f.cwd = e.StartSector
	return 0
}
