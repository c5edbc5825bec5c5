// Command mkfs packs a host directory tree into a disk image in the
// flat-sector format src/fs reads (spec.md §4.11, §6.2): a superblock
// at sector 0, a root directory table of up to 8 entries at sector 1,
// and a data area starting at sector 10 where file contents and
// subdirectory tables live.
//
// The recursive packing algorithm — allocate a sector for a directory's
// own table, then walk its children depth-first writing each file's
// sectors or each subdirectory's table before returning — is grounded
// directly on original_source/mkfs/src/main.rs's process_directory.
// The host-side tree walk and CLI shape follow
// biscuit/src/mkfs/mkfs.go's use of os.ReadDir over a source directory;
// unlike that tool, this one writes the wire format directly with
// util.Writen rather than going through a live UFS, since there is no
// in-memory filesystem instance here, only an image file.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sys/unix"

	"util"
)

const (
	sectorSize = 512

	magic         = 0x53465331
	superblockSec = 0
	rootDirSec    = 1
	dataAreaStart = 10

	dirEntries   = 8
	dirEntrySize = 64
	nameSize     = 32

	offStartSector = nameSize
	offSize        = nameSize + 4
	offFileType    = nameSize + 8

	typeFile = 0
	typeDir  = 1
)

// packer accumulates sectors as it walks the source tree and owns the
// single allocation cursor original_source/mkfs/src/main.rs calls
// CURRENT_SECTOR.
type packer struct {
	sectors map[uint64][]byte
	next    uint64
	files   uint32
}

func newPacker() *packer {
	return &packer{sectors: make(map[uint64][]byte), next: dataAreaStart}
}

func (p *packer) alloc() uint64 {
	s := p.next
	p.next++
	return s
}

func (p *packer) put(sector uint64, data []byte) {
	buf := make([]byte, sectorSize)
	copy(buf, data)
	p.sectors[sector] = buf
}

// writeFile copies a host file's bytes into consecutive sectors
// starting at a freshly allocated one, rounding up to whole sectors the
// way fs.ReadFile's sequential read expects.
func (p *packer) writeFile(path string) (start uint64, size uint32, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	start = p.next
	for off := 0; off < len(data) || (len(data) == 0 && off == 0); off += sectorSize {
		end := off + sectorSize
		if end > len(data) {
			end = len(data)
		}
		p.put(p.alloc(), data[off:end])
		if len(data) == 0 {
			break
		}
	}
	return start, uint32(len(data)), nil
}

// packDir allocates a table sector for dir, fills it with up to
// dirEntries children (files written to the data area, subdirectories
// recursed into first so their own table sector already exists), and
// returns the sector the table was written to.
func (p *packer) packDir(dir string) (uint64, error) {
	return p.packDirAt(dir, p.alloc())
}

// packDirAt is packDir with an explicit table sector, the special case
// original_source/mkfs/src/main.rs uses once: the root directory always
// lands at its fixed sector (rootDirSec) rather than wherever the
// CURRENT_SECTOR cursor happens to be.
func (p *packer) packDirAt(dir string, sector uint64) (uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	if len(entries) > dirEntries {
		log.Printf("mkfs: %s has %d entries, only first %d fit", dir, len(entries), dirEntries)
		entries = entries[:dirEntries]
	}

	buf := make([]byte, sectorSize)
	for i, ent := range entries {
		childPath := filepath.Join(dir, ent.Name())

		var startSector uint64
		var size uint32
		var ftype int

		if ent.IsDir() {
			s, err := p.packDir(childPath)
			if err != nil {
				return 0, err
			}
			startSector, size, ftype = s, sectorSize, typeDir
		} else {
			s, sz, err := p.writeFile(childPath)
			if err != nil {
				return 0, err
			}
			startSector, size, ftype = s, sz, typeFile
			p.files++
		}

		putEntry(buf, i, ent.Name(), uint32(startSector), size, ftype)
	}

	p.put(sector, buf)
	return sector, nil
}

// putEntry encodes one 64-byte directory slot, matching
// fs.putEntryAt's layout exactly so src/fs can read back what this tool
// writes.
func putEntry(buf []byte, i int, name string, startSector, size uint32, ftype int) {
	off := i * dirEntrySize
	raw := buf[off : off+dirEntrySize]
	if len(name) > nameSize {
		name = name[:nameSize]
	}
	copy(raw[:nameSize], name)
	util.Writen(raw, 4, offStartSector, int(startSector))
	util.Writen(raw, 4, offSize, int(size))
	util.Writen(raw, 1, offFileType, ftype)
}

func (p *packer) writeImage(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sb := make([]byte, sectorSize)
	util.Writen(sb, 4, 0, magic)
	util.Writen(sb, 4, 4, int(p.files))
	p.sectors[superblockSec] = sb

	var last uint64
	for s := range p.sectors {
		if s > last {
			last = s
		}
	}

	for s := uint64(0); s <= last; s++ {
		buf, ok := p.sectors[s]
		if !ok {
			buf = make([]byte, sectorSize)
		}
		if _, err := f.WriteAt(buf, int64(s)*sectorSize); err != nil {
			return err
		}
	}

	return unix.Fsync(int(f.Fd()))
}

func main() {
	if len(os.Args) != 3 {
		fmt.Printf("usage: %s <source-dir> <image-out>\n", os.Args[0])
		os.Exit(1)
	}
	src, out := os.Args[1], os.Args[2]

	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		log.Fatalf("mkfs: %s is not a directory", src)
	}

	p := newPacker()
	if _, err := p.packDirAt(src, rootDirSec); err != nil {
		log.Fatalf("mkfs: %v", err)
	}

	if err := p.writeImage(out); err != nil {
		log.Fatalf("mkfs: writing %s: %v", out, err)
	}
	fmt.Printf("mkfs: wrote %s (%d files)\n", out, p.files)
}
