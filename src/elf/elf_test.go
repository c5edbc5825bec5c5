package elf

import (
	"bytes"
	"encoding/binary"
	"mem"
	"simhw"
	"testing"
	"vm"
)

type elf64Header struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

type elf64ProgHeader struct {
	Type   uint32
	Flags  uint32
	Offset uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

const (
	etExec   = 2
	emRiscv  = 243
	ptLoad   = 1
	phRWX    = 7
	ehSize   = 64
	phSize   = 56
	riscv64c = 2 // ELFCLASS64
	lsbData  = 1 // ELFDATA2LSB
)

// buildELF assembles a minimal single-LOAD-segment 64-bit LE RISC-V
// executable with no section headers, entry at vaddr, and data placed
// starting at vaddr.
func buildELF(t *testing.T, vaddr uint64, data []byte) []byte {
	t.Helper()
	var h elf64Header
	copy(h.Ident[:4], []byte{0x7f, 'E', 'L', 'F'})
	h.Ident[4] = riscv64c
	h.Ident[5] = lsbData
	h.Ident[6] = 1 // EV_CURRENT
	h.Type = etExec
	h.Machine = emRiscv
	h.Version = 1
	h.Entry = vaddr
	h.Phoff = ehSize
	h.Ehsize = ehSize
	h.Phentsize = phSize
	h.Phnum = 1

	ph := elf64ProgHeader{
		Type:   ptLoad,
		Flags:  phRWX,
		Offset: ehSize + phSize,
		Vaddr:  vaddr,
		Paddr:  vaddr,
		Filesz: uint64(len(data)),
		Memsz:  uint64(len(data)),
		Align:  vm.PGSIZE,
	}

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, &h); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, &ph); err != nil {
		t.Fatalf("write phdr: %v", err)
	}
	buf.Write(data)
	return buf.Bytes()
}

func freshRoot(t *testing.T) *vm.Root_t {
	t.Helper()
	ram := simhw.NewRAM(0x8000_0000, 4<<20)
	mem.SetBackend(ram.Dmap)
	mem.Physmem.Init(uintptr(ram.Base()), uintptr(ram.End()))
	return vm.NewKernelRoot()
}

func TestLoadRejectsBadMagic(t *testing.T) {
	root := freshRoot(t)
	if _, ok := Load([]byte("not an elf"), root); ok {
		t.Fatal("Load() on garbage ok = true, want false")
	}
}

func TestLoadRejectsWrongMachine(t *testing.T) {
	root := freshRoot(t)
	img := buildELF(t, 0x2000, []byte("hi"))
	img[18] = 0x3e // EM_X86_64 low byte, not RISC-V
	if _, ok := Load(img, root); ok {
		t.Fatal("Load() with wrong machine ok = true, want false")
	}
}

func TestLoadSinglePageSegment(t *testing.T) {
	root := freshRoot(t)
	data := make([]byte, 64)
	for i := range data {
		data[i] = uint8(i + 1)
	}
	img := buildELF(t, 0x1000, data)

	entry, ok := Load(img, root)
	if !ok {
		t.Fatal("Load() ok = false, want true")
	}
	if entry != 0x1000 {
		t.Fatalf("entry = %#x, want 0x1000", entry)
	}

	pa, ok := vm.Translate(root, uintptr(0x1000))
	if !ok {
		t.Fatal("Translate() after Load ok = false, want true")
	}
	got := mem.Physmem.DmapRange(pa, len(data))
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], data[i])
		}
	}
}

func TestLoadSegmentCrossingPageBoundary(t *testing.T) {
	root := freshRoot(t)
	// Starts 8 bytes before a page boundary and runs 8 bytes past it.
	const vaddr = 0x2000 - 8
	data := make([]byte, 16)
	for i := range data {
		data[i] = uint8(0x80 + i)
	}
	img := buildELF(t, vaddr, data)

	if _, ok := Load(img, root); !ok {
		t.Fatal("Load() ok = false, want true")
	}

	for i := 0; i < len(data); i++ {
		pa, ok := vm.Translate(root, uintptr(vaddr+uint64(i)))
		if !ok {
			t.Fatalf("Translate(%#x) ok = false, want true", vaddr+uint64(i))
		}
		got := mem.Physmem.DmapRange(pa, 1)
		if got[0] != data[i] {
			t.Fatalf("byte %d (vaddr %#x) = %d, want %d", i, vaddr+uint64(i), got[0], data[i])
		}
	}
}

func TestLoadLeavesBssZero(t *testing.T) {
	root := freshRoot(t)
	data := []byte{1, 2, 3, 4}
	var h elf64Header
	copy(h.Ident[:4], []byte{0x7f, 'E', 'L', 'F'})
	h.Ident[4] = riscv64c
	h.Ident[5] = lsbData
	h.Ident[6] = 1
	h.Type = etExec
	h.Machine = emRiscv
	h.Version = 1
	h.Entry = 0x3000
	h.Phoff = ehSize
	h.Ehsize = ehSize
	h.Phentsize = phSize
	h.Phnum = 1

	ph := elf64ProgHeader{
		Type:   ptLoad,
		Flags:  phRWX,
		Offset: ehSize + phSize,
		Vaddr:  0x3000,
		Paddr:  0x3000,
		Filesz: uint64(len(data)),
		Memsz:  256, // far larger than Filesz: the tail is BSS
		Align:  vm.PGSIZE,
	}
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, &h)
	binary.Write(buf, binary.LittleEndian, &ph)
	buf.Write(data)

	if _, ok := Load(buf.Bytes(), root); !ok {
		t.Fatal("Load() ok = false, want true")
	}

	pa, ok := vm.Translate(root, uintptr(0x3000+200))
	if !ok {
		t.Fatal("Translate() into BSS tail ok = false, want true")
	}
	got := mem.Physmem.DmapRange(pa, 1)
	if got[0] != 0 {
		t.Fatalf("BSS byte = %d, want 0", got[0])
	}
}
