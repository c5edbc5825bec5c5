// Package elf loads a 64-bit little-endian RISC-V ELF executable into a
// target page table, one page per LOAD segment at a time (spec.md
// §4.9). Grounded on biscuit/src/kernel/chentry.go's use of the
// standard debug/elf package for header validation, generalized from
// chentry's single-field entry patch to full segment loading following
// original_source/eos1/src/elf.rs's load_elf (same per-page translate-or-
// allocate-then-copy loop, same fence.i at the end). stdlib debug/elf —
// see SPEC_FULL.md §8 for why no third-party ELF library applies.
package elf

import (
	"archrv"
	"bytes"
	"debug/elf"
	"mem"
	"util"
	"vm"
)

// Load validates data as a 64-bit little-endian RISC-V executable and
// maps every PT_LOAD segment into root, allocating and zeroing backing
// frames as needed and copying file bytes to the correct intra-page
// offset. The kernel runs in M-mode, where SATP-based translation
// doesn't apply to it, so it writes directly into the physical frames
// even though they are also mapped virtually in root (spec.md §4.9
// rationale). Returns the entry virtual address and ok=true on success;
// ok=false on any malformed input, never a panic — an untrusted user
// binary's shape is not a kernel invariant.
func Load(data []byte, root *vm.Root_t) (uint64, bool) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return 0, false
	}
	if f.Class != elf.ELFCLASS64 || f.Data != elf.ELFDATA2LSB {
		return 0, false
	}
	if f.Machine != elf.EM_RISCV {
		return 0, false
	}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if !loadSegment(data, &prog.ProgHeader, root) {
			return 0, false
		}
	}

	archrv.FenceI()
	return f.Entry, true
}

// loadSegment maps and populates every page ph.Vaddr..ph.Vaddr+ph.Memsz
// spans, leaving any tail past ph.Filesz (BSS) zero because frames come
// pre-zeroed from the allocator (spec.md §4.1 property 2).
func loadSegment(data []byte, ph *elf.ProgHeader, root *vm.Root_t) bool {
	startVPN := ph.Vaddr >> vm.PGSHIFT
	endVPN := (ph.Vaddr + ph.Memsz + vm.PGSIZE - 1) >> vm.PGSHIFT

	for vpn := startVPN; vpn < endVPN; vpn++ {
		pageVA := uintptr(vpn << vm.PGSHIFT)

		pa, ok := vm.TranslateFrame(root, pageVA)
		if !ok {
			pa = mem.Physmem.AllocFrame()
			if pa == 0 {
				return false
			}
			vm.Map(root, pageVA, pa, vm.PTE_U|vm.PTE_R|vm.PTE_W|vm.PTE_X)
		}

		var pageOff uint64
		if vpn == startVPN {
			pageOff = ph.Vaddr % vm.PGSIZE
		}
		processed := (uint64(pageVA) + pageOff) - ph.Vaddr
		if processed >= ph.Filesz {
			continue
		}

		frame := mem.Physmem.DmapRange(pa, vm.PGSIZE)
		remaining := vm.PGSIZE - int(pageOff)
		copyLen := util.Min(remaining, int(ph.Filesz-processed))

		srcOff := ph.Off + processed
		if srcOff+uint64(copyLen) > uint64(len(data)) {
			return false
		}
		copy(frame[pageOff:pageOff+uint64(copyLen)], data[srcOff:srcOff+uint64(copyLen)])
	}
	return true
}
