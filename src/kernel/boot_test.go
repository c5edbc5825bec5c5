package kernel

import (
	"encoding/binary"
	"mem"
	"simhw"
	"testing"
	"vm"
)

func freshRoot(t *testing.T) *vm.Root_t {
	t.Helper()
	ram := simhw.NewRAM(0x8000_0000, 4<<20)
	mem.SetBackend(ram.Dmap)
	mem.Physmem.Init(uintptr(ram.Base()), uintptr(ram.End()))
	return vm.NewKernelRoot()
}

func TestIdentityMapTranslatesEveryPageToItself(t *testing.T) {
	root := freshRoot(t)
	start := uintptr(0x8000_0000)
	end := start + 4*vm.PGSIZE

	identityMap(root, start, end, vm.PTE_R|vm.PTE_W|vm.PTE_U)

	for addr := start; addr < end; addr += vm.PGSIZE {
		pa, ok := vm.Translate(root, addr)
		if !ok {
			t.Fatalf("Translate(%#x) ok = false, want true", addr)
		}
		if pa != mem.Pa_t(addr) {
			t.Errorf("Translate(%#x) = %#x, want identity", addr, pa)
		}
	}
}

func TestIdentityMapCarriesRequestedFlags(t *testing.T) {
	root := freshRoot(t)
	identityMap(root, 0x8000_0000, 0x8000_0000+vm.PGSIZE, vm.PTE_R)

	if _, ok := vm.TranslateFrame(root, 0x8000_0000+1); !ok {
		t.Fatal("mapped page did not translate")
	}

	// Walk the three levels by hand to reach the leaf PTE's flag bits.
	va := uintptr(0x8000_0000)
	pa := root.Pa
	var pte vm.Pte_t
	for level := 2; level >= 0; level-- {
		idx := (va >> (vm.PGSHIFT + 9*uint(level))) & (vm.PTEPERPG - 1)
		pte = vm.Pte_t(binary.LittleEndian.Uint64(mem.Physmem.DmapRange(pa+mem.Pa_t(idx*8), 8)))
		if pte.IsLeaf() {
			break
		}
		pa = pte.Ppn()
	}
	if got := pte & (vm.PTE_R | vm.PTE_W | vm.PTE_X | vm.PTE_U); got != vm.PTE_R {
		t.Fatalf("leaf PTE permission bits = %#x, want PTE_R only (%#x)", got, vm.PTE_R)
	}
}
