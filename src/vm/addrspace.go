package vm

import (
	"defs"
	"mem"
)

// As_t is a process address space: its root page table plus the flags
// used when growing it. A task whose root-PPN is 0 (spec.md §3 Task's
// "0 = use kernel root") is given an As_t whose Root is KernelRoot by
// its caller; a nil Root is not resolved here, and the walked
// translation paths return EFAULT for it.
type As_t struct {
	Root *Root_t
}

// KernelRoot is installed once at boot and shared (in the upper half) by
// every user address space.
var KernelRoot *Root_t

// SetKernelRoot records the root table built during boot mapping
// (spec.md §4.4); NewUserAs copies its entries into every new user root.
func SetKernelRoot(r *Root_t) {
	KernelRoot = r
}

// NewUserAs derives a fresh address space sharing the kernel's upper-half
// mappings (spec.md §4.3).
func NewUserAs() *As_t {
	if KernelRoot == nil {
		panic("vm: NewUserAs called before SetKernelRoot")
	}
	return &As_t{Root: NewUserPageTable(KernelRoot)}
}

// TranslateUser resolves a user virtual address plus length into a
// kernel-reachable byte slice, honoring the direct physical-RAM window
// the fast path uses for addresses already inside RAM (spec.md §4.8).
// It never dereferences the raw pointer itself; every byte returned is
// reached by first walking the page table (or recognizing the direct
// window) as spec.md §9's "Raw user pointers" note requires.
func (as *As_t) TranslateUser(vaddr uint64, length int) ([]uint8, defs.Err_t) {
	if defs.InDirectWindow(vaddr) {
		if length > 0 && !defs.InDirectWindow(vaddr+uint64(length)-1) {
			return nil, -defs.EFAULT
		}
		return mem.Physmem.DmapRange(mem.Pa_t(vaddr), length), 0
	}
	return as.translateWalked(uintptr(vaddr), length)
}

// translateWalked resolves vaddr through as.Root, handling the case
// where the requested range crosses a page boundary by translating each
// page and requiring them to be mapped contiguously — the caller passed
// a user buffer, so a hole anywhere inside it is a fault.
func (as *As_t) translateWalked(vaddr uintptr, length int) ([]uint8, defs.Err_t) {
	if as.Root == nil {
		return nil, -defs.EFAULT
	}
	out := make([]uint8, 0, length)
	for remaining, cur := length, vaddr; remaining > 0; {
		pa, ok := Translate(as.Root, cur)
		if !ok {
			return nil, -defs.EFAULT
		}
		pageOff := int(cur) & (PGSIZE - 1)
		n := PGSIZE - pageOff
		if n > remaining {
			n = remaining
		}
		frame, _ := TranslateFrame(as.Root, cur)
		page := mem.Physmem.Dmap(frame)
		out = append(out, page[pageOff:pageOff+n]...)
		_ = pa
		remaining -= n
		cur += uintptr(n)
	}
	return out, 0
}

// CopyinString is a convenience wrapper used by the syscall dispatcher
// for name arguments (spec.md §6.3's name_ptr/name_len pairs).
func (as *As_t) CopyinString(ptr uint64, length int) (string, defs.Err_t) {
	b, err := as.TranslateUser(ptr, length)
	if err != 0 {
		return "", err
	}
	return string(b), 0
}

// CopyoutUser writes data into the user buffer at vaddr, translating
// through the page table exactly like TranslateUser. It returns
// len(data) on success; in the walked case, a page that is not mapped
// stops the copy and it returns the bytes written before that page
// together with EFAULT.
//
// The direct-window case can copy straight into TranslateUser's result:
// DmapRange aliases physical RAM. The walked case cannot — Translate's
// per-page lookup has no aliased view spanning the whole range to copy
// into, only the frame number for each page — so it writes each page's
// share of data back through its own mem.Physmem.Dmap(frame) view
// instead (the same frame lookup translateWalked uses for reads), one
// page at a time.
func (as *As_t) CopyoutUser(vaddr uint64, data []uint8) (int, defs.Err_t) {
	if defs.InDirectWindow(vaddr) {
		dst, err := as.TranslateUser(vaddr, len(data))
		if err != 0 {
			return 0, err
		}
		return copy(dst, data), 0
	}
	return as.copyoutWalked(uintptr(vaddr), data)
}

// copyoutWalked is translateWalked's write-side twin: it walks the same
// page table, but writes through each frame's Dmap view instead of
// appending into a detached output slice.
func (as *As_t) copyoutWalked(vaddr uintptr, data []uint8) (int, defs.Err_t) {
	if as.Root == nil {
		return 0, -defs.EFAULT
	}
	written := 0
	for remaining, cur := len(data), vaddr; remaining > 0; {
		frame, ok := TranslateFrame(as.Root, cur)
		if !ok {
			return written, -defs.EFAULT
		}
		pageOff := int(cur) & (PGSIZE - 1)
		n := PGSIZE - pageOff
		if n > remaining {
			n = remaining
		}
		page := mem.Physmem.Dmap(frame)
		copy(page[pageOff:pageOff+n], data[written:written+n])
		written += n
		remaining -= n
		cur += uintptr(n)
	}
	return written, 0
}
