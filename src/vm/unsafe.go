package vm

import "unsafe"

// tableAtPtr reinterprets a direct-mapped page of bytes as the page
// table page it actually holds. Isolated in its own file, as the donor
// does for unsafe-pointer reinterpretation helpers (biscuit/src/mem/mem.go's
// pg2pmap), so the single unsafe cast in the page-table walker is easy to
// audit.
func tableAtPtr(b []uint8) unsafe.Pointer {
	if len(b) < PGSIZE {
		panic("vm: direct-mapped page shorter than PGSIZE")
	}
	return unsafe.Pointer(&b[0])
}
