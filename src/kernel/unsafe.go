package kernel

import (
	"mem"
	"proc"
	"unsafe"
)

// physView is mem's Dmap backend on the booted kernel: M-mode reaches RAM
// at its own physical address, so a physical range is viewed in place.
func physView(pa mem.Pa_t, length int) []uint8 {
	return unsafe.Slice((*uint8)(unsafe.Pointer(uintptr(pa))), length)
}

// ctxAddr returns the address of ctx as the uint64 mscratch wants: the
// trap vector recovers the current task's Context through this CSR, so
// boot must seed it with the first task's before enabling interrupts.
func ctxAddr(ctx *proc.Context_t) uint64 {
	return uint64(uintptr(unsafe.Pointer(ctx)))
}
