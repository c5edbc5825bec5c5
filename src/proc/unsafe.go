package proc

import (
	"reflect"
	"unsafe"
)

// stackTop returns the 16-byte-aligned top-of-stack address of a
// freshly allocated kernel stack, the sp (x2) value a new Context
// starts with. RISC-V requires 16-byte stack alignment at a call
// boundary; original_source/.../task.rs computes the same
// `stack_top & !0xF` via a raw pointer cast.
func stackTop(stack []uint8) uint64 {
	top := uintptr(unsafe.Pointer(&stack[len(stack)-1])) + 1
	return uint64(top) &^ 0xF
}

// entryAddr returns the machine code address a Go func value will run
// at, the Go-side equivalent of original_source/.../task.rs casting an
// `extern "C" fn() -> !` to a u64 to seed Context.mepc. Only meaningful
// for boot-time kernel tasks (the shell, the background task), which
// run against the kernel's own page table rather than a freshly loaded
// ELF.
func entryAddr(fn func()) uint64 {
	return uint64(reflect.ValueOf(fn).Pointer())
}
