package shell

import "unsafe"

// strPtr and bufPtr turn a Go string/byte-slice into the raw uint64
// address the ecall stubs in syscall_riscv64.s pass as a0/a1/a2/a3 —
// the same unsafe-pointer-reinterpretation shell's own syscalls make of
// user pointers on the kernel side (vm/unsafe.go), done here on the
// user side of the same boundary.
func strPtr(s string) uint64 {
	if len(s) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(unsafe.StringData(s))))
}

func bufPtr(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&b[0])))
}

// argvBufPtr returns the address of ptrs' backing array: the C-style
// argv array sysExec expects, each slot itself a NUL-terminated string
// address built by nulTerminated.
func argvBufPtr(ptrs []uint64) uint64 {
	if len(ptrs) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&ptrs[0])))
}

// nulTerminated copies s with a trailing NUL, the representation doExec
// (src/scall) expects each argv pointer to reference (spec.md §6.4's
// _start(argc, argv) convention).
func nulTerminated(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}
