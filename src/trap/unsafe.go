package trap

import (
	"archrv"
	"reflect"
)

// InstallVector programs mtvec with trapEntry's address in Direct mode
// (spec.md §4.5 "installed in Direct mode"). reflect.ValueOf(fn).Pointer()
// is the same Go-idiom stand-in for a raw function-pointer cast that
// proc/unsafe.go's entryAddr uses for kernel task entry points — here
// the "task" is the trap vector itself.
func InstallVector() {
	addr := reflect.ValueOf(trapEntry).Pointer()
	archrv.WriteMtvec(uint64(addr))
}
