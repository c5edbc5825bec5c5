package trap

import (
	"archrv"
	"proc"
)

// currentCtx is the channel vector_riscv64.s's trapEntry uses to hand
// the interrupted Context to dispatch and receive the chosen next
// Context back, rather than passing it as a call argument — the vector
// calls into Go on the kernel's own boot stack (bootSP), not the
// interrupted task's, so there is no argument-passing ABI to get wrong
// by using a plain package variable instead.
var currentCtx *proc.Context_t

// bootSP is the kernel's own stack pointer, captured once at boot
// before interrupts are enabled (see SetBootSP). Every trap, regardless
// of which task it interrupted, runs dispatch on this one stack: task
// stacks (proc.Task_t.Stack) are raw register-context buffers the
// scheduler juggles manually, not stacks the Go runtime's own goroutine
// ever executes on, so Go code must never run with one of them live in
// sp.
var bootSP uintptr

// SetBootSP records the stack the vector switches onto before calling
// into Go. kernel.Boot calls this once, before archrv.WriteMtvec installs
// trapEntry.
func SetBootSP(sp uintptr) {
	bootSP = sp
}

// dispatch is trapEntry's sole call into Go: read the three trap CSRs,
// run Handle, and publish its result back through currentCtx for the
// vector to restore.
func dispatch() {
	cause := archrv.ReadMcause()
	mepc := archrv.ReadMepc()
	mtval := archrv.ReadMtval()
	currentCtx = Handle(cause, mepc, mtval, currentCtx)
}

// trapEntry is implemented in vector_riscv64.s. This forward declaration
// lets Go code (InstallVector) take its address the same way
// proc/unsafe.go's entryAddr does for a kernel task's entry point.
func trapEntry()
