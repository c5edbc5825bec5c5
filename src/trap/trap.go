// Package trap decodes machine-mode trap causes and routes them to the
// timer, external-IRQ, syscall, or fault handler, returning the Context
// to resume (spec.md §4.5/§4.6). Grounded on
// original_source/eos1/src/trap.rs's handle_trap, restated around
// proc.Scheduler's Schedule()/Exit() as the single task-switch mechanism
// every donor-style trap handoff shares: a function that returns "what
// runs next" rather than resuming unconditionally.
package trap

import (
	"diag"
	"plic"
	"proc"
)

// mcause interrupt bit and exception codes (spec.md §4.6).
const (
	interruptBit = uint64(1) << 63

	causeTimer    = 7
	causeExternal = 11
	causeEcall    = 8
)

// Syscall is the hook kernel.Boot wires scall.Dispatch into, kept as a
// plain func value rather than an import so trap does not depend on
// scall directly — scall already depends on proc and fs, and a
// two-way import would cycle if scall ever needed to force a
// reschedule through trap.
var Syscall func(ctx *proc.Context_t) *proc.Context_t

// uartIRQ is the PLIC source line HandleInterrupt claims against
// (spec.md §6.1: UART IRQ = 10). kernel.Boot overrides it via SetUartIRQ
// if the platform ever changes.
var uartIRQ = 10

// SetUartIRQ overrides the PLIC source line external traps claim,
// mirroring defs.UARTIRQ without importing defs here; kernel.Boot passes
// defs.UARTIRQ in.
func SetUartIRQ(irq int) {
	uartIRQ = irq
}

// The timer re-arm hook is a package var rather than a direct clint
// import so Handle's branch logic can be unit tested without a real
// MMIO backend; kernel.Boot wires the real one once at startup.
var (
	reArmTimer = func() { panic("trap: reArmTimer not wired") }
)

// WireTimer installs the function Handle calls to re-arm the next timer
// tick (kernel.Boot passes clint.Clint.SetNext).
func WireTimer(f func()) {
	reArmTimer = f
}

// Handle decodes cause (an mcause value, already read) and routes to
// the timer, external-IRQ, syscall, or fault path, returning the
// Context to resume. Exposed as a pure function of its inputs — rather
// than re-reading mcause/mepc/mtval itself — so the branch logic is
// testable without real CSR access; dispatch (entry.go) is the thin
// wrapper the vector actually calls, which supplies those three values
// from archrv and hands the result back to the assembly.
func Handle(cause uint64, mepc, mtval uint64, ctx *proc.Context_t) *proc.Context_t {
	if cause&interruptBit != 0 {
		switch cause &^ interruptBit {
		case causeTimer:
			return handleTimer()
		case causeExternal:
			return handleExternal()
		default:
			return handleFault(cause, mepc, mtval)
		}
	}

	if cause == causeEcall {
		return handleEcall(ctx)
	}
	return handleFault(cause, mepc, mtval)
}

// handleTimer re-arms the next tick and preempts to the next runnable
// task (spec.md §4.6 "7 is machine timer").
func handleTimer() *proc.Context_t {
	reArmTimer()
	return proc.Scheduler.Schedule()
}

// handleExternal claims and services the pending PLIC IRQ, then resumes
// the interrupted task unchanged — external IRQs do not themselves
// reschedule (spec.md §4.6 "11 is machine external").
func handleExternal() *proc.Context_t {
	plic.Plic.HandleInterrupt(uartIRQ)
	return proc.Scheduler.Current().ContextPtr()
}

// handleEcall routes a U-mode ecall to the syscall dispatcher. mepc
// advancement past the ecall instruction is the dispatcher's
// responsibility (spec.md §4.6: "unless the syscall itself has already
// rewritten mepc"), not trap's.
func handleEcall(ctx *proc.Context_t) *proc.Context_t {
	if Syscall == nil {
		panic("trap: ecall received before scall.Dispatch was wired")
	}
	return Syscall(ctx)
}

// handleFault logs the crash and terminates the current task, resuming
// whatever the scheduler picks next — normally the shell (spec.md §7
// "User faults", §8 scenario 4 "Fault recovery").
func handleFault(cause, mepc, mtval uint64) *proc.Context_t {
	diag.ReportCrash(cause, mepc, mtval)
	return proc.Scheduler.Exit(-1)
}
