// Package diag formats a crash report for a faulting task: the trap
// cause, the faulting instruction's address and (best-effort)
// disassembly, and the trap value (spec.md §7 "User faults", §8
// scenario 4 "[Crash] line with mcause=7, mepc=<addr>, mtval=0").
// golang.org/x/arch/riscv64/riscv64asm disassembles the one instruction
// at fault; no donor file to adapt (Biscuit targets x86-64 and
// disassembles with golang.org/x/arch/x86/x86asm instead, the pattern
// other_examples/gokvm's machine.go follows for its own crash paths)
// but the dependency and the "decode one instruction at the fault PC"
// shape both carry over directly.
package diag

import (
	"fmt"
	"mem"
	"uart"

	"golang.org/x/arch/riscv64/riscv64asm"
)

// ReportCrash prints a one-line [Crash] report to the console
// (spec.md §8 scenario 4). cause is the raw mcause value (exception
// code only; the interrupt bit is already stripped by the caller for
// fault paths, but ReportCrash doesn't assume that — it just prints
// whatever it's given).
func ReportCrash(cause, mepc, mtval uint64) {
	fmt.Fprintf(uart.Uart, "[Crash] mcause=%d, mepc=%#x, mtval=%#x %s\n",
		cause, mepc, mtval, disassembleAt(mepc))
}

// disassembleAt decodes the 4-byte instruction word at the physical
// address mepc names. mepc is a physical address here: the kernel's
// boot-time identity mapping (spec.md §4.4) means a faulting PC is
// always directly reachable through the frame allocator's dmap view,
// the same assumption elf.Load and vm.Map rely on when writing program
// text. Returns a placeholder string rather than panicking if the
// bytes can't be read or don't decode to a valid instruction — a crash
// report must never itself crash the kernel.
func disassembleAt(mepc uint64) (s string) {
	defer func() {
		if recover() != nil {
			s = "(unreadable)"
		}
	}()

	raw := mem.Physmem.DmapRange(mem.Pa_t(mepc), 4)
	inst, err := riscv64asm.Decode(raw)
	if err != nil {
		return "(undecodable)"
	}
	return inst.String()
}
