// Package kernel wires every leaf package together into the booted
// system: frame/heap/page-table init, device bring-up, the two
// boot-spawned tasks, and the final mret into the shell (spec.md §4.4,
// §4.5). Grounded directly on original_source/eos1/src/main.rs's
// rust_main, step for step: PMP unlock, frame/heap init, page-table
// build and identity mapping, SATP enable, scheduler spawn, device
// init, mtvec/mscratch/mstatus/mie programming, and the final
// sp/mepc/mret handoff — restated against this repository's own
// package boundaries instead of one monolithic function.
package kernel

import (
	"archrv"
	"clint"
	"defs"
	"fmt"
	"fs"
	"heap"
	"mem"
	"plic"
	"proc"
	"scall"
	"shell"
	"trap"
	"uart"
	"virtio"
	"vm"
)

// kernelImageEnd stands in for original_source/.../mm/frame.rs's
// `ekernel` linker symbol: the first byte past the kernel's own
// text/data/bss, where the frame allocator may start handing out pages.
// This repository has no linker script (spec.md's kernel is built and
// reasoned about at the Go-source level, never actually linked), so the
// real symbol has nothing to resolve to; 8MiB of headroom above RAMBase
// is a conservative stand-in, documented here rather than silently
// presented as the genuine article.
const kernelImageEnd = uintptr(defs.RAMBase + 8*1024*1024)

// mstatus field values for the final mret into the shell
// (original_source/.../main.rs: "let mstatus: usize = (0 << 11) | (1 <<
// 7) | (1 << 13);"): MPP = 0 (U-mode is the target privilege),
// MPIE = 1 (so MIE, and hence interrupt delivery, is live immediately
// after mret restores it from MPIE), FS = 1 (Initial) so a user task's
// first floating-point instruction doesn't trap as illegal.
const bootMstatus = uint64(0<<11) | uint64(1<<7) | uint64(1<<13)

// mie bits armed before the first mret: machine external (PLIC) and
// machine timer, matching original_source/.../main.rs's
// "csrrs zero, mie, (1 << 11) | (1 << 7)".
const bootMie = uint64(1<<11) | uint64(1<<7)

// Printf writes a formatted line to the UART console, the kernel's only
// log sink before and after boot (mirrors original_source's println!
// macro and, in spirit, biscuit/src/mem/mem.go's direct fmt.Printf use
// for early-boot diagnostics).
func Printf(format string, args ...any) {
	fmt.Fprintf(uart.Uart, format, args...)
}

// Boot runs the entire startup sequence and transfers control to the
// shell task. It never returns.
func Boot() {
	archrv.WritePmpaddr0(^uint64(0))
	archrv.WritePmpcfg0(0x1F)

	mem.SetBackend(physView)
	mem.Physmem.Init(kernelImageEnd, uintptr(defs.RAMEnd))
	heap.Heap.Init()

	root := vm.NewKernelRoot()
	vm.SetKernelRoot(root)

	// MMIO identity mappings: kernel-only, no PTE_U, matching
	// original_source/.../main.rs's UART/CLINT/PLIC/VirtIO map calls.
	// M-mode execution never consults satp, so nothing in this kernel's
	// own code path actually walks these entries — they are carried for
	// fidelity with the original's boot sequence and in case a future
	// S-mode/U-mode driver ever needs one.
	identityMap(root, defs.UART0Base, uintptr(defs.UART0Base+vm.PGSIZE), vm.PTE_R|vm.PTE_W)
	identityMap(root, defs.CLINTBase, defs.CLINTEnd, vm.PTE_R|vm.PTE_W)
	identityMap(root, defs.PLICBase, defs.PLICEnd, vm.PTE_R|vm.PTE_W)
	identityMap(root, defs.VirtIO0Base, defs.VirtIO0End, vm.PTE_R|vm.PTE_W)

	// RAM identity mapping carries PTE_U: the shell and background task
	// run in U-mode sharing this same root (proc.Task_t.RootPPN left 0,
	// see src/shell's package doc), so every RAM page they touch — their
	// own stacks included — must be user-accessible.
	identityMap(root, defs.RAMBase, defs.RAMEnd, vm.PTE_R|vm.PTE_W|vm.PTE_X|vm.PTE_U)

	archrv.WriteSatpFlush(uint64(root.Pa) >> vm.PGSHIFT)
	Printf("[Kernel] MMU enabled.\n")

	shellTask := proc.Scheduler.SpawnKernel(shell.Entry)
	proc.Scheduler.SpawnKernel(shell.BgTask)

	uart.Uart.Init(defs.UART0Base)
	clint.Clint.Init(defs.CLINTBase)
	plic.Plic.Init(defs.PLICBase, uart.Uart, defs.UARTIRQ)
	virtio.Disk.Init(defs.VirtIO0Base)
	fs.FS.Init(virtio.Disk)
	Printf("[Kernel] Devices initialized.\n")

	trap.Syscall = scall.Dispatch
	trap.WireTimer(clint.Clint.SetNext)
	trap.SetUartIRQ(defs.UARTIRQ)
	trap.SetBootSP(uintptr(archrv.CurrentSP()))
	trap.InstallVector()

	archrv.WriteMscratch(ctxAddr(shellTask.ContextPtr()))
	archrv.WriteMstatus(bootMstatus)
	clint.Clint.SetNext()
	archrv.WriteMie(bootMie)

	Printf("[OS] System ready. Switching to shell...\n")
	archrv.EnterFirstTask(shellTask.Context.Regs[proc.RegSP], shellTask.Context.Mepc)
}

// identityMap maps every page in [start, end) to itself with flags,
// the pattern original_source/.../main.rs repeats for each MMIO range
// and for RAM.
func identityMap(root *vm.Root_t, start, end uintptr, flags vm.Pte_t) {
	for addr := start; addr < end; addr += vm.PGSIZE {
		vm.Map(root, addr, mem.Pa_t(addr), flags)
	}
}
