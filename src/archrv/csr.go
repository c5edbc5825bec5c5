// Package archrv holds the machine-mode RISC-V primitives the rest of the
// kernel is built on: CSR access, SATP programming, and the trap-return
// sequence. Every exported function here except the Go helper
// WriteSatpFlush is backed by a hand-written riscv64 assembly stub
// (csr_riscv64.s) rather than Go source, because
// CSR instructions and mret have no Go-expressible equivalent; this
// mirrors the donor's own pattern of isolating the handful of spots where
// a freestanding kernel must drop below the language (biscuit/src/mem/mem.go's
// pg2pmap does the analogous thing for unsafe pointer reinterpretation).
package archrv

// Sv39 satp.MODE value (§4.3: SATP = (mode=8<<60) | root_ppn).
const Sv39Mode = uint64(8) << 60

// ReadMcause, ReadMepc, ReadMtval, and ReadMstatus read their respective
// machine-mode CSRs. WriteMstatus, WriteMscratch, WriteMtvec, WriteMie,
// and WriteSatp write them. All are implemented in csr_riscv64.s.
func ReadMcause() uint64
func ReadMepc() uint64
func ReadMtval() uint64
func ReadMstatus() uint64
func WriteMstatus(v uint64)
func WriteMscratch(v uint64)
func WriteMtvec(v uint64)
func WriteMie(v uint64)
func WriteSatp(v uint64)

// WritePmpaddr0 and WritePmpcfg0 program the first PMP region. Boot
// writes pmpaddr0 = all-ones and pmpcfg0 = NAPOT|RWX (0x1F) to grant every
// lower privilege mode access to all of physical memory before anything
// ever runs below M-mode (original_source/.../main.rs's "1. PMP Init";
// RISC-V machines with PMP implemented deny all S/U-mode memory access
// until at least one region is configured).
func WritePmpaddr0(v uint64)
func WritePmpcfg0(v uint64)

// SfenceVMA invalidates the TLB. Every SATP write must be followed by
// this (spec.md §4.3).
func SfenceVMA()

// WriteSatpFlush programs satp and issues sfence.vma, the pairing every
// scheduler switch and every new address space's first activation needs.
func WriteSatpFlush(rootPPN uint64) {
	WriteSatp(Sv39Mode | rootPPN)
	SfenceVMA()
}

// FenceI flushes the instruction cache, required after the ELF loader
// writes fresh code into a page the hart may have speculatively fetched
// from (spec.md §4.9).
func FenceI()

// Mret performs the trap-return instruction. Go code never returns from
// this call: control transfers to mepc at the privilege mstatus.MPP
// names. The trap vector assembly, not this function, is the real
// caller of mret in the booted kernel; it is exposed here so tests and
// the boot path can reason about the primitive uniformly.
func Mret()

// CurrentSP reads the stack pointer (x2) the caller is currently
// running on. kernel.Boot calls this once, before installing the trap
// vector, to get the value it hands to trap.SetBootSP — the stack every
// trap dispatches on, as opposed to whichever task's raw Stack buffer
// was live in sp when the trap fired (see src/trap's package doc).
func CurrentSP() uint64

// EnterFirstTask sets sp and mepc to a task's saved values and issues
// mret in the same breath, the boot-time equivalent of
// original_source/.../main.rs's final "mv sp, {}" / "csrw mepc, {}" /
// "mret" asm block. Folded into one assembly routine rather than
// separate Go calls for the same reason trapEntry's own epilogue is:
// nothing may run on Go's own stack between setting sp and the mret
// that abandons it. Never returns.
func EnterFirstTask(sp, mepc uint64)
