// Package proc implements the process-control block and round-robin
// scheduler (spec.md §3 "Task"/"Scheduler", §4.7). Grounded on
// original_source/eos1/src/task.rs's Task/Context/Scheduler shape —
// Biscuit's own proc package was not retrieved in the pack (only its
// go.mod stub is present) — restated in the donor's _t-suffixed PCB
// convention the way biscuit/src/accnt/accnt.go's Accnt_t is a small
// per-task record with plain accessor methods.
package proc

import "vm"

const stackSize = 16 * 1024

// State_t is a task's scheduling state (spec.md §3 "States: Running ↔
// Zombie").
type State_t int

const (
	Running State_t = iota
	Zombie
)

// Context_t is the trap-saved register file: the 32 general-purpose
// registers plus the resume address, matching
// original_source/.../task.rs's Context{regs: [u64; 32], mepc: u64}
// exactly — src/trap's vector_riscv64.s saves/restores against this same
// layout.
type Context_t struct {
	Regs [32]uint64
	Mepc uint64
}

// Register indices into Context_t.Regs that the calling convention and
// trap vector care about (spec.md §6.4 "_start receives a0=argc,
// a1=argv").
const (
	RegSP  = 2
	RegA0  = 10
	RegA1  = 11
	RegA2  = 12
	RegA3  = 13
	RegA7  = 17 // syscall number, per the standard RISC-V ecall ABI
)

// Task_t is a process-control block: pid, kernel stack, saved context,
// the root page table it runs under (0 meaning "use the kernel root"),
// and its lifecycle state (spec.md §3 "Task").
type Task_t struct {
	Pid      int
	Stack    []uint8
	Context  Context_t
	RootPPN  uint64
	State    State_t
	ExitCode int
}

// ContextPtr returns the address of t's saved Context, the pointer
// trap.Handle hands back to resume a task unchanged (e.g. after
// servicing an external interrupt that does not itself reschedule).
func (t *Task_t) ContextPtr() *Context_t {
	return &t.Context
}

// rootPPN resolves t's address space to a satp-ready PPN: its own
// RootPPN, or the kernel root's if t shares it (RootPPN == 0), the same
// fallback original_source/.../task.rs's schedule() applies.
func (t *Task_t) rootPPN() uint64 {
	if t.RootPPN != 0 {
		return t.RootPPN
	}
	return uint64(vm.KernelRoot.Pa) >> vm.PGSHIFT
}

func newTask(pid int) *Task_t {
	return &Task_t{Pid: pid, Stack: make([]uint8, stackSize), State: Running}
}

// NewKernelTask builds a task that starts executing entry with a fresh
// kernel stack and the kernel's own page table (RootPPN left 0),
// mirroring original_source/.../task.rs's Task::new_kernel. Used for
// the boot-spawned shell and background task (spec.md §9 "Supplemented
// features").
func NewKernelTask(pid int, entry func()) *Task_t {
	t := newTask(pid)
	t.Context.Regs[RegSP] = stackTop(t.Stack)
	t.Context.Mepc = entryAddr(entry)
	return t
}

// NewUserTask builds a task for a freshly exec'd ELF: its own address
// space (rootPPN), entry point, initial stack pointer, and the
// argc/argv registers the _start(argc, argv) calling convention expects
// (spec.md §4.8 "exec", §6.4).
func NewUserTask(pid int, rootPPN uint64, entry, sp, argc, argv uint64) *Task_t {
	t := newTask(pid)
	t.RootPPN = rootPPN
	t.Context.Mepc = entry
	t.Context.Regs[RegSP] = sp
	t.Context.Regs[RegA0] = argc
	t.Context.Regs[RegA1] = argv
	return t
}
