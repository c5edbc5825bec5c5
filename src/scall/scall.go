// Package scall implements the system-call dispatcher: numbered
// operations over a Context, with every user pointer translated through
// the caller's address space before it is touched (spec.md §4.8, §6.3).
// Grounded directly on original_source/eos1/src/syscall.rs's
// dispatcher — same syscall IDs, same a0..a3/a7 register convention,
// same per-case logic for putchar/getchar/file_len/file_read/
// file_write/file_list/chdir/exec/disk_read/exit — restated around
// vm.As_t's CopyinString/CopyoutUser/TranslateUser (the Go-side
// equivalent of the Rust dispatcher's raw core::slice::from_raw_parts
// casts, but refusing rather than trusting an invalid pointer) and
// proc.Scheduler rather than the original's bare global. sched_yield,
// getpid, and wait are supplements spec.md §6.3 adds beyond the
// original dispatcher's surface; ps and uptime are spec.md §9
// supplements backing the shell's "ps"/"uptime" commands.
package scall

import (
	"clint"
	"defs"
	"elf"
	"encoding/binary"
	"fmt"
	"fs"
	"mem"
	"plic"
	"proc"
	"uart"
	"util"
	"virtio"
	"vm"
)

// maxArgLen bounds how far copyinCString will scan for a NUL terminator
// before giving up — user argv strings are short shell tokens, not
// arbitrary data, so an unbounded scan has no legitimate use.
const maxArgLen = 256

// Dispatch is the syscall entry point trap.Handle routes ecalls to
// (kernel.Boot wires it into trap.Syscall). It reads the syscall number
// from a7 and its arguments from a0..a3, performs the operation, writes
// a return value into a0, and returns the Context to resume — normally
// ctx itself with mepc advanced past the ecall, except exit/sched_yield
// which hand back a different task's Context entirely (spec.md §4.6).
func Dispatch(ctx *proc.Context_t) *proc.Context_t {
	id := ctx.Regs[proc.RegA7]
	a0 := ctx.Regs[proc.RegA0]
	a1 := ctx.Regs[proc.RegA1]
	a2 := ctx.Regs[proc.RegA2]
	a3 := ctx.Regs[proc.RegA3]

	as := addressSpace(proc.Scheduler.Current())

	switch id {
	case defs.SYS_PUTCHAR:
		uart.Uart.Putc(uint8(a0))

	case defs.SYS_GETCHAR:
		c, ok := plic.Plic.PopKey()
		if !ok {
			ctx.Regs[proc.RegA0] = 0
		} else {
			ctx.Regs[proc.RegA0] = uint64(c)
		}

	case defs.SYS_FILE_LEN:
		name, err := as.CopyinString(a0, int(a1))
		if err != 0 {
			ctx.Regs[proc.RegA0] = errRet(-1)
			break
		}
		data, ok := fs.FS.ReadFile(name)
		if !ok {
			ctx.Regs[proc.RegA0] = errRet(-1)
		} else {
			ctx.Regs[proc.RegA0] = uint64(len(data))
		}

	case defs.SYS_FILE_READ:
		ctx.Regs[proc.RegA0] = errRet(int64(doFileRead(as, a0, a1, a2, a3)))

	case defs.SYS_FILE_WRITE:
		ctx.Regs[proc.RegA0] = errRet(int64(doFileWrite(as, a0, a1, a2, a3)))

	case defs.SYS_FILE_LIST:
		ctx.Regs[proc.RegA0] = errRet(int64(doFileList(as, a0, a1, a2)))

	case defs.SYS_CHDIR:
		name, err := as.CopyinString(a0, int(a1))
		if err != 0 {
			ctx.Regs[proc.RegA0] = errRet(-1)
			break
		}
		ctx.Regs[proc.RegA0] = errRet(int64(fs.FS.Chdir(name)))

	case defs.SYS_EXEC:
		fmt.Fprintf(uart.Uart, "[Kernel] Spawning process with %d args...\n", a3)
		ctx.Regs[proc.RegA0] = errRet(doExec(as, a0, a1, a2, a3))

	case defs.SYS_DISK_READ:
		buf := make([]uint8, 512)
		virtio.Disk.ReadSector(a0, buf)
		n := util.Min(int(a2), 512)
		as.CopyoutUser(a1, buf[:n])

	case defs.SYS_EXIT:
		fmt.Fprintf(uart.Uart, "[Kernel] Process exited code: %d\n", int64(a0))
		return proc.Scheduler.Exit(int(int64(a0)))

	case defs.SYS_SCHED_YIELD:
		ctx.Mepc += 4
		return proc.Scheduler.Schedule()

	case defs.SYS_GETPID:
		ctx.Regs[proc.RegA0] = uint64(proc.Scheduler.Current().Pid)

	case defs.SYS_WAIT:
		ctx.Regs[proc.RegA0] = errRet(doWait(as, a1))

	case defs.SYS_PS:
		ctx.Regs[proc.RegA0] = errRet(int64(doPs(as, a0, a1)))

	case defs.SYS_UPTIME:
		ctx.Regs[proc.RegA0] = clint.Clint.Now()

	default:
		fmt.Fprintf(uart.Uart, "[Kernel] Unknown syscall: %d\n", id)
	}

	ctx.Mepc += 4
	return ctx
}

// errRet reinterprets a negative int64 return code as the uint64 a0
// value it must be stored as, since Context.Regs is unsigned but
// spec.md's syscall returns are signed (-1, -2, ...).
func errRet(v int64) uint64 {
	return uint64(v)
}

// addressSpace resolves t's address space for user-pointer translation:
// RootPPN == 0 means "use the kernel root" (spec.md §3 Task), the case
// for the boot-spawned shell and background task, which run with the
// kernel's own mappings.
func addressSpace(t *proc.Task_t) *vm.As_t {
	if t.RootPPN == 0 {
		return &vm.As_t{Root: vm.KernelRoot}
	}
	return &vm.As_t{Root: &vm.Root_t{Pa: mem.Pa_t(t.RootPPN << vm.PGSHIFT)}}
}

func doFileRead(as *vm.As_t, namePtr, nameLen, bufPtr, bufLen uint64) int {
	name, err := as.CopyinString(namePtr, int(nameLen))
	if err != 0 {
		return -1
	}
	data, ok := fs.FS.ReadFile(name)
	if !ok {
		return -1
	}
	n := util.Min(len(data), int(bufLen))
	if _, err := as.CopyoutUser(bufPtr, data[:n]); err != 0 {
		return -1
	}
	return n
}

func doFileWrite(as *vm.As_t, namePtr, nameLen, dataPtr, dataLen uint64) int {
	name, err := as.CopyinString(namePtr, int(nameLen))
	if err != 0 {
		return -1
	}
	data, err := as.TranslateUser(dataPtr, int(dataLen))
	if err != 0 {
		return -1
	}
	return fs.FS.WriteFile(name, data)
}

// doFileList copies the index'th directory entry's display name
// ("name" for a file, "name/" for a subdirectory, per
// original_source/eos1/src/syscall.rs's FILE_LIST) into the user
// buffer, clipped to bufLen.
func doFileList(as *vm.As_t, index, bufPtr, bufLen uint64) int {
	entries := fs.FS.List()
	if int(index) >= len(entries) {
		return -1
	}
	e := entries[index]
	name := e.Name
	if e.Type == fs.TypeDir {
		name += "/"
	}
	data := []byte(name)
	n := util.Min(len(data), int(bufLen))
	if _, err := as.CopyoutUser(bufPtr, data[:n]); err != 0 {
		return -1
	}
	return n
}

// doWait reaps a zombie child and, on success, copies its exit code to
// *statusPtr (spec.md §4.8 "wait"). Returns the reaped pid, or -1/-2 per
// proc.Scheduler.Wait's contract.
func doWait(as *vm.As_t, statusPtr uint64) int64 {
	pid, code, rc := proc.Scheduler.Wait(proc.Scheduler.CurrentIndex())
	if rc != 0 {
		return int64(rc)
	}
	if statusPtr != 0 {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(code)))
		as.CopyoutUser(statusPtr, buf[:])
	}
	return int64(pid)
}

// doPs serializes proc.Scheduler's live task snapshot into the user
// buffer, 24 bytes per entry (pid, state, exit code, each a little-endian
// uint64), clipped to as many whole entries as bufLen holds. Returns the
// number of entries written. A new syscall with no original-source
// counterpart (spec.md §9 "ps-style task listing").
func doPs(as *vm.As_t, bufPtr, bufLen uint64) int {
	tasks := proc.Scheduler.Snapshot()
	const entrySize = 24
	n := util.Min(len(tasks), int(bufLen)/entrySize)
	buf := make([]byte, n*entrySize)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(buf[i*entrySize:], uint64(tasks[i].Pid))
		binary.LittleEndian.PutUint64(buf[i*entrySize+8:], uint64(tasks[i].State))
		binary.LittleEndian.PutUint64(buf[i*entrySize+16:], uint64(int64(tasks[i].ExitCode)))
	}
	if _, err := as.CopyoutUser(bufPtr, buf); err != 0 {
		return -1
	}
	return n
}

// doExec allocates a new user address space, loads the ELF image, sets
// up argv on a freshly mapped user stack, and spawns the resulting task
// (spec.md §4.8 "exec", §4.9, §9 "Argument-pointer placement at exec").
// Grounded on original_source/eos1/src/syscall.rs's EXEC arm; argvPtr is
// read as a C-style array of argc pointers into NUL-terminated strings,
// the same representation _start itself receives, rather than the
// original Rust dispatcher's fat-pointer `&str` array (a user-space
// Rust-ism with no equivalent once the standard library is out of
// scope, per spec.md §1).
func doExec(as *vm.As_t, elfPtr, elfLen, argvPtr, argc uint64) int64 {
	elfData, err := as.TranslateUser(elfPtr, int(elfLen))
	if err != 0 {
		return -1
	}

	args, ok := copyinArgv(as, argvPtr, argc)
	if !ok {
		return -1
	}

	newRoot := vm.NewUserPageTable(vm.KernelRoot)
	entry, ok := elf.Load(elfData, newRoot)
	if !ok {
		return -1
	}

	stackFrame := mem.Physmem.AllocFrame()
	if stackFrame == 0 {
		return -1
	}
	vm.Map(newRoot, uintptr(defs.UserStackVA), stackFrame, vm.PTE_U|vm.PTE_R|vm.PTE_W)

	sp, argvVA := pushArgv(stackFrame, defs.UserStackVA, args)

	rootPPN := uint64(newRoot.Pa) >> vm.PGSHIFT
	task := proc.Scheduler.SpawnUser(rootPPN, entry, sp, uint64(len(args)), argvVA)
	fmt.Fprintf(uart.Uart, "[Kernel] Process spawned with PID %d\n", task.Pid)
	return int64(task.Pid)
}

// copyinArgv reads argc pointers starting at argvPtr out of the
// caller's address space, then each NUL-terminated string they point
// to.
func copyinArgv(as *vm.As_t, argvPtr, argc uint64) ([]string, bool) {
	if argc == 0 {
		return nil, true
	}
	raw, err := as.TranslateUser(argvPtr, int(argc)*8)
	if err != 0 {
		return nil, false
	}
	args := make([]string, argc)
	for i := uint64(0); i < argc; i++ {
		strPtr := uint64(util.Readn(raw, 8, int(i)*8))
		s, ok := copyinCString(as, strPtr)
		if !ok {
			return nil, false
		}
		args[i] = s
	}
	return args, true
}

func copyinCString(as *vm.As_t, ptr uint64) (string, bool) {
	buf, err := as.TranslateUser(ptr, maxArgLen)
	if err != 0 {
		return "", false
	}
	for i, c := range buf {
		if c == 0 {
			return string(buf[:i]), true
		}
	}
	return "", false
}

// pushArgv writes args onto the freshly allocated stack frame, strings
// first (top-down, NUL-terminated) followed by an 8-byte-aligned
// pointer array and its NULL terminator, and returns the resulting sp
// and argv virtual addresses. Every offset is computed from the page's
// own base (baseVA for the virtual side, frame for the physical side)
// so a byte written at frame+k reads back correctly at baseVA+k
// (spec.md §9 "Argument-pointer placement at exec").
func pushArgv(frame mem.Pa_t, baseVA uint64, args []string) (spVaddr, argvVaddr uint64) {
	page := mem.Physmem.DmapRange(frame, vm.PGSIZE)
	off := vm.PGSIZE

	strVA := make([]uint64, len(args))
	for i, a := range args {
		b := append([]byte(a), 0)
		off -= len(b)
		copy(page[off:off+len(b)], b)
		strVA[i] = baseVA + uint64(off)
	}

	off = util.Rounddown(off, 8)
	off -= (len(args) + 1) * 8
	argvVaddr = baseVA + uint64(off)
	for i, va := range strVA {
		util.Writen(page, 8, off+i*8, int(va))
	}
	util.Writen(page, 8, off+len(args)*8, 0)

	spVaddr = baseVA + uint64(off)
	return spVaddr, argvVaddr
}
