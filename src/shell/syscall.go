package shell

// The raw sys* stubs below are implemented in syscall_riscv64.s: one
// ecall each, arguments and return value in a0..a3, matching
// original_source/eos1/src/shell.rs's sys_* helpers exactly (same
// syscall IDs, same register convention) but issued from Go rather than
// a core::arch::asm! block.
func sysPutchar(c uint64)
func sysGetchar() uint64
func sysFileLen(namePtr, nameLen uint64) int64
func sysFileRead(namePtr, nameLen, bufPtr, bufLen uint64) int64
func sysFileList(index, bufPtr, bufLen uint64) int64
func sysExec(elfPtr, elfLen, argvPtr, argc uint64) int64
func sysDiskRead(sector, bufPtr, bufLen uint64)
func sysFileWrite(namePtr, nameLen, dataPtr, dataLen uint64) int64
func sysChdir(namePtr, nameLen uint64) int64
func sysExit(code uint64)
func sysSchedYield()
func sysGetpid() uint64
func sysWait(statusPtr uint64) int64
func sysPs(bufPtr, bufLen uint64) int64
func sysUptime() uint64

// putchar, getchar, and the rest give the raw sys* stubs Go-friendly
// types, the same division of labor as sys_putchar/sys_getchar and
// user_print!/user_println! did in original_source/.../shell.rs: the
// sys* layer is the narrow ABI, this layer is what the command loop
// actually calls.

func putchar(c byte) {
	sysPutchar(uint64(c))
}

func writeStr(s string) {
	for i := 0; i < len(s); i++ {
		putchar(s[i])
	}
}

func writeLine(s string) {
	writeStr(s)
	putchar('\n')
}

func getchar() byte {
	return byte(sysGetchar())
}

func fileLen(name string) int64 {
	return sysFileLen(strPtr(name), uint64(len(name)))
}

func fileRead(name string, buf []byte) int64 {
	return sysFileRead(strPtr(name), uint64(len(name)), bufPtr(buf), uint64(len(buf)))
}

func fileWrite(name string, data []byte) int64 {
	return sysFileWrite(strPtr(name), uint64(len(name)), bufPtr(data), uint64(len(data)))
}

func fileList(index int, buf []byte) int64 {
	return sysFileList(uint64(index), bufPtr(buf), uint64(len(buf)))
}

func chdir(name string) int64 {
	return sysChdir(strPtr(name), uint64(len(name)))
}

// exec builds the C-style argv array doExec (src/scall) expects —
// argc pointers, each to a NUL-terminated copy of one arg string — and
// issues the EXEC syscall.
func exec(elfData []byte, args []string) int64 {
	strs := make([][]byte, len(args))
	ptrs := make([]uint64, len(args))
	for i, a := range args {
		strs[i] = nulTerminated(a)
		ptrs[i] = bufPtr(strs[i])
	}
	return sysExec(bufPtr(elfData), uint64(len(elfData)), argvBufPtr(ptrs), uint64(len(ptrs)))
}

func diskRead(sector uint64, buf []byte) {
	sysDiskRead(sector, bufPtr(buf), uint64(len(buf)))
}

func exit(code int64) {
	sysExit(uint64(code))
	panic("shell: sysExit returned") // unreachable: the scheduler never resumes an exited task
}

func schedYield() {
	sysSchedYield()
}

func getpid() uint64 {
	return sysGetpid()
}

func wait() int64 {
	return sysWait(0)
}

func ps(buf []byte) int64 {
	return sysPs(bufPtr(buf), uint64(len(buf)))
}

func uptime() uint64 {
	return sysUptime()
}
