// Package shell implements the pid-0 interactive console task and the
// pid-1 background load generator kernel.Boot spawns alongside it
// (spec.md §4.4 boot sequence, §9 "Background CPU-bound task at boot").
// Entry is a line-editing, getchar/putchar command loop translated
// directly from original_source/eos1/src/shell.rs's shell_entry: same
// prompt, same command set (help/ls/cat/cd/write/exec/dread/memtest/
// panic), same backspace (8 or 127) and Enter (10 or 13) handling. ps
// and uptime are spec.md §9 supplements the original shell has no
// equivalent of.
//
// Both tasks run in U-mode (mstatus.MPP is set to User before the first
// mret, spec.md §4.4), sharing the kernel's own page table (RootPPN left
// 0, per src/proc's "use the kernel root" convention) — every kernel
// service they need, including console I/O, crosses through an ecall
// the same way a real user program's would.
package shell

import (
	"fmt"
)

// console adapts writeStr to an io.Writer so the command loop can use
// fmt.Fprintf the way diag and scall do on the kernel side of the same
// syscalls, instead of hand-rolling integer-to-string formatting.
type console struct{}

func (console) Write(p []byte) (int, error) {
	for _, c := range p {
		putchar(c)
	}
	return len(p), nil
}

var out = console{}

const prompt = "eos> "

// Entry is the shell task's machine-code entry point (its address is
// what proc.NewKernelTask stores as Context.Mepc for pid 0).
func Entry() {
	fmt.Fprintln(out, "Shell initialized.")
	var line []byte
	writeStr(prompt)

	for {
		c := getchar()
		if c != 0 {
			switch {
			case c == 13 || c == 10: // Enter
				writeLine("")
				runCommand(string(line))
				line = line[:0]
				writeStr(prompt)

			case c == 127 || c == 8: // Backspace
				if len(line) > 0 {
					line = line[:len(line)-1]
					putchar(8)
					putchar(' ')
					putchar(8)
				}

			default:
				putchar(c)
				line = append(line, c)
			}
		}
		// Polling delay: getchar is non-blocking, so this just spaces
		// out the poll instead of spinning flat-out (matches
		// original_source/.../shell.rs's shell_entry loop).
		for i := 0; i < 1000; i++ {
		}
	}
}

// BgTask is the pid-1 load generator spec.md §9 keeps from
// original_source/.../main.rs's bg_task: pure CPU churn with no
// voluntary yield, so the timer preemption end-to-end scenario
// (spec.md §8 scenario 6) has a task that only the timer IRQ can ever
// preempt.
func BgTask() {
	for {
		for i := 0; i < 5_000_000; i++ {
		}
	}
}

func fields(s string) []string {
	var out []string
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] != ' ' && s[i] != '\t' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, s[start:i])
			start = -1
		}
	}
	return out
}

func parseUint(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		v = v*10 + uint64(s[i]-'0')
	}
	return v, true
}

func runCommand(line string) {
	parts := fields(line)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "help":
		writeLine("ls, cat <file>, write <file> <content>, exec <file> [args], dread <sector>, memtest, ps, uptime, panic")

	case "ls":
		buf := make([]byte, 32)
		for idx := 0; ; idx++ {
			n := fileList(idx, buf)
			if n < 0 {
				break
			}
			fmt.Fprintf(out, " - %s\n", buf[:n])
		}

	case "cat":
		if len(parts) < 2 {
			writeLine("Usage: cat <file>")
			break
		}
		runCat(parts[1])

	case "cd":
		if len(parts) < 2 {
			writeLine("Usage: cd <dir>")
			break
		}
		if chdir(parts[1]) == 0 {
			writeLine("Changed directory.")
		} else {
			writeLine("Directory not found.")
		}

	case "write":
		if len(parts) < 3 {
			writeLine("Usage: write <filename> <content>")
			break
		}
		fmt.Fprintf(out, "Writing to %s...\n", parts[1])
		if rc := fileWrite(parts[1], []byte(parts[2])); rc == 0 {
			writeLine("Success!")
		} else {
			fmt.Fprintf(out, "Failed (Error: %d)\n", rc)
		}

	case "exec":
		if len(parts) < 2 {
			writeLine("Usage: exec <file> [args...]")
			break
		}
		runExec(parts[1], parts[1:])

	case "dread":
		if len(parts) < 2 {
			writeLine("Usage: dread <sector>")
			break
		}
		sector, _ := parseUint(parts[1])
		buf := make([]byte, 512)
		fmt.Fprintf(out, "Reading sector %d...\n", sector)
		diskRead(sector, buf)
		fmt.Fprintf(out, "Data: %q\n", buf[:64])

	case "memtest":
		for i := 0; i < 1000; i++ {
			v := make([]int, 0, 1)
			v = append(v, i)
		}
		writeLine("Memtest done.")

	case "ps":
		runPs()

	case "uptime":
		fmt.Fprintf(out, "uptime: %d ticks\n", uptime())

	case "panic":
		var p *uint8
		*p = 0

	default:
		fmt.Fprintf(out, "Unknown: %s\n", parts[0])
	}
}

func runCat(fname string) {
	n := fileLen(fname)
	if n < 0 {
		writeLine("File not found.")
		return
	}
	content := make([]byte, n)
	fileRead(fname, content)
	fmt.Fprintf(out, "%s\n", content)
}

func runExec(fname string, args []string) {
	n := fileLen(fname)
	if n < 0 {
		writeLine("File not found.")
		return
	}
	elfData := make([]byte, n)
	fileRead(fname, elfData)

	fmt.Fprintf(out, "Loading %s with args %v...\n", fname, args)
	pid := exec(elfData, args)
	if pid < 0 {
		fmt.Fprintf(out, "exec failed (%d)\n", pid)
		return
	}
	wait()
}

// runPs lists every task's pid/state/exit code (spec.md §9 "ps-style task
// listing"); the wire format matches src/scall's doPs exactly: 24 bytes
// per entry, little-endian pid/state/exit-code.
func runPs() {
	buf := make([]byte, 24*32)
	n := ps(buf)
	if n < 0 {
		writeLine("ps failed")
		return
	}
	writeLine("PID  STATE  EXIT")
	for i := int64(0); i < n; i++ {
		pid := le64(buf[i*24:])
		state := le64(buf[i*24+8:])
		exitCode := int64(le64(buf[i*24+16:]))
		stateName := "running"
		if state == 1 {
			stateName = "zombie"
		}
		fmt.Fprintf(out, "%-4d %-6s %d\n", pid, stateName, exitCode)
	}
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
