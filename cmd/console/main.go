// Command console bridges the operator's real terminal to the kernel's
// emulated UART, exposed by the emulator as a TCP socket (QEMU's
// "-serial tcp::PORT" or equivalent chardev). It puts the local
// terminal into raw mode so every keystroke — including control
// characters the shell itself interprets, like ^C and ^D — reaches the
// guest untouched, and restores the terminal on exit.
//
// Grounded on smoynes-elsie/cmd/internal/tty's Console: golang.org/x/term's
// MakeRaw/Restore pairing and restore-on-signal discipline, the same
// library spec.md §7's ambient stack calls for in a host-side terminal
// tool. Unlike that Console, this one has no termios VMIN/VTIME tuning
// of its own — MakeRaw's defaults plus a blocking os.Stdin.Read are
// enough for a pure byte pump — so it has no direct golang.org/x/sys/unix
// dependency.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"

	"golang.org/x/term"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5555", "address of the emulator's serial socket")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("console: dial %s: %v", *addr, err)
	}
	defer conn.Close()

	restore, err := makeRaw()
	if err != nil {
		log.Fatalf("console: %v", err)
	}
	defer restore()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	// Raw mode delivers ^C to the guest as a byte, not a host SIGINT, but
	// a detached session or window close still raises one; restore the
	// terminal before this process dies either way.
	go func() {
		<-sigs
		restore()
		os.Exit(0)
	}()

	fmt.Fprintf(os.Stderr, "console: connected to %s (ctrl-] quits)\r\n", *addr)

	done := make(chan struct{})
	go pump(os.Stdout, conn, done)
	go pumpStdin(conn, done)
	<-done
}

// makeRaw puts stdin into raw mode and returns a function that restores
// the prior terminal state, exactly once.
func makeRaw() (func(), error) {
	fd := int(os.Stdin.Fd())
	prior, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enabling raw mode: %w", err)
	}
	restored := false
	return func() {
		if restored {
			return
		}
		restored = true
		term.Restore(fd, prior)
	}, nil
}

// pump copies bytes from src to dst until either end closes, signaling
// done exactly once.
func pump(dst io.Writer, src io.Reader, done chan struct{}) {
	io.Copy(dst, src)
	select {
	case done <- struct{}{}:
	default:
	}
}

// pumpStdin copies keystrokes to the guest, watching for the ctrl-]
// (0x1d) escape byte so the operator can detach without a second
// terminal — raw mode hands the guest ^C and ^D itself, so quitting
// needs a byte the guest never otherwise sees.
func pumpStdin(conn net.Conn, done chan struct{}) {
	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			for _, b := range buf[:n] {
				if b == 0x1d {
					select {
					case done <- struct{}{}:
					default:
					}
					return
				}
			}
			if _, werr := conn.Write(buf[:n]); werr != nil {
				break
			}
		}
		if err != nil {
			break
		}
	}
	select {
	case done <- struct{}{}:
	default:
	}
}
