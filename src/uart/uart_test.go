package uart

import (
	"simhw"
	"testing"
)

func freshUart(t *testing.T) (*Uart_t, *simhw.Uart) {
	t.Helper()
	fake := simhw.NewUart()
	u := &Uart_t{}
	u.InitPort(fake)
	return u, fake
}

func TestPutcWritesThroughPort(t *testing.T) {
	u, fake := freshUart(t)
	u.Putc('A')
	u.Putc('B')
	if got := string(fake.Out()); got != "AB" {
		t.Fatalf("Out() = %q, want %q", got, "AB")
	}
}

func TestGetcEmptyReturnsFalse(t *testing.T) {
	u, _ := freshUart(t)
	if _, ok := u.Getc(); ok {
		t.Fatalf("Getc() on empty fake returned ok=true")
	}
}

func TestGetcDrainsFedBytes(t *testing.T) {
	u, fake := freshUart(t)
	fake.Feed('h', 'i')
	c, ok := u.Getc()
	if !ok || c != 'h' {
		t.Fatalf("Getc() = (%v, %v), want ('h', true)", c, ok)
	}
	c, ok = u.Getc()
	if !ok || c != 'i' {
		t.Fatalf("Getc() = (%v, %v), want ('i', true)", c, ok)
	}
	if _, ok = u.Getc(); ok {
		t.Fatalf("Getc() after drain returned ok=true")
	}
}

func TestEnableInterruptSetsIER(t *testing.T) {
	u, fake := freshUart(t)
	u.EnableInterrupt()
	if fake.IER() != 1 {
		t.Fatalf("IER() = %d, want 1", fake.IER())
	}
}

func TestWriteImplementsIoWriter(t *testing.T) {
	u, fake := freshUart(t)
	n, err := u.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write() = (%d, %v), want (5, nil)", n, err)
	}
	if string(fake.Out()) != "hello" {
		t.Fatalf("Out() = %q", fake.Out())
	}
}
