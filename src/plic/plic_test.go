package plic

import (
	"simhw"
	"testing"
	"uart"
)

const testUartIRQ = 10

func freshPlic(t *testing.T) (*Plic_t, *simhw.Plic, *uart.Uart_t, *simhw.Uart) {
	t.Helper()
	fakeUart := simhw.NewUart()
	u := &uart.Uart_t{}
	u.InitPort(fakeUart)

	fakePlic := simhw.NewPlic()
	p := &Plic_t{}
	p.InitReg(fakePlic, u, testUartIRQ)
	return p, fakePlic, u, fakeUart
}

func TestInitEnablesUartIRQ(t *testing.T) {
	_, fakePlic, _, fakeUart := freshPlic(t)
	if fakeUart.IER() != 1 {
		t.Fatalf("uart IER = %d, want 1 (enabled)", fakeUart.IER())
	}
	if got := fakePlic.Reg(0x2000); got != 1<<testUartIRQ {
		t.Fatalf("PLIC enable = %#x, want %#x", got, uint32(1<<testUartIRQ))
	}
	if got := fakePlic.Reg(0x200000); got != 0 {
		t.Fatalf("PLIC threshold = %d, want 0", got)
	}
}

func TestHandleInterruptDrainsUartIntoRingBuffer(t *testing.T) {
	p, fakePlic, _, fakeUart := freshPlic(t)
	fakeUart.Feed('h', 'i')
	fakePlic.Raise(testUartIRQ)

	p.HandleInterrupt(testUartIRQ)

	c, ok := p.PopKey()
	if !ok || c != 'h' {
		t.Fatalf("PopKey() = (%v, %v), want ('h', true)", c, ok)
	}
	c, ok = p.PopKey()
	if !ok || c != 'i' {
		t.Fatalf("PopKey() = (%v, %v), want ('i', true)", c, ok)
	}
}

func TestGetcharReturnsZeroWhenEmpty(t *testing.T) {
	p, _, _, _ := freshPlic(t)
	if got := p.Getchar(); got != 0 {
		t.Fatalf("Getchar() = %d, want 0", got)
	}
}

func TestRingBufferDropsOnOverflow(t *testing.T) {
	p, _, _, _ := freshPlic(t)
	for i := 0; i < keyBufSize+10; i++ {
		p.pushKey(uint8(i))
	}
	count := 0
	for {
		if _, ok := p.PopKey(); !ok {
			break
		}
		count++
	}
	if count != keyBufSize-1 {
		t.Fatalf("drained %d keys, want %d (one slot reserved to distinguish full/empty)", count, keyBufSize-1)
	}
}
