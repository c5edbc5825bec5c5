package trap

import (
	"mem"
	"plic"
	"proc"
	"simhw"
	"strings"
	"testing"
	"uart"
)

const testUartIRQ = 10

func freshTrap(t *testing.T) (*simhw.Plic, *simhw.Uart) {
	t.Helper()
	ram := simhw.NewRAM(0x8000_0000, 1<<16)
	mem.SetBackend(ram.Dmap)
	mem.Physmem.Init(uintptr(ram.Base()), uintptr(ram.End()))

	fakeUart := simhw.NewUart()
	uart.Uart.InitPort(fakeUart)

	fakePlic := simhw.NewPlic()
	plic.Plic = &plic.Plic_t{}
	plic.Plic.InitReg(fakePlic, uart.Uart, testUartIRQ)

	proc.Scheduler = &proc.Scheduler_t{}
	proc.Scheduler.SpawnKernel(func() {}) // pid 0
	proc.Scheduler.SpawnKernel(func() {}) // pid 1

	Syscall = nil
	reArmTimer = func() { panic("trap: reArmTimer not wired") }

	return fakePlic, fakeUart
}

func TestHandleTimerRearmsAndReschedules(t *testing.T) {
	freshTrap(t)
	rearmed := false
	WireTimer(func() { rearmed = true })

	before := proc.Scheduler.Current().Pid
	ctx := Handle(interruptBit|causeTimer, 0, 0, &proc.Scheduler.Current().Context)

	if !rearmed {
		t.Fatal("Handle(timer) did not call the re-arm hook")
	}
	if proc.Scheduler.Current().Pid == before {
		t.Fatal("Handle(timer) did not advance to the next task")
	}
	if ctx != &proc.Scheduler.Current().Context {
		t.Fatal("Handle(timer) did not return the newly scheduled task's Context")
	}
}

func TestHandleExternalDrainsUartAndResumesCurrent(t *testing.T) {
	fakePlic, fakeUart := freshTrap(t)
	fakeUart.Feed('q')
	fakePlic.Raise(testUartIRQ)

	cur := proc.Scheduler.Current()
	ctx := Handle(interruptBit|causeExternal, 0, 0, &cur.Context)

	if ctx != &cur.Context {
		t.Fatal("Handle(external) must resume the interrupted task unchanged")
	}
	c, ok := plic.Plic.PopKey()
	if !ok || c != 'q' {
		t.Fatalf("PopKey() = (%v, %v), want ('q', true) -- external IRQ should have drained the UART", c, ok)
	}
}

func TestHandleEcallRoutesToSyscallHook(t *testing.T) {
	freshTrap(t)
	called := false
	want := &proc.Context_t{}
	Syscall = func(ctx *proc.Context_t) *proc.Context_t {
		called = true
		return ctx
	}

	got := Handle(causeEcall, 0, 0, want)

	if !called {
		t.Fatal("Handle(ecall) did not invoke the wired Syscall hook")
	}
	if got != want {
		t.Fatal("Handle(ecall) did not return the hook's result")
	}
}

func TestHandleEcallPanicsWhenSyscallUnwired(t *testing.T) {
	freshTrap(t)
	defer func() {
		if recover() == nil {
			t.Fatal("Handle(ecall) with no Syscall hook did not panic")
		}
	}()
	Handle(causeEcall, 0, 0, &proc.Context_t{})
}

func TestHandleFaultReportsCrashAndExitsCurrentTask(t *testing.T) {
	_, fakeUart := freshTrap(t)
	before := proc.Scheduler.Current().Pid

	next := Handle(7, 0x8000_2000, 0x42, &proc.Scheduler.Current().Context)

	out := string(fakeUart.Out())
	if !strings.Contains(out, "[Crash]") {
		t.Fatalf("fault path did not print a crash report, got %q", out)
	}
	if proc.Scheduler.Current().Pid == before {
		t.Fatal("Handle(fault) did not reschedule away from the faulting task")
	}
	if next != &proc.Scheduler.Current().Context {
		t.Fatal("Handle(fault) did not return the rescheduled task's Context")
	}
}

func TestHandleUnknownInterruptCauseReportsFault(t *testing.T) {
	_, fakeUart := freshTrap(t)
	Handle(interruptBit|31, 0, 0, &proc.Scheduler.Current().Context)
	if !strings.Contains(string(fakeUart.Out()), "[Crash]") {
		t.Fatal("an unrecognized interrupt cause should fall through to the fault path")
	}
}

func TestHandleUnknownExceptionCauseReportsFault(t *testing.T) {
	_, fakeUart := freshTrap(t)
	Handle(2, 0, 0, &proc.Scheduler.Current().Context)
	if !strings.Contains(string(fakeUart.Out()), "[Crash]") {
		t.Fatal("an unrecognized exception cause should fall through to the fault path")
	}
}
