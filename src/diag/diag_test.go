package diag

import (
	"mem"
	"simhw"
	"strings"
	"testing"
	"uart"
)

func freshDiag(t *testing.T) *simhw.Uart {
	t.Helper()
	ram := simhw.NewRAM(0x8000_0000, 1<<16)
	mem.SetBackend(ram.Dmap)
	mem.Physmem.Init(uintptr(ram.Base()), uintptr(ram.End()))

	fake := simhw.NewUart()
	uart.Uart.InitPort(fake)
	return fake
}

func TestReportCrashPrintsCauseMepcMtval(t *testing.T) {
	fake := freshDiag(t)

	ReportCrash(7, 0x8000_1000, 0)

	out := string(fake.Out())
	if !strings.Contains(out, "[Crash]") {
		t.Fatalf("output %q missing [Crash] tag", out)
	}
	if !strings.Contains(out, "mcause=7") {
		t.Fatalf("output %q missing mcause=7", out)
	}
	if !strings.Contains(out, "mepc=0x80001000") {
		t.Fatalf("output %q missing mepc=0x80001000", out)
	}
	if !strings.Contains(out, "mtval=0x0") {
		t.Fatalf("output %q missing mtval=0x0", out)
	}
}

func TestReportCrashSurvivesUnreadableMepc(t *testing.T) {
	fake := freshDiag(t)

	ReportCrash(2, 0, 0)

	out := string(fake.Out())
	if !strings.Contains(out, "(unreadable)") {
		t.Fatalf("output %q, want a graceful (unreadable) fallback for an out-of-range mepc", out)
	}
}
