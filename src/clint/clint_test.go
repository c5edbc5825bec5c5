package clint

import (
	"simhw"
	"testing"
)

func TestSetNextArmsIntervalPastNow(t *testing.T) {
	fake := simhw.NewClint(0)
	fake.SetMtime(500)
	c := &Clint_t{}
	c.InitReg(fake)

	c.SetNext()

	want := uint64(500) + Interval
	if got := fake.Read64(0x4000); got != want {
		t.Fatalf("mtimecmp = %d, want %d", got, want)
	}
}

func TestNowReadsThroughRegister(t *testing.T) {
	fake := simhw.NewClint(0)
	fake.SetMtime(42)
	c := &Clint_t{}
	c.InitReg(fake)

	if got := c.Now(); got != 42 {
		t.Fatalf("Now() = %d, want 42", got)
	}
}
