package proc

import "testing"

func dummyEntry() {}

func freshScheduler() *Scheduler_t {
	return &Scheduler_t{}
}

func TestNewKernelTaskSeedsStackAndEntry(t *testing.T) {
	task := NewKernelTask(0, dummyEntry)
	if task.Context.Regs[RegSP]%16 != 0 {
		t.Fatalf("sp = %#x, want 16-byte aligned", task.Context.Regs[RegSP])
	}
	if task.Context.Mepc == 0 {
		t.Fatal("Mepc = 0, want the entry function's address")
	}
	if task.State != Running {
		t.Fatalf("State = %v, want Running", task.State)
	}
}

func TestNewUserTaskSeedsArgcArgv(t *testing.T) {
	task := NewUserTask(2, 0x1234, 0x1000, 0xF0000000, 3, 0xF0000100)
	if task.Context.Mepc != 0x1000 {
		t.Fatalf("Mepc = %#x, want 0x1000", task.Context.Mepc)
	}
	if task.Context.Regs[RegA0] != 3 {
		t.Fatalf("a0 (argc) = %d, want 3", task.Context.Regs[RegA0])
	}
	if task.Context.Regs[RegA1] != 0xF0000100 {
		t.Fatalf("a1 (argv) = %#x, want 0xF0000100", task.Context.Regs[RegA1])
	}
	if task.RootPPN != 0x1234 {
		t.Fatalf("RootPPN = %#x, want 0x1234", task.RootPPN)
	}
}

func TestScheduleRoundRobinsAndSkipsZombies(t *testing.T) {
	s := freshScheduler()
	s.SpawnKernel(dummyEntry) // pid 0
	s.SpawnKernel(dummyEntry) // pid 1
	s.SpawnKernel(dummyEntry) // pid 2
	s.tasks[1].State = Zombie

	ctx := s.Schedule()
	if s.Current().Pid != 2 {
		t.Fatalf("after one Schedule(), current pid = %d, want 2 (skipping zombie pid 1)", s.Current().Pid)
	}
	if ctx != &s.tasks[2].Context {
		t.Fatal("Schedule() did not return the current task's Context")
	}

	s.Schedule()
	if s.Current().Pid != 0 {
		t.Fatalf("after two Schedule() calls, current pid = %d, want 0", s.Current().Pid)
	}
}

func TestSchedulePanicsWhenAllZombie(t *testing.T) {
	s := freshScheduler()
	s.SpawnKernel(dummyEntry)
	s.tasks[0].State = Zombie

	defer func() {
		if recover() == nil {
			t.Fatal("Schedule() with every task zombie did not panic")
		}
	}()
	s.Schedule()
}

func TestExitMarksZombieAndReschedules(t *testing.T) {
	s := freshScheduler()
	s.SpawnKernel(dummyEntry) // pid 0, the shell
	s.SpawnKernel(dummyEntry) // pid 1

	s.Exit(7)
	if s.tasks[0].State != Zombie || s.tasks[0].ExitCode != 7 {
		t.Fatalf("task 0 = (%v, %d), want (Zombie, 7)", s.tasks[0].State, s.tasks[0].ExitCode)
	}
	if s.Current().Pid != 1 {
		t.Fatalf("current pid after Exit() = %d, want 1", s.Current().Pid)
	}
}

func TestWaitNoOtherTasksReturnsDashTwo(t *testing.T) {
	s := freshScheduler()
	s.SpawnKernel(dummyEntry)

	_, _, rc := s.Wait(s.CurrentIndex())
	if rc != -2 {
		t.Fatalf("Wait() rc = %d, want -2", rc)
	}
}

func TestWaitNoZombieChildReturnsDashOne(t *testing.T) {
	s := freshScheduler()
	s.SpawnKernel(dummyEntry)
	s.SpawnKernel(dummyEntry)

	_, _, rc := s.Wait(0)
	if rc != -1 {
		t.Fatalf("Wait() rc = %d, want -1", rc)
	}
}

func TestWaitReapsZombieAndAdjustsCurrent(t *testing.T) {
	s := freshScheduler()
	s.SpawnKernel(dummyEntry) // pid 0, shell, caller
	s.SpawnKernel(dummyEntry) // pid 1, will become the zombie
	s.SpawnKernel(dummyEntry) // pid 2

	s.current = 2 // simulate pid 2 being the currently scheduled task
	s.tasks[1].State = Zombie
	s.tasks[1].ExitCode = 42

	pid, code, rc := s.Wait(0)
	if rc != 0 || pid != 1 || code != 42 {
		t.Fatalf("Wait() = (%d, %d, %d), want (1, 42, 0)", pid, code, rc)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d after reap, want 2", s.Len())
	}
	if s.Current().Pid != 2 {
		t.Fatalf("current pid after reap = %d, want 2 (index shifted down)", s.Current().Pid)
	}
}
