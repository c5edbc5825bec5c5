package proc

import "archrv"

// Scheduler_t is the round-robin scheduler: an ordered task list and a
// current index, grounded on
// original_source/.../task.rs's Scheduler{tasks, current_index}.
// Invariant (spec.md §3 "Scheduler"): at least one task is always
// Running; if every task is Zombie, the kernel panics.
type Scheduler_t struct {
	tasks   []*Task_t
	current int
	nextPid int
}

// Scheduler is the single scheduler instance wired at boot.
var Scheduler = &Scheduler_t{}

// SpawnKernel adds a kernel task running entry and returns it. The
// first call (pid 0, the shell) and second call (pid 1, the background
// task per spec.md §9) happen during boot, before any task runs.
func (s *Scheduler_t) SpawnKernel(entry func()) *Task_t {
	t := NewKernelTask(s.nextPid, entry)
	s.nextPid++
	s.tasks = append(s.tasks, t)
	return t
}

// SpawnUser adds a freshly exec'd user task and returns it.
func (s *Scheduler_t) SpawnUser(rootPPN uint64, entry, sp, argc, argv uint64) *Task_t {
	t := NewUserTask(s.nextPid, rootPPN, entry, sp, argc, argv)
	s.nextPid++
	s.tasks = append(s.tasks, t)
	return t
}

// Len reports the number of live tasks, including zombies not yet
// reaped.
func (s *Scheduler_t) Len() int {
	return len(s.tasks)
}

// Current returns the task the scheduler most recently selected.
func (s *Scheduler_t) Current() *Task_t {
	return s.tasks[s.current]
}

// CurrentIndex returns the slot of the current task in the task list,
// the identity wait() needs to exclude the caller from its zombie scan.
func (s *Scheduler_t) CurrentIndex() int {
	return s.current
}

// Schedule advances current past any Zombie tasks, programs satp for
// the chosen task's address space, and returns its Context (spec.md
// §4.7: "programs SATP to the new task's root (or the kernel root if
// root_ppn == 0)"). Grounded on
// original_source/eos1/src/task.rs:102-111, which does the same
// csrw-satp/sfence.vma pair from the selected task's root_ppn as part
// of schedule, not just once at boot. Panics if there are no tasks at
// all, or every task is a Zombie — the scheduler's documented invariant
// that at least one task (the shell) is always Running.
func (s *Scheduler_t) Schedule() *Context_t {
	if len(s.tasks) == 0 {
		panic("proc: no tasks to schedule")
	}
	for i := 0; i < len(s.tasks); i++ {
		s.current = (s.current + 1) % len(s.tasks)
		t := s.tasks[s.current]
		if t.State != Zombie {
			archrv.WriteSatpFlush(t.rootPPN())
			return &t.Context
		}
	}
	panic("proc: every task is a zombie")
}

// Exit marks the current task Zombie with the given code and schedules
// the next task (spec.md §4.7 "exit(code)").
func (s *Scheduler_t) Exit(code int) *Context_t {
	cur := s.Current()
	cur.State = Zombie
	cur.ExitCode = code
	return s.Schedule()
}

// Wait scans for a Zombie task other than callerIdx, reaps the first
// one found, and adjusts current if the removal shifted it (spec.md
// §4.8 "wait"). Returns (pid, exitCode, 0) on success; (0, 0, -1) if
// other tasks exist but none are Zombie; (0, 0, -2) if callerIdx has no
// other tasks at all.
func (s *Scheduler_t) Wait(callerIdx int) (pid int, code int, rc int) {
	if len(s.tasks) <= 1 {
		return 0, 0, -2
	}
	for i, t := range s.tasks {
		if i == callerIdx || t.State != Zombie {
			continue
		}
		pid, code = t.Pid, t.ExitCode
		s.remove(i)
		return pid, code, 0
	}
	return 0, 0, -1
}

// TaskInfo is a read-only snapshot of one task's scheduling state, for
// the "ps" shell command (spec.md §9 supplement) — a copy, not a live
// pointer, so a syscall can hand it to user code without exposing the
// real Task_t.
type TaskInfo struct {
	Pid      int
	State    State_t
	ExitCode int
}

// Snapshot returns a TaskInfo per live task, in scheduling order.
func (s *Scheduler_t) Snapshot() []TaskInfo {
	out := make([]TaskInfo, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = TaskInfo{Pid: t.Pid, State: t.State, ExitCode: t.ExitCode}
	}
	return out
}

func (s *Scheduler_t) remove(i int) {
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	if i < s.current {
		s.current--
	}
}
