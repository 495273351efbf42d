package scheduler

import (
	"github.com/eduardojvieira/ZPLC-sub003/loader"
	"github.com/eduardojvieira/ZPLC-sub003/vm"
)

// State is the scheduler's dispatch-loop gate (§4.5 "init()... set
// global state to IDLE").
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// TaskStats is the per-slot statistics record the spec requires plus
// the supplemented fields named in the expanded spec's scheduler
// statistics section, modeled on the teacher's PerformanceStatistics
// (counters updated only by the dispatcher, read by the debug surface).
type TaskStats struct {
	CycleCount     uint64
	OverrunCount   uint64
	LastExecTimeUs uint64
	NextDeadlineUs uint64
	LastError      vm.ErrKind
}

// slot is one scheduler task slot (§4.5): a task definition, its bound
// VM instance, and the slot's running statistics. The VM instance's own
// fixed-size arrays serve as the "private stack arena" named in the
// spec — no separate per-task memory carve-out is needed since stack
// state already lives on the Instance, not in shared memory.
type slot struct {
	def      loader.TaskDef
	instance *vm.Instance
	stats    TaskStats
	active   bool
	done     bool // INIT tasks are marked done after their one-shot run
}

// TaskSnapshot is the read-only view of a slot exposed to the debug
// surface and operator protocol (§4.6).
type TaskSnapshot struct {
	Slot   int
	Def    loader.TaskDef
	Stats  TaskStats
	Active bool
	Done   bool
	PC     uint16
	SP     uint16
	Halted bool
	Error  vm.ErrKind
}

// Snapshot is the scheduler-wide summary (§4.6 "stats_snapshot").
type Snapshot struct {
	State         State
	ActiveTasks   int
	TotalCycles   uint64
	TotalOverruns uint64
	UptimeMs      uint64
}
