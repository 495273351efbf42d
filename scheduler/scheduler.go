// Package scheduler owns the ordered set of VM instances and the
// HAL-driven tick clock, and dispatches cycles in priority order
// (§4.5). It is the only component that runs VM instances concurrently
// with the rest of the system; everything it touches in shared memory
// goes through the process-image lock.
package scheduler

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/eduardojvieira/ZPLC-sub003/loader"
	"github.com/eduardojvieira/ZPLC-sub003/memory"
	"github.com/eduardojvieira/ZPLC-sub003/vm"
)

// DefaultMaxTasks is MAX_TASKS from §4.5.
const DefaultMaxTasks = 8

// DefaultStepBudget is a conservative per-cycle instruction budget; the
// config package overrides this in practice.
const DefaultStepBudget = 100000

// Scheduler owns task slots, the shared memory, and the dispatch loop
// (§4.5). All public methods are safe for concurrent use; the dispatch
// loop itself runs on its own goroutine once Start is called.
type Scheduler struct {
	mu sync.Mutex

	mem        *memory.Memory
	clock      Clock
	io         IOPort // nil unless clock also satisfies IOPort (e.g. a hal.Interface)
	logger     *log.Logger
	stepBudget uint32
	maxTasks   int

	slots []*slot // fixed-length, nil entries are free
	state State

	totalCycles   uint64
	totalOverruns uint64
	startUs       uint64

	stopCh chan struct{}
	doneCh chan struct{}

	// onCycle, if set, is invoked after every completed cycle (INIT or
	// CYCLIC) with a snapshot of the slot that just ran. It exists so
	// external tooling (api.Server's WebSocket broadcaster) can observe
	// cycle-by-cycle progress without polling GetTask. Invoked with the
	// scheduler's lock released; must not call back into the scheduler.
	onCycle func(TaskSnapshot)
}

// OnCycle registers a callback invoked after each completed cycle.
// Passing nil disables the callback. It may be called while the
// dispatch loop runs; the change applies from the next completed cycle.
func (s *Scheduler) OnCycle(fn func(TaskSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCycle = fn
}

// New creates a Scheduler bound to mem, driven by clock, with room for
// maxTasks slots (0 means DefaultMaxTasks) and a per-cycle instruction
// budget (0 means DefaultStepBudget). logger may be nil, in which case
// scheduler events are discarded — matching the teacher's pattern of an
// injected *log.Logger rather than a global one.
func New(mem *memory.Memory, clock Clock, maxTasks int, stepBudget uint32, logger *log.Logger) *Scheduler {
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}
	if stepBudget == 0 {
		stepBudget = DefaultStepBudget
	}
	if logger == nil {
		logger = log.New(discard{}, "", 0)
	}
	s := &Scheduler{
		mem:        mem,
		clock:      clock,
		logger:     logger,
		stepBudget: stepBudget,
		maxTasks:   maxTasks,
		slots:      make([]*slot, maxTasks),
		state:      StateIdle,
	}
	if io, ok := clock.(IOPort); ok {
		s.io = io
	}
	return s
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// RegisterTask finds a free slot, binds a fresh VM instance to the
// task's code range, and arms it for immediate dispatch (§4.5
// "register_task... set next_deadline_us = now").
func (s *Scheduler) RegisterTask(def loader.TaskDef, codeLen uint32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, sl := range s.slots {
		if sl == nil {
			idx = i
			break
		}
	}
	if idx == -1 {
		return -1, fmt.Errorf("scheduler: no free slot (max %d tasks)", s.maxTasks)
	}

	inst := vm.New(s.mem)
	if uint32(def.EntryPoint) > codeLen {
		return -1, fmt.Errorf("scheduler: task %d entry_point 0x%04X exceeds code length %d", def.ID, def.EntryPoint, codeLen)
	}
	limit := uint16(codeLen) - def.EntryPoint
	if err := inst.SetEntry(def.EntryPoint, limit); err != nil {
		return -1, fmt.Errorf("scheduler: task %d: %w", def.ID, err)
	}

	now := s.clock.NowUs()
	s.slots[idx] = &slot{
		def:      def,
		instance: inst,
		active:   true,
		stats:    TaskStats{NextDeadlineUs: now},
	}
	return idx, nil
}

// UnregisterTask stops and frees a slot (§4.5 "unregister_task").
func (s *Scheduler) UnregisterTask(slotIdx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slotIdx < 0 || slotIdx >= len(s.slots) || s.slots[slotIdx] == nil {
		return fmt.Errorf("scheduler: slot %d is not registered", slotIdx)
	}
	s.slots[slotIdx] = nil
	return nil
}

// Load runs the loader over zplc bytes and registers every task it
// yields (§4.5 "load(zplc_bytes) -> count"). The code is written into
// the shared memory's code region and locked before any task is
// registered, satisfying invariant 4 (code immutable between loads).
func (s *Scheduler) Load(data []byte, opts loader.Options) (int, error) {
	prog, warnings, err := loader.Parse(data, opts)
	if err != nil {
		return 0, err
	}
	for _, w := range warnings {
		s.logger.Printf("loader warning: %s", w)
	}

	s.mem.UnlockCode()
	if err := s.mem.LoadCode(prog.Code, 0); err != nil {
		return 0, fmt.Errorf("scheduler: load code: %w", err)
	}
	s.mem.LockCode()

	count := 0
	for _, t := range prog.Tasks {
		if _, err := s.RegisterTask(t, uint32(len(prog.Code))); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Start runs every INIT task once, in ascending id order, then launches
// the dispatch loop on its own goroutine (§4.5 "INIT tasks run once at
// boot... before any CYCLIC task runs its first cycle").
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: already running")
	}
	s.state = StateRunning
	s.startUs = s.clock.NowUs()
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.runInitTasks()

	go s.dispatchLoop()
	return nil
}

// Stop gates the dispatch loop and waits for it to exit (§4.5
// "start()/stop() gate the dispatch loop").
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopped
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
	return nil
}

func (s *Scheduler) runInitTasks() {
	s.mu.Lock()
	var initSlots []int
	for i, sl := range s.slots {
		if sl != nil && sl.active && !sl.done && sl.def.Type == loader.TaskInit {
			initSlots = append(initSlots, i)
		}
	}
	sort.Slice(initSlots, func(a, b int) bool {
		return s.slots[initSlots[a]].def.ID < s.slots[initSlots[b]].def.ID
	})
	s.mu.Unlock()

	now := s.clock.NowUs()
	for _, idx := range initSlots {
		s.runSlot(idx, now)
		s.mu.Lock()
		if sl := s.slots[idx]; sl != nil {
			sl.done = true
		}
		s.mu.Unlock()
	}
}

func (s *Scheduler) dispatchLoop() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		now := s.clock.NowUs()
		idx, deadline, ok := s.findReady(now)
		if !ok {
			s.clock.SleepUntil(deadline)
			continue
		}
		s.runSlot(idx, now)
	}
}

// findReady selects the ready slot (next_deadline_us <= now) with the
// lowest priority number, breaking ties by the lowest task id (§4.5
// "Scheduling guarantees"). If nothing is ready it returns the nearest
// future deadline instead.
func (s *Scheduler) findReady(now uint64) (idx int, nearestDeadline uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := -1
	nearestDeadline = now + 1000 // default 1ms poll if nothing is scheduled
	haveNearest := false

	for i, sl := range s.slots {
		if sl == nil || !sl.active || sl.done || sl.def.Type != loader.TaskCyclic {
			continue
		}
		if sl.stats.NextDeadlineUs <= now {
			if best == -1 {
				best = i
				continue
			}
			cur := s.slots[best]
			if sl.def.Priority < cur.def.Priority ||
				(sl.def.Priority == cur.def.Priority && sl.def.ID < cur.def.ID) {
				best = i
			}
			continue
		}
		if !haveNearest || sl.stats.NextDeadlineUs < nearestDeadline {
			nearestDeadline = sl.stats.NextDeadlineUs
			haveNearest = true
		}
	}

	if best == -1 {
		return 0, nearestDeadline, false
	}
	return best, 0, true
}

// runSlot executes one cycle for the slot at idx: acquire the
// process-image lock, latch inputs, reset_cycle, run to
// HALT/fault/budget, flush outputs, release the lock, then advance the
// deadline (§2 "latch inputs (HAL -> IPI) ... flush outputs (OPI ->
// HAL)", §4.5 "Dispatch loop").
func (s *Scheduler) runSlot(idx int, now uint64) {
	s.mu.Lock()
	sl := s.slots[idx]
	if sl == nil {
		s.mu.Unlock()
		return
	}
	inst := sl.instance
	interval := uint64(sl.def.IntervalUs)
	s.mu.Unlock()

	s.mem.Lock()
	if s.io != nil {
		latchInputs(s.io, s.mem)
	}
	inst.ResetCycle()
	start := s.clock.NowUs()
	runState, overrun, _ := inst.Run(tickAdapter{s.clock}, s.stepBudget)
	elapsed := s.clock.NowUs() - start
	if s.io != nil {
		flushOutputs(s.io, s.mem)
	}
	s.mem.Unlock()

	s.mu.Lock()
	sl = s.slots[idx]
	if sl == nil {
		s.mu.Unlock()
		return
	}
	sl.stats.CycleCount++
	sl.stats.LastExecTimeUs = elapsed
	s.totalCycles++

	switch {
	case overrun:
		sl.stats.OverrunCount++
		s.totalOverruns++
		sl.stats.LastError = vm.BudgetExhausted
	case runState == vm.Faulted:
		// Fault policy (§9 open question, resolved): re-arm next
		// cycle, surface via stats. The dispatcher never disables a
		// faulted task on its own.
		sl.stats.LastError = inst.Error
	default:
		sl.stats.LastError = vm.OK
	}

	if sl.def.Type == loader.TaskCyclic {
		sl.stats.NextDeadlineUs += interval
		if sl.stats.NextDeadlineUs <= now {
			// No cascading catch-up: one overrun is recorded, then the
			// deadline is re-based on the current time.
			sl.stats.OverrunCount++
			s.totalOverruns++
			sl.stats.NextDeadlineUs = now + interval
		}
	}

	cb := s.onCycle
	snap := TaskSnapshot{
		Slot: idx, Def: sl.def, Stats: sl.stats, Active: sl.active, Done: sl.done,
		PC: inst.PC, SP: inst.SP, Halted: inst.Halted, Error: inst.Error,
	}
	s.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

// Memory returns the shared memory the scheduler's VM instances
// execute against, for the debug surface's memory_peek/memory_poke
// (§4.6) and external fieldbus access under the process-image lock.
func (s *Scheduler) Memory() *memory.Memory {
	return s.mem
}

// ResetFaults clears the recorded fault on every slot and
// reinitializes its VM instance, the effect of the operator protocol's
// "reset" command (§7 "Operators may `reset` to clear"). It does not
// touch cycle/overrun counters, which are cumulative statistics, or
// scheduling deadlines.
func (s *Scheduler) ResetFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.slots {
		if sl == nil {
			continue
		}
		sl.instance.Init()
		sl.stats.LastError = vm.OK
	}
}

// GetStats returns a scheduler-wide snapshot (§4.6 "stats_snapshot").
func (s *Scheduler) GetStats() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := 0
	for _, sl := range s.slots {
		if sl != nil && sl.active && !sl.done {
			active++
		}
	}

	var uptimeMs uint64
	if s.state != StateIdle {
		uptimeMs = (s.clock.NowUs() - s.startUs) / 1000
	}

	return Snapshot{
		State:         s.state,
		ActiveTasks:   active,
		TotalCycles:   s.totalCycles,
		TotalOverruns: s.totalOverruns,
		UptimeMs:      uptimeMs,
	}
}

// GetTask returns a read-only snapshot of one slot (§4.6).
func (s *Scheduler) GetTask(slotIdx int) (TaskSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slotIdx < 0 || slotIdx >= len(s.slots) || s.slots[slotIdx] == nil {
		return TaskSnapshot{}, fmt.Errorf("scheduler: slot %d is not registered", slotIdx)
	}
	sl := s.slots[slotIdx]
	return TaskSnapshot{
		Slot:   slotIdx,
		Def:    sl.def,
		Stats:  sl.stats,
		Active: sl.active,
		Done:   sl.done,
		PC:     sl.instance.PC,
		SP:     sl.instance.SP,
		Halted: sl.instance.Halted,
		Error:  sl.instance.Error,
	}, nil
}

// Tasks returns snapshots of every registered slot, ordered by slot
// index, for the "sched tasks" operator command (§6).
func (s *Scheduler) Tasks() []TaskSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []TaskSnapshot
	for i, sl := range s.slots {
		if sl == nil {
			continue
		}
		out = append(out, TaskSnapshot{
			Slot:   i,
			Def:    sl.def,
			Stats:  sl.stats,
			Active: sl.active,
			Done:   sl.done,
			PC:     sl.instance.PC,
			SP:     sl.instance.SP,
			Halted: sl.instance.Halted,
			Error:  sl.instance.Error,
		})
	}
	return out
}

// RunCycleForTest steps a single registered slot exactly once,
// bypassing the dispatch goroutine, so tests can drive the scheduler
// deterministically without racing a background loop.
func (s *Scheduler) RunCycleForTest(slotIdx int) {
	s.runSlot(slotIdx, s.clock.NowUs())
}
