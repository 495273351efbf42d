// Package debug implements the read-only debug surface (§4.6): VM and
// scheduler snapshot structs, bounds-respecting memory peek/poke, and
// allocation-free JSON emission for the line-oriented operator
// protocol (§6). Every exported function here only reads state (or, for
// Poke, performs the single narrowly-scoped IPI write the spec allows)
// — nothing here drives execution.
package debug

import (
	"github.com/eduardojvieira/ZPLC-sub003/memory"
	"github.com/eduardojvieira/ZPLC-sub003/scheduler"
	"github.com/eduardojvieira/ZPLC-sub003/vm"
)

// VMSnapshot is the per-instance read-only view named in §4.6:
// "vm_snapshot(slot) -> {pc, sp, top, halted, error}".
type VMSnapshot struct {
	PC     uint16
	SP     uint16
	Top    uint32
	Halted bool
	Paused bool
	Error  vm.ErrKind
}

// SnapshotVM captures the current state of inst. It never mutates inst
// (§3 invariant 5: a VM's stack and PC are observed only by itself and
// by read-only debug snapshots).
func SnapshotVM(inst *vm.Instance) VMSnapshot {
	return VMSnapshot{
		PC:     inst.PC,
		SP:     inst.SP,
		Top:    inst.TOS(),
		Halted: inst.Halted,
		Paused: inst.Paused,
		Error:  inst.Error,
	}
}

// StatsSnapshot is the scheduler-wide view named in §4.6:
// "stats_snapshot() -> {active, total_cycles, total_overruns,
// uptime_ms}".
type StatsSnapshot = scheduler.Snapshot

// SnapshotStats captures the scheduler's current counters.
func SnapshotStats(sched *scheduler.Scheduler) StatsSnapshot {
	return sched.GetStats()
}

// MemoryPeek reads up to length bytes starting at addr, honouring
// region boundaries: an access that runs past the end of its region
// is silently truncated rather than faulted (§4.6 "memory_peek...
// returns short read on overrun").
func MemoryPeek(mem *memory.Memory, addr uint32, length uint32) []byte {
	return mem.ReadBytes(addr, length)
}

// MemoryPoke writes a single byte, restricted to the IPI region and
// gated by the caller's policy flag (§4.6 "memory_poke(addr, byte) --
// only in IPI region; gated by policy flag"). allowPoke carries the
// config.Debug.EnablePoke setting; the core package itself holds no
// config dependency, so the gate is passed in rather than read from a
// global.
func MemoryPoke(mem *memory.Memory, addr uint32, value byte, allowPoke bool) error {
	if !allowPoke {
		return errPokeDisabled
	}
	region, ok := mem.RegionOf(addr)
	if !ok || region != memory.RegionIPI {
		return errPokeOutsideIPI
	}
	return mem.WriteU8(addr, value)
}
