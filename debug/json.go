package debug

import (
	"fmt"
	"io"
)

// JSON emission is allocation-free (§4.6 "field-by-field writes to a
// caller-provided sink"): every Write* function takes an io.Writer and
// formats directly into it instead of building an intermediate struct
// and calling encoding/json.Marshal. Callers supply a strings.Builder
// (Server.Handle) or an http.ResponseWriter (the api package) as sink.

// WriteVMSnapshotJSON emits a VMSnapshot as the object served by the
// api package's GET /dbg/info: {pc, sp, top, halted, paused, error}.
func WriteVMSnapshotJSON(w io.Writer, s VMSnapshot) error {
	_, err := fmt.Fprintf(w, `{"pc":%d,"sp":%d,"top":%d,"halted":%t,"paused":%t,"error":%q}`,
		s.PC, s.SP, s.Top, s.Halted, s.Paused, s.Error.String())
	return err
}

// WriteStatsSnapshotJSON emits a StatsSnapshot as served by the api
// package's GET /status: {state, uptime_ms, stats:{cycles, overruns,
// active_tasks}}.
func WriteStatsSnapshotJSON(w io.Writer, s StatsSnapshot) error {
	_, err := fmt.Fprintf(w, `{"state":%q,"uptime_ms":%d,"stats":{"cycles":%d,"overruns":%d,"active_tasks":%d}}`,
		s.State.String(), s.UptimeMs, s.TotalCycles, s.TotalOverruns, s.ActiveTasks)
	return err
}

// WriteTaskSnapshotJSON emits one task row as used inside "status
// --json"'s tasks array and "sched tasks --json".
func WriteTaskSnapshotJSON(w io.Writer, slot int, def taskDefView, stats taskStatsView, pc, sp uint16, halted bool, errKind string) error {
	_, err := fmt.Fprintf(w,
		`{"slot":%d,"id":%d,"type":%q,"priority":%d,"interval_us":%d,`+
			`"cycle_count":%d,"overrun_count":%d,"last_exec_time_us":%d,`+
			`"pc":%d,"sp":%d,"halted":%t,"error":%q}`,
		slot, def.ID, def.Type, def.Priority, def.IntervalUs,
		stats.CycleCount, stats.OverrunCount, stats.LastExecTimeUs,
		pc, sp, halted, errKind)
	return err
}

// WriteBytesJSON emits a byte slice as a compact hex string, used by
// "dbg peek --json", status's opi field and dbg info's opi/ipi fields.
func WriteBytesJSON(w io.Writer, b []byte) error {
	if _, err := io.WriteString(w, `"`); err != nil {
		return err
	}
	const hexDigits = "0123456789abcdef"
	for _, c := range b {
		if _, err := w.Write([]byte{hexDigits[c>>4], hexDigits[c&0xF]}); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `"`)
	return err
}

// taskDefView and taskStatsView decouple the JSON writer from the
// scheduler/loader packages' concrete types; callers fill them from a
// scheduler.TaskSnapshot.
type taskDefView struct {
	ID         uint16
	Type       string
	Priority   uint8
	IntervalUs uint32
}

type taskStatsView struct {
	CycleCount     uint64
	OverrunCount   uint64
	LastExecTimeUs uint64
}
