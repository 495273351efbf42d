package debug

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/eduardojvieira/ZPLC-sub003/loader"
	"github.com/eduardojvieira/ZPLC-sub003/scheduler"
)

// Server answers the line-oriented operator protocol described in §6:
// free-form text commands, and either a human-readable line or a
// single `--json` terminated object in response. It is the "thin
// front-end to the core" boundary made concrete as a library call
// rather than a process — console and api wrap it with their own
// transports (tcell TUI, HTTP) instead of re-implementing command
// parsing.
type Server struct {
	sched      *scheduler.Scheduler
	store      loader.Store
	loadOpts   loader.Options
	enablePoke bool

	pending *pendingLoad
}

type pendingLoad struct {
	size int
	buf  []byte
}

// NewServer builds a Server bound to sched's scheduler and store's
// persistence backend (typically a hal.Interface). enablePoke mirrors
// config.Debug.EnablePoke.
func NewServer(sched *scheduler.Scheduler, store loader.Store, loadOpts loader.Options, enablePoke bool) *Server {
	return &Server{sched: sched, store: store, loadOpts: loadOpts, enablePoke: enablePoke}
}

// Handle parses and executes one command line, returning the response
// text exactly as it should be written to the operator sink (already
// newline-free; callers append "\n"). Success acknowledgments are the
// literal line "OK" (§6 "success = 0... as an acknowledgment line
// 'OK'"); failures are "ERROR: <reason>".
func (srv *Server) Handle(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "ERROR: empty command"
	}

	jsonOut := false
	filtered := fields[:0:0]
	for _, f := range fields {
		if f == "--json" {
			jsonOut = true
			continue
		}
		filtered = append(filtered, f)
	}
	fields = filtered

	switch fields[0] {
	case "status":
		return srv.cmdStatus(jsonOut)
	case "dbg":
		return srv.cmdDbg(fields[1:], jsonOut)
	case "sched":
		return srv.cmdSched(fields[1:], jsonOut)
	case "persist":
		return srv.cmdPersist(fields[1:])
	case "load":
		return srv.cmdLoad(fields[1:])
	case "data":
		return srv.cmdData(fields[1:])
	case "start":
		return srv.cmdStart()
	case "stop":
		return srv.cmdStop()
	case "reset":
		return srv.cmdReset()
	default:
		return fmt.Sprintf("ERROR: unknown command %q", fields[0])
	}
}

func (srv *Server) cmdStatus(jsonOut bool) string {
	stats := SnapshotStats(srv.sched)
	if !jsonOut {
		return fmt.Sprintf("state=%s uptime_ms=%d cycles=%d overruns=%d active=%d",
			stats.State, stats.UptimeMs, stats.TotalCycles, stats.TotalOverruns, stats.ActiveTasks)
	}

	var b strings.Builder
	b.WriteByte('{')
	fmt.Fprintf(&b, `"state":%q,"uptime_ms":%d,"stats":{"cycles":%d,"overruns":%d,"active_tasks":%d},"tasks":[`,
		stats.State.String(), stats.UptimeMs, stats.TotalCycles, stats.TotalOverruns, stats.ActiveTasks)
	for i, t := range srv.sched.Tasks() {
		if i > 0 {
			b.WriteByte(',')
		}
		WriteTaskSnapshotJSON(&b, t.Slot,
			taskDefView{ID: t.Def.ID, Type: t.Def.Type.String(), Priority: t.Def.Priority, IntervalUs: t.Def.IntervalUs},
			taskStatsView{CycleCount: t.Stats.CycleCount, OverrunCount: t.Stats.OverrunCount, LastExecTimeUs: t.Stats.LastExecTimeUs},
			t.PC, t.SP, t.Halted, t.Error.String())
	}
	b.WriteString(`],"opi":`)
	WriteBytesJSON(&b, MemoryPeek(srv.sched.Memory(), opiPreviewBase, opiPreviewLen))
	b.WriteByte('}')
	return b.String()
}

const (
	opiPreviewBase = 0x1000
	opiPreviewLen  = 8
)

func (srv *Server) cmdDbg(args []string, jsonOut bool) string {
	if len(args) == 0 {
		return "ERROR: usage: dbg info|peek|poke"
	}
	switch args[0] {
	case "info":
		return srv.cmdDbgInfo(jsonOut)
	case "peek":
		return srv.cmdDbgPeek(args[1:], jsonOut)
	case "poke":
		return srv.cmdDbgPoke(args[1:])
	default:
		return fmt.Sprintf("ERROR: unknown dbg subcommand %q", args[0])
	}
}

func (srv *Server) cmdDbgInfo(jsonOut bool) string {
	tasks := srv.sched.Tasks()
	if len(tasks) == 0 {
		return "ERROR: no task registered"
	}
	s := VMSnapshot{PC: tasks[0].PC, SP: tasks[0].SP, Halted: tasks[0].Halted, Error: tasks[0].Error}
	if !jsonOut {
		return fmt.Sprintf("pc=0x%04X sp=%d halted=%t error=%s", s.PC, s.SP, s.Halted, s.Error)
	}
	var b strings.Builder
	b.WriteByte('{')
	fmt.Fprintf(&b, `"pc":%d,"sp":%d,"halted":%t,"error":%q,"opi":`, s.PC, s.SP, s.Halted, s.Error.String())
	WriteBytesJSON(&b, MemoryPeek(srv.sched.Memory(), opiPreviewBase, opiPreviewLen))
	b.WriteString(`,"ipi":`)
	WriteBytesJSON(&b, MemoryPeek(srv.sched.Memory(), 0x0000, opiPreviewLen))
	b.WriteByte('}')
	return b.String()
}

func (srv *Server) cmdDbgPeek(args []string, jsonOut bool) string {
	if len(args) == 0 {
		return "ERROR: usage: dbg peek <addr> [len]"
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return "ERROR: " + err.Error()
	}
	length := uint32(16)
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return "ERROR: invalid length " + args[1]
		}
		length = uint32(n)
	}
	data := MemoryPeek(srv.sched.Memory(), addr, length)
	if jsonOut {
		var b strings.Builder
		WriteBytesJSON(&b, data)
		return b.String()
	}
	return hex.EncodeToString(data)
}

func (srv *Server) cmdDbgPoke(args []string) string {
	if len(args) != 2 {
		return "ERROR: usage: dbg poke <addr> <byte>"
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		return "ERROR: " + err.Error()
	}
	v, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil {
		return "ERROR: invalid byte value " + args[1]
	}
	if err := MemoryPoke(srv.sched.Memory(), addr, byte(v), srv.enablePoke); err != nil {
		return "ERROR: " + err.Error()
	}
	return "OK"
}

func (srv *Server) cmdSched(args []string, jsonOut bool) string {
	if len(args) == 0 {
		return "ERROR: usage: sched status|tasks"
	}
	switch args[0] {
	case "status":
		return srv.cmdStatus(jsonOut)
	case "tasks":
		tasks := srv.sched.Tasks()
		if !jsonOut {
			var b strings.Builder
			for _, t := range tasks {
				fmt.Fprintf(&b, "slot=%d id=%d type=%s priority=%d cycles=%d overruns=%d error=%s\n",
					t.Slot, t.Def.ID, t.Def.Type, t.Def.Priority, t.Stats.CycleCount, t.Stats.OverrunCount, t.Error)
			}
			return strings.TrimRight(b.String(), "\n")
		}
		var b strings.Builder
		b.WriteByte('[')
		for i, t := range tasks {
			if i > 0 {
				b.WriteByte(',')
			}
			WriteTaskSnapshotJSON(&b, t.Slot,
				taskDefView{ID: t.Def.ID, Type: t.Def.Type.String(), Priority: t.Def.Priority, IntervalUs: t.Def.IntervalUs},
				taskStatsView{CycleCount: t.Stats.CycleCount, OverrunCount: t.Stats.OverrunCount, LastExecTimeUs: t.Stats.LastExecTimeUs},
				t.PC, t.SP, t.Halted, t.Error.String())
		}
		b.WriteByte(']')
		return b.String()
	default:
		return fmt.Sprintf("ERROR: unknown sched subcommand %q", args[0])
	}
}

func (srv *Server) cmdPersist(args []string) string {
	if len(args) == 0 {
		return "ERROR: usage: persist info|clear"
	}
	switch args[0] {
	case "info":
		lenBytes, ok, err := srv.store.Get(loader.PersistCodeLenKey)
		if err != nil {
			return "ERROR: " + err.Error()
		}
		if !ok || len(lenBytes) < 4 {
			return "code_len=0"
		}
		n := uint32(lenBytes[0]) | uint32(lenBytes[1])<<8 | uint32(lenBytes[2])<<16 | uint32(lenBytes[3])<<24
		return fmt.Sprintf("code_len=%d", n)
	case "clear":
		if err := srv.store.Set(loader.PersistCodeLenKey, []byte{0, 0, 0, 0}); err != nil {
			return "ERROR: " + err.Error()
		}
		if err := srv.store.Set(loader.PersistCodeKey, nil); err != nil {
			return "ERROR: " + err.Error()
		}
		return "OK"
	default:
		return fmt.Sprintf("ERROR: unknown persist subcommand %q", args[0])
	}
}

// cmdLoad begins a staged upload: "load <size>" announces how many
// bytes of hex-encoded program data will follow across one or more
// "data <hex>" lines (§6 "load <size> -> data <hex>... -> start").
func (srv *Server) cmdLoad(args []string) string {
	if len(args) != 1 {
		return "ERROR: usage: load <size>"
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return "ERROR: invalid size " + args[0]
	}
	srv.pending = &pendingLoad{size: n}
	return "OK"
}

func (srv *Server) cmdData(args []string) string {
	if srv.pending == nil {
		return "ERROR: no load in progress"
	}
	if len(args) != 1 {
		return "ERROR: usage: data <hex>"
	}
	chunk, err := hex.DecodeString(args[0])
	if err != nil {
		return "ERROR: invalid hex data"
	}
	srv.pending.buf = append(srv.pending.buf, chunk...)
	if len(srv.pending.buf) > srv.pending.size {
		srv.pending = nil
		return "ERROR: data exceeds announced load size"
	}
	if len(srv.pending.buf) < srv.pending.size {
		return "OK"
	}

	data := srv.pending.buf
	srv.pending = nil
	count, err := srv.sched.Load(data, srv.loadOpts)
	if err != nil {
		return "ERROR: " + err.Error()
	}
	if srv.store != nil {
		_ = loader.Persist(srv.store, data)
	}
	return fmt.Sprintf("OK tasks=%d", count)
}

func (srv *Server) cmdStart() string {
	if err := srv.sched.Start(); err != nil {
		return "ERROR: " + err.Error()
	}
	return "OK"
}

func (srv *Server) cmdStop() string {
	if err := srv.sched.Stop(); err != nil {
		return "ERROR: " + err.Error()
	}
	return "OK"
}

func (srv *Server) cmdReset() string {
	srv.sched.ResetFaults()
	return "OK"
}

func parseAddr(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint32(n), nil
}
