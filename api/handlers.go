package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/eduardojvieira/ZPLC-sub003/debug"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"ok":true}`)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	debug.WriteStatsSnapshotJSON(w, debug.SnapshotStats(s.sched))
}

func (s *Server) handleDbgInfo(w http.ResponseWriter, r *http.Request) {
	tasks := s.sched.Tasks()
	if len(tasks) == 0 {
		http.Error(w, `{"error":"no task registered"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	debug.WriteVMSnapshotJSON(w, debug.VMSnapshot{
		PC: tasks[0].PC, SP: tasks[0].SP, Halted: tasks[0].Halted, Error: tasks[0].Error,
	})
}

func (s *Server) handleDbgPeek(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	addr, err := strconv.ParseUint(q.Get("addr"), 0, 32)
	if err != nil {
		http.Error(w, `{"error":"invalid addr"}`, http.StatusBadRequest)
		return
	}
	length := uint64(16)
	if l := q.Get("len"); l != "" {
		length, err = strconv.ParseUint(l, 0, 32)
		if err != nil {
			http.Error(w, `{"error":"invalid len"}`, http.StatusBadRequest)
			return
		}
	}
	data := debug.MemoryPeek(s.sched.Memory(), uint32(addr), uint32(length))
	w.Header().Set("Content-Type", "application/json")
	debug.WriteBytesJSON(w, data)
}

func (s *Server) handleSchedTasks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, s.dbg.Handle("sched tasks --json"))
}
