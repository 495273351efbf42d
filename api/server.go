package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/eduardojvieira/ZPLC-sub003/debug"
	"github.com/eduardojvieira/ZPLC-sub003/loader"
	"github.com/eduardojvieira/ZPLC-sub003/scheduler"
)

// Server is the HTTP + WebSocket status surface (§4.6, §1 "JSON
// emitters... for operators / external tooling"), grounded on the
// teacher's api.Server: an http.ServeMux, a broadcaster, and a thin
// CORS wrapper restricted to local origins.
type Server struct {
	sched       *scheduler.Scheduler
	dbg         *debug.Server
	broadcaster *Broadcaster
	mux         *http.ServeMux
	server      *http.Server
	logger      *log.Logger
	addr        string
}

// NewServer builds a Server bound to sched, answering the operator
// protocol through dbg (the same debug.Server the console/serial
// front-ends use), listening on addr (e.g. "127.0.0.1:7077",
// config.Debug.APIAddr).
func NewServer(sched *scheduler.Scheduler, store loader.Store, loadOpts loader.Options, enablePoke bool, addr string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(discardWriter{}, "", 0)
	}
	s := &Server{
		sched:       sched,
		dbg:         debug.NewServer(sched, store, loadOpts, enablePoke),
		broadcaster: NewBroadcaster(),
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
	}
	s.registerRoutes()
	sched.OnCycle(s.onCycle)
	return s
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/dbg/info", s.handleDbgInfo)
	s.mux.HandleFunc("/dbg/peek", s.handleDbgPeek)
	s.mux.HandleFunc("/sched/tasks", s.handleSchedTasks)
	s.mux.HandleFunc("/ws", s.handleWS)
}

// Handler returns the HTTP handler with local-only CORS applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Printf("api: listening on http://%s", s.addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and disconnects every
// WebSocket client.
func (s *Server) Shutdown(ctx context.Context) error {
	s.broadcaster.Close()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) onCycle(snap scheduler.TaskSnapshot) {
	s.broadcaster.Publish(BroadcastEvent{
		Slot:           snap.Slot,
		TaskID:         snap.Def.ID,
		CycleCount:     snap.Stats.CycleCount,
		OverrunCount:   snap.Stats.OverrunCount,
		LastExecTimeUs: snap.Stats.LastExecTimeUs,
		PC:             snap.PC,
		SP:             snap.SP,
		Halted:         snap.Halted,
		Error:          snap.Error.String(),
	})
}

// corsMiddleware restricts cross-origin requests to localhost, the
// same allowlist shape as the teacher's corsMiddleware.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if isLocalOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLocalOrigin(origin string) bool {
	switch {
	case origin == "":
		return false
	case origin == "http://localhost" || origin == "https://localhost":
		return true
	default:
		for _, prefix := range []string{"http://localhost:", "https://localhost:", "http://127.0.0.1:", "https://127.0.0.1:"} {
			if len(origin) > len(prefix) && origin[:len(prefix)] == prefix {
				return true
			}
		}
		return false
	}
}
