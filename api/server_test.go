package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eduardojvieira/ZPLC-sub003/hal"
	"github.com/eduardojvieira/ZPLC-sub003/loader"
	"github.com/eduardojvieira/ZPLC-sub003/memory"
	"github.com/eduardojvieira/ZPLC-sub003/scheduler"
)

func newTestAPIServer(t *testing.T) *Server {
	t.Helper()
	mem := memory.New()
	simhal := hal.NewSimHAL()
	sched := scheduler.New(mem, simhal, 8, 1000, nil)
	return NewServer(sched, simhal, loader.Options{AllowRaw: true}, true, "127.0.0.1:0", nil)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestAPIServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestAPIServer(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected json content type, got %s", ct)
	}
}

func TestDbgInfoNoTasks(t *testing.T) {
	s := newTestAPIServer(t)
	req := httptest.NewRequest(http.MethodGet, "/dbg/info", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with no tasks registered, got %d", rec.Code)
	}
}

func TestCORSRejectsRemoteOrigin(t *testing.T) {
	s := newTestAPIServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected no CORS header for a remote origin")
	}
}

func TestCORSAllowsLocalOrigin(t *testing.T) {
	s := newTestAPIServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Error("expected CORS header echoing the localhost origin")
	}
}
