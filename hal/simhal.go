package hal

import (
	"sync"
	"time"
)

// SimHAL is the reference platform implementation: a real wall clock,
// an in-memory key/value store standing in for NVRAM, and a map of
// named boolean I/O points. It is what cmd/zplcd wires up by default
// and what the debug, api and console tests use in place of real
// hardware.
type SimHAL struct {
	mu sync.RWMutex

	epoch time.Time
	kv    map[string][]byte
	io    map[string]bool
}

// NewSimHAL creates a SimHAL whose clock starts now.
func NewSimHAL() *SimHAL {
	return &SimHAL{
		epoch: time.Now(),
		kv:    make(map[string][]byte),
		io:    make(map[string]bool),
	}
}

// TickMillis implements vm.HALInterface.
func (h *SimHAL) TickMillis() uint32 {
	return uint32(time.Since(h.epoch).Milliseconds())
}

// NowUs implements scheduler.Clock.
func (h *SimHAL) NowUs() uint64 {
	return uint64(time.Since(h.epoch).Microseconds())
}

// SleepUntil implements scheduler.Clock by blocking the calling
// goroutine (the dispatch loop) until the wall clock reaches
// deadlineUs or has already passed it.
func (h *SimHAL) SleepUntil(deadlineUs uint64) {
	now := h.NowUs()
	if deadlineUs <= now {
		return
	}
	time.Sleep(time.Duration(deadlineUs-now) * time.Microsecond)
}

// Get implements loader.Store.
func (h *SimHAL) Get(key string) ([]byte, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.kv[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set implements loader.Store.
func (h *SimHAL) Set(key string, value []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	h.kv[key] = cp
	return nil
}

// ReadInput returns the last value WriteOutput or SetInput recorded for
// point, or false if it has never been set.
func (h *SimHAL) ReadInput(point string) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.io[point], nil
}

// WriteOutput records a value for point so a later ReadInput (or the
// debug surface, or a test) can observe what the program drove.
func (h *SimHAL) WriteOutput(point string, value bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.io[point] = value
	return nil
}

// SetInput lets a test or a simulated fieldbus stimulate an input point
// directly, as if an external sensor had changed state.
func (h *SimHAL) SetInput(point string, value bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.io[point] = value
}

// ClearPersisted wipes the simulated NVRAM, for tests that need a clean
// boot state. The operator protocol's "persist clear" command does not
// call it; it overwrites the persistence keys through Set instead.
func (h *SimHAL) ClearPersisted() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kv = make(map[string][]byte)
}

var _ Interface = (*SimHAL)(nil)
