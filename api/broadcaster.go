// Package api is the HTTP + WebSocket status surface for external
// tooling named in §1 ("JSON emitters... for operators / external
// tooling"): GET /status, GET /dbg/info, and GET /ws streaming one
// BroadcastEvent per scheduler cycle. Grounded on the teacher's
// api/server.go, api/broadcaster.go and api/websocket.go, scaled down
// to this module's single-stream domain (no per-session subscription
// filtering — every connected client sees every cycle event).
package api

import "sync"

// BroadcastEvent is one scheduler cycle's outcome, pushed to every
// connected WebSocket client (§4.6 "JSON emitters... for operators").
type BroadcastEvent struct {
	Slot           int    `json:"slot"`
	TaskID         uint16 `json:"task_id"`
	CycleCount     uint64 `json:"cycle_count"`
	OverrunCount   uint64 `json:"overrun_count"`
	LastExecTimeUs uint64 `json:"last_exec_time_us"`
	PC             uint16 `json:"pc"`
	SP             uint16 `json:"sp"`
	Halted         bool   `json:"halted"`
	Error          string `json:"error"`
}

// Broadcaster fans out BroadcastEvents to every subscribed client,
// the same register/unregister/broadcast goroutine pattern as the
// teacher's Broadcaster, minus per-session/per-event-type filtering
// (this module has one event stream, not per-debug-session ones).
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan BroadcastEvent]bool

	broadcast  chan BroadcastEvent
	register   chan chan BroadcastEvent
	unregister chan chan BroadcastEvent
	done       chan struct{}
}

// NewBroadcaster creates and starts a Broadcaster.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		subs:       make(map[chan BroadcastEvent]bool),
		broadcast:  make(chan BroadcastEvent, 256),
		register:   make(chan chan BroadcastEvent),
		unregister: make(chan chan BroadcastEvent),
		done:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broadcaster) run() {
	for {
		select {
		case ch := <-b.register:
			b.mu.Lock()
			b.subs[ch] = true
			b.mu.Unlock()

		case ch := <-b.unregister:
			b.mu.Lock()
			if b.subs[ch] {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()

		case ev := <-b.broadcast:
			b.mu.RLock()
			for ch := range b.subs {
				select {
				case ch <- ev:
				default:
					// Slow client: drop this event rather than block
					// the broadcaster (§5 "short critical sections
					// only" applies to this fan-out the same way it
					// applies to the process-image lock).
				}
			}
			b.mu.RUnlock()

		case <-b.done:
			b.mu.Lock()
			for ch := range b.subs {
				close(ch)
			}
			b.subs = make(map[chan BroadcastEvent]bool)
			b.mu.Unlock()
			return
		}
	}
}

// Publish queues an event for delivery to every subscriber. Safe to
// call from the scheduler's dispatch goroutine via Scheduler.OnCycle.
func (b *Broadcaster) Publish(ev BroadcastEvent) {
	select {
	case b.broadcast <- ev:
	default:
		// Broadcaster itself is backed up; drop rather than stall the
		// scheduler's cycle (never block inside a scheduler callback).
	}
}

// Subscribe registers a new client channel.
func (b *Broadcaster) Subscribe() chan BroadcastEvent {
	ch := make(chan BroadcastEvent, 32)
	b.register <- ch
	return ch
}

// Unsubscribe removes a client channel.
func (b *Broadcaster) Unsubscribe(ch chan BroadcastEvent) {
	b.unregister <- ch
}

// Close shuts the broadcaster down and disconnects every client.
func (b *Broadcaster) Close() {
	close(b.done)
}
