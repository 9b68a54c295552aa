package web

import (
	"sync"

	"github.com/google/uuid"

	"github.com/consilium-health/consilium/internal/council"
)

// run tracks one in-flight discussion: the events recorded so far plus the
// live subscribers following it.
type run struct {
	id string

	mu     sync.Mutex
	events []council.Event
	subs   map[string]chan council.Event
	done   bool
}

// publish records an event and fans it out to subscribers. Slow subscribers
// drop events rather than block the discussion; the recorded history is the
// authoritative record.
func (r *run) publish(event council.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	for _, ch := range r.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// close marks the run finished and closes all subscriber channels.
func (r *run) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
	for id, ch := range r.subs {
		close(ch)
		delete(r.subs, id)
	}
}

// subscribe returns the history recorded so far and a channel of subsequent
// events. The channel is closed when the run ends. The returned function
// unsubscribes.
func (r *run) subscribe() ([]council.Event, <-chan council.Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := make([]council.Event, len(r.events))
	copy(history, r.events)

	ch := make(chan council.Event, 256)
	if r.done {
		close(ch)
		return history, ch, func() {}
	}

	subID := uuid.NewString()
	r.subs[subID] = ch
	return history, ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subs[subID]; ok {
			delete(r.subs, subID)
		}
	}
}

// runRegistry holds active and recently finished runs by id.
type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]*run
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*run)}
}

// start registers a new run under a fresh id.
func (reg *runRegistry) start() *run {
	r := &run{
		id:   uuid.NewString(),
		subs: make(map[string]chan council.Event),
	}
	reg.mu.Lock()
	reg.runs[r.id] = r
	reg.mu.Unlock()
	return r
}

func (reg *runRegistry) get(id string) (*run, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.runs[id]
	return r, ok
}
