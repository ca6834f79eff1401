package monitor

import (
	"sync"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
)

// Key addresses a single attempt
type Key struct {
	JobID         string
	AttemptNumber int
}

// Hub fans resolution events out to the monitors waiting on them.
// Events for attempts nobody waits on are dropped; the poll fallback covers
// events that arrive before a subscription.
type Hub struct {
	mu   sync.Mutex
	subs map[Key]map[*subscription]struct{}
}

type subscription struct {
	ch chan domain.AttemptStatus
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[Key]map[*subscription]struct{})}
}

// Subscribe registers interest in key. The returned cancel func must be
// called once the caller stops listening.
func (h *Hub) Subscribe(key Key) (<-chan domain.AttemptStatus, func()) {
	sub := &subscription{ch: make(chan domain.AttemptStatus, 1)}

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*subscription]struct{})
	}
	h.subs[key][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[key]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, key)
			}
		}
	}
	return sub.ch, cancel
}

// Publish delivers status to every subscriber of key without blocking and
// returns how many subscribers received it.
func (h *Hub) Publish(key Key, status domain.AttemptStatus) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for sub := range h.subs[key] {
		select {
		case sub.ch <- status:
			delivered++
		default:
		}
	}
	return delivered
}

// Waiting reports the number of keys with at least one subscriber
func (h *Hub) Waiting() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
