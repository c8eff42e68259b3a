package service

import (
	"sync"
	"time"
)

// RefreshEvent tells subscribers that the attendance view is stale.
type RefreshEvent struct {
	Type    string    `json:"type"`
	Trigger string    `json:"trigger,omitempty"`
	Updated int       `json:"updated"`
	Errors  int       `json:"errors"`
	At      time.Time `json:"at"`
}

// RefreshHub fans refresh events out to subscribers. Slow subscribers miss
// events rather than block the publisher.
type RefreshHub struct {
	mu     sync.RWMutex
	subs   map[chan RefreshEvent]struct{}
	buffer int
}

// NewRefreshHub builds a hub whose subscriber channels hold buffer events.
func NewRefreshHub(buffer int) *RefreshHub {
	if buffer <= 0 {
		buffer = 8
	}
	return &RefreshHub{subs: make(map[chan RefreshEvent]struct{}), buffer: buffer}
}

// Subscribe registers a listener. The returned cancel func must be called
// to release it; it closes the channel.
func (h *RefreshHub) Subscribe() (<-chan RefreshEvent, func()) {
	ch := make(chan RefreshEvent, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers event to every subscriber with room for it.
func (h *RefreshHub) Publish(event RefreshEvent) {
	if h == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers returns the number of active listeners.
func (h *RefreshHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
