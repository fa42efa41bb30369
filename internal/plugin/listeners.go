package plugin

import (
	"maps"
	"sync"
)

// ListenerFunc receives an event payload. The payload is a private copy.
type ListenerFunc func(payload map[string]any)

// Listeners is a per-event registry of application-side listeners.
// Delivery is fire and forget: nothing is buffered for listeners that
// subscribe later.
type Listeners struct {
	mu      sync.Mutex
	nextID  uint64
	byEvent map[string][]entry
}

type entry struct {
	id uint64
	fn ListenerFunc
}

// Handle removes one listener.
type Handle struct {
	owner *Listeners
	event string
	id    uint64
}

func NewListeners() *Listeners {
	return &Listeners{byEvent: make(map[string][]entry)}
}

// Add subscribes fn to event.
func (l *Listeners) Add(event string, fn ListenerFunc) *Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	l.byEvent[event] = append(l.byEvent[event], entry{id: l.nextID, fn: fn})
	return &Handle{owner: l, event: event, id: l.nextID}
}

// Remove unsubscribes the listener. Removing twice is harmless.
func (h *Handle) Remove() {
	l := h.owner
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := l.byEvent[h.event]
	for i, e := range entries {
		if e.id == h.id {
			l.byEvent[h.event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// RemoveAll drops every listener of every event.
func (l *Listeners) RemoveAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byEvent = make(map[string][]entry)
}

// Count returns the number of listeners for event.
func (l *Listeners) Count(event string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byEvent[event])
}

// Notify calls every listener of event in subscription order.
func (l *Listeners) Notify(event string, payload map[string]any) {
	l.mu.Lock()
	entries := l.byEvent[event]
	l.mu.Unlock()

	for _, e := range entries {
		e.fn(maps.Clone(payload))
	}
}
