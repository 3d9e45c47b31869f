package live

import (
	"context"
	"sync"
)

// Listener receives coalesced notifications for one topic.
type Listener struct {
	topic  string
	notify chan struct{}
	once   sync.Once
	detach func(*Listener)
}

// C fires at least once after every Publish that happened while the listener
// was registered. Bursts collapse into a single pending signal.
func (l *Listener) C() <-chan struct{} {
	return l.notify
}

func (l *Listener) Topic() string {
	return l.topic
}

// Close unregisters the listener. It is safe to call more than once.
func (l *Listener) Close() {
	l.once.Do(func() {
		if l.detach != nil {
			l.detach(l)
		}
	})
}

func (l *Listener) signal() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Hub is the in-process broker.
type Hub struct {
	mu        sync.RWMutex
	listeners map[string]map[*Listener]struct{}
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[string]map[*Listener]struct{})}
}

func (h *Hub) Subscribe(topic string) *Listener {
	l := &Listener{topic: topic, notify: make(chan struct{}, 1), detach: h.remove}
	h.mu.Lock()
	set, ok := h.listeners[topic]
	if !ok {
		set = make(map[*Listener]struct{})
		h.listeners[topic] = set
	}
	set[l] = struct{}{}
	h.mu.Unlock()
	return l
}

func (h *Hub) Publish(_ context.Context, topic string) error {
	h.Notify(topic)
	return nil
}

// Notify signals every listener registered on topic without blocking.
func (h *Hub) Notify(topic string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for l := range h.listeners[topic] {
		l.signal()
	}
}

// Len reports the number of registered listeners on topic.
func (h *Hub) Len(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[topic])
}

func (h *Hub) remove(l *Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.listeners[l.topic]
	delete(set, l)
	if len(set) == 0 {
		delete(h.listeners, l.topic)
	}
}
