// Package handlers provides the HTTP handlers of the dashboard server.
package handlers

import (
	"log"
	"sync"

	"github.com/knx2openhab/dashboard/internal/view"
)

// Message is one panel update sent to the browser.
type Message struct {
	Target string `json:"target"`
	HTML   string `json:"html"`
}

const subscriberBuffer = 256

type subscriber struct {
	ch chan Message
}

// Hub fans panel updates of a session out to every connection of that
// session. A connection that cannot keep up is dropped; the browser
// reconnects and receives a full replay.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

// Sink returns the view sink of a session.
func (h *Hub) Sink(sessionID string) view.Sink {
	return view.SinkFunc(func(target, html string) {
		h.Publish(sessionID, Message{Target: target, HTML: html})
	})
}

// Publish delivers m to every connection of sessionID.
func (h *Hub) Publish(sessionID string, m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[sessionID] {
		select {
		case sub.ch <- m:
		default:
			log.Printf("[Hub] Dropping slow connection of session %s", sessionID)
			h.removeLocked(sessionID, sub)
		}
	}
}

// Subscribe registers a connection. The channel is closed by cancel or
// when the connection falls behind.
func (h *Hub) Subscribe(sessionID string) (<-chan Message, func()) {
	sub := &subscriber{ch: make(chan Message, subscriberBuffer)}

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*subscriber]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
	h.mu.Unlock()

	return sub.ch, func() {
		h.mu.Lock()
		h.removeLocked(sessionID, sub)
		h.mu.Unlock()
	}
}

func (h *Hub) removeLocked(sessionID string, sub *subscriber) {
	set, ok := h.subs[sessionID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sessionID)
	}
}

// Connections returns the number of connections of sessionID.
func (h *Hub) Connections(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}
