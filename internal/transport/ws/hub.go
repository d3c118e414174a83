package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"onistone.build/internal/protocol"
)

// Hub routes engine notifications to connected actors. Sends never block:
// a full connection queue drops the message.
type Hub struct {
	mu    sync.Mutex
	conns map[string]chan []byte

	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{conns: map[string]chan []byte{}}
}

// Register attaches out to the actor, replacing an older connection.
func (h *Hub) Register(actorID string, out chan []byte) {
	h.mu.Lock()
	h.conns[actorID] = out
	h.mu.Unlock()
}

// Unregister detaches out, unless a newer connection already took its place.
func (h *Hub) Unregister(actorID string, out chan []byte) {
	h.mu.Lock()
	if h.conns[actorID] == out {
		delete(h.conns, actorID)
	}
	h.mu.Unlock()
}

func (h *Hub) Notify(actorID, text string) {
	h.mu.Lock()
	out, ok := h.conns[actorID]
	h.mu.Unlock()
	if !ok {
		return
	}
	b, err := json.Marshal(protocol.NotifyMsg{Type: protocol.TypeNotify, Text: text})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hub) Connected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) Dropped() uint64 { return h.dropped.Load() }
