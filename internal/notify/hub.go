// Package notify fans match events out to connected players.
package notify

import (
	"encoding/json"
	"log"
	"sync"

	"arcade/internal/match"
)

// SendBuffer is the per-connection outbound queue length.
const SendBuffer = 64

// Event is the envelope pushed to clients.
type Event struct {
	Type  string       `json:"type"`
	Match *match.Match `json:"match"`
}

// Subscriber is one connection's outbound channel.
type Subscriber struct {
	PlayerID string
	Send     chan []byte
}

// Hub tracks subscribers per player. A player may hold several connections.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

var _ match.Publisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a new connection for playerID.
func (h *Hub) Subscribe(playerID string) *Subscriber {
	sub := &Subscriber{PlayerID: playerID, Send: make(chan []byte, SendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[playerID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[playerID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.PlayerID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.Send)
	if len(set) == 0 {
		delete(h.subs, sub.PlayerID)
	}
}

// Publish sends an event to every connection of playerID. Connections whose
// buffer is full miss the event; clients resync with GET /api/matches/{id}.
func (h *Hub) Publish(playerID, event string, m *match.Match) {
	data, err := json.Marshal(Event{Type: event, Match: m})
	if err != nil {
		log.Printf("notify: marshal %s for %s: %v", event, playerID, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[playerID] {
		select {
		case sub.Send <- data:
		default:
			// drop message if buffer full
		}
	}
}

// Connected reports how many connections playerID has.
func (h *Hub) Connected(playerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[playerID])
}
