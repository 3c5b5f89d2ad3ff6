package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Actions mirror the change kinds emitted by the backing tables.
const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Event is one table change pushed to subscribers. No ordering is guaranteed
// relative to a subscriber's own in-flight mutations; consumers treat their
// latest fetch as authoritative.
type Event struct {
	Table  string      `json:"table"`
	Action string      `json:"action"`
	Record interface{} `json:"record,omitempty"`
}

type subscriber struct {
	send   chan []byte
	tables map[string]bool // empty means every table
}

func (s *subscriber) wants(table string) bool {
	return len(s.tables) == 0 || s.tables[table]
}

// Hub fans table-change events out to websocket subscribers. Handlers call
// Broadcast after each successful mutation; rendering stays decoupled from
// the notification path.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		logger:      logger,
	}
}

func (h *Hub) register(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub] = struct{}{}
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
	}
}

// Broadcast pushes an event to every subscriber of the table. Subscribers
// with a full send buffer miss the event; they are expected to re-fetch on
// reconnect anyway.
func (h *Hub) Broadcast(table, action string, record interface{}) {
	payload, err := json.Marshal(Event{Table: table, Action: action, Record: record})
	if err != nil {
		h.logger.Error("failed to encode change event", zap.String("table", table), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		if !sub.wants(table) {
			continue
		}
		select {
		case sub.send <- payload:
		default:
			h.logger.Debug("dropping change event for slow subscriber", zap.String("table", table))
		}
	}
}

// SubscriberCount is used by tests and the dashboard.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
