package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	StockUpdated   EventType = "STOCK_UPDATED"
	TradeExecuted  EventType = "TRADE_EXECUTED"
	PositionOpened EventType = "POSITION_OPENED"
	PositionClosed EventType = "POSITION_CLOSED"
	SnapshotTaken  EventType = "SNAPSHOT_TAKEN"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Manager handles event emission, logging, and subscriber fan-out
type Manager struct {
	log    zerolog.Logger
	mu     sync.RWMutex
	subs   map[int]chan *Event
	nextID int
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log:  log.With().Str("service", "events").Logger(),
		subs: make(map[int]chan *Event),
	}
}

// Emit logs an event and delivers it to all subscribers. Delivery is
// best-effort: a subscriber whose buffer is full misses the event rather
// than blocking the emitter.
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	m.log.Info().
		Str("event", string(eventType)).
		Str("module", module).
		Interface("data", data).
		Msg("Event emitted")

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel function. The channel is buffered; see Emit for drop semantics.
func (m *Manager) Subscribe() (<-chan *Event, func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	ch := make(chan *Event, 100)
	m.subs[id] = ch
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
		m.mu.Unlock()
	}

	return ch, cancel
}

// SubscriberCount returns the number of active subscribers
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}
