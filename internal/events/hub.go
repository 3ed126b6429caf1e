// Package events fans evaluation progress out to listeners over
// per-run channels. The web layers stream these as Server-Sent Events.
package events

import (
	"log"
	"sync"
	"time"
)

// Run event types
const (
	TypeRunStarted     = "run_started"
	TypeSliceEvaluated = "slice_evaluated"
	TypeRunCompleted   = "run_completed"
	TypeRunFailed      = "run_failed"
)

// RunEvent is one progress update of an evaluation run
type RunEvent struct {
	RunID     string                 `json:"run_id"`
	EventType string                 `json:"event_type"`
	Slice     string                 `json:"slice,omitempty"`
	Progress  float64                `json:"progress"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type subscriber struct {
	runID   string
	channel chan RunEvent
}

// Hub manages run event subscriptions and broadcasts
type Hub struct {
	clients    map[string]map[chan RunEvent]bool
	clientsMu  sync.RWMutex
	register   chan subscriber
	unregister chan subscriber
	broadcast  chan RunEvent
}

// NewHub creates an event hub and starts its dispatch loop
func NewHub() *Hub {
	hub := &Hub{
		clients:    make(map[string]map[chan RunEvent]bool),
		register:   make(chan subscriber, 10),
		unregister: make(chan subscriber, 10),
		broadcast:  make(chan RunEvent, 100),
	}

	go hub.run()
	return hub
}

// run processes hub operations
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.runID] == nil {
				h.clients[client.runID] = make(map[chan RunEvent]bool)
			}
			h.clients[client.runID][client.channel] = true
			log.Printf("[EventHub] Listener registered for run %s (total: %d)",
				client.runID, len(h.clients[client.runID]))
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[client.runID]; exists {
				delete(clients, client.channel)
				close(client.channel)
				log.Printf("[EventHub] Listener unregistered from run %s (remaining: %d)",
					client.runID, len(clients))
				if len(clients) == 0 {
					delete(h.clients, client.runID)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			if clients, exists := h.clients[event.RunID]; exists {
				for clientChan := range clients {
					select {
					case clientChan <- event:
					default:
						// Listener channel is full, skip
						log.Printf("[EventHub] Listener channel full for run %s, skipping event",
							event.RunID)
					}
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Subscribe registers a listener for a run's events. Returns nil when
// the hub cannot accept registrations.
func (h *Hub) Subscribe(runID string) chan RunEvent {
	channel := make(chan RunEvent, 10)
	select {
	case h.register <- subscriber{runID: runID, channel: channel}:
		return channel
	default:
		return nil
	}
}

// Unsubscribe removes a listener. The hub closes the channel.
func (h *Hub) Unsubscribe(runID string, channel chan RunEvent) {
	select {
	case h.unregister <- subscriber{runID: runID, channel: channel}:
	default:
		// Hub might be overloaded, just drop the registration
	}
}

// Broadcast sends an event to all listeners of its run
func (h *Hub) Broadcast(event RunEvent) {
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[EventHub] Broadcast channel full, dropping event: %s", event.EventType)
	}
}

// RunStarted announces that evaluation of a run began
func (h *Hub) RunStarted(runID string, data map[string]interface{}) {
	h.Broadcast(RunEvent{
		RunID:     runID,
		EventType: TypeRunStarted,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// SliceEvaluated announces one evaluated slice with overall progress
func (h *Hub) SliceEvaluated(runID, slice string, progress float64) {
	h.Broadcast(RunEvent{
		RunID:     runID,
		EventType: TypeSliceEvaluated,
		Slice:     slice,
		Progress:  progress,
		Timestamp: time.Now(),
	})
}

// RunCompleted announces a finished run
func (h *Hub) RunCompleted(runID string, data map[string]interface{}) {
	h.Broadcast(RunEvent{
		RunID:     runID,
		EventType: TypeRunCompleted,
		Progress:  1,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// RunFailed announces a failed run with its error message
func (h *Hub) RunFailed(runID, message string) {
	h.Broadcast(RunEvent{
		RunID:     runID,
		EventType: TypeRunFailed,
		Data:      map[string]interface{}{"error": message},
		Timestamp: time.Now(),
	})
}

// ActiveRuns returns runs with at least one listener
func (h *Hub) ActiveRuns() []string {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	runs := make([]string, 0, len(h.clients))
	for runID := range h.clients {
		runs = append(runs, runID)
	}
	return runs
}

// ClientCount returns the number of listeners on a run
func (h *Hub) ClientCount(runID string) int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	if clients, exists := h.clients[runID]; exists {
		return len(clients)
	}
	return 0
}
