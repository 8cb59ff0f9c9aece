package handlers

import (
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"

	"github.com/protokollmine/protokollmine/internal/pipeline"
)

// progressMessage is the wire format pushed to websocket clients
type progressMessage struct {
	JobID string         `json:"job_id"`
	Event pipeline.Event `json:"event"`
}

// ProgressHub fans pipeline events out to connected websocket clients
type ProgressHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewProgressHub creates an empty hub
func NewProgressHub() *ProgressHub {
	return &ProgressHub{clients: make(map[*websocket.Conn]bool)}
}

// Broadcast pushes one job event to every connected client. Clients that
// fail to receive are dropped.
func (h *ProgressHub) Broadcast(jobID string, event pipeline.Event) {
	message := progressMessage{JobID: jobID, Event: event}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(message); err != nil {
			log.Printf("Dropping websocket client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Handle registers a websocket connection and blocks until it closes
func (h *ProgressHub) Handle(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Consume client frames until the connection goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
