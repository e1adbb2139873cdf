package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/statecraft/internal/engine"
)

const (
	maxStreamConns = 16
	streamBuffer   = 8
	pingInterval   = 15 * time.Second
	writeTimeout   = 5 * time.Second
)

// streamMessage is the frame sent to stream clients.
type streamMessage struct {
	Type     string              `json:"type"` // "turn"
	Snapshot engine.TurnSnapshot `json:"snapshot"`
}

// Hub fans turn snapshots out to connected stream clients. Slow clients
// miss turns rather than hold up the simulation.
type Hub struct {
	mu      sync.Mutex
	clients map[uint64]chan []byte
	nextID  uint64
	last    []byte
}

// NewHub creates a hub with no clients.
func NewHub() *Hub {
	return &Hub{clients: make(map[uint64]chan []byte)}
}

// Broadcast encodes a snapshot once and queues it for every client.
func (h *Hub) Broadcast(snap engine.TurnSnapshot) {
	data, err := json.Marshal(streamMessage{Type: "turn", Snapshot: snap})
	if err != nil {
		slog.Error("encode stream frame", "turn", snap.Turn, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for id, ch := range h.clients {
		select {
		case ch <- data:
		default:
			slog.Debug("stream client behind, dropping turn", "client", id, "turn", snap.Turn)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// join registers a client. The last broadcast frame, if any, is queued first.
// ok is false when the hub is full.
func (h *Hub) join() (id uint64, ch chan []byte, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) >= maxStreamConns {
		return 0, nil, false
	}
	h.nextID++
	ch = make(chan []byte, streamBuffer)
	if h.last != nil {
		ch <- h.last
	}
	h.clients[h.nextID] = ch
	return h.nextID, ch, true
}

func (h *Hub) leave(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
	// Read-only feed of public data.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream upgrades to a websocket and pushes a snapshot after every turn.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Join before upgrading so a client that has connected never misses
	// the next turn.
	id, frames, ok := s.hub.join()
	if !ok {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.hub.leave(id)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	slog.Info("stream client connected", "client", id)

	// Reader: we expect nothing but close frames; it ends when the client goes.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case data := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-gone:
			slog.Info("stream client disconnected", "client", id)
			return
		case <-r.Context().Done():
			return
		}
	}
}
