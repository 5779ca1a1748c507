package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"linkcamp/internal/common"
	"linkcamp/internal/metrics"
)

// Frame is the wire envelope for every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	At    *time.Time      `json:"at,omitempty"`
}

type outboundFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	At    time.Time   `json:"at"`
}

// Hub tracks connections and their room membership. It is the observer that
// turns dispatched events into websocket frames.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewHub(log *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		log:     log,
		metrics: m,
	}
}

func (h *Hub) Name() string {
	return "websocket_hub"
}

func (h *Hub) Update(event common.Event) error {
	h.Broadcast(event)
	return nil
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.metrics.ClientConnected()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for room := range c.rooms {
		h.leaveLocked(room, c)
	}
	h.mu.Unlock()
	h.metrics.ClientDisconnected()
}

func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.id] = c
	c.rooms[room] = struct{}{}
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

func (h *Hub) leaveLocked(room string, c *Client) {
	delete(c.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c.id)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast sends the event once to every client in any of its rooms.
func (h *Hub) Broadcast(event common.Event) int {
	msg, err := json.Marshal(outboundFrame{Event: event.Name, Data: event.Payload, At: event.At})
	if err != nil {
		h.log.Error("failed to encode realtime event", "event", event.Name, "error", err)
		return 0
	}

	h.mu.RLock()
	targets := make(map[string]*Client)
	for _, room := range event.Rooms {
		for id, c := range h.rooms[room] {
			targets[id] = c
		}
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.enqueue(msg) {
			sent++
			continue
		}
		h.log.Warn("client buffer full, disconnecting", "conn_id", c.id, "email", c.email)
		h.metrics.Dropped("slow_client")
		c.close()
	}
	h.metrics.Broadcast(event.Name)
	return sent
}

// SendTo writes a frame to a single connection.
func (h *Hub) SendTo(c *Client, event string, data interface{}) {
	msg, err := json.Marshal(outboundFrame{Event: event, Data: data, At: time.Now()})
	if err != nil {
		return
	}
	if !c.enqueue(msg) {
		c.close()
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}
