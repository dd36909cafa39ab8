package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// EventMessage is the wire format of one event on the stream.
type EventMessage struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Event     string `json:"event"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Hub fans events out to connected websocket clients. The shell subscribes
// to /ws and renders plugin and plan lifecycle updates live.
type Hub struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]bool
}

type hubClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *hubClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewHub creates an event hub. Only local connections are expected, so
// origin checks are permissive.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "gateway-hub").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*hubClient]bool),
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the
// client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	client := &hubClient{conn: conn}
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", count).Msg("Websocket client connected")

	// Drain reads so pings and close frames are processed.
	go func() {
		defer h.drop(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(client *hubClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	client.conn.Close()
}

// Broadcast sends an event to every connected client. Clients that fail
// the write are dropped.
func (h *Hub) Broadcast(event string, data any) {
	id, err := gonanoid.New()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to mint event id")
		return
	}

	msg := EventMessage{
		ID:        id,
		Type:      "event",
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Failed to marshal event")
		return
	}

	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if err := client.write(payload); err != nil {
			h.logger.Warn().Err(err).Str("event", event).Msg("Dropping websocket client")
			h.drop(client)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*hubClient]bool)
	h.mu.Unlock()

	for _, client := range clients {
		client.conn.Close()
	}
}
