package utility

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// DefaultWriteWait bounds a single websocket write.
const DefaultWriteWait = 10 * time.Second

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow CORS for development
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient serializes writes to one connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub holds the open websocket connections of each wizard session. A
// session may be watched from several tabs.
type Hub struct {
	mu        sync.Mutex
	clients   map[string]map[*websocket.Conn]*wsClient
	writeWait time.Duration
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]map[*websocket.Conn]*wsClient),
		writeWait: DefaultWriteWait,
	}
}

// Register a new client connection for sessionID.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[*websocket.Conn]*wsClient)
	}
	h.clients[sessionID][conn] = &wsClient{conn: conn}
	log.Info().Str("session_id", sessionID).Msg("WebSocket Client Connected")
}

// Unregister a client (when they close the tab)
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sessionID, conn)
}

func (h *Hub) remove(sessionID string, conn *websocket.Conn) {
	conns, ok := h.clients[sessionID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; ok {
		delete(conns, conn)
		// closing the socket also fails any write still in progress
		conn.Close()
		log.Info().Str("session_id", sessionID).Msg("WebSocket Client Disconnected")
	}
	if len(conns) == 0 {
		delete(h.clients, sessionID)
	}
}

// Notify sends v as JSON to every connection of sessionID. Writes happen
// outside the hub lock and each one is bounded by the write deadline.
// Connections that fail to write are dropped.
func (h *Hub) Notify(sessionID string, v any) {
	h.mu.Lock()
	targets := make([]*wsClient, 0, len(h.clients[sessionID]))
	for _, c := range h.clients[sessionID] {
		targets = append(targets, c)
	}
	writeWait := h.writeWait
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.write(v, writeWait); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to send WS message, removing client")
			h.Unregister(sessionID, c.conn)
		}
	}
}

func (c *wsClient) write(v any, wait time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// Close disconnects every client of sessionID.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients[sessionID] {
		h.remove(sessionID, conn)
	}
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, conns := range h.clients {
		n += len(conns)
	}
	return n
}
