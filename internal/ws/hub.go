package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"storycave/backend/pkg/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024 // 64KB
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Event is what the hub pushes to scene subscribers: committed
// interactions, timeline advances, conversation lifecycle changes.
type Event struct {
	Type      string    `json:"type"`
	SceneID   string    `json:"scene_id"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is one websocket subscriber, bound to a single scene room.
type Client struct {
	ID      string
	SceneID string
	Conn    *websocket.Conn
	Send    chan []byte
	Hub     *Hub
}

// Hub fans scene events out to the clients watching each scene. Delivery is
// best-effort: a slow client gets dropped, never waited on.
type Hub struct {
	rooms      map[string]map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	log        *logger.Logger
	mu         sync.RWMutex
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// ActiveConnections reports the number of subscribers across all scene rooms.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, room := range h.rooms {
		n += len(room)
	}
	return n
}

// Run processes registrations and broadcasts until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.SceneID] == nil {
				h.rooms[client.SceneID] = make(map[*Client]bool)
			}
			h.rooms[client.SceneID][client] = true
			h.mu.Unlock()
			h.log.Debug("WebSocket client joined scene room",
				"client_id", client.ID,
				"scene_id", client.SceneID,
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.SceneID]; ok {
				if room[client] {
					delete(room, client)
					close(client.Send)
					if len(room) == 0 {
						delete(h.rooms, client.SceneID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Error("Failed to encode scene event", "error", err.Error())
				continue
			}
			h.mu.RLock()
			for client := range h.rooms[event.SceneID] {
				select {
				case client.Send <- data:
				default:
					// Client can't keep up; drop it rather than block the
					// hub.
					go func(c *Client) { h.unregister <- c }(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastToScene publishes an event to every client watching the scene.
func (h *Hub) BroadcastToScene(sceneID, eventType string, payload any) {
	select {
	case h.broadcast <- Event{Type: eventType, SceneID: sceneID, Payload: payload, Timestamp: time.Now()}:
	default:
		h.log.Warn("Scene event dropped, broadcast channel full", "scene_id", sceneID, "type", eventType)
	}
}

// ServeScene upgrades the request and subscribes the connection to the
// scene's event room.
func (h *Hub) ServeScene(c *gin.Context) {
	sceneID := c.Param("id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade failed", "error", err.Error())
		return
	}

	client := &Client{
		ID:      uuid.NewString(),
		SceneID: sceneID,
		Conn:    conn,
		Send:    make(chan []byte, 32),
		Hub:     h,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	// Subscribers are read-only; inbound payloads are drained and ignored.
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
