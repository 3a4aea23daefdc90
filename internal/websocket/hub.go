package websocket

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"
)

// Conn is the part of a websocket connection the hub writes to
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected user and the project rooms it listens to
type Client struct {
	Conn   Conn
	UserID string
	Rooms  map[string]bool
	mu     sync.Mutex
}

// NewClient wraps conn for userID
func NewClient(conn Conn, userID string) *Client {
	return &Client{Conn: conn, UserID: userID, Rooms: make(map[string]bool)}
}

// Hub fans project events out to the clients in each room
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
	mu      sync.RWMutex
}

// Message is the envelope of every frame in both directions
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

var (
	hub  *Hub
	once sync.Once
)

// NewHub returns an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
	}
}

// GetHub returns the process wide hub
func GetHub() *Hub {
	once.Do(func() {
		hub = NewHub()
	})
	return hub
}

// ProjectRoom names the room receiving the events of a project
func ProjectRoom(projectID string) string {
	return "project:" + projectID
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	log.Debug().Str("user_id", client.UserID).Msg("Websocket client registered")
}

// Unregister drops client from every room and closes its connection
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	for roomID := range client.Rooms {
		h.removeFromRoom(client, roomID)
	}
	delete(h.clients, client)
	if client.Conn != nil {
		_ = client.Conn.Close()
	}
	log.Debug().Str("user_id", client.UserID).Msg("Websocket client unregistered")
}

func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.rooms[roomID]; !exists {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.Rooms[roomID] = true
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoom(client, roomID)
	delete(client.Rooms, roomID)
}

// removeFromRoom expects h.mu to be held
func (h *Hub) removeFromRoom(client *Client, roomID string) {
	room, exists := h.rooms[roomID]
	if !exists {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
}

// RoomSize returns the number of clients in roomID
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastToRoom sends event to every client of roomID. Write failures are
// logged and do not stop the fan out.
func (h *Hub) BroadcastToRoom(roomID, event string, payload any) {
	h.mu.RLock()
	room, exists := h.rooms[roomID]
	if !exists {
		h.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	data, err := encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to encode websocket broadcast")
		return
	}

	for _, client := range clients {
		if err := client.write(data); err != nil {
			log.Warn().Err(err).Str("user_id", client.UserID).Str("room", roomID).Msg("Failed to send websocket broadcast")
		}
	}
}

// SendToClient writes one event to client
func (h *Hub) SendToClient(client *Client, event string, payload any) error {
	if client == nil {
		return errors.New("client is nil")
	}
	data, err := encode(event, payload)
	if err != nil {
		return err
	}
	return client.write(data)
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Conn == nil {
		return errors.New("connection is nil")
	}
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

func encode(event string, payload any) ([]byte, error) {
	return json.Marshal(map[string]any{
		"event":   event,
		"payload": payload,
	})
}
