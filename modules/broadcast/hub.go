package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the part of a WebSocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected device. Every device of an account shares the
// account's room.
type Client struct {
	ID     string
	UserID string
	Conn   Conn
}

// Hub fans catalog changes out to the devices of each account.
type Hub struct {
	clients    map[string]*Client
	rooms      map[string]map[string]bool // userID -> client ids
	register   chan *Client
	unregister chan *Client
	broadcast  chan *message
	done       chan struct{}
	mu         sync.RWMutex
}

type message struct {
	userID  string
	payload any
}

// NewHub creates a Hub. Run must be started before clients register.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *message, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]bool)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if h.rooms[client.UserID] == nil {
		h.rooms[client.UserID] = make(map[string]bool)
	}
	h.rooms[client.UserID][client.ID] = true
	log.Printf("[hub] Client %s registered for user %s", client.ID, client.UserID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	if room := h.rooms[client.UserID]; room != nil {
		delete(room, client.ID)
		if len(room) == 0 {
			delete(h.rooms, client.UserID)
		}
	}
	log.Printf("[hub] Client %s unregistered", client.ID)
}

func (h *Hub) handleBroadcast(msg *message) {
	data, err := json.Marshal(msg.payload)
	if err != nil {
		log.Printf("[hub] Failed to marshal broadcast message: %v", err)
		return
	}

	var failed []*Client
	h.mu.RLock()
	for clientID := range h.rooms[msg.userID] {
		if client, ok := h.clients[clientID]; ok {
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("[hub] Failed to send to client %s: %v", client.ID, err)
				failed = append(failed, client)
			}
		}
	}
	h.mu.RUnlock()

	// A connection that failed a write is dead; closing it ends its reader loop.
	for _, client := range failed {
		_ = client.Conn.Close()
		h.handleUnregister(client)
	}
}

// Register adds a client. It is a no-op once the hub has stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client. It is a no-op once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues payload for every device of userID. When the queue is
// full the message is dropped; clients recover by reloading.
func (h *Hub) Broadcast(userID string, payload any) {
	select {
	case h.broadcast <- &message{userID: userID, payload: payload}:
	case <-h.done:
	default:
		log.Printf("[hub] Warning: broadcast queue full, dropping message for user %s", userID)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomClientCount returns the number of devices connected for userID.
func (h *Hub) RoomClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}
