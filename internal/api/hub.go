/*
Package api
File: hub.go
Description:
    The WebSocket Hub pushes game events to connected frontends.

    It maintains a registry of all active clients and a broadcast channel.
    The game service publishes turn results, finished games and expired
    sessions through Publish; the Hub writes them to every socket.

    Architecture:
    - Hub: The singleton manager.
    - Client: Represents one browser connection.
    - ServeWs: The HTTP handler that upgrades a standard GET request to a WebSocket.
*/

package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/everforgeworks/fabline/internal/game"
)

const (
	writeWait    = 10 * time.Second
	broadcastBuf = 64
	clientBuf    = 256
)

// Message defines the standard JSON envelope for all real-time communication.
type Message struct {
	Type    string      `json:"type"`    // Event Type ("turn_confirmed", "game_over", "session_expired")
	Payload interface{} `json:"payload"` // The actual data
	Sender  string      `json:"sender"`  // Origin of the event; always "system" for now
}

// Client represents a single connected browser tab.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte // Buffered channel for outbound messages
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients map[*Client]bool

	// Broadcast carries encoded messages to every client.
	Broadcast chan []byte

	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns

	count atomic.Int64
}

// NewHub creates a new Hub instance. Run must be started before publishing.
func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, broadcastBuf),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// Run is the main event loop for the Hub. It blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.count.Store(0)
			return

		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int64(len(h.clients)))
			log.Println("WS: New Connection Registered")

		case client := <-h.unregister:
			// Clean up resources to prevent leaks.
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.count.Store(int64(len(h.clients)))

		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// send buffer full: the client hung or disconnected
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.count.Store(int64(len(h.clients)))
		}
	}
}

// ClientCount reports how many sockets are registered.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Publish encodes a game event and queues it for broadcast.
// Events are dropped rather than blocking the game service when the queue is full.
func (h *Hub) Publish(e game.Event) {
	data, err := json.Marshal(Message{Type: e.Type, Payload: e, Sender: "system"})
	if err != nil {
		log.Printf("WS: Error marshaling %s: %v", e.Type, err)
		return
	}

	select {
	case h.Broadcast <- data:
	default:
		log.Printf("WS: Broadcast queue full, dropped %s for %s", e.Type, e.SessionID)
	}
}

// upgrader configures the WebSocket handshake.
// CheckOrigin allows any host, matching the permissive CORS policy.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs handles the HTTP request that initiates a WebSocket connection.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WS Upgrade Error:", err)
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, clientBuf)}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so close frames are noticed.
// Clients only listen; anything they send is ignored.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS Error: %v", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	defer c.conn.Close()

	// exits when the hub closes c.send
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
