package ws

import (
	"encoding/json"
	"net/http"

	"mcwatch/internal/domain"
	"mcwatch/internal/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans serialized ChangeEvents out to WebSocket clients. New clients
// first receive the most recent maxHistory events.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	history    [][]byte
	maxHistory int
}

func NewHub(maxHistory int) *Hub {
	if maxHistory < 0 {
		maxHistory = 0
	}
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		maxHistory: maxHistory,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			for _, msg := range h.history {
				select {
				case client.send <- msg:
				default:
				}
			}
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case message := <-h.broadcast:
			if h.maxHistory > 0 {
				h.history = append(h.history, message)
				if len(h.history) > h.maxHistory {
					h.history = h.history[1:]
				}
			}

			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					logger.Debug("Dropping slow websocket client", "remote", client.conn.RemoteAddr())
					close(client.send)
					delete(h.clients, client)
				}
			}

		case <-h.done:
			for client := range h.clients {
				close(client.send)
			}
			h.clients = nil
			h.history = nil
			return
		}
	}
}

func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- append([]byte(nil), message...):
	case <-h.done:
	}
}

// Publish matches status.Handler so the hub can subscribe to the notifier.
func (h *Hub) Publish(ev domain.ChangeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error("Could not encode change event", "error", err)
		return
	}
	h.Broadcast(data)
}

func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
