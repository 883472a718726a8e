package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mille-go/monitoring"
)

const (
	socketBufferSize  = 1024
	messageBufferSize = 64
	writeWait         = 5 * time.Second
)

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  socketBufferSize,
	WriteBufferSize: socketBufferSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	id     string
	socket *websocket.Conn
	send   chan []byte
	hub    *Hub
}

// Hub fans flush notifications out to every connected websocket client.
// Slow clients drop messages rather than stall the writer.
type Hub struct {
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	clients    map[*client]bool
	count      chan chan int
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, messageBufferSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[*client]bool),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			monitoring.Logf("web: client %s connected", c.id)
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				monitoring.Logf("web: client %s left", c.id)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					monitoring.Logf("web: client %s is behind, dropping message", c.id)
				}
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case <-h.done:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Broadcast queues msg for all clients. It never blocks; when the queue is
// full the message is dropped and false is returned.
func (h *Hub) Broadcast(msg []byte) bool {
	select {
	case h.broadcast <- msg:
		return true
	default:
		return false
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	socket, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("web: upgrade failed: %v", err)
		return
	}
	c := &client{
		id:     uuid.NewString(),
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
		hub:    hub,
	}
	select {
	case hub.register <- c:
	case <-hub.done:
		socket.Close()
		return
	}
	go c.write()
	c.read()
}

// read discards inbound frames and unregisters the client once the socket
// closes.
func (c *client) read() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.socket.Close()
	}()
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) write() {
	defer c.socket.Close()
	for msg := range c.send {
		c.socket.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}
