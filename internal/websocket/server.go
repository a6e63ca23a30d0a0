package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/olmonotarianni/medplane/pkg/logger"
)

// Message types pushed to UI clients
const (
	MessageTypeAircraftUpdate = "aircraft_update"
	MessageTypeLoiteringEvent = "loitering_event"
)

// Message is one WebSocket push
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Client is one connected UI client
type Client struct {
	conn   *websocket.Conn
	send   chan *Message
	mu     sync.Mutex
	closed bool
}

// Server fans broadcast messages out to connected clients. Slow clients
// whose send buffer fills up are dropped rather than blocking the rest.
type Server struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	upgrader   websocket.Upgrader
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewServer creates a WebSocket server
func NewServer(log *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: log.Named("websocket"),
	}
}

// Run services the register/unregister/broadcast channels. Call in its own
// goroutine.
func (s *Server) Run() {
	s.logger.Info("Starting WebSocket server")

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			count := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client registered", logger.Int("client_count", count))

		case client := <-s.unregister:
			s.dropClient(client)

		case message := <-s.broadcast:
			var stale []*Client

			s.mu.RLock()
			for client := range s.clients {
				client.mu.Lock()
				closed := client.closed
				client.mu.Unlock()
				if closed {
					stale = append(stale, client)
					continue
				}

				select {
				case client.send <- message:
				default:
					// Send buffer full; the client is too slow to keep.
					stale = append(stale, client)
				}
			}
			s.mu.RUnlock()

			for _, client := range stale {
				s.dropClient(client)
			}
		}
	}
}

func (s *Server) dropClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)

	client.mu.Lock()
	if !client.closed {
		client.closed = true
		close(client.send)
	}
	client.mu.Unlock()

	s.logger.Debug("Client unregistered", logger.Int("client_count", len(s.clients)))
}

// Broadcast queues a message for every connected client. Never blocks the
// caller: when the broadcast queue is full the message is dropped.
func (s *Server) Broadcast(message *Message) {
	select {
	case s.broadcast <- message:
	default:
		s.logger.Warn("Broadcast queue full, dropping message",
			logger.String("type", message.Type))
	}
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleWebSocket upgrades an HTTP request to a WebSocket connection
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", logger.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan *Message, 32),
	}

	s.register <- client

	go client.writePump(s)
	go client.readPump(s)
}

// writePump pushes queued messages to the connection
func (c *Client) writePump(s *Server) {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteJSON(message); err != nil {
			s.logger.Debug("Write failed, closing client", logger.Error(err))
			s.unregister <- c
			return
		}
	}
}

// readPump consumes the connection until it closes. Inbound payloads are
// discarded; the push channel is one-way.
func (c *Client) readPump(s *Server) {
	defer func() {
		s.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
