package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openroad/roadcall/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer bounds each subscriber's queue; overflow drops messages
	// instead of blocking the engine.
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Admin surface; same-origin policy is handled by the deployment proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one websocket subscriber with a buffered outbound queue.
// mu serializes close against queueing: the reader side may tear the client
// down while a broadcast still holds a reference.
type wsClient struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan interface{}
	closed bool
}

// trySend queues a message unless the client is closed or its buffer is
// full. Returns whether the message was queued.
func (c *wsClient) trySend(msg interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		// Buffer full, drop for this subscriber
		return false
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// handleWebsocket upgrades the connection and registers a subscriber.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnw("Websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan interface{}, sendBuffer),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	subscribers := len(s.clients)
	s.mu.Unlock()
	logger.Debugw("Websocket subscriber connected", "subscribers", subscribers)

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) unregister(c *wsClient) {
	s.mu.Lock()
	_, present := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()

	if present {
		c.close()
	}
	c.conn.Close()
}

// writePump drains the subscriber queue and keeps the connection alive with
// pings.
func (s *Server) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.unregister(c)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages; the stream is one-way. It exists to
// process pongs and notice a dropped connection.
func (s *Server) readPump(c *wsClient) {
	defer s.unregister(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				logger.Debugw("Websocket read error", "error", err)
			}
			return
		}
	}
}
