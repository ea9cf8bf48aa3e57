package main

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufSize    = 256
)

// frame is one queued outbound websocket message
type frame struct {
	binary bool
	data   []byte
}

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan frame
	session    *Session
	remoteAddr string
	binary     bool // state snapshots as msgpack
	log        *zap.SugaredLogger
	msgCount   int
	msgResetAt time.Time

	mu       sync.Mutex // guards closed, admitted and sends on the channel
	closed   bool
	admitted bool // init_player queued; lobby frames are stale from here on
}

// NewClient creates a new Client in the lobby
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, binary bool) *Client {
	c := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan frame, sendBufSize),
		remoteAddr: remoteAddr,
		binary:     binary,
		log:        hub.log.With("remote", remoteAddr),
	}
	c.session = NewSession(hub.world, c, hub.tracker, c.log)
	return c
}

// ReadPump reads messages from the WebSocket connection. When it returns
// the client is unregistered and its player removed from the world.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.session.Close()
		c.hub.TrackDisconnect(c.remoteAddr)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Infow("ws error", "err", err)
			}
			return
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > c.hub.limits.MaxMessagesPerSec {
			c.log.Warnw("rate limit exceeded, disconnecting", "player", c.session.PlayerID())
			return
		}

		if err := c.session.HandleMessage(message); err != nil {
			if IsAdmissionError(err) {
				c.log.Infow("admission rejected, closing", "err", err)
			} else {
				c.log.Warnw("closing connection", "err", err)
			}
			return
		}
	}
}

// WritePump writes queued frames to the WebSocket connection. It drains
// the queue after the client is unregistered, then closes the socket.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			msgType := websocket.TextMessage
			if f.binary {
				msgType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(msgType, f.data); err != nil {
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

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Errorw("marshal error", "err", err)
		return
	}
	if !c.enqueue(frame{data: data}) {
		c.log.Debugw("dropped direct message, send buffer full or closed")
	}
}

// SendInit queues the init_player message and marks the client admitted,
// so no lobby frame built earlier can follow it.
func (c *Client) SendInit(msg InitPlayer) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Errorw("marshal error", "err", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.admitted = true
	if !c.pushLocked(frame{data: data}) {
		c.log.Warnw("dropped init_player, send buffer full or closed")
	}
}

// enqueue queues a frame without blocking. It reports false when the
// buffer is full or the client is already closed.
func (c *Client) enqueue(f frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushLocked(f)
}

// enqueueLobby queues a lobby frame unless the client was admitted after
// the frame was built, in which case stale is true and nothing is queued.
func (c *Client) enqueueLobby(data []byte) (queued, stale bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.admitted {
		return false, true
	}
	return c.pushLocked(frame{data: data}), false
}

func (c *Client) pushLocked(f frame) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

// closeSend stops further sends and lets WritePump drain and exit
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
