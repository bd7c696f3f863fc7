package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by applyCORS.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsClient is one WebSocket connection. The hub closes events; replies
// is written by readLoop only and never closed.
type wsClient struct {
	hub     *Hub
	conn    *websocket.Conn
	subject string
	events  chan []byte
	replies chan []byte

	mu   sync.RWMutex
	subs map[string]struct{}
}

// handleWebSocket upgrades the request and starts the client's loops.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "request_id", requestIDFrom(r.Context()))
		return
	}

	c := &wsClient{
		hub:     s.hub,
		conn:    conn,
		subject: subjectFrom(r.Context()),
		events:  make(chan []byte, clientQueueSize),
		replies: make(chan []byte, clientQueueSize),
		subs:    make(map[string]struct{}),
	}
	if !s.hub.join(c) {
		conn.Close()
		return
	}

	go c.writeLoop()
	go c.readLoop()
}

func (c *wsClient) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subs[channel]
	return ok
}

// readLoop handles client frames until the connection drops. Any frame
// or pong extends the read deadline.
func (c *wsClient) readLoop() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	wait := c.hub.pingInterval + c.hub.pongTimeout
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(wait)) }

	if c.hub.maxMessage > 0 {
		c.conn.SetReadLimit(c.hub.maxMessage)
	}
	extend() //nolint:errcheck // A failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		extend() //nolint:errcheck // As above
		c.handle(data)
	}
}

// writeLoop is the only writer on the connection. It exits when the hub
// closes events or a write fails.
func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(c.hub.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(c.hub.pongTimeout)) //nolint:errcheck // Write reports it
		return c.conn.WriteMessage(kind, data)
	}

	for {
		var err error
		select {
		case data, ok := <-c.events:
			if !ok {
				write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")) //nolint:errcheck // Closing anyway
				return
			}
			err = write(websocket.TextMessage, data)
		case data := <-c.replies:
			err = write(websocket.TextMessage, data)
		case <-ticker.C:
			err = write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

// handle answers one client frame.
func (c *wsClient) handle(data []byte) {
	var in struct {
		Type    string      `json:"type"`
		ID      string      `json:"id"`
		Payload ChannelList `json:"payload"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		c.reply(Frame{Type: FrameError, Payload: map[string]string{"message": "frame is not valid JSON"}})
		return
	}

	switch in.Type {
	case FrameSubscribe:
		for _, ch := range in.Payload.Channels {
			if _, ok := channels[ch]; !ok {
				c.reply(Frame{Type: FrameError, ID: in.ID, Payload: map[string]string{"message": "unknown channel: " + ch}})
				return
			}
		}
		c.mu.Lock()
		for _, ch := range in.Payload.Channels {
			c.subs[ch] = struct{}{}
		}
		c.mu.Unlock()
		c.reply(Frame{Type: FrameAck, ID: in.ID, Payload: in.Payload})

	case FrameUnsubscribe:
		c.mu.Lock()
		for _, ch := range in.Payload.Channels {
			delete(c.subs, ch)
		}
		c.mu.Unlock()
		c.reply(Frame{Type: FrameAck, ID: in.ID, Payload: in.Payload})

	case FramePing:
		c.reply(Frame{Type: FramePong, ID: in.ID})

	default:
		c.reply(Frame{Type: FrameError, ID: in.ID, Payload: map[string]string{"message": "unknown frame type: " + in.Type}})
	}
}

// reply queues f for writeLoop, dropping it if the client is not reading.
func (c *wsClient) reply(f Frame) {
	f.Time = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	select {
	case c.replies <- data:
	default:
	}
}
