package api

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/config"
	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/logging"
	"github.com/nerrad567/obs-scene-scheduler/internal/switcher"
)

// Frame kinds exchanged over /api/v1/ws.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameEvent       = "event"
	FrameAck         = "ack"
	FrameError       = "error"
)

// ChannelSceneSwitched carries every applied switch.
const ChannelSceneSwitched = "scene.switched"

// channels lists what clients may subscribe to.
var channels = map[string]struct{}{
	ChannelSceneSwitched: {},
}

const (
	// clientQueueSize bounds the events waiting for one slow client.
	clientQueueSize = 64

	// hubQueueSize bounds events waiting for the hub loop.
	hubQueueSize = 16

	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
)

// Frame is one JSON message on the WebSocket.
type Frame struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Channel string `json:"channel,omitempty"`
	Time    string `json:"time,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// ChannelList is the payload of subscribe and unsubscribe frames.
type ChannelList struct {
	Channels []string `json:"channels"`
}

type hubEvent struct {
	channel string
	data    []byte
}

// Hub fans switch events out to WebSocket clients. The client set is
// owned by the Run goroutine; everything else talks to it over channels.
// Hub implements switcher.Observer.
type Hub struct {
	maxMessage   int64
	pingInterval time.Duration
	pongTimeout  time.Duration
	logger       *logging.Logger

	register   chan *wsClient
	unregister chan *wsClient
	events     chan hubEvent
	done       chan struct{}

	connected atomic.Int64
}

// NewHub creates a hub. Run must be started before clients connect.
// Zero keepalive settings fall back to 30s ping and 10s pong timeout.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	h := &Hub{
		maxMessage:   int64(cfg.MaxMessageSize),
		pingInterval: time.Duration(cfg.PingInterval) * time.Second,
		pongTimeout:  time.Duration(cfg.PongTimeout) * time.Second,
		logger:       logger,
		register:     make(chan *wsClient),
		unregister:   make(chan *wsClient),
		events:       make(chan hubEvent, hubQueueSize),
		done:         make(chan struct{}),
	}
	if h.pingInterval <= 0 {
		h.pingInterval = defaultPingInterval
	}
	if h.pongTimeout <= 0 {
		h.pongTimeout = defaultPongTimeout
	}
	return h
}

// Run owns the client set until ctx is cancelled, then disconnects every
// client. Call it once.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*wsClient]struct{})
	defer func() {
		for c := range clients {
			close(c.events)
			c.conn.Close()
		}
		h.connected.Store(0)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			clients[c] = struct{}{}
			h.connected.Store(int64(len(clients)))
			h.logger.Debug("websocket client connected", "clients", len(clients), "subject", c.subject)

		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.events)
			}
			h.connected.Store(int64(len(clients)))
			h.logger.Debug("websocket client disconnected", "clients", len(clients))

		case ev := <-h.events:
			h.deliver(clients, ev)
		}
	}
}

func (h *Hub) deliver(clients map[*wsClient]struct{}, ev hubEvent) {
	sent, dropped := 0, 0
	for c := range clients {
		if !c.subscribed(ev.channel) {
			continue
		}
		select {
		case c.events <- ev.data:
			sent++
		default:
			dropped++
		}
	}
	if sent+dropped > 0 {
		h.logger.Debug("websocket event delivered", "channel", ev.channel, "sent", sent, "dropped", dropped)
	}
}

// SceneSwitched implements switcher.Observer.
func (h *Hub) SceneSwitched(ctx context.Context, sw switcher.Switch) error {
	return h.Broadcast(ctx, ChannelSceneSwitched, sw)
}

// Broadcast queues payload for subscribers of channel. It returns nil
// once the hub has stopped and ctx's error if the queue stays full.
func (h *Hub) Broadcast(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(Frame{
		Type:    FrameEvent,
		Channel: channel,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Payload: payload,
	})
	if err != nil {
		return err
	}

	select {
	case h.events <- hubEvent{channel: channel, data: data}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.connected.Load())
}

// join hands c to the hub loop. It reports false once the hub has stopped.
func (h *Hub) join(c *wsClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave removes c; a no-op once the hub has stopped.
func (h *Hub) leave(c *wsClient) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
