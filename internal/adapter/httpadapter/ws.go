package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/incident-engine/internal/alert"
	"github.com/couchcryptid/incident-engine/internal/domain"
	"github.com/couchcryptid/incident-engine/internal/engine"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// HubSinkName labels the WebSocket hub in pipeline logs and metrics.
const HubSinkName = "websocket"

const (
	clientBuffer = 32
	writeTimeout = 10 * time.Second
)

// WebSocket message types from client.
const (
	wsMsgInjectThreat = "inject-threat"
)

// WebSocket message types to client.
const (
	wsMsgOracleStream = "oracle-stream"
	wsMsgAlertStream  = "alert-stream"
	wsMsgHeartbeat    = "heartbeat"
	wsMsgInjected     = "threat-injected"
	wsMsgError        = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 4,
	WriteBufferSize: 1024 * 64,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// wsMessage is the envelope for WebSocket messages in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wsHeartbeat struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Clients   int       `json:"clients"`
}

// Injector forces a threat kind into the running simulation.
type Injector interface {
	InjectThreat(kind domain.ThreatType) error
}

// InjectorFunc adapts a function to Injector.
type InjectorFunc func(kind domain.ThreatType) error

func (f InjectorFunc) InjectThreat(kind domain.ThreatType) error { return f(kind) }

// Hub fans snapshots, alerts and heartbeats out to every connected
// WebSocket client. It implements pipeline.Sink and alert.Gateway.
type Hub struct {
	injector  Injector
	clock     clockwork.Clock
	heartbeat time.Duration
	logger    *slog.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewHub creates a hub that emits a heartbeat every interval once Run starts.
func NewHub(injector Injector, clock clockwork.Clock, heartbeat time.Duration, logger *slog.Logger) *Hub {
	return &Hub{
		injector:  injector,
		clock:     clock,
		heartbeat: heartbeat,
		logger:    logger,
		clients:   make(map[*wsClient]struct{}),
	}
}

func (h *Hub) Name() string { return HubSinkName }

// Publish broadcasts a snapshot as an oracle-stream message.
func (h *Hub) Publish(_ context.Context, snap domain.Snapshot) error {
	return h.broadcast(wsMsgOracleStream, snap)
}

// Send broadcasts a notification as an alert-stream message.
func (h *Hub) Send(_ context.Context, n alert.Notification) error {
	return h.broadcast(wsMsgAlertStream, n)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run emits heartbeats until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	ticker := h.clock.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case <-ticker.Chan():
			hb := wsHeartbeat{Timestamp: h.clock.Now().UTC(), Status: "monitoring", Clients: h.Clients()}
			if err := h.broadcast(wsMsgHeartbeat, hb); err != nil {
				h.logger.Warn("heartbeat broadcast failed", "error", err)
			}
		}
	}
}

// ServeWS upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan []byte, clientBuffer),
		done: make(chan struct{}),
	}
	h.register(c)
	defer h.unregister(c)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client connected", "remote", c.conn.RemoteAddr().String(), "clients", n)
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	if ok {
		h.logger.Info("websocket client disconnected", "remote", c.conn.RemoteAddr().String(), "clients", n)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.close()
	}
}

func (h *Hub) broadcast(msgType string, data any) error {
	msg, err := encode(msgType, data)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var slow []*wsClient
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client", "remote", c.conn.RemoteAddr().String())
		h.unregister(c)
	}
	return nil
}

func (h *Hub) writePump(c *wsClient) {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				c.close()
				return
			}
		}
	}
}

func (h *Hub) readPump(c *wsClient) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.reply(c, wsMsgError, map[string]string{"message": "invalid message format"})
			continue
		}

		switch msg.Type {
		case wsMsgInjectThreat:
			h.handleInject(c, msg.Data)
		default:
			h.reply(c, wsMsgError, map[string]string{"message": "unknown message type: " + msg.Type})
		}
	}
}

func (h *Hub) handleInject(c *wsClient, data json.RawMessage) {
	var kind string
	if err := json.Unmarshal(data, &kind); err != nil {
		h.reply(c, wsMsgError, map[string]string{"message": "inject-threat expects a threat type string"})
		return
	}

	tt := domain.ThreatType(strings.ToUpper(strings.TrimSpace(kind)))
	if err := h.injector.InjectThreat(tt); err != nil {
		if !errors.Is(err, engine.ErrUnknownThreatType) {
			h.logger.Error("inject threat failed", "type", tt, "error", err)
		}
		h.reply(c, wsMsgError, map[string]string{"message": err.Error()})
		return
	}
	h.logger.Info("threat injected by websocket client", "type", tt)
	h.reply(c, wsMsgInjected, map[string]string{"type": string(tt)})
}

func (h *Hub) reply(c *wsClient, msgType string, data any) {
	msg, err := encode(msgType, data)
	if err != nil {
		h.logger.Error("encode websocket reply", "error", err)
		return
	}
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

func encode(msgType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wsMessage{Type: msgType, Data: raw})
}
