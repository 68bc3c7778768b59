package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/rfsocket-core/internal/events"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/config"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/logging"
)

// WebSocket constants.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// WSChannelAll subscribes a client to every event type.
	WSChannelAll = "*"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// Fallbacks for unset WebSocket settings.
const (
	defaultWSMaxMessageSize = 8192
	defaultWSPingInterval   = 30
	defaultWSPongTimeout    = 10
)

// WSMessage represents a message sent to/from a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
// Channels are event types such as socket.command, or "*".
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub manages WebSocket connections and relays events to them.
// It implements events.Sink.
type Hub struct {
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}
	mu            sync.RWMutex
	username      string
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Handle implements events.Sink by broadcasting e on the channel named by
// its type. It never blocks on slow clients.
func (h *Hub) Handle(_ context.Context, e events.Event) error {
	h.Broadcast(string(e.Type), e)
	return nil
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "username", client.username, "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that removes the client from the map closes its send
// channel.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "username", client.username, "clients", h.ClientCount())
}

// Broadcast sends an event to all clients subscribed to the given channel.
// The hub lock is released before per-client subscription checks.
func (h *Hub) Broadcast(channel string, payload any) {
	msg := WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sentCount := 0
	for _, client := range clients {
		if client.isSubscribed(channel) {
			client.trySend(data)
			sentCount++
		}
	}
	if sentCount > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "recipients", sentCount)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// handleWebSocket upgrades an authenticated request to a WebSocket
// connection. Clients receive nothing until they subscribe.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an HTTP error.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		client.username = claims.Username
	}
	s.hub.Register(client)

	timing := wsSettings(s.wsCfg)
	go client.writePump(timing)
	go client.readPump(timing)
}

// wsTiming holds the resolved connection limits for one client.
type wsTiming struct {
	maxMessage int64
	ping       time.Duration
	pongWait   time.Duration
}

// readDeadline is how long a connection may stay silent, pongs included.
func (t wsTiming) readDeadline() time.Time {
	return time.Now().Add(t.ping + t.pongWait)
}

// wsSettings resolves configured WebSocket limits, filling unset values
// with defaults.
func wsSettings(cfg config.WebSocketConfig) wsTiming {
	orDefault := func(v, d int) int {
		if v <= 0 {
			return d
		}
		return v
	}
	return wsTiming{
		maxMessage: int64(orDefault(cfg.MaxMessageSize, defaultWSMaxMessageSize)),
		ping:       time.Duration(orDefault(cfg.PingInterval, defaultWSPingInterval)) * time.Second,
		pongWait:   time.Duration(orDefault(cfg.PongTimeout, defaultWSPongTimeout)) * time.Second,
	}
}

// readPump consumes client messages until the connection fails, then
// unregisters the client.
func (c *WSClient) readPump(t wsTiming) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(t.maxMessage)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(t.readDeadline())
	})

	for {
		//nolint:errcheck // a failed deadline surfaces as a read error
		c.conn.SetReadDeadline(t.readDeadline())
		_, message, err := c.conn.ReadMessage()
		if err == nil {
			c.handleMessage(message)
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			c.hub.logger.Warn("websocket read error", "username", c.username, "error", err)
		} else {
			c.hub.logger.Debug("websocket closed", "username", c.username)
		}
		return
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings. A closed send channel ends the connection with a close frame.
func (c *WSClient) writePump(t wsTiming) {
	ticker := time.NewTicker(t.ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // a failed deadline surfaces as a write error
		c.conn.SetWriteDeadline(time.Now().Add(t.pongWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		var err error
		select {
		case message, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			err = write(websocket.TextMessage, message)
		case <-ticker.C:
			err = write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

// handleMessage dispatches one client message by type.
func (c *WSClient) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply("", WSTypeError, errorPayload("invalid JSON message"))
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.handleSubscription(msg, msg.Type == WSTypeSubscribe)
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.reply(msg.ID, WSTypeError, errorPayload("unknown message type: "+msg.Type))
	}
}

// handleSubscription adds or removes the listed channels.
func (c *WSClient) handleSubscription(msg WSMessage, subscribe bool) {
	// Payload arrives as a generic map; round-trip it into the typed form.
	raw, err := json.Marshal(msg.Payload)
	var sub WSSubscribePayload
	if err == nil {
		err = json.Unmarshal(raw, &sub)
	}
	if err != nil || len(sub.Channels) == 0 {
		c.reply(msg.ID, WSTypeError, errorPayload("payload must list channels"))
		return
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		if subscribe {
			c.subscriptions[ch] = struct{}{}
		} else {
			delete(c.subscriptions, ch)
		}
	}
	c.mu.Unlock()

	key := "unsubscribed"
	if subscribe {
		key = "subscribed"
		c.hub.logger.Info("websocket client subscribed", "username", c.username, "channels", sub.Channels)
	}
	c.reply(msg.ID, WSTypeResponse, map[string]any{key: sub.Channels})
}

func errorPayload(message string) map[string]string {
	return map[string]string{"message": message}
}

// trySend queues data without blocking. Messages to a full buffer are
// dropped, as are sends racing with Unregister closing the channel.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // send on closed channel
	}()

	select {
	case c.send <- data:
	default:
	}
}

// isSubscribed reports whether channel, or WSChannelAll, is subscribed.
func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, all := c.subscriptions[WSChannelAll]
	_, one := c.subscriptions[channel]
	return all || one
}

// reply queues a message addressed to the client's request id.
func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err == nil {
		c.trySend(data)
	}
}
