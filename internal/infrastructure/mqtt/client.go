package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/rfsocket-core/internal/infrastructure/config"
)

// pahoClient is the part of pahomqtt.Client this package uses.
type pahoClient interface {
	Connect() pahomqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Unsubscribe(topics ...string) pahomqtt.Token
}

// Logger receives connection and handler failures. *logging.Logger and
// *slog.Logger both satisfy it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type discardLogger struct{}

func (discardLogger) Error(string, ...any) {}
func (discardLogger) Warn(string, ...any)  {}

// MessageHandler handles one inbound message. paho runs handlers on its
// own goroutines; a returned error is logged, a panic is recovered.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// Client publishes socket events and receives socket commands over
// paho.mqtt.golang. It is safe for concurrent use, and tracked
// subscriptions are replayed after every reconnect.
type Client struct {
	client pahoClient
	cfg    config.MQTTConfig

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	// mu guards the connection flag and the hooks below.
	mu           sync.RWMutex
	connected    bool
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Connect dials the broker and waits for the first connection. Every
// (re)connect replays subscriptions and publishes a retained "online"
// status; an unclean drop leaves the broker's "offline" will in place.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := newClient(cfg)

	opts := clientOptions(cfg).
		SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })
	c.client = pahomqtt.NewClient(opts)

	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: no connection within %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs asynchronously and may not have fired yet.
	c.setConnected(true)
	return c, nil
}

func newClient(cfg config.MQTTConfig) *Client {
	return &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
		logger:        discardLogger{},
	}
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.logger == nil {
		return discardLogger{}
	}
	return c.logger
}

func (c *Client) handleConnect() {
	c.setConnected(true)

	c.subMu.RLock()
	for _, sub := range c.subscriptions {
		// Failures surface through the token; nothing useful to do here.
		c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
	c.subMu.RUnlock()

	c.publishStatus("online", "")

	c.mu.RLock()
	hook := c.onConnect
	c.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.mu.Lock()
	c.connected = false
	hook := c.onDisconnect
	c.mu.Unlock()

	c.log().Warn("MQTT connection lost", "error", err)
	if hook != nil {
		hook(err)
	}
}

// IsConnected reports whether the broker connection is currently up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// SetOnConnect installs a hook run on the first connect and every reconnect.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect installs a hook run when the connection drops.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// SetLogger replaces the discard logger. A nil logger restores it.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = discardLogger{}
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

// wrapHandler adapts handler to paho, logging errors and recovering panics.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		topic := msg.Topic()
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("MQTT handler panic recovered", "topic", topic, "panic", r)
			}
		}()
		if err := handler(topic, msg.Payload()); err != nil {
			c.log().Warn("MQTT handler returned error", "topic", topic, "error", err)
		}
	}
}

// publishStatus publishes a retained status message.
func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	payload := statusPayload(status, c.cfg.Broker.ClientID, reason)
	return c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

// Close announces a graceful "offline" status and disconnects. Closing a
// client that never connected is a no-op.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		c.publishStatus("offline", "graceful_shutdown").WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)
	return nil
}

// HealthCheck reports ErrNotConnected when the broker connection is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}
