package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/cyfral-controller/internal/infrastructure/config"
)

// inboxSize bounds the number of control messages buffered between polls.
const inboxSize = 64

// Client wraps paho.mqtt.golang for the intercom controller.
//
// Unlike a typical paho setup, the client never reconnects on its own.
// The controller's supervisor decides when to call Connect again, so
// connection state transitions stay visible to the caller.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are restored on every successful Connect.
type Client struct {
	cfg     config.MQTTConfig
	topics  Topics
	options *pahomqtt.ClientOptions

	// client is replaced on every Connect.
	client    pahomqtt.Client
	connected bool
	connMu    sync.RWMutex

	// subscriptions tracks active subscriptions for re-subscription on reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	// inbox buffers messages received via SubscribeInbox until PollIncoming.
	inbox chan Message

	// onDisconnect is invoked when the connection drops (optional, set via SetOnDisconnect).
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex

	// availability enables the retained status topic and its LWT.
	availability bool
	clientID     string
}

// Option customises a Client at construction.
type Option func(*Client)

// WithoutAvailability makes a short-lived command client: no LWT, no
// online/offline status, and a client ID distinct from the daemon's so
// the broker does not kick the daemon's session.
func WithoutAvailability() Option {
	return func(c *Client) {
		c.availability = false
		c.clientID = c.cfg.Broker.ClientID + commandClientSuffix
	}
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Message is a received MQTT message.
type Message struct {
	Topic   string
	Payload []byte
}

// subscription holds subscription details for re-subscription on reconnect.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked in separate goroutines by the paho library.
// They should not block for extended periods.
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// New creates a client for the configured broker without connecting.
func New(cfg config.MQTTConfig, options ...Option) *Client {
	c := &Client{
		cfg:           cfg,
		topics:        NewTopics(cfg.TopicPrefix),
		subscriptions: make(map[string]subscription),
		inbox:         make(chan Message, inboxSize),
		availability:  true,
		clientID:      cfg.Broker.ClientID,
	}
	for _, o := range options {
		o(c)
	}

	opts := buildClientOptions(cfg, c.clientID)
	if c.availability {
		configureLWT(opts, c.topics, byte(cfg.QoS))
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.options = opts
	return c
}

// Topics returns the topic builder for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

// Connect establishes a session with the broker.
//
// It may be called again after the connection is lost. Any previous
// session is torn down first and messages still waiting in the inbox
// are discarded.
//
// Returns:
//   - error: ErrConnectionFailed wrapping the cause, or the context error
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(0)
	}
	c.connected = false
	client := pahomqtt.NewClient(c.options)
	c.client = client
	c.connMu.Unlock()

	c.drainInbox()

	token := client.Connect()
	timer := time.NewTimer(defaultConnectTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(0)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	case <-timer.C:
		client.Disconnect(0)
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler runs asynchronously and may not have executed
	// yet, so mark the session live here as well.
	c.connMu.Lock()
	if c.client == client {
		c.connected = true
	}
	c.connMu.Unlock()

	return nil
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.restoreSubscriptions()
	c.publishStatus(PayloadOnline)
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions re-subscribes to all tracked topics after reconnect.
func (c *Client) restoreSubscriptions() {
	client := c.currentClient()
	if client == nil {
		return
	}

	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		// Errors surface on the next Ping or publish.
		client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	}
}

// publishStatus publishes the retained availability payload.
func (c *Client) publishStatus(payload string) {
	client := c.currentClient()
	if client == nil || !c.availability {
		return
	}
	token := client.Publish(c.topics.Status(), byte(c.cfg.QoS), true, payload)
	token.WaitTimeout(defaultPublishTimeout)
}

// Ping reports whether the session is still alive.
//
// Paho exchanges PINGREQ/PINGRESP on the keepalive interval and drops the
// connection when the broker stops answering, so an open connection means
// the last keepalive round trip succeeded.
func (c *Client) Ping() error {
	client := c.currentClient()
	if client == nil || !c.IsConnected() || !client.IsConnectionOpen() {
		return ErrNotConnected
	}
	return nil
}

// KeepAlive returns the configured keepalive interval.
func (c *Client) KeepAlive() time.Duration {
	if c.cfg.KeepAlive <= 0 {
		return defaultKeepAlive
	}
	return time.Duration(c.cfg.KeepAlive) * time.Second
}

// Close gracefully disconnects from the MQTT broker.
//
// It publishes the offline status (the LWT is reserved for unexpected
// drops), waits for pending publishes and disconnects.
func (c *Client) Close() error {
	client := c.currentClient()
	if client == nil {
		return nil
	}

	if c.IsConnected() {
		c.publishStatus(PayloadOffline)
	}

	client.Disconnect(defaultDisconnectQuiesce)

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	return nil
}

// HealthCheck verifies the MQTT connection is alive.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.client != nil && c.connected && c.client.IsConnected()
}

func (c *Client) currentClient() pahomqtt.Client {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.client
}

// SetOnDisconnect sets a callback to be invoked when connection is lost.
// The error parameter describes why the connection was lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}
