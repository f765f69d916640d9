package mqtt

import (
	"fmt"
)

// Subscribe registers a handler for messages on the specified topic.
//
// Topics can include MQTT wildcards:
//   - + (single-level): "cyfral/+/state" matches every state topic
//   - # (multi-level): "cyfral/#" matches all intercom topics
//
// The handler is called in a separate goroutine for each received message.
// Subscriptions are tracked and restored on the next successful Connect.
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{
		topic:   topic,
		qos:     qos,
		handler: handler,
	}
	c.subMu.Unlock()

	token := c.currentClient().Subscribe(topic, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.forget(topic)
		return fmt.Errorf("%w: %w after %v", ErrSubscribeFailed, ErrTimeout, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		c.forget(topic)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

// SubscribeInbox subscribes to topic and queues every message for
// PollIncoming instead of invoking a callback.
//
// When the inbox is full, new messages are dropped and logged.
func (c *Client) SubscribeInbox(topic string) error {
	return c.Subscribe(topic, byte(c.cfg.QoS), func(t string, payload []byte) error {
		if !c.enqueue(Message{Topic: t, Payload: payload}) {
			return fmt.Errorf("inbox full, dropped message (%d buffered)", inboxSize)
		}
		return nil
	})
}

// PollIncoming returns all messages queued since the previous call
// without blocking.
//
// Returns:
//   - []Message: queued messages in arrival order (nil when none)
//   - error: ErrNotConnected if the session is down
func (c *Client) PollIncoming() ([]Message, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	var msgs []Message
	for {
		select {
		case msg := <-c.inbox:
			msgs = append(msgs, msg)
		default:
			return msgs, nil
		}
	}
}

// enqueue adds msg to the inbox, reporting false when it is full.
func (c *Client) enqueue(msg Message) bool {
	payload := make([]byte, len(msg.Payload))
	copy(payload, msg.Payload)
	msg.Payload = payload

	select {
	case c.inbox <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) drainInbox() {
	for {
		select {
		case <-c.inbox:
		default:
			return
		}
	}
}

func (c *Client) forget(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}
