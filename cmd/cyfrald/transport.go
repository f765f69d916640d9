package main

import (
	"context"
	"time"

	"github.com/nerrad567/cyfral-controller/internal/infrastructure/mqtt"
	"github.com/nerrad567/cyfral-controller/internal/intercom"
)

// mqttTransport adapts *mqtt.Client to intercom.Transport. State topics are
// published retained at the configured QoS; the control topic is buffered in
// the client's inbox and drained by the controller loop.
type mqttTransport struct {
	client *mqtt.Client
}

func (t *mqttTransport) Connect(ctx context.Context) error {
	return t.client.Connect(ctx)
}

func (t *mqttTransport) Publish(topic, payload string) error {
	return t.client.PublishState(topic, payload)
}

func (t *mqttTransport) Subscribe(topic string) error {
	return t.client.SubscribeInbox(topic)
}

func (t *mqttTransport) PollIncoming() ([]intercom.Message, error) {
	msgs, err := t.client.PollIncoming()
	if err != nil {
		return nil, err
	}
	out := make([]intercom.Message, len(msgs))
	for i, m := range msgs {
		out[i] = intercom.Message{Topic: m.Topic, Payload: m.Payload}
	}
	return out, nil
}

func (t *mqttTransport) Ping() error {
	return t.client.Ping()
}

func (t *mqttTransport) KeepAlive() time.Duration {
	return t.client.KeepAlive()
}

func (t *mqttTransport) Close() error {
	return t.client.Close()
}

// intercomTopics maps the broker topic layout onto the controller's topics.
func intercomTopics(t mqtt.Topics) intercom.Topics {
	return intercom.Topics{
		IncomingCall: t.IncomingCallState(),
		SoundMode:    t.SoundModeState(),
		AutoOpenMode: t.AutoOpenModeState(),
		Control:      t.Control(),
	}
}
