package intercom

import "context"

// startConnect begins a transport session attempt off the loop. Connect
// can block for the broker's connect timeout, so it runs on its own
// goroutine and the outcome is posted back as an intent. The call line
// keeps being sampled in the meantime.
func (c *Controller) startConnect(ctx context.Context) {
	c.conn = Connecting
	c.connecting.Add(1)
	go func() {
		defer c.connecting.Done()
		err := c.transport.Connect(ctx)
		c.post(intent{source: SourceLoop, fn: func() { c.connected(err) }})
	}()
}

// connected applies the result of a connect attempt. On success it arms
// the keepalive, subscribes to the control topic and republishes the
// full state snapshot.
func (c *Controller) connected(err error) {
	if c.conn != Connecting {
		return
	}
	if err != nil {
		c.conn = Disconnected
		c.connFails++
		if c.connFails == 1 {
			c.logger.Warn("connecting to broker failed, retrying", "error", err)
		} else {
			c.logger.Debug("connecting to broker failed", "attempt", c.connFails, "error", err)
		}
		c.failure.Signal()
		return
	}

	c.conn = Connected
	c.logger.Info("connected to broker", "failed_attempts", c.connFails)
	c.connFails = 0
	c.record(EventTransportConnected, "")

	c.keepaliveTimer.arm(c.transport.KeepAlive(), true, c.ping)

	if err := c.transport.Subscribe(c.topics.Control); err != nil {
		c.demote(err)
		return
	}

	c.publishSnapshot()
}

// publishSnapshot publishes all three state topics with current values.
func (c *Controller) publishSnapshot() {
	call := payloadOff
	if c.state != WaitingCall {
		call = payloadOn
	}
	c.publish(c.topics.IncomingCall, call)
	c.publish(c.topics.SoundMode, c.sound.payload())
	c.publish(c.topics.AutoOpenMode, c.autoOpen.payload())
}

func (c *Controller) ping() {
	if err := c.transport.Ping(); err != nil {
		c.demote(err)
	}
}

func (c *Controller) pollIncoming() {
	msgs, err := c.transport.PollIncoming()
	if err != nil {
		c.demote(err)
		return
	}
	for _, msg := range msgs {
		c.HandleMessage(msg)
	}
}

// demote marks the transport lost. The next loop iteration reconnects.
func (c *Controller) demote(err error) {
	if c.conn != Connected {
		return
	}
	c.conn = Disconnected
	c.keepaliveTimer.disarm()
	c.logger.Warn("broker connection lost", "error", err)
	c.record(EventTransportLost, err.Error())
}
