package intercom

import (
	"context"
	"time"
)

// Run initializes the sound mode and drives the controller until ctx is
// cancelled. It must be called once.
//
// Each tick the loop starts a reconnect if needed, samples the call line
// and, when connected, dispatches queued control messages. Between ticks
// it executes intents posted by timers, connect attempts, Submit and
// Snapshot.
//
// On return all timers are disarmed and the transport is closed. Relays
// are left as they are.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)
	defer c.shutdown()

	c.source = SourceStartup
	if err := c.InitializeSoundMode(); err != nil {
		c.logger.Error("sound mode initialization failed", "error", err)
		c.failure.Signal()
	}
	c.armReevaluation()

	c.logger.Info("intercom controller running",
		"poll_interval", c.pollInterval.String(),
		"debounce", c.debounce.String(),
	)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("intercom controller stopping")
			return nil
		case in := <-c.intents:
			c.execute(in)
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick runs one iteration of the control loop.
func (c *Controller) tick(ctx context.Context) {
	if c.conn == Disconnected {
		c.startConnect(ctx)
	}

	c.source = SourceLoop
	c.ObserveCallLine(c.callLine.Asserted(), c.clock.Now())

	if c.conn == Connected {
		c.source = SourceMQTT
		c.pollIncoming()
	}
}

func (c *Controller) execute(in intent) {
	c.source = in.source
	in.fn()
}

// post queues an intent for the loop. It gives up once the loop is
// shutting down.
func (c *Controller) post(in intent) {
	select {
	case c.intents <- in:
	case <-c.quit:
	case <-c.stopped:
	}
}

// call runs fn on the loop and waits for it to finish.
func (c *Controller) call(ctx context.Context, source EventSource, fn func()) error {
	done := make(chan struct{})
	in := intent{source: source, fn: func() {
		fn()
		close(done)
	}}

	select {
	case c.intents <- in:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit runs cmd on the loop on behalf of another goroutine, such as
// an HTTP handler. Failures are logged and signalled like remote
// commands and also returned to the caller.
func (c *Controller) Submit(ctx context.Context, cmd Command) error {
	var result error
	err := c.call(ctx, SourceAPI, func() {
		result = c.Dispatch(cmd)
		if result != nil {
			c.commandFailed(cmd, result)
		}
	})
	if err != nil {
		return err
	}
	return result
}

// Snapshot returns the controller status as seen from the loop.
func (c *Controller) Snapshot(ctx context.Context) (Status, error) {
	var status Status
	err := c.call(ctx, SourceAPI, func() {
		status = c.Status()
	})
	return status, err
}

// shutdown waits for an in-flight connect attempt before closing the
// transport. ctx is already cancelled, so Connect returns promptly.
func (c *Controller) shutdown() {
	close(c.quit)
	c.reevaluateTimer.disarm()
	c.autoOpenTimer.disarm()
	c.keepaliveTimer.disarm()
	c.connecting.Wait()

	c.conn = Disconnected
	if err := c.transport.Close(); err != nil {
		c.logger.Warn("closing transport failed", "error", err)
	}
}
