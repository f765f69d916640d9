package intercom

import (
	"errors"
	"fmt"
)

// Dispatch runs cmd against the controller.
//
// Remote mute and unmute publish the new state and re-arm the sound
// re-evaluation timer.
func (c *Controller) Dispatch(cmd Command) error {
	switch cmd {
	case CommandOpenDoor:
		return c.OpenDoor()
	case CommandRejectCall:
		return c.RejectCall()
	case CommandMuteSound:
		return c.Mute(true, true)
	case CommandUnmuteSound:
		return c.Unmute(true, true)
	case CommandEnableAutoOpen:
		c.EnableAutoOpen()
		return nil
	case CommandDisableAutoOpen:
		c.DisableAutoOpen()
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

// HandleMessage decodes and dispatches an inbound transport message.
// Unknown commands are logged and dropped; failed commands raise the
// failure signal. Neither stops the loop.
func (c *Controller) HandleMessage(msg Message) {
	if msg.Topic != c.topics.Control {
		c.logger.Debug("ignoring message on unexpected topic", "topic", msg.Topic)
		return
	}

	cmd, err := ParseCommand(string(msg.Payload))
	if err != nil {
		c.logger.Info("dropping unknown command", "payload", string(msg.Payload))
		return
	}

	c.logger.Debug("dispatching command", "command", cmd.String())
	if err := c.Dispatch(cmd); err != nil {
		c.commandFailed(cmd, err)
	}
}

func (c *Controller) commandFailed(cmd Command, err error) {
	if errors.Is(err, ErrPrecondition) {
		c.logger.Warn("command rejected", "command", cmd.String(), "error", err)
	} else {
		c.logger.Error("command failed", "command", cmd.String(), "error", err)
	}
	c.record(EventCommandFailed, fmt.Sprintf("%s: %v", cmd, err))
	c.failure.Signal()
}
