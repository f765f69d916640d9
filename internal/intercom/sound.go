package intercom

import "fmt"

// Mute engages the sound relay.
//
// Parameters:
//   - notify: publish the new sound-mode state
//   - reevaluate: re-arm or disarm the periodic re-evaluation timer
//
// Returns:
//   - error: ErrAlreadySilent if already silent, no relay is touched
func (c *Controller) Mute(notify, reevaluate bool) error {
	if c.sound == Silent {
		return ErrAlreadySilent
	}
	if err := c.soundRelay.Enable(); err != nil {
		return fmt.Errorf("engaging sound relay: %w", err)
	}
	c.applySoundMode(Silent, notify, reevaluate)
	return nil
}

// Unmute disengages the sound relay.
//
// Returns:
//   - error: ErrAlreadyAudible if already audible, no relay is touched
func (c *Controller) Unmute(notify, reevaluate bool) error {
	if c.sound == Audible {
		return ErrAlreadyAudible
	}
	if err := c.soundRelay.Disable(); err != nil {
		return fmt.Errorf("releasing sound relay: %w", err)
	}
	c.applySoundMode(Audible, notify, reevaluate)
	return nil
}

func (c *Controller) applySoundMode(mode SoundMode, notify, reevaluate bool) {
	c.sound = mode

	if notify {
		c.logger.Info("sound mode changed", "sound_mode", mode.String())
		c.publish(c.topics.SoundMode, mode.payload())
		c.record(EventSoundModeChanged, mode.String())
	}

	if reevaluate {
		c.rearmReevaluation(mode)
	}

	c.clock.Sleep(c.settle)
}

// rearmReevaluation disarms the periodic re-evaluation when the window
// already agrees with the mode just set, and (re)arms it otherwise.
func (c *Controller) rearmReevaluation(mode SoundMode) {
	expected, err := c.expectedSoundMode()
	if err != nil {
		c.logger.Warn("reading time source failed, keeping sound re-evaluation armed", "error", err)
		c.armReevaluation()
		return
	}
	if expected == mode {
		c.logger.Debug("sound re-evaluation disarmed", "sound_mode", mode.String())
		c.reevaluateTimer.disarm()
		return
	}
	c.armReevaluation()
}

func (c *Controller) armReevaluation() {
	c.reevaluateTimer.arm(c.reevaluateInterval, true, c.ReevaluateSoundMode)
}

func (c *Controller) expectedSoundMode() (SoundMode, error) {
	now, err := c.timeSource.CurrentTime()
	if err != nil {
		return SoundUnknown, fmt.Errorf("reading time source: %w", err)
	}
	return c.window.Expected(TimeOfDayOf(now)), nil
}

// InitializeSoundMode forces the relay into the mode the sound window
// expects, without publishing. If the time source fails the intercom
// is left audible so calls are never missed.
func (c *Controller) InitializeSoundMode() error {
	mode, err := c.expectedSoundMode()
	if err != nil {
		c.logger.Error("cannot determine sound mode, defaulting to audible", "error", err)
		mode = Audible
	}

	if mode == Silent {
		err = c.soundRelay.Enable()
	} else {
		err = c.soundRelay.Disable()
	}
	if err != nil {
		return fmt.Errorf("initializing sound relay: %w", err)
	}

	c.sound = mode
	c.logger.Info("sound mode initialized", "sound_mode", mode.String(),
		"unmute_time", c.window.Unmute.String(), "mute_time", c.window.Mute.String())
	c.clock.Sleep(c.settle)
	return nil
}

// ReevaluateSoundMode switches the sound mode if the window expects a
// different one. Time source failures keep the current mode.
func (c *Controller) ReevaluateSoundMode() {
	expected, err := c.expectedSoundMode()
	if err != nil {
		c.logger.Warn("sound re-evaluation skipped", "error", err)
		return
	}
	if expected == c.sound {
		return
	}

	if expected == Silent {
		err = c.Mute(true, false)
	} else {
		err = c.Unmute(true, false)
	}
	if err != nil {
		c.logger.Error("sound re-evaluation failed", "error", err)
		c.failure.Signal()
	}
}
