package intercom

// EnableAutoOpen opens the door for every call until the auto-open
// duration elapses. Enabling again restarts the countdown.
func (c *Controller) EnableAutoOpen() {
	c.autoOpen = AutoOpenEnabled
	c.autoOpenTimer.arm(c.autoOpenDuration, false, c.DisableAutoOpen)
	c.logger.Info("auto-open enabled", "duration", c.autoOpenDuration.String())
	c.publish(c.topics.AutoOpenMode, payloadOn)
	c.record(EventAutoOpenChanged, AutoOpenEnabled.String())
}

// DisableAutoOpen cancels auto-open. Calling it while already disabled
// is not an error and republishes OFF.
func (c *Controller) DisableAutoOpen() {
	c.autoOpen = AutoOpenDisabled
	c.autoOpenTimer.disarm()
	c.logger.Info("auto-open disabled")
	c.publish(c.topics.AutoOpenMode, payloadOff)
	c.record(EventAutoOpenChanged, AutoOpenDisabled.String())
}
