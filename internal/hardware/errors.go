package hardware

import "errors"

// Domain-specific errors for hardware access.
var (
	// ErrPinNotFound is returned when a configured pin name is unknown to periph.io.
	ErrPinNotFound = errors.New("hardware: pin not found")

	// ErrInitFailed is returned when periph.io host drivers fail to load.
	ErrInitFailed = errors.New("hardware: host initialisation failed")

	// ErrRTC is returned when the DS1307 cannot be read or written.
	ErrRTC = errors.New("hardware: rtc access failed")

	// ErrRTCHalted is returned when the DS1307 oscillator is stopped,
	// meaning the time it holds is not running.
	ErrRTCHalted = errors.New("hardware: rtc oscillator halted")
)
