package hardware

import (
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Error blink pattern: the LED goes dark and comes back twice.
const (
	blinkCount    = 2
	blinkInterval = 200 * time.Millisecond
)

// StatusLED is a power/status indicator that is normally lit and blinks
// to signal failures.
type StatusLED struct {
	pin       gpio.PinOut
	activeLow bool
	sleep     func(time.Duration)

	blinking atomic.Bool
}

// NewStatusLED lights the LED and returns it.
func NewStatusLED(pin gpio.PinOut, activeLow bool) (*StatusLED, error) {
	led := &StatusLED{pin: pin, activeLow: activeLow, sleep: time.Sleep}
	if err := led.set(true); err != nil {
		return nil, err
	}
	return led, nil
}

// Signal starts the error blink in the background and returns
// immediately. A Signal arriving while a blink is running is absorbed.
func (l *StatusLED) Signal() {
	if !l.blinking.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer l.blinking.Store(false)
		for i := 0; i < blinkCount; i++ {
			_ = l.set(false)
			l.sleep(blinkInterval)
			_ = l.set(true)
			l.sleep(blinkInterval)
		}
	}()
}

// Blinking reports whether a blink is in progress.
func (l *StatusLED) Blinking() bool {
	return l.blinking.Load()
}

func (l *StatusLED) set(on bool) error {
	return l.pin.Out(gpio.Level(on != l.activeLow))
}
