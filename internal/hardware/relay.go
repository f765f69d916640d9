package hardware

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// Relay is a binary output on a GPIO pin.
type Relay struct {
	pin       gpio.PinOut
	activeLow bool

	mu      sync.Mutex
	enabled bool
}

// NewRelay drives pin to the released level and returns the relay.
func NewRelay(pin gpio.PinOut, activeLow bool) (*Relay, error) {
	r := &Relay{pin: pin, activeLow: activeLow}
	if err := r.Disable(); err != nil {
		return nil, err
	}
	return r, nil
}

// Enable engages the relay.
func (r *Relay) Enable() error {
	return r.set(true)
}

// Disable releases the relay.
func (r *Relay) Disable() error {
	return r.set(false)
}

// Enabled reports the last commanded state.
func (r *Relay) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *Relay) set(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	level := gpio.Level(on != r.activeLow)
	if err := r.pin.Out(level); err != nil {
		return fmt.Errorf("driving %s %s: %w", r.pin.Name(), level, err)
	}
	r.enabled = on
	return nil
}

// String returns the underlying pin name.
func (r *Relay) String() string {
	return r.pin.Name()
}
