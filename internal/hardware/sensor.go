package hardware

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// LevelSensor reads a binary input. The call-line optocoupler pulls the
// pin high while the intercom is ringing.
type LevelSensor struct {
	pin gpio.PinIn
}

// NewLevelSensor configures pin as an input with the given pull.
func NewLevelSensor(pin gpio.PinIn, pull gpio.Pull) (*LevelSensor, error) {
	if err := pin.In(pull, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configuring %s as input: %w", pin.Name(), err)
	}
	return &LevelSensor{pin: pin}, nil
}

// Asserted reports whether the input is high.
func (s *LevelSensor) Asserted() bool {
	return s.pin.Read() == gpio.High
}

// ParsePull maps the configuration value to a periph.io pull.
func ParsePull(s string) gpio.Pull {
	switch s {
	case "up":
		return gpio.PullUp
	case "down":
		return gpio.PullDown
	case "float":
		return gpio.Float
	default:
		return gpio.PullNoChange
	}
}
