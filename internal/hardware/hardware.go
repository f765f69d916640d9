package hardware

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/nerrad567/cyfral-controller/internal/infrastructure/config"
)

// Driver names accepted in hardware.driver.
const (
	DriverGPIO      = "gpio"
	DriverSimulated = "simulated"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// OutputRelay is satisfied by Relay and SimRelay.
type OutputRelay interface {
	Enable() error
	Disable() error
	Enabled() bool
}

// Input is satisfied by LevelSensor and SimSensor.
type Input interface {
	Asserted() bool
}

// Signaller is satisfied by StatusLED and SimLED.
type Signaller interface {
	Signal()
}

// TimeSource is satisfied by DS1307 and SystemClock.
type TimeSource interface {
	CurrentTime() (time.Time, error)
}

// Set is the intercom's complete hardware.
type Set struct {
	SoundRelay   OutputRelay
	HandsetRelay OutputRelay
	DoorButton   OutputRelay
	CallLine     Input
	StatusLED    Signaller
	Clock        TimeSource

	// RTC is non-nil when a DS1307 is configured.
	RTC *DS1307

	// Simulated exposes the simulated call line; nil for the gpio driver.
	Simulated *SimSensor

	closers []func() error
}

// Close releases buses opened by Open.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open builds the hardware set described by cfg.
//
// Parameters:
//   - cfg: hardware section of the configuration
//   - loc: location for wall-clock time (RTC contents and system clock)
//   - logger: may be nil
func Open(cfg config.HardwareConfig, loc *time.Location, logger Logger) (*Set, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	switch cfg.Driver {
	case DriverSimulated:
		return openSimulated(loc, logger), nil
	case DriverGPIO, "":
		return openGPIO(cfg, loc, logger)
	default:
		return nil, fmt.Errorf("unknown hardware driver %q", cfg.Driver)
	}
}

func openSimulated(loc *time.Location, logger Logger) *Set {
	sensor := &SimSensor{}
	logger.Warn("using simulated hardware, no relays will switch")
	return &Set{
		SoundRelay:   NewSimRelay("sound", logger),
		HandsetRelay: NewSimRelay("handset", logger),
		DoorButton:   NewSimRelay("door_button", logger),
		CallLine:     sensor,
		StatusLED:    &SimLED{logger: logger},
		Clock:        SystemClock{Location: loc},
		Simulated:    sensor,
	}
}

func openGPIO(cfg config.HardwareConfig, loc *time.Location, logger Logger) (*Set, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	set := &Set{Clock: SystemClock{Location: loc}}
	var err error

	if set.SoundRelay, err = openRelay(cfg.SoundRelayPin); err != nil {
		return nil, err
	}
	if set.HandsetRelay, err = openRelay(cfg.HandsetRelayPin); err != nil {
		return nil, err
	}
	if set.DoorButton, err = openRelay(cfg.DoorButtonPin); err != nil {
		return nil, err
	}

	callPin, err := lookupPin(cfg.CallLinePin)
	if err != nil {
		return nil, err
	}
	if set.CallLine, err = NewLevelSensor(callPin, ParsePull(cfg.CallLinePull)); err != nil {
		return nil, err
	}

	if cfg.StatusLEDPin == "" {
		set.StatusLED = &SimLED{logger: logger}
	} else {
		ledPin, lookupErr := lookupPin(cfg.StatusLEDPin)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if set.StatusLED, err = NewStatusLED(ledPin, cfg.StatusLEDActiveLow); err != nil {
			return nil, err
		}
	}

	if cfg.RTC.Enabled {
		bus, busErr := i2creg.Open(cfg.RTC.Bus)
		if busErr != nil {
			return nil, fmt.Errorf("%w: opening i2c bus %q: %w", ErrRTC, cfg.RTC.Bus, busErr)
		}
		set.closers = append(set.closers, bus.Close)
		set.RTC = NewDS1307(bus, cfg.RTC.Address, loc)
		set.Clock = set.RTC
		logger.Info("using DS1307 real-time clock", "bus", bus.String(), "address", fmt.Sprintf("%#x", cfg.RTC.Address))
	}

	logger.Info("gpio hardware ready",
		"sound_relay", cfg.SoundRelayPin,
		"handset_relay", cfg.HandsetRelayPin,
		"door_button", cfg.DoorButtonPin,
		"call_line", cfg.CallLinePin,
	)
	return set, nil
}

// OpenRTC opens only the DS1307, for tools that set the chip's time.
func OpenRTC(cfg config.RTCConfig, loc *time.Location) (*DS1307, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: opening i2c bus %q: %w", ErrRTC, cfg.Bus, err)
	}
	return NewDS1307(bus, cfg.Address, loc), bus.Close, nil
}

func openRelay(name string) (*Relay, error) {
	pin, err := lookupPin(name)
	if err != nil {
		return nil, err
	}
	return NewRelay(pin, false)
}

func lookupPin(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
	}
	return pin, nil
}
