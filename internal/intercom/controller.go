package intercom

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Default timings.
const (
	DefaultDebounce           = 5 * time.Second
	DefaultSettle             = 500 * time.Millisecond
	DefaultPollInterval       = 20 * time.Millisecond
	DefaultReevaluateInterval = 5 * time.Minute
	DefaultAutoOpenDuration   = 30 * time.Minute
)

// intentQueueSize bounds intents waiting for the loop.
const intentQueueSize = 32

// Relay is a binary output. Enabled reports the last commanded state.
type Relay interface {
	Enable() error
	Disable() error
	Enabled() bool
}

// Sensor is a binary input.
type Sensor interface {
	Asserted() bool
}

// Transport is the messaging channel to the home automation side.
type Transport interface {
	Connect(ctx context.Context) error
	Publish(topic, payload string) error
	Subscribe(topic string) error
	PollIncoming() ([]Message, error)
	Ping() error
	KeepAlive() time.Duration
	Close() error
}

// FailureSignal is a visible failure indicator such as a status LED.
type FailureSignal interface {
	Signal()
}

// Logger defines the logging interface used by the Controller.
// Compatible with *logging.Logger and *slog.Logger.
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

type noopSignal struct{}

func (noopSignal) Signal() {}

// Options holds the controller's handles and timings.
// Zero durations select the defaults, except Settle where zero means no
// settle delay.
type Options struct {
	SoundRelay   Relay
	HandsetRelay Relay
	DoorButton   Relay
	CallLine     Sensor
	TimeSource   TimeSource
	Transport    Transport
	Topics       Topics

	Clock     Clock         // default RealClock
	Failure   FailureSignal // optional
	Recorder  Recorder      // optional
	Logger    Logger        // optional
	AfterFunc AfterFunc     // default time.AfterFunc

	Window             *SoundWindow // nil selects DefaultSoundWindow
	Debounce           time.Duration
	Settle             time.Duration
	PollInterval       time.Duration
	ReevaluateInterval time.Duration
	AutoOpenDuration   time.Duration
}

// intent is a unit of work executed by the loop.
type intent struct {
	source EventSource
	fn     func()
}

// Controller is the intercom aggregate. It owns every piece of mutable
// state and is only mutated by the loop goroutine.
type Controller struct {
	soundRelay   Relay
	handsetRelay Relay
	doorButton   Relay
	callLine     Sensor
	timeSource   TimeSource
	transport    Transport
	topics       Topics
	clock        Clock
	failure      FailureSignal
	recorder     Recorder
	logger       Logger

	window             SoundWindow
	debounce           time.Duration
	settle             time.Duration
	pollInterval       time.Duration
	reevaluateInterval time.Duration
	autoOpenDuration   time.Duration

	state     State
	lastSeen  time.Time
	sound     SoundMode
	autoOpen  AutoOpenMode
	conn      ConnState
	connFails int

	// source attributes recorded events to whatever is running.
	source EventSource

	reevaluateTimer *namedTimer
	autoOpenTimer   *namedTimer
	keepaliveTimer  *namedTimer

	// connecting counts connect goroutines still running.
	connecting sync.WaitGroup

	intents chan intent
	quit    chan struct{}
	stopped chan struct{}
}

// New creates a controller. It does not touch hardware; Run initializes
// the sound relay before entering the loop.
//
// Returns:
//   - *Controller: ready to Run
//   - error: ErrMissingDependency if a required handle is nil,
//     ErrInvalidWindow if the sound window is empty
func New(opts Options) (*Controller, error) {
	required := []struct {
		name string
		ok   bool
	}{
		{"sound relay", opts.SoundRelay != nil},
		{"handset relay", opts.HandsetRelay != nil},
		{"door button", opts.DoorButton != nil},
		{"call line", opts.CallLine != nil},
		{"time source", opts.TimeSource != nil},
		{"transport", opts.Transport != nil},
	}
	for _, r := range required {
		if !r.ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingDependency, r.name)
		}
	}

	c := &Controller{
		soundRelay:         opts.SoundRelay,
		handsetRelay:       opts.HandsetRelay,
		doorButton:         opts.DoorButton,
		callLine:           opts.CallLine,
		timeSource:         opts.TimeSource,
		transport:          opts.Transport,
		topics:             opts.Topics,
		clock:              opts.Clock,
		failure:            opts.Failure,
		recorder:           opts.Recorder,
		logger:             opts.Logger,
		window:             DefaultSoundWindow,
		debounce:           orDefault(opts.Debounce, DefaultDebounce),
		settle:             opts.Settle,
		pollInterval:       orDefault(opts.PollInterval, DefaultPollInterval),
		reevaluateInterval: orDefault(opts.ReevaluateInterval, DefaultReevaluateInterval),
		autoOpenDuration:   orDefault(opts.AutoOpenDuration, DefaultAutoOpenDuration),
		source:             SourceStartup,
		intents:            make(chan intent, intentQueueSize),
		quit:               make(chan struct{}),
		stopped:            make(chan struct{}),
	}
	if c.clock == nil {
		c.clock = RealClock{}
	}
	if c.failure == nil {
		c.failure = noopSignal{}
	}
	if c.recorder == nil {
		c.recorder = noopRecorder{}
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	if opts.Window != nil {
		if err := opts.Window.Validate(); err != nil {
			return nil, err
		}
		c.window = *opts.Window
	}
	if c.settle < 0 {
		c.settle = 0
	}

	after := opts.AfterFunc
	if after == nil {
		after = realAfterFunc
	}
	c.reevaluateTimer = newNamedTimer("sound_reevaluate", after, c.clock.Now, c.post)
	c.autoOpenTimer = newNamedTimer("auto_open", after, c.clock.Now, c.post)
	c.keepaliveTimer = newNamedTimer("keepalive", after, c.clock.Now, c.post)

	return c, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Status returns a copy of the current state.
func (c *Controller) Status() Status {
	s := Status{
		State:             c.state,
		SoundMode:         c.sound,
		AutoOpen:          c.autoOpen,
		Connection:        c.conn,
		ReevaluationArmed: c.reevaluateTimer.isArmed(),
	}
	if !c.lastSeen.IsZero() {
		last := c.lastSeen
		s.LastCallAt = &last
	}
	if c.autoOpen == AutoOpenEnabled && c.autoOpenTimer.isArmed() {
		until := c.autoOpenTimer.deadline
		s.AutoOpenExpiresAt = &until
	}
	return s
}

// ObserveCallLine advances the call state machine with one call-line
// sample. It is called once per loop iteration.
//
// Returns:
//   - Transition: CallStarted or CallEnded when the state changed
//   - bool: whether a transition happened
//
// With auto-open enabled the door is opened on the same sample that
// detects the call.
func (c *Controller) ObserveCallLine(asserted bool, now time.Time) (Transition, bool) {
	if asserted {
		transition, changed := NoTransition, false
		if c.state == WaitingCall {
			c.state = IncomingCall
			c.logger.Info("incoming call")
			c.publish(c.topics.IncomingCall, payloadOn)
			c.record(EventCallStarted, "")
			transition, changed = CallStarted, true
		}
		c.lastSeen = now
		if c.autoOpen == AutoOpenEnabled && c.state == IncomingCall {
			c.logger.Info("auto-open enabled, opening door")
			if err := c.OpenDoor(); err != nil {
				c.logger.Error("auto-open failed", "error", err)
				c.failure.Signal()
			}
		}
		return transition, changed
	}

	if c.state == WaitingCall {
		return NoTransition, false
	}

	if now.Sub(c.lastSeen) < c.debounce {
		return NoTransition, false
	}

	c.logger.Info("call ended", "final_state", c.state.String())
	c.state = WaitingCall
	c.publish(c.topics.IncomingCall, payloadOff)
	c.record(EventCallEnded, "")
	return CallEnded, true
}

// PickUpHandset answers the call by engaging the handset relay.
//
// Returns:
//   - error: ErrPickUp unless the state is IncomingCall
func (c *Controller) PickUpHandset() error {
	if c.state != IncomingCall {
		return ErrPickUp
	}
	if err := c.handsetRelay.Enable(); err != nil {
		return fmt.Errorf("engaging handset relay: %w", err)
	}
	c.state = HandsetPickedUp
	c.clock.Sleep(c.settle)
	return nil
}

// PressOpenDoorButton pulses the door-open output for the settle delay.
//
// Returns:
//   - error: ErrDoorButton unless the handset is picked up
func (c *Controller) PressOpenDoorButton() error {
	if c.state != HandsetPickedUp {
		return ErrDoorButton
	}
	if err := c.doorButton.Enable(); err != nil {
		return fmt.Errorf("pressing door button: %w", err)
	}
	c.clock.Sleep(c.settle)
	if err := c.doorButton.Disable(); err != nil {
		return fmt.Errorf("releasing door button: %w", err)
	}
	return nil
}

// HangUpHandset disengages the handset relay.
//
// Returns:
//   - error: ErrHangUp unless the handset is picked up
func (c *Controller) HangUpHandset() error {
	if c.state != HandsetPickedUp {
		return ErrHangUp
	}
	if err := c.handsetRelay.Disable(); err != nil {
		return fmt.Errorf("releasing handset relay: %w", err)
	}
	c.state = HandsetHungUp
	c.clock.Sleep(c.settle)
	return nil
}

// OpenDoor answers the call, presses the door button and hangs up.
// The sound mode in effect before the call is restored afterwards.
//
// Returns:
//   - error: ErrPickUp without an incoming call, otherwise hardware errors
func (c *Controller) OpenDoor() error {
	return c.answer(true)
}

// RejectCall answers the call and hangs up straight away.
func (c *Controller) RejectCall() error {
	return c.answer(false)
}

// answer runs the pick-up/hang-up sequence. Once the handset relay is
// engaged every remaining step is attempted, so a hardware fault midway
// still leaves the handset released and the sound mode restored.
func (c *Controller) answer(pressButton bool) error {
	if c.state != IncomingCall {
		return ErrPickUp
	}
	wasSilent := c.sound == Silent

	if err := c.PickUpHandset(); err != nil {
		return err
	}

	var errs []error
	unmuted := false
	if wasSilent {
		if err := c.Unmute(false, false); err != nil {
			errs = append(errs, err)
		} else {
			unmuted = true
		}
	}
	if pressButton {
		if err := c.PressOpenDoorButton(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.HangUpHandset(); err != nil {
		errs = append(errs, err)
	}
	if unmuted {
		if err := c.Mute(false, false); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if pressButton {
		c.logger.Info("door opened")
		c.record(EventDoorOpened, "")
	} else {
		c.logger.Info("call rejected")
		c.record(EventCallRejected, "")
	}
	return nil
}

// publish sends a state payload, demoting the connection on failure.
// While disconnected the publish is skipped; the snapshot sent on the
// next connect carries the current value.
func (c *Controller) publish(topic, payload string) {
	if c.conn != Connected {
		c.logger.Debug("skipping publish while disconnected", "topic", topic, "payload", payload)
		return
	}
	if err := c.transport.Publish(topic, payload); err != nil {
		c.demote(fmt.Errorf("publishing %s: %w", topic, err))
	}
}

func (c *Controller) record(kind EventKind, detail string) {
	evt := Event{
		Kind:   kind,
		Source: c.source,
		Detail: detail,
		Time:   c.clock.Now(),
	}
	if err := c.recorder.Record(context.Background(), evt); err != nil {
		c.logger.Warn("recording event failed", "kind", string(kind), "error", err)
	}
}
