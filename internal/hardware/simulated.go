package hardware

import (
	"sync"
	"sync/atomic"
)

// SimRelay is an in-memory relay that logs every change.
type SimRelay struct {
	name   string
	logger Logger

	mu      sync.Mutex
	enabled bool
}

// NewSimRelay returns a released simulated relay.
func NewSimRelay(name string, logger Logger) *SimRelay {
	if logger == nil {
		logger = noopLogger{}
	}
	return &SimRelay{name: name, logger: logger}
}

// Enable engages the relay.
func (r *SimRelay) Enable() error {
	r.set(true)
	return nil
}

// Disable releases the relay.
func (r *SimRelay) Disable() error {
	r.set(false)
	return nil
}

// Enabled reports the last commanded state.
func (r *SimRelay) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *SimRelay) set(on bool) {
	r.mu.Lock()
	r.enabled = on
	r.mu.Unlock()
	r.logger.Debug("simulated relay", "relay", r.name, "enabled", on)
}

// SimSensor is an input whose level is set programmatically.
type SimSensor struct {
	asserted atomic.Bool
}

// Asserted reports the simulated level.
func (s *SimSensor) Asserted() bool {
	return s.asserted.Load()
}

// Set changes the simulated level.
func (s *SimSensor) Set(asserted bool) {
	s.asserted.Store(asserted)
}

// SimLED counts failure signals.
type SimLED struct {
	logger  Logger
	signals atomic.Int64
}

// Signal records a failure signal.
func (l *SimLED) Signal() {
	n := l.signals.Add(1)
	if l.logger != nil {
		l.logger.Debug("simulated status LED blink", "count", n)
	}
}

// Signals returns the number of failure signals seen.
func (l *SimLED) Signals() int64 {
	return l.signals.Load()
}
