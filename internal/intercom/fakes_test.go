package intercom

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeRelay struct {
	mu        sync.Mutex
	enabled   bool
	mutations int
	err       error
}

func (r *fakeRelay) Enable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.enabled = true
	r.mutations++
	return nil
}

func (r *fakeRelay) Disable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.enabled = false
	r.mutations++
	return nil
}

func (r *fakeRelay) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *fakeRelay) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mutations
}

type fakeSensor struct {
	mu       sync.Mutex
	asserted bool
}

func (s *fakeSensor) Asserted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asserted
}

func (s *fakeSensor) set(v bool) {
	s.mu.Lock()
	s.asserted = v
	s.mu.Unlock()
}

// fakeClock advances on Sleep instead of blocking.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.slept += d
	c.mu.Unlock()
}

func (c *fakeClock) advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type fakeTimeSource struct {
	mu  sync.Mutex
	t   time.Time
	err error
}

func at(hour, minute, second int) *fakeTimeSource {
	return &fakeTimeSource{t: time.Date(2026, 3, 1, hour, minute, second, 0, time.UTC)}
}

func (s *fakeTimeSource) CurrentTime() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t, s.err
}

func (s *fakeTimeSource) set(hour, minute, second int) {
	s.mu.Lock()
	s.t = time.Date(2026, 3, 1, hour, minute, second, 0, time.UTC)
	s.mu.Unlock()
}

type published struct {
	topic   string
	payload string
}

type fakeTransport struct {
	mu           sync.Mutex
	connectErr   error
	publishErr   error
	subscribeErr error
	pollErr      error
	pingErr      error
	connectGate  chan struct{} // when set, Connect blocks until it is closed
	connects     int
	subscribed   []string
	published    []published
	inbox        []Message
	closed       bool
}

func (t *fakeTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	t.connects++
	gate := t.connectGate
	t.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectErr
}

func (t *fakeTransport) Publish(topic, payload string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.publishErr != nil {
		return t.publishErr
	}
	t.published = append(t.published, published{topic: topic, payload: payload})
	return nil
}

func (t *fakeTransport) Subscribe(topic string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.subscribeErr != nil {
		return t.subscribeErr
	}
	t.subscribed = append(t.subscribed, topic)
	return nil
}

func (t *fakeTransport) PollIncoming() ([]Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pollErr != nil {
		return nil, t.pollErr
	}
	msgs := t.inbox
	t.inbox = nil
	return msgs, nil
}

func (t *fakeTransport) Ping() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pingErr
}

func (t *fakeTransport) KeepAlive() time.Duration { return 60 * time.Second }

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) deliver(topic, payload string) {
	t.mu.Lock()
	t.inbox = append(t.inbox, Message{Topic: topic, Payload: []byte(payload)})
	t.mu.Unlock()
}

func (t *fakeTransport) setPublishErr(err error) {
	t.mu.Lock()
	t.publishErr = err
	t.mu.Unlock()
}

func (t *fakeTransport) connectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connects
}

// on returns the payloads published on topic, oldest first.
func (t *fakeTransport) on(topic string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, p := range t.published {
		if p.topic == topic {
			out = append(out, p.payload)
		}
	}
	return out
}

func (t *fakeTransport) reset() {
	t.mu.Lock()
	t.published = nil
	t.mu.Unlock()
}

type fakeSignal struct {
	mu    sync.Mutex
	count int
}

func (s *fakeSignal) Signal() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
}

func (s *fakeSignal) signals() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *fakeRecorder) Record(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func (r *fakeRecorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

// fakeTimer is a manually fired timer.
type fakeTimer struct {
	parent  *fakeTimers
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (ft *fakeTimers) AfterFunc(d time.Duration, f func()) Stopper {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{parent: ft, d: d, f: f}
	ft.timers = append(ft.timers, t)
	return t
}

// active returns the timers with duration d that are neither stopped
// nor fired.
func (ft *fakeTimers) active(d time.Duration) []*fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	var out []*fakeTimer
	for _, t := range ft.timers {
		if t.d == d && !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs the AfterFunc callback of t as the runtime would.
func (ft *fakeTimers) fire(t *fakeTimer) {
	ft.mu.Lock()
	t.fired = true
	ft.mu.Unlock()
	t.f()
}

var errBroker = errors.New("broker gone")

// rig bundles a controller with its fakes.
type rig struct {
	c         *Controller
	sound     *fakeRelay
	handset   *fakeRelay
	door      *fakeRelay
	line      *fakeSensor
	clock     *fakeClock
	rtc       *fakeTimeSource
	transport *fakeTransport
	signal    *fakeSignal
	recorder  *fakeRecorder
	timers    *fakeTimers
}

var testTopics = Topics{
	IncomingCall: "cyfral/incoming_call/state",
	SoundMode:    "cyfral/sound_mode/state",
	AutoOpenMode: "cyfral/auto_open_mode/state",
	Control:      "cyfral/control",
}

// newRig builds a controller whose RTC reads rtc. The controller is not
// running; tests drive it directly and call drain to run timer intents.
func newRig(rtc *fakeTimeSource) *rig {
	r := &rig{
		sound:     &fakeRelay{},
		handset:   &fakeRelay{},
		door:      &fakeRelay{},
		line:      &fakeSensor{},
		clock:     newFakeClock(),
		rtc:       rtc,
		transport: &fakeTransport{},
		signal:    &fakeSignal{},
		recorder:  &fakeRecorder{},
		timers:    &fakeTimers{},
	}
	c, err := New(Options{
		SoundRelay:   r.sound,
		HandsetRelay: r.handset,
		DoorButton:   r.door,
		CallLine:     r.line,
		TimeSource:   r.rtc,
		Transport:    r.transport,
		Topics:       testTopics,
		Clock:        r.clock,
		Failure:      r.signal,
		Recorder:     r.recorder,
		AfterFunc:    r.timers.AfterFunc,
		Settle:       DefaultSettle,
	})
	if err != nil {
		panic(err)
	}
	r.c = c
	return r
}

// online completes one connect attempt synchronously.
func (r *rig) online() {
	r.c.conn = Connecting
	r.c.connected(r.transport.Connect(context.Background()))
}

// step runs one loop iteration, waits for any connect attempt it
// started and applies the result.
func (r *rig) step() {
	r.c.tick(context.Background())
	r.c.connecting.Wait()
	r.drain()
}

// drain executes every queued intent.
func (r *rig) drain() {
	for {
		select {
		case in := <-r.c.intents:
			r.c.execute(in)
		default:
			return
		}
	}
}

// fireAll fires every active timer of duration d and runs the intents.
func (r *rig) fireAll(d time.Duration) int {
	timers := r.timers.active(d)
	for _, t := range timers {
		r.timers.fire(t)
	}
	r.drain()
	return len(timers)
}

// ring starts a call and returns the controller in IncomingCall.
func (r *rig) ring() {
	r.c.ObserveCallLine(true, r.clock.Now())
}
