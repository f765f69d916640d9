package intercom

import "time"

// Stopper cancels a pending timer. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f to run on its own goroutine after d.
type AfterFunc func(d time.Duration, f func()) Stopper

func realAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// namedTimer is a re-armable one-shot or periodic timer whose firings are
// delivered to the loop as intents.
//
// Only the loop goroutine touches its fields; the AfterFunc callback
// only posts. Every arm and disarm bumps the generation so a firing
// already in flight for an older arming is discarded.
type namedTimer struct {
	name  string
	after AfterFunc
	post  func(intent)

	generation uint64
	pending    Stopper
	armed      bool
	period     time.Duration
	deadline   time.Time
	now        func() time.Time
	fire       func()
}

func newNamedTimer(name string, after AfterFunc, now func() time.Time, post func(intent)) *namedTimer {
	return &namedTimer{name: name, after: after, now: now, post: post}
}

// arm replaces any pending firing. A periodic timer re-arms itself with
// the same delay each time it fires.
func (t *namedTimer) arm(d time.Duration, periodic bool, fire func()) {
	t.disarm()
	t.armed = true
	t.fire = fire
	t.period = 0
	if periodic {
		t.period = d
	}
	t.schedule(d)
}

func (t *namedTimer) schedule(d time.Duration) {
	t.generation++
	gen := t.generation
	t.deadline = t.now().Add(d)
	t.pending = t.after(d, func() {
		t.post(intent{source: SourceTimer, fn: func() { t.fired(gen) }})
	})
}

func (t *namedTimer) fired(gen uint64) {
	if !t.armed || gen != t.generation {
		return
	}
	if t.period > 0 {
		t.schedule(t.period)
	} else {
		t.armed = false
		t.pending = nil
	}
	t.fire()
}

func (t *namedTimer) disarm() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.armed = false
	t.generation++
}

func (t *namedTimer) isArmed() bool {
	return t.armed
}
