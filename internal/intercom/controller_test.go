package intercom

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_MissingDependency(t *testing.T) {
	_, err := New(Options{
		SoundRelay:   &fakeRelay{},
		HandsetRelay: &fakeRelay{},
		DoorButton:   &fakeRelay{},
		TimeSource:   at(12, 0, 0),
		Transport:    &fakeTransport{},
	})
	require.ErrorIs(t, err, ErrMissingDependency)
	require.Contains(t, err.Error(), "call line")
}

func TestNew_Defaults(t *testing.T) {
	r := newRig(at(12, 0, 0))

	require.Equal(t, DefaultDebounce, r.c.debounce)
	require.Equal(t, DefaultReevaluateInterval, r.c.reevaluateInterval)
	require.Equal(t, DefaultAutoOpenDuration, r.c.autoOpenDuration)
	require.Equal(t, DefaultSoundWindow, r.c.window)

	status := r.c.Status()
	require.Equal(t, WaitingCall, status.State)
	require.Equal(t, SoundUnknown, status.SoundMode)
	require.Equal(t, AutoOpenDisabled, status.AutoOpen)
	require.Equal(t, Disconnected, status.Connection)
	require.Nil(t, status.LastCallAt)
}

func newWithWindow(w *SoundWindow) (*Controller, error) {
	return New(Options{
		SoundRelay:   &fakeRelay{},
		HandsetRelay: &fakeRelay{},
		DoorButton:   &fakeRelay{},
		CallLine:     &fakeSensor{},
		TimeSource:   at(12, 0, 0),
		Transport:    &fakeTransport{},
		Window:       w,
	})
}

func TestNew_ExplicitWindowHonoured(t *testing.T) {
	window := SoundWindow{Mute: TimeOfDay{Hour: 6}}
	c, err := newWithWindow(&window)
	require.NoError(t, err)
	require.Equal(t, window, c.window)

	require.NoError(t, c.InitializeSoundMode())
	require.Equal(t, Silent, c.sound, "noon is outside 00:00-06:00")
}

func TestNew_RejectsEmptyOrInvertedWindow(t *testing.T) {
	for _, w := range []SoundWindow{
		{},
		{Unmute: TimeOfDay{Hour: 9}, Mute: TimeOfDay{Hour: 9}},
		{Unmute: TimeOfDay{Hour: 22}, Mute: TimeOfDay{Hour: 7}},
	} {
		_, err := newWithWindow(&w)
		require.ErrorIs(t, err, ErrInvalidWindow, "%s-%s", w.Unmute, w.Mute)
	}
}

func TestObserveCallLine_StartsCall(t *testing.T) {
	r := newRig(at(12, 0, 0))
	r.online()
	r.transport.reset()

	tr, changed := r.c.ObserveCallLine(false, r.clock.Now())
	require.False(t, changed)
	require.Equal(t, NoTransition, tr)
	require.Equal(t, WaitingCall, r.c.state)

	tr, changed = r.c.ObserveCallLine(true, r.clock.Now())
	require.True(t, changed)
	require.Equal(t, CallStarted, tr)
	require.Equal(t, IncomingCall, r.c.state)
	require.Equal(t, []string{"ON"}, r.transport.on(testTopics.IncomingCall))
	require.Contains(t, r.recorder.kinds(), EventCallStarted)
}

func TestObserveCallLine_Debounce(t *testing.T) {
	r := newRig(at(12, 0, 0))
	r.online()
	start := r.clock.Now()
	r.c.ObserveCallLine(true, start)

	_, changed := r.c.ObserveCallLine(false, start.Add(4999*time.Millisecond))
	require.False(t, changed)
	require.Equal(t, IncomingCall, r.c.state)

	tr, changed := r.c.ObserveCallLine(false, start.Add(5*time.Second))
	require.True(t, changed)
	require.Equal(t, CallEnded, tr)
	require.Equal(t, WaitingCall, r.c.state)
	require.Equal(t, []string{"ON", "OFF"}, r.transport.on(testTopics.IncomingCall))
}

func TestObserveCallLine_RefreshesLastSeen(t *testing.T) {
	r := newRig(at(12, 0, 0))
	start := r.clock.Now()

	r.c.ObserveCallLine(true, start)
	r.c.ObserveCallLine(true, start.Add(3*time.Second))

	_, changed := r.c.ObserveCallLine(false, start.Add(7*time.Second))
	require.False(t, changed, "call ended 4s after the last ring")

	_, changed = r.c.ObserveCallLine(false, start.Add(8*time.Second))
	require.True(t, changed)
	require.Equal(t, WaitingCall, r.c.state)
}

func TestObserveCallLine_DebounceHoldsForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 50; run++ {
		r := newRig(at(12, 0, 0))
		now := r.clock.Now()
		var lastTrue time.Time

		for step := 0; step < 200; step++ {
			now = now.Add(time.Duration(rng.IntN(2000)) * time.Millisecond)
			asserted := rng.IntN(10) < 3
			if asserted {
				lastTrue = now
			}

			r.c.ObserveCallLine(asserted, now)

			if lastTrue.IsZero() {
				require.Equal(t, WaitingCall, r.c.state)
				continue
			}
			within := now.Sub(lastTrue) < DefaultDebounce
			if within {
				require.NotEqual(t, WaitingCall, r.c.state, "run %d step %d", run, step)
			} else {
				require.Equal(t, WaitingCall, r.c.state, "run %d step %d", run, step)
			}
		}
	}
}

func TestPickUpHandset_RequiresIncomingCall(t *testing.T) {
	for _, state := range []State{WaitingCall, HandsetPickedUp, HandsetHungUp} {
		t.Run(state.String(), func(t *testing.T) {
			r := newRig(at(12, 0, 0))
			r.c.state = state

			err := r.c.PickUpHandset()
			require.ErrorIs(t, err, ErrPickUp)
			require.ErrorIs(t, err, ErrPrecondition)
			require.Zero(t, r.handset.count())
			require.Equal(t, state, r.c.state)
		})
	}
}

func TestPickUpHandset(t *testing.T) {
	r := newRig(at(12, 0, 0))
	r.ring()

	require.NoError(t, r.c.PickUpHandset())
	require.True(t, r.handset.Enabled())
	require.Equal(t, HandsetPickedUp, r.c.state)
	require.Equal(t, DefaultSettle, r.clock.slept)
}

func TestPickUpHandset_RelayFault(t *testing.T) {
	r := newRig(at(12, 0, 0))
	r.ring()
	r.handset.err = errors.New("gpio write failed")

	err := r.c.PickUpHandset()
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrPrecondition)
	require.Equal(t, IncomingCall, r.c.state)
}

func TestPressOpenDoorButton(t *testing.T) {
	r := newRig(at(12, 0, 0))

	require.ErrorIs(t, r.c.PressOpenDoorButton(), ErrDoorButton)
	require.Zero(t, r.door.count())

	r.ring()
	require.NoError(t, r.c.PickUpHandset())
	require.NoError(t, r.c.PressOpenDoorButton())
	require.Equal(t, 2, r.door.count(), "door button pulsed")
	require.False(t, r.door.Enabled())
}

func TestHangUpHandset(t *testing.T) {
	r := newRig(at(12, 0, 0))
	r.ring()

	require.ErrorIs(t, r.c.HangUpHandset(), ErrHangUp)
	require.Zero(t, r.handset.count())

	require.NoError(t, r.c.PickUpHandset())
	require.NoError(t, r.c.HangUpHandset())
	require.False(t, r.handset.Enabled())
	require.Equal(t, HandsetHungUp, r.c.state)

	require.ErrorIs(t, r.c.HangUpHandset(), ErrHangUp)
}

func TestAnswer_RestoresSoundMode(t *testing.T) {
	tests := []struct {
		name      string
		rtc       *fakeTimeSource
		mode      SoundMode
		openDoor  bool
		wantEvent EventKind
		wantDoor  int
	}{
		{name: "open door while audible", rtc: at(12, 0, 0), mode: Audible, openDoor: true, wantEvent: EventDoorOpened, wantDoor: 2},
		{name: "open door while silent", rtc: at(20, 0, 0), mode: Silent, openDoor: true, wantEvent: EventDoorOpened, wantDoor: 2},
		{name: "reject call while audible", rtc: at(12, 0, 0), mode: Audible, wantEvent: EventCallRejected},
		{name: "reject call while silent", rtc: at(20, 0, 0), mode: Silent, wantEvent: EventCallRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(tt.rtc)
			require.NoError(t, r.c.InitializeSoundMode())
			require.Equal(t, tt.mode, r.c.sound)
			r.online()
			r.ring()
			r.transport.reset()

			var err error
			if tt.openDoor {
				err = r.c.OpenDoor()
			} else {
				err = r.c.RejectCall()
			}
			require.NoError(t, err)

			require.Equal(t, tt.mode, r.c.sound)
			require.Equal(t, tt.mode == Silent, r.sound.Enabled())
			require.Equal(t, HandsetHungUp, r.c.state)
			require.False(t, r.handset.Enabled())
			require.Equal(t, tt.wantDoor, r.door.count())
			require.Empty(t, r.transport.on(testTopics.SoundMode), "temporary unmute is not published")
			require.Contains(t, r.recorder.kinds(), tt.wantEvent)
			require.NotContains(t, r.recorder.kinds(), EventSoundModeChanged)
		})
	}
}

func TestOpenDoor_WithoutCall(t *testing.T) {
	r := newRig(at(20, 0, 0))
	require.NoError(t, r.c.InitializeSoundMode())
	soundMutations := r.sound.count()

	require.ErrorIs(t, r.c.OpenDoor(), ErrPickUp)
	require.ErrorIs(t, r.c.RejectCall(), ErrPickUp)

	require.Zero(t, r.handset.count())
	require.Zero(t, r.door.count())
	require.Equal(t, soundMutations, r.sound.count())
	require.Equal(t, Silent, r.c.sound)
}

func TestOpenDoor_DoorFaultStillHangsUp(t *testing.T) {
	r := newRig(at(20, 0, 0))
	require.NoError(t, r.c.InitializeSoundMode())
	r.ring()
	r.door.err = errors.New("optocoupler stuck")

	err := r.c.OpenDoor()
	require.Error(t, err)
	require.Equal(t, HandsetHungUp, r.c.state)
	require.False(t, r.handset.Enabled())
	require.Equal(t, Silent, r.c.sound)
	require.NotContains(t, r.recorder.kinds(), EventDoorOpened)
}

func TestAutoOpen_OpensDoorOncePerCall(t *testing.T) {
	r := newRig(at(12, 0, 0))
	require.NoError(t, r.c.InitializeSoundMode())
	r.c.EnableAutoOpen()

	start := r.clock.Now()
	tr, changed := r.c.ObserveCallLine(true, start)
	require.True(t, changed)
	require.Equal(t, CallStarted, tr)
	require.Equal(t, HandsetHungUp, r.c.state, "door opened on the detecting sample")
	require.Equal(t, 2, r.door.count())
	require.Equal(t, []EventKind{EventAutoOpenChanged, EventCallStarted, EventDoorOpened}, r.recorder.kinds())

	r.c.ObserveCallLine(true, start.Add(20*time.Millisecond))
	r.c.ObserveCallLine(true, start.Add(40*time.Millisecond))
	require.Equal(t, 2, r.door.count(), "door opened once per call")
	require.Zero(t, r.signal.signals())
}

func TestAutoOpen_SingleSamplePulse(t *testing.T) {
	r := newRig(at(12, 0, 0))
	require.NoError(t, r.c.InitializeSoundMode())
	r.c.EnableAutoOpen()

	start := r.clock.Now()
	r.c.ObserveCallLine(true, start)
	require.Equal(t, HandsetHungUp, r.c.state)
	require.False(t, r.door.Enabled(), "door button released")
	require.False(t, r.handset.Enabled(), "handset released")

	tr, changed := r.c.ObserveCallLine(false, start.Add(DefaultDebounce))
	require.True(t, changed)
	require.Equal(t, CallEnded, tr)
	require.Contains(t, r.recorder.kinds(), EventDoorOpened)
}

func TestStatus(t *testing.T) {
	r := newRig(at(12, 0, 0))
	require.NoError(t, r.c.InitializeSoundMode())
	r.ring()
	r.c.EnableAutoOpen()

	status := r.c.Status()
	require.Equal(t, IncomingCall, status.State)
	require.Equal(t, Audible, status.SoundMode)
	require.Equal(t, AutoOpenEnabled, status.AutoOpen)
	require.NotNil(t, status.AutoOpenExpiresAt)
	require.NotNil(t, status.LastCallAt)
	require.False(t, status.ReevaluationArmed)
}
