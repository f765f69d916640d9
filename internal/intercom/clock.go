package intercom

import (
	"fmt"
	"time"
)

// Clock provides monotonic time and the settle delay.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// TimeSource provides wall-clock time for the sound window, typically
// from a battery-backed RTC.
type TimeSource interface {
	CurrentTime() (time.Time, error)
}

// RealClock is the process clock.
type RealClock struct{}

// Now returns time.Now, which carries a monotonic reading.
func (RealClock) Now() time.Time { return time.Now() }

// Sleep blocks for d.
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

const secondsPerDay = 24 * 60 * 60

// TimeOfDay is a second-resolution time of day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// TimeOfDayOf returns the time of day of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// TimeOfDayFromOffset converts an offset from midnight, as returned by
// config.ParseClock, into a TimeOfDay. Offsets wrap at 24h.
func TimeOfDayFromOffset(d time.Duration) TimeOfDay {
	secs := int(d/time.Second) % secondsPerDay
	if secs < 0 {
		secs += secondsPerDay
	}
	return TimeOfDay{Hour: secs / 3600, Minute: secs / 60 % 60, Second: secs % 60}
}

// Seconds returns the number of seconds since midnight.
func (t TimeOfDay) Seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// Before reports whether t is strictly earlier in the day than u.
func (t TimeOfDay) Before(u TimeOfDay) bool {
	return t.Seconds() < u.Seconds()
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// SoundWindow is the part of the day during which the bell rings.
type SoundWindow struct {
	Unmute TimeOfDay
	Mute   TimeOfDay
}

// DefaultSoundWindow is audible between 03:00 and 18:00.
var DefaultSoundWindow = SoundWindow{
	Unmute: TimeOfDay{Hour: 3},
	Mute:   TimeOfDay{Hour: 18},
}

// Validate reports ErrInvalidWindow unless Unmute is strictly before
// Mute. The window does not wrap past midnight.
func (w SoundWindow) Validate() error {
	if !w.Unmute.Before(w.Mute) {
		return fmt.Errorf("%w: unmute %s is not before mute %s", ErrInvalidWindow, w.Unmute, w.Mute)
	}
	return nil
}

// Expected returns the policy's sound mode at now. The window is open on
// both ends: both boundary instants are silent.
func (w SoundWindow) Expected(now TimeOfDay) SoundMode {
	if w.Unmute.Before(now) && now.Before(w.Mute) {
		return Audible
	}
	return Silent
}
