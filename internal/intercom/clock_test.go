package intercom

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSoundWindow_Boundaries(t *testing.T) {
	window := SoundWindow{
		Unmute: TimeOfDay{Hour: 3},
		Mute:   TimeOfDay{Hour: 18},
	}

	tests := []struct {
		now  TimeOfDay
		want SoundMode
	}{
		{now: TimeOfDay{Hour: 0}, want: Silent},
		{now: TimeOfDay{Hour: 2, Minute: 59, Second: 59}, want: Silent},
		{now: TimeOfDay{Hour: 3}, want: Silent},
		{now: TimeOfDay{Hour: 3, Second: 1}, want: Audible},
		{now: TimeOfDay{Hour: 12}, want: Audible},
		{now: TimeOfDay{Hour: 17, Minute: 59, Second: 59}, want: Audible},
		{now: TimeOfDay{Hour: 18}, want: Silent},
		{now: TimeOfDay{Hour: 23, Minute: 59, Second: 59}, want: Silent},
	}

	for _, tt := range tests {
		t.Run(tt.now.String(), func(t *testing.T) {
			require.Equal(t, tt.want, window.Expected(tt.now))
		})
	}
}

func TestTimeOfDayFromOffset(t *testing.T) {
	require.Equal(t, TimeOfDay{Hour: 3}, TimeOfDayFromOffset(3*time.Hour))
	require.Equal(t, TimeOfDay{Hour: 17, Minute: 59, Second: 59},
		TimeOfDayFromOffset(17*time.Hour+59*time.Minute+59*time.Second))
	require.Equal(t, TimeOfDay{Hour: 1}, TimeOfDayFromOffset(25*time.Hour))
}

func TestTimeOfDay_Ordering(t *testing.T) {
	a := TimeOfDay{Hour: 7, Minute: 30}
	b := TimeOfDay{Hour: 7, Minute: 30, Second: 1}

	require.True(t, a.Before(b))
	require.False(t, b.Before(a))
	require.False(t, a.Before(a))
	require.Equal(t, "07:30:00", a.String())
}

func TestTimeOfDayOf(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	ts := time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC).In(loc)

	require.Equal(t, TimeOfDay{Hour: 18, Minute: 4, Second: 5}, TimeOfDayOf(ts))
}
