package intercom

import (
	"context"
	"errors"
	"time"
)

// EventKind classifies a recorded controller event.
type EventKind string

// Event kinds.
const (
	EventCallStarted        EventKind = "call_started"
	EventCallEnded          EventKind = "call_ended"
	EventDoorOpened         EventKind = "door_opened"
	EventCallRejected       EventKind = "call_rejected"
	EventSoundModeChanged   EventKind = "sound_mode_changed"
	EventAutoOpenChanged    EventKind = "auto_open_changed"
	EventTransportConnected EventKind = "transport_connected"
	EventTransportLost      EventKind = "transport_lost"
	EventCommandFailed      EventKind = "command_failed"
)

// EventSource identifies what caused an event.
type EventSource string

// Event sources.
const (
	SourceLoop    EventSource = "loop"
	SourceTimer   EventSource = "timer"
	SourceMQTT    EventSource = "mqtt"
	SourceAPI     EventSource = "api"
	SourceStartup EventSource = "startup"
)

// Event is an entry in the controller's audit trail.
type Event struct {
	Kind   EventKind
	Source EventSource
	Detail string
	Time   time.Time
}

// Recorder receives controller events. Implementations are called from
// the loop goroutine and must not block for long.
type Recorder interface {
	Record(ctx context.Context, evt Event) error
}

// MultiRecorder fans an event out to several recorders.
type MultiRecorder []Recorder

// Record delivers evt to every recorder and joins their errors.
func (m MultiRecorder) Record(ctx context.Context, evt Event) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, Event) error { return nil }
