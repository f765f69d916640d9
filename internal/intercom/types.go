package intercom

import (
	"fmt"
	"time"
)

// State is the call-line state of the intercom.
type State int

// Intercom states, in lifecycle order.
const (
	WaitingCall State = iota
	IncomingCall
	HandsetPickedUp
	HandsetHungUp
)

var stateNames = map[State]string{
	WaitingCall:     "waiting_call",
	IncomingCall:    "incoming_call",
	HandsetPickedUp: "handset_picked_up",
	HandsetHungUp:   "handset_hung_up",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SoundMode mirrors the commanded state of the sound relay.
// The relay engaged means Silent.
type SoundMode int

// Sound modes. SoundUnknown only exists before InitializeSoundMode.
const (
	SoundUnknown SoundMode = iota
	Silent
	Audible
)

func (m SoundMode) String() string {
	switch m {
	case Silent:
		return "silent"
	case Audible:
		return "audible"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m SoundMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// payload returns the sound-mode state payload: ON while audible.
func (m SoundMode) payload() string {
	if m == Audible {
		return payloadOn
	}
	return payloadOff
}

// AutoOpenMode controls whether detected calls open the door unattended.
type AutoOpenMode int

// Auto-open modes.
const (
	AutoOpenDisabled AutoOpenMode = iota
	AutoOpenEnabled
)

func (m AutoOpenMode) String() string {
	if m == AutoOpenEnabled {
		return "enabled"
	}
	return "disabled"
}

// MarshalText implements encoding.TextMarshaler.
func (m AutoOpenMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m AutoOpenMode) payload() string {
	if m == AutoOpenEnabled {
		return payloadOn
	}
	return payloadOff
}

// Transition is a call-line state change reported by ObserveCallLine.
type Transition int

// Call-line transitions.
const (
	NoTransition Transition = iota
	CallStarted
	CallEnded
)

func (t Transition) String() string {
	switch t {
	case CallStarted:
		return "call_started"
	case CallEnded:
		return "call_ended"
	default:
		return "none"
	}
}

// ConnState is the connection supervisor's view of the transport.
type ConnState int

// Connection states.
const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a point-in-time copy of the controller state.
type Status struct {
	State             State        `json:"state"`
	SoundMode         SoundMode    `json:"sound_mode"`
	AutoOpen          AutoOpenMode `json:"auto_open"`
	AutoOpenExpiresAt *time.Time   `json:"auto_open_expires_at,omitempty"`
	Connection        ConnState    `json:"connection"`
	ReevaluationArmed bool         `json:"sound_reevaluation_armed"`
	LastCallAt        *time.Time   `json:"last_call_at,omitempty"`
}

// Topics names the MQTT topics the controller publishes and consumes.
type Topics struct {
	IncomingCall string
	SoundMode    string
	AutoOpenMode string
	Control      string
}

// Message is an inbound transport message.
type Message struct {
	Topic   string
	Payload []byte
}

// State payloads.
const (
	payloadOn  = "ON"
	payloadOff = "OFF"
)
