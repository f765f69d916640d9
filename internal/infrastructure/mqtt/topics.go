package mqtt

import (
	"fmt"
	"strings"
)

// Topic suffixes below the configured prefix.
const (
	suffixIncomingCallState = "incoming_call/state"
	suffixSoundModeState    = "sound_mode/state"
	suffixAutoOpenModeState = "auto_open_mode/state"
	suffixControl           = "control"
	suffixStatus            = "status"
)

// State payloads shared by the three state topics.
const (
	PayloadOn  = "ON"
	PayloadOff = "OFF"
)

// Availability payloads published on the status topic.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Topics builds the intercom's MQTT topic names under a common prefix.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.NewTopics("cyfral")
//	topics.Control() // "cyfral/control"
type Topics struct {
	prefix string
}

// NewTopics returns a topic builder for prefix. Leading and trailing
// slashes are stripped.
func NewTopics(prefix string) Topics {
	return Topics{prefix: strings.Trim(prefix, "/")}
}

// Prefix returns the normalised prefix.
func (t Topics) Prefix() string {
	return t.prefix
}

// IncomingCallState carries ON while a call is in progress, OFF otherwise.
//
// Example: cyfral/incoming_call/state
func (t Topics) IncomingCallState() string {
	return t.join(suffixIncomingCallState)
}

// SoundModeState carries ON when the bell is audible, OFF when silent.
//
// Example: cyfral/sound_mode/state
func (t Topics) SoundModeState() string {
	return t.join(suffixSoundModeState)
}

// AutoOpenModeState carries ON while auto-open is enabled.
//
// Example: cyfral/auto_open_mode/state
func (t Topics) AutoOpenModeState() string {
	return t.join(suffixAutoOpenModeState)
}

// Control is the command topic the controller subscribes to.
//
// Example: cyfral/control
func (t Topics) Control() string {
	return t.join(suffixControl)
}

// Status is the retained availability topic, also used for the LWT.
//
// Example: cyfral/status
func (t Topics) Status() string {
	return t.join(suffixStatus)
}

// All returns a wildcard matching every topic under the prefix.
func (t Topics) All() string {
	return t.join("#")
}

func (t Topics) join(suffix string) string {
	return fmt.Sprintf("%s/%s", t.prefix, suffix)
}
