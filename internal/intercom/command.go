package intercom

import (
	"fmt"
	"strings"
)

// Command is a remote control command.
type Command int

// Commands accepted on the control topic and the HTTP API.
const (
	CommandOpenDoor Command = iota + 1
	CommandRejectCall
	CommandMuteSound
	CommandUnmuteSound
	CommandEnableAutoOpen
	CommandDisableAutoOpen
)

var commandNames = map[Command]string{
	CommandOpenDoor:        "OPEN_DOOR",
	CommandRejectCall:      "REJECT_CALL",
	CommandMuteSound:       "MUTE_SOUND",
	CommandUnmuteSound:     "UNMUTE_SOUND",
	CommandEnableAutoOpen:  "ENABLE_AUTO_OPEN",
	CommandDisableAutoOpen: "DISABLE_AUTO_OPEN",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for cmd, name := range commandNames {
		m[name] = cmd
	}
	return m
}()

// Commands returns every command in declaration order.
func Commands() []Command {
	return []Command{
		CommandOpenDoor,
		CommandRejectCall,
		CommandMuteSound,
		CommandUnmuteSound,
		CommandEnableAutoOpen,
		CommandDisableAutoOpen,
	}
}

// String returns the wire name of the command.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("COMMAND(%d)", int(c))
}

// ParseCommand decodes a control payload. Surrounding whitespace is
// ignored; the name itself must match exactly.
//
// Returns:
//   - Command: the decoded command
//   - error: ErrUnknownCommand wrapping the offending payload
func ParseCommand(payload string) (Command, error) {
	name := strings.TrimSpace(payload)
	if cmd, ok := commandsByName[name]; ok {
		return cmd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}
