package intercom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		payload string
		want    Command
		wantErr bool
	}{
		{payload: "OPEN_DOOR", want: CommandOpenDoor},
		{payload: "REJECT_CALL", want: CommandRejectCall},
		{payload: "MUTE_SOUND", want: CommandMuteSound},
		{payload: "UNMUTE_SOUND", want: CommandUnmuteSound},
		{payload: "ENABLE_AUTO_OPEN", want: CommandEnableAutoOpen},
		{payload: "DISABLE_AUTO_OPEN", want: CommandDisableAutoOpen},
		{payload: " OPEN_DOOR\n", want: CommandOpenDoor},
		{payload: "open_door", wantErr: true},
		{payload: "FOO", wantErr: true},
		{payload: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, err := ParseCommand(tt.payload)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownCommand)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCommand_StringRoundTrip(t *testing.T) {
	for _, cmd := range Commands() {
		got, err := ParseCommand(cmd.String())
		require.NoError(t, err)
		require.Equal(t, cmd, got)
	}
	require.Len(t, Commands(), len(commandNames))
}
