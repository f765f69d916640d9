package intercom

import (
	"errors"
	"fmt"
)

// ErrPrecondition is matched by every error returned for an operation
// attempted in the wrong state. Such operations change nothing.
var ErrPrecondition = errors.New("intercom: precondition failed")

// Precondition errors. Use errors.Is to check for these in calling code.
var (
	// ErrPickUp is returned when picking up without an incoming call.
	ErrPickUp = fmt.Errorf("%w: cannot pick up handset without an incoming call", ErrPrecondition)

	// ErrHangUp is returned when hanging up a handset that is not picked up.
	ErrHangUp = fmt.Errorf("%w: handset is already hung up", ErrPrecondition)

	// ErrDoorButton is returned when pressing the door button on-hook.
	ErrDoorButton = fmt.Errorf("%w: cannot open door without picking up handset", ErrPrecondition)

	// ErrAlreadySilent is returned when muting while already silent.
	ErrAlreadySilent = fmt.Errorf("%w: intercom is already silent", ErrPrecondition)

	// ErrAlreadyAudible is returned when unmuting while already audible.
	ErrAlreadyAudible = fmt.Errorf("%w: intercom is already audible", ErrPrecondition)
)

var (
	// ErrUnknownCommand is returned by ParseCommand for unrecognised payloads.
	ErrUnknownCommand = errors.New("intercom: unknown command")

	// ErrMissingDependency is returned by New when a required handle is nil.
	ErrMissingDependency = errors.New("intercom: missing dependency")

	// ErrInvalidWindow is returned by New for a sound window whose unmute
	// time is not before its mute time.
	ErrInvalidWindow = errors.New("intercom: invalid sound window")

	// ErrStopped is returned by Submit and Snapshot once Run has returned.
	ErrStopped = errors.New("intercom: controller stopped")
)
