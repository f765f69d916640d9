// Package intercom implements the Cyfral intercom controller.
//
// The Controller owns the call-line state machine, the time-based sound
// mode policy, the timed auto-open policy, the command dispatcher and the
// MQTT connection supervisor. Hardware, clocks and the transport are
// injected through Options.
//
// Architecture:
//
//	timers ──┐        ┌── MQTT control topic (PollIncoming)
//	HTTP  ───┼─ intents ──▶ Run loop ──▶ Controller ──▶ relays
//	         │        └── call line sensor (every tick)
//	         └──────────────────────────────────────▶ Transport.Publish
//
// # Serialization
//
// Every mutation happens on the goroutine executing Run. Timer firings
// and Submit/Snapshot calls are posted to the loop as intents, so a
// timer can never interleave with a compound action such as OpenDoor.
// Named timers carry a generation counter: re-arming replaces a pending
// firing instead of stacking a second one. Broker connects run on their
// own goroutine and post the outcome back, so the call line is sampled
// while the broker is unreachable.
//
// # State Machine
//
//	WaitingCall ──call line──▶ IncomingCall ──PickUp──▶ HandsetPickedUp
//	     ▲                          │                        │
//	     │                          │                     HangUp
//	     │                          ▼                        ▼
//	     └───── line quiet for debounce window ───── HandsetHungUp
//
// # Thread Safety
//
// Controller methods other than Run, Submit and Snapshot must only be
// called from inside the loop (or from tests that never start it).
package intercom
