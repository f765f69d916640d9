// Package hardware drives the intercom's relays, call-line input, status
// LED and DS1307 real-time clock through periph.io.
//
// # Wiring
//
//	sound relay    ── GPIO out, engaged = bell silenced
//	handset relay  ── GPIO out, engaged = handset off-hook
//	door button    ── GPIO out via optocoupler, pulsed
//	call line      ── GPIO in via optocoupler, high while ringing
//	status LED     ── GPIO out, blinks on failures
//	DS1307         ── I²C, address 0x68
//
// Open builds the full set from configuration. The "simulated" driver
// replaces every device with an in-memory stand-in so the daemon runs on
// machines without GPIO.
package hardware
