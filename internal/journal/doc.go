// Package journal persists intercom events to SQLite.
//
// The journal is an append-only audit trail: the controller records calls,
// door openings, mode changes and transport transitions through the
// intercom.Recorder interface, the HTTP API lists them, and entries older
// than the configured retention are pruned once a day. Nothing here is
// read back into the controller.
//
// The daemon registers a Writer rather than the Journal itself: Writer
// queues events and writes them from its own goroutine, so the controller
// loop never waits on the database.
package journal
