// Package api serves the intercom's local HTTP API.
//
// Endpoints (all JSON):
//
//	GET  /api/v1/health               component health, 503 when any check fails
//	GET  /api/v1/status               controller snapshot taken on the loop
//	GET  /api/v1/events               journal listing (kind, source, since, until, limit, offset)
//	GET  /api/v1/commands             accepted command names
//	POST /api/v1/commands/{command}   run a command; 400 unknown, 409 precondition failed
//	GET  /api/v1/ws                   WebSocket stream of controller events
//
// WebSocket clients receive every event as {"type":"event","event_type":kind,...}
// unless they send {"type":"subscribe","payload":{"channels":[kinds...]}}.
//
// Commands are executed through the controller's loop exactly like commands
// received on the MQTT control topic, so they are serialised with sensor
// polling and timer firings.
//
// There is no authentication. The server binds to 127.0.0.1 by default and is
// meant for a local dashboard or for debugging on the device.
package api
