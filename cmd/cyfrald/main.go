// cyfrald drives a Cyfral intercom handset: it watches the call line,
// answers and rejects calls through relays, keeps the ringer muted outside
// the configured hours and exposes everything over MQTT.
//
// Usage:
//
//	cyfrald -c /etc/cyfral/config.yaml   run the daemon
//	cyfrald send OPEN_DOOR               publish a command to a running daemon
//	cyfrald migrate status|up|down       manage the event journal schema
//	cyfrald rtc-sync                     copy system time into the DS1307
//	cyfrald version                      print build information
package main

import (
	"os"
)

// Version information, set at build time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
