// Package logging provides structured logging for the intercom controller.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the daemon.
//
// # Features
//
//   - JSON or text output
//   - service and version fields on every entry
//   - Level shared by all derived loggers and changeable at runtime
//     (cyfrald toggles debug on SIGUSR2)
//   - password, token and secret attributes are redacted
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	log := logging.New(cfg.Logging, version).With("device_id", cfg.Device.ID)
//	log.Component("intercom").Info("incoming call")
//	log.Component("mqtt").Error("publish failed", "error", err)
package logging
