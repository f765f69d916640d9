// Package influxdb ships intercom events to InfluxDB as time-series points.
//
// It wraps the official influxdb-client-go v2 library. Every controller event
// (call started, door opened, sound mode changed, ...) becomes one point in
// the intercom_events measurement, tagged with device_id, kind and source,
// so dashboards can chart call frequency and door openings over time.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Device.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) { log.Warn("influxdb write failed", "error", err) })
//
// The client satisfies intercom.Recorder and is normally handed to the
// controller inside an intercom.MultiRecorder alongside the SQLite journal.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched according to batch_size and flush_interval; failures surface
// asynchronously through the SetOnError callback.
package influxdb
