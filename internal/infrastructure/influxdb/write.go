package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/cyfral-controller/internal/intercom"
)

// Measurement is the InfluxDB measurement holding intercom events.
const Measurement = "intercom_events"

// WriteIntercomEvent queues evt as a point. The point carries a count field
// of 1 so sum() over a window yields event counts, and the detail string
// when present. A zero event time is replaced by now.
func (c *Client) WriteIntercomEvent(evt intercom.Event) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(eventPoint(c.deviceID, evt))
}

// Record queues evt and returns immediately; it satisfies intercom.Recorder.
func (c *Client) Record(_ context.Context, evt intercom.Event) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.WriteIntercomEvent(evt)
	return nil
}

func eventPoint(deviceID string, evt intercom.Event) *write.Point {
	at := evt.Time
	if at.IsZero() {
		at = time.Now()
	}

	fields := map[string]any{"count": int64(1)}
	if evt.Detail != "" {
		fields["detail"] = evt.Detail
	}

	return write.NewPoint(Measurement,
		map[string]string{
			"device_id": deviceID,
			"kind":      string(evt.Kind),
			"source":    string(evt.Source),
		},
		fields,
		at,
	)
}
