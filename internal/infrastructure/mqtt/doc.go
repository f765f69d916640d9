// Package mqtt provides the MQTT session used by the Cyfral intercom controller.
//
// This package manages:
//   - A single broker session that the caller reconnects explicitly
//   - Retained state publishing for the three intercom state topics
//   - A polled inbox for the control topic
//   - Last Will and Testament (LWT) on the status topic
//
// # Topics
//
// All topics share a configurable prefix (default "cyfral"):
//
//	cyfral/incoming_call/state   ON | OFF   (retained)
//	cyfral/sound_mode/state      ON | OFF   (retained)
//	cyfral/auto_open_mode/state  ON | OFF   (retained)
//	cyfral/control               commands in
//	cyfral/status                online | offline (retained, LWT)
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT)
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	_ = client.SubscribeInbox(client.Topics().Control())
//	msgs, err := client.PollIncoming()
package mqtt
