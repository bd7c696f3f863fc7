// Package mqtt publishes the scheduler's scene state to an MQTT broker.
//
// Topics, under the configurable mqtt.topic_prefix (default "scenesched"):
//
//	<prefix>/scene/current   retained, last applied switch (JSON)
//	<prefix>/scene/events    every switch, not retained
//	<prefix>/system/status   retained online/offline presence; also the last will
//
// The session retries the initial connect and reconnects with capped
// backoff. Presence is re-published after every reconnect.
//
// Use TLS (mqtt.broker.tls) for any broker not on localhost.
//
//	pub, err := mqtt.Connect(cfg.MQTT, log)
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//
// Publisher implements switcher.Observer.
package mqtt
