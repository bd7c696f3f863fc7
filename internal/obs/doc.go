// Package obs adapts the goobs obs-websocket v5 client to the small
// capabilities the scheduler needs.
//
// The handshake, authentication and request framing all belong to goobs.
// This package only turns configuration into a connection and exposes:
//
//   - ApplyScene / ApplyTransition, satisfying switcher.SceneApplier
//   - SetInputFile / SetSourceOpacity, used by the crossfade rotator
//   - HealthCheck, a GetVersion round trip
//
// Requests carry no timeout. A hung OBS blocks the caller; that is a
// known limitation of the protocol client.
//
// # Usage
//
//	client, err := obs.Connect(cfg.OBS)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.ApplyScene(ctx, "Evening Scene")
package obs
