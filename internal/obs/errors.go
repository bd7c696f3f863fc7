package obs

import "errors"

// Domain errors for OBS operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionFailed is returned when the websocket handshake fails.
	ErrConnectionFailed = errors.New("obs: connection failed")

	// ErrNotConnected is returned when a request is made after Close.
	ErrNotConnected = errors.New("obs: client not connected")

	// ErrRequestFailed is returned when OBS rejects a request or the call fails.
	ErrRequestFailed = errors.New("obs: request failed")

	// ErrInvalidArgument is returned when a request would be sent with an empty name.
	ErrInvalidArgument = errors.New("obs: invalid argument")
)
