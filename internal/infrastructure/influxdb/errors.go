package influxdb

import "errors"

var (
	// ErrDisabled is returned by Open when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrUnreachable means the server did not pass its health check.
	ErrUnreachable = errors.New("influxdb: server unreachable")

	// ErrClosed is returned for writes after Close.
	ErrClosed = errors.New("influxdb: recorder closed")
)
