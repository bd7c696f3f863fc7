package mqtt

import "errors"

var (
	// ErrConnectionFailed means the broker could not be reached at startup.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrOffline is returned by publishes while the broker link is down.
	ErrOffline = errors.New("mqtt: broker link down")

	// ErrPublishFailed wraps a rejected or timed-out publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
