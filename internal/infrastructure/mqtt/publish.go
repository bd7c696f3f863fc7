package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/obs-scene-scheduler/internal/switcher"
)

// maxPayloadSize caps a single message at 1MB.
const maxPayloadSize = 1 << 20

// Publish sends payload with the configured QoS and waits for the
// broker's acknowledgement.
//
// Returns:
//   - error: ErrInvalidTopic, ErrOffline or wrapped ErrPublishFailed
func (p *Publisher) Publish(topic string, payload []byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %d byte payload exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	case !p.Online():
		return ErrOffline
	}

	token := p.client.Publish(topic, p.qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s: no ack within %v", ErrPublishFailed, topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// SceneSwitched implements switcher.Observer. The switch is published
// retained on the current topic and once on the events topic.
func (p *Publisher) SceneSwitched(ctx context.Context, sw switcher.Switch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(sw)
	if err != nil {
		return fmt.Errorf("%w: encoding switch: %w", ErrPublishFailed, err)
	}
	if err := p.Publish(p.topics.Current(), payload, true); err != nil {
		return err
	}
	return p.Publish(p.topics.Events(), payload, false)
}
