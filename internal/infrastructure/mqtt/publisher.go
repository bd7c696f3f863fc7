package mqtt

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/config"
)

// Logger is the subset of the application logger the publisher uses.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Publisher keeps a broker session open and publishes scene switches.
// It implements switcher.Observer and is safe for concurrent use.
type Publisher struct {
	client   pahomqtt.Client
	topics   Topics
	qos      byte
	clientID string
	broker   string
	log      Logger

	online atomic.Bool
}

// Connect opens the broker session and publishes the retained online
// presence. The presence is published again after every reconnect.
//
// Parameters:
//   - cfg: MQTT section of the configuration
//   - log: Receives connect and connection-lost events; may be nil
//
// Returns:
//   - *Publisher: Connected publisher
//   - error: Wrapped ErrConnectionFailed when the broker does not answer in time
func Connect(cfg config.MQTTConfig, log Logger) (*Publisher, error) {
	if log == nil {
		log = noopLogger{}
	}
	p := &Publisher{
		topics:   NewTopics(cfg.TopicPrefix),
		qos:      byte(cfg.QoS), // #nosec G115 -- Validate limits qos to 0..2
		clientID: cfg.Broker.ClientID,
		broker:   brokerURL(cfg.Broker),
		log:      log,
	}

	opts := clientOptions(cfg, p.topics).
		SetOnConnectHandler(func(pahomqtt.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { p.onConnectionLost(err) })
	p.client = pahomqtt.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s: no answer within %v", ErrConnectionFailed, p.broker, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, p.broker, err)
	}

	// onConnect runs on a paho goroutine and may not have fired yet.
	p.online.Store(true)
	return p, nil
}

// Topics returns the topic set the publisher writes to.
func (p *Publisher) Topics() Topics { return p.topics }

func (p *Publisher) onConnect() {
	p.online.Store(true)
	p.client.Publish(p.topics.Status(), p.qos, true,
		encodePresence(PresenceOnline, p.clientID, "", time.Now()))
	p.log.Info("mqtt connected", "broker", p.broker, "prefix", p.topics.Prefix())
}

func (p *Publisher) onConnectionLost(err error) {
	p.online.Store(false)
	p.log.Warn("mqtt connection lost", "broker", p.broker, "error", err)
}

// Online reports whether the broker link is up.
func (p *Publisher) Online() bool {
	return p.client != nil && p.online.Load() && p.client.IsConnected()
}

// HealthCheck returns ErrOffline while the broker link is down.
func (p *Publisher) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !p.Online() {
		return ErrOffline
	}
	return nil
}

// Close publishes an orderly offline presence, then disconnects.
// Safe on nil and on a publisher that never connected.
func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	if p.Online() {
		p.client.Publish(p.topics.Status(), p.qos, true,
			encodePresence(PresenceOffline, p.clientID, "graceful_shutdown", time.Now())).
			WaitTimeout(publishTimeout)
	}
	p.client.Disconnect(disconnectQuiesce)
	p.online.Store(false)
	return nil
}
