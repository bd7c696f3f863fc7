package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/config"
	"github.com/nerrad567/obs-scene-scheduler/internal/schedule"
	"github.com/nerrad567/obs-scene-scheduler/internal/switcher"
)

const localBroker = "127.0.0.1:1883"

// testConfig points at a local broker.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "scenesched-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		TopicPrefix: "scenesched-test",
	}
}

// connectOrSkip skips the test when nothing listens on the local broker port.
func connectOrSkip(t *testing.T, clientID string) *Publisher {
	t.Helper()

	conn, err := net.DialTimeout("tcp", localBroker, 500*time.Millisecond)
	if err != nil {
		t.Skip("no MQTT broker on " + localBroker)
	}
	conn.Close()

	cfg := testConfig()
	cfg.Broker.ClientID = clientID
	p, err := Connect(cfg, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { p.Close() }) //nolint:errcheck // Test cleanup
	return p
}

func TestTopics(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		got    func(Topics) string
		want   string
	}{
		{"current", "scenesched", Topics.Current, "scenesched/scene/current"},
		{"events", "scenesched", Topics.Events, "scenesched/scene/events"},
		{"status", "scenesched", Topics.Status, "scenesched/system/status"},
		{"wildcard", "scenesched", Topics.Scenes, "scenesched/scene/#"},
		{"custom prefix", "studio/a", Topics.Current, "studio/a/scene/current"},
		{"empty prefix", "", Topics.Status, "scenesched/system/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got(NewTopics(tt.prefix)); got != tt.want {
				t.Errorf("topic = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodePresence(t *testing.T) {
	at := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

	var got presence
	if err := json.Unmarshal(encodePresence(PresenceOffline, "scenesched", "graceful_shutdown", at), &got); err != nil {
		t.Fatalf("encodePresence() is not JSON: %v", err)
	}
	want := presence{Status: "offline", ClientID: "scenesched", Reason: "graceful_shutdown", Timestamp: "2026-06-01T18:00:00Z"}
	if got != want {
		t.Errorf("encodePresence() = %+v, want %+v", got, want)
	}

	if online := string(encodePresence(PresenceOnline, "scenesched", "", at)); strings.Contains(online, "reason") {
		t.Errorf("online presence = %s, reason should be omitted", online)
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		broker config.MQTTBrokerConfig
		want   string
	}{
		{config.MQTTBrokerConfig{Host: "127.0.0.1", Port: 1883}, "tcp://127.0.0.1:1883"},
		{config.MQTTBrokerConfig{Host: "broker.lan", Port: 8883, TLS: true}, "ssl://broker.lan:8883"},
	}
	for _, tt := range tests {
		if got := brokerURL(tt.broker); got != tt.want {
			t.Errorf("brokerURL(%+v) = %q, want %q", tt.broker, got, tt.want)
		}
	}
}

func TestClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "obs", Password: "secret"}

	r := pahomqtt.NewOptionsReader(clientOptions(cfg, NewTopics("studio")))

	if r.ClientID() != "scenesched-test" {
		t.Errorf("ClientID = %q, want scenesched-test", r.ClientID())
	}
	if r.Username() != "obs" || r.Password() != "secret" {
		t.Errorf("credentials = %q/%q, want obs/secret", r.Username(), r.Password())
	}
	if !r.AutoReconnect() || !r.CleanSession() {
		t.Error("auto-reconnect and clean session should be enabled")
	}
	if r.MaxReconnectInterval() != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v, want 5s", r.MaxReconnectInterval())
	}
	if !r.WillEnabled() || r.WillTopic() != "studio/system/status" || !r.WillRetained() {
		t.Errorf("will = %v %q retained=%v, want retained will on studio/system/status",
			r.WillEnabled(), r.WillTopic(), r.WillRetained())
	}
	if !strings.Contains(string(r.WillPayload()), `"status":"offline"`) {
		t.Errorf("will payload = %s, want offline presence", r.WillPayload())
	}
}

func TestClientOptions_Anonymous(t *testing.T) {
	r := pahomqtt.NewOptionsReader(clientOptions(testConfig(), NewTopics("")))
	if r.Username() != "" {
		t.Errorf("Username = %q, want empty", r.Username())
	}
}

func TestPublish_Offline(t *testing.T) {
	p := &Publisher{topics: NewTopics(""), qos: 1}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), ErrInvalidTopic},
		{"payload too large", "scenesched/test", make([]byte, maxPayloadSize+1), ErrPublishFailed},
		{"offline", "scenesched/test", []byte("x"), ErrOffline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := p.Publish(tt.topic, tt.payload, false); !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSceneSwitched_Offline(t *testing.T) {
	p := &Publisher{topics: NewTopics("")}

	err := p.SceneSwitched(context.Background(), switcher.Switch{Window: schedule.Evening, Scene: "Evening Scene"})
	if !errors.Is(err, ErrOffline) {
		t.Errorf("SceneSwitched() error = %v, want ErrOffline", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.SceneSwitched(ctx, switcher.Switch{}); !errors.Is(err, context.Canceled) {
		t.Errorf("SceneSwitched() error = %v, want context.Canceled", err)
	}
}

func TestHealthCheck_Offline(t *testing.T) {
	p := &Publisher{}
	if err := p.HealthCheck(context.Background()); !errors.Is(err, ErrOffline) {
		t.Errorf("HealthCheck() error = %v, want ErrOffline", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestClose_NeverConnected(t *testing.T) {
	var nilPub *Publisher
	if err := nilPub.Close(); err != nil {
		t.Errorf("Close() on nil publisher error = %v", err)
	}
	if err := (&Publisher{}).Close(); err != nil {
		t.Errorf("Close() on unconnected publisher error = %v", err)
	}
}

// recordingLogger captures messages for assertions.
type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) Info(msg string, _ ...any) { l.add(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any) { l.add(msg) }
func (l *recordingLogger) add(msg string) {
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

func TestOnConnectionLost_MarksOffline(t *testing.T) {
	log := &recordingLogger{}
	p := &Publisher{log: log}
	p.online.Store(true)

	p.onConnectionLost(errors.New("pipe closed"))

	if p.online.Load() {
		t.Error("online = true after connection lost")
	}
	if len(log.msgs) != 1 || log.msgs[0] != "mqtt connection lost" {
		t.Errorf("logged %v, want one connection lost warning", log.msgs)
	}
}

func TestConnectAndClose(t *testing.T) {
	p := connectOrSkip(t, "scenesched-test-close")

	if !p.Online() {
		t.Fatal("Online() = false, want true")
	}
	if err := p.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if p.Online() {
		t.Error("Online() = true after Close()")
	}
}

func TestSceneSwitched_Retained(t *testing.T) {
	p := connectOrSkip(t, "scenesched-test-pub")

	sw := switcher.Switch{
		Window:     schedule.Nighttime,
		Previous:   schedule.Evening,
		Scene:      "Nighttime Scene",
		Transition: "Fade",
		At:         time.Date(2026, 6, 1, 22, 0, 0, 0, time.UTC),
	}
	if err := p.SceneSwitched(context.Background(), sw); err != nil {
		t.Fatalf("SceneSwitched() error = %v", err)
	}

	// A later subscriber still receives the retained current switch.
	sub := pahomqtt.NewClient(pahomqtt.NewClientOptions().
		AddBroker("tcp://" + localBroker).
		SetClientID("scenesched-test-sub"))
	if token := sub.Connect(); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("subscriber connect failed: %v", token.Error())
	}
	defer sub.Disconnect(100)

	received := make(chan switcher.Switch, 1)
	sub.Subscribe(p.Topics().Current(), 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		var got switcher.Switch
		if err := json.Unmarshal(msg.Payload(), &got); err == nil {
			select {
			case received <- got:
			default:
			}
		}
	})

	select {
	case got := <-received:
		if got.Scene != "Nighttime Scene" || got.Window != schedule.Nighttime || got.Previous != schedule.Evening {
			t.Errorf("received %+v, want nighttime switch", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retained switch not received")
	}
}

func TestConnect_Refused(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the connect timeout")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	cfg := testConfig()
	cfg.Broker.Port = port

	if _, err := Connect(cfg, nil); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
