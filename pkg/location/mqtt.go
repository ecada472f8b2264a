package location

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig configures the broker connection for MQTTSource.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// NewMQTTClient connects to the broker.
func NewMQTTClient(cfg MQTTConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("location: mqtt connect: %w", token.Error())
	}
	return client, nil
}

// positionMessage is the JSON fix a device publishes.
type positionMessage struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	// Timestamp is in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
	// Error is one of permission-denied, position-unavailable or timeout.
	Error string `json:"error,omitempty"`
}

// MQTTSource is a Source fed by device fixes published on an MQTT topic.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	qos    byte
	logger *slog.Logger
	b      *broadcaster
}

// NewMQTTSource creates a source reading topic on client. Call Start to
// subscribe.
func NewMQTTSource(client mqtt.Client, topic string, qos byte, logger *slog.Logger) *MQTTSource {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "location.mqtt", "topic", topic)
	return &MQTTSource{
		client: client,
		topic:  topic,
		qos:    qos,
		logger: logger,
		b:      newBroadcaster(logger),
	}
}

// Start subscribes to the position topic.
func (s *MQTTSource) Start() error {
	token := s.client.Subscribe(s.topic, s.qos, s.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("location: subscribe %s: %w", s.topic, err)
	}
	s.logger.Info("subscribed")
	return nil
}

// Close unsubscribes and disconnects.
func (s *MQTTSource) Close() error {
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	s.client.Disconnect(250)
	return token.Error()
}

// Current returns the cached fix if it is younger than opts.MaximumAge,
// otherwise it waits for the next message.
func (s *MQTTSource) Current(ctx context.Context, opts Options) (Sample, error) {
	if last, ok := s.b.latest(); ok && time.Since(last.Timestamp) <= opts.MaximumAge {
		return last, nil
	}

	u, err := s.b.next(ctx)
	if err != nil {
		return Sample{}, err
	}
	if u.Err != nil {
		return Sample{}, u.Err
	}
	return u.Sample, nil
}

// Watch implements Source.
func (s *MQTTSource) Watch(ctx context.Context, opts Options) (<-chan Update, error) {
	return s.b.subscribe(ctx), nil
}

func (s *MQTTSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	u, err := parsePosition(msg.Payload(), time.Now())
	if err != nil {
		s.logger.Warn("invalid position message", "error", err)
		return
	}
	s.b.publish(u)
}

func parsePosition(payload []byte, now time.Time) (Update, error) {
	var raw positionMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Update{}, fmt.Errorf("decode: %w", err)
	}

	if raw.Error != "" {
		switch raw.Error {
		case "permission-denied":
			return Update{Err: ErrPermissionDenied}, nil
		case "position-unavailable":
			return Update{Err: ErrPositionUnavailable}, nil
		case "timeout":
			return Update{Err: ErrTimeout}, nil
		default:
			return Update{Err: fmt.Errorf("location: device error %q", raw.Error)}, nil
		}
	}

	ts := now
	if raw.Timestamp > 0 {
		ts = time.UnixMilli(raw.Timestamp)
	}
	return Update{Sample: Sample{
		Latitude:  raw.Latitude,
		Longitude: raw.Longitude,
		Accuracy:  raw.Accuracy,
		Timestamp: ts,
	}}, nil
}

var _ Source = (*MQTTSource)(nil)
