package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopic is the topic notices are published on.
const DefaultTopic = "homenetsafe/notices"

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	maxQoS                = 2
)

var (
	// ErrNotConnected is returned when the broker connection is down.
	ErrNotConnected = errors.New("mqtt: client not connected")
	// ErrPublishFailed is returned when a publish does not complete.
	ErrPublishFailed = errors.New("mqtt: publish failed")
	// ErrInvalidQoS is returned for QoS levels above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
)

// MQTTConfig describes the broker connection.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
	Username string
	Password string
}

type publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

// MQTTSink publishes notices as JSON.
type MQTTSink struct {
	client publisher
	topic  string
	qos    byte
}

// ConnectMQTT dials the broker and returns a sink bound to it.
func ConnectMQTT(cfg MQTTConfig) (*MQTTSink, error) {
	if cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout after %v", cfg.Broker, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return NewMQTTSink(client, cfg.Topic, cfg.QoS), nil
}

// NewMQTTSink wraps an already connected client.
func NewMQTTSink(client publisher, topic string, qos byte) *MQTTSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTSink{client: client, topic: topic, qos: qos}
}

// Publish sends n to the configured topic.
func (s *MQTTSink) Publish(ctx context.Context, n Notice) error {
	if s.qos > maxQoS {
		return ErrInvalidQoS
	}
	if !s.client.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}

	timeout := defaultPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	token := s.client.Publish(s.topic, s.qos, false, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close disconnects the underlying client when it is a full paho client.
func (s *MQTTSink) Close() {
	if c, ok := s.client.(pahomqtt.Client); ok {
		c.Disconnect(250)
	}
}
