package queue

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sensorhub/sensorhub/internal/utils"
)

// MQTTConfig represents MQTT broker configuration
type MQTTConfig struct {
	URL      string // Broker URL, e.g. tcp://localhost:1883
	ClientID string // Client ID (default: "sensorhub"); a suffix keeps publishers distinct
	Username string
	Password string
	QoS      byte // 0, 1 or 2 (default: 1 via config)
}

// MQTTPublisher publishes to an MQTT broker. Dotted subjects are mapped to
// slash-separated topics.
type MQTTPublisher struct {
	client mqtt.Client
	qos    byte
}

// newMQTTPublisher connects to the broker and waits for the CONNACK
func newMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mqtt broker url not configured")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "sensorhub"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(fmt.Sprintf("%s-pub-%d", cfg.ClientID, time.Now().UnixNano())).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.URL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return &MQTTPublisher{client: client, qos: cfg.QoS}, nil
}

// Publish publishes a message and waits for the broker to acknowledge it
// (immediately for QoS 0)
func (p *MQTTPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	topic := utils.MQTTTopic(subject)
	token := p.client.Publish(topic, p.qos, false, data)

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish to MQTT topic %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish to MQTT topic %s: %w", topic, ctx.Err())
	}
}

// PublishBatch publishes messages one at a time; MQTT has no batch frame
func (p *MQTTPublisher) PublishBatch(ctx context.Context, messages []BatchMessage) (int, error) {
	successCount := 0
	for _, msg := range messages {
		if err := p.Publish(ctx, msg.Subject, msg.Data); err != nil {
			if ctx.Err() != nil {
				return successCount, err
			}
			continue
		}
		successCount++
	}
	return successCount, nil
}

// Close disconnects, giving in-flight messages 250ms to drain
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
