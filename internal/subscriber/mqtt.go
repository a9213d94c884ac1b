package subscriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/utils"
)

// MQTTOptions holds the broker connection settings
type MQTTOptions struct {
	URL      string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// MQTTSubscriber implements Subscriber for an MQTT broker. The session is
// persistent (clean session off) so QoS 1 messages published while the
// ingestor is down are delivered on reconnect. Acks are sent only after the
// handler succeeds.
type MQTTSubscriber struct {
	client        mqtt.Client
	qos           byte
	log           *logging.Logger
	subscriptions map[string]context.CancelFunc
	mu            sync.Mutex
}

// NewMQTTSubscriber connects to the broker
func NewMQTTSubscriber(opts MQTTOptions, cfg Config) (*MQTTSubscriber, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("mqtt broker url not configured")
	}
	cfg = cfg.withDefaults()
	if opts.ClientID == "" {
		opts.ClientID = "sensorhub"
	}

	log := cfg.Logger.With("component", "subscriber.mqtt")

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.URL).
		SetClientID(fmt.Sprintf("%s-%s", opts.ClientID, cfg.NodeID)).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetAutoAckDisabled(true).
		SetConnectTimeout(5 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("MQTT connection lost", "error", err)
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			log.Info("MQTT connected", "broker", opts.URL)
		})
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
		clientOpts.SetPassword(opts.Password)
	}

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", opts.URL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return &MQTTSubscriber{
		client:        client,
		qos:           opts.QoS,
		log:           log,
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

// Subscribe subscribes to the MQTT topic mapped from subject. Handlers see
// the original dotted subject.
func (s *MQTTSubscriber) Subscribe(ctx context.Context, subject string, handler MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[subject]; exists {
		return fmt.Errorf("already subscribed to subject: %s", subject)
	}

	subCtx, cancel := context.WithCancel(ctx)
	topic := utils.MQTTTopic(subject)

	token := s.client.Subscribe(topic, s.qos, func(_ mqtt.Client, m mqtt.Message) {
		if subCtx.Err() != nil {
			return
		}
		if settle(s.log, subject, m.Payload(), handler(subCtx, subject, m.Payload())) {
			m.Ack()
		}
	})
	if !token.WaitTimeout(10 * time.Second) {
		cancel()
		return fmt.Errorf("timed out subscribing to MQTT topic %s", topic)
	}
	if err := token.Error(); err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	s.subscriptions[subject] = cancel
	s.log.Info("Subscribed to MQTT topic", "topic", topic, "qos", s.qos)
	return nil
}

// Unsubscribe unsubscribes from a subject
func (s *MQTTSubscriber) Unsubscribe(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancel, exists := s.subscriptions[subject]
	if !exists {
		return fmt.Errorf("not subscribed to subject: %s", subject)
	}

	cancel()
	delete(s.subscriptions, subject)

	token := s.client.Unsubscribe(utils.MQTTTopic(subject))
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", subject, token.Error())
	}

	s.log.Info("Unsubscribed from MQTT topic", "subject", subject)
	return nil
}

// Close cancels all subscriptions and disconnects
func (s *MQTTSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cancel := range s.subscriptions {
		cancel()
	}
	s.subscriptions = make(map[string]context.CancelFunc)

	s.client.Disconnect(250)
	s.log.Info("MQTT subscriber closed")
	return nil
}
