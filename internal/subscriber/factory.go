package subscriber

import (
	"fmt"
	"strings"

	"github.com/sensorhub/sensorhub/internal/config"
	"github.com/sensorhub/sensorhub/internal/utils"
)

// NewSubscriber creates a new Subscriber based on the queue configuration
func NewSubscriber(cfg config.QueueConfig, subCfg Config) (Subscriber, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))
	subCfg = subCfg.withDefaults()

	if queueType == "" {
		queueType = utils.QueueTypeNATS
	}

	switch queueType {
	case utils.QueueTypeNATS:
		return NewNATSSubscriber(cfg.URL, cfg.Username, cfg.Password, subCfg)
	case utils.QueueTypeRedis:
		addr := cfg.URL
		if addr == "" {
			addr = "localhost:6379"
		}
		streamPrefix := cfg.RedisStream
		if streamPrefix == "" {
			streamPrefix = "sensorhub"
		}
		if cfg.RedisGroup != "" {
			subCfg.ConsumerGroup = cfg.RedisGroup
		}
		if cfg.RedisConsumer != "" {
			subCfg.NodeID = cfg.RedisConsumer
		}
		return NewRedisSubscriber(addr, cfg.Password, cfg.RedisDB, streamPrefix, subCfg)
	case utils.QueueTypeKafka:
		if cfg.KafkaGroupID != "" {
			subCfg.ConsumerGroup = cfg.KafkaGroupID
		}
		return NewKafkaSubscriber(cfg.KafkaBrokers, subCfg)
	case utils.QueueTypeMQTT:
		return NewMQTTSubscriber(MQTTOptions{
			URL:      cfg.URL,
			ClientID: cfg.MQTTClientID,
			Username: cfg.Username,
			Password: cfg.Password,
			QoS:      cfg.MQTTQoS,
		}, subCfg)
	case utils.QueueTypeMemory:
		return NewMemorySubscriber()
	default:
		return nil, fmt.Errorf("unsupported queue type: %s", queueType)
	}
}
