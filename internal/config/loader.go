package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file, falling back to defaults when no file exists.
// Every key can be overridden from the environment, e.g. SENSORHUB_DATABASE_DRIVER.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/sensorhub")
	}

	setDefaults(v)

	v.SetEnvPrefix("SENSORHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults mirrors DefaultConfig so a missing file still yields a valid config
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.slow_threshold", d.Database.SlowThreshold)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)

	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("aggregation.max_range_days", d.Aggregation.MaxRangeDays)

	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.url", d.Queue.URL)
	v.SetDefault("queue.compression", d.Queue.Compression)
	v.SetDefault("queue.subjects.air_readings", d.Queue.Subjects.AirReadings)
	v.SetDefault("queue.subjects.garden_readings", d.Queue.Subjects.GardenReadings)
	v.SetDefault("queue.subjects.pump_events", d.Queue.Subjects.PumpEvents)
	v.SetDefault("queue.subjects.alerts", d.Queue.Subjects.Alerts)
	v.SetDefault("queue.redis_stream", d.Queue.RedisStream)
	v.SetDefault("queue.redis_group", d.Queue.RedisGroup)
	v.SetDefault("queue.kafka_group_id", d.Queue.KafkaGroupID)
	v.SetDefault("queue.mqtt_client_id", d.Queue.MQTTClientID)
	v.SetDefault("queue.mqtt_qos", d.Queue.MQTTQoS)

	v.SetDefault("ingest.enabled", d.Ingest.Enabled)
	v.SetDefault("ingest.node_id", d.Ingest.NodeID)
	v.SetDefault("ingest.publish_alerts", d.Ingest.PublishAlerts)

	v.SetDefault("auth.enabled", d.Auth.Enabled)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.requests_per_second", d.RateLimit.RequestsPerSecond)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns default configuration: a local SQLite file and an
// in-process queue, enough to run the API without external services.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     3000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			Name:            "sensorhub",
			SSLMode:         "disable",
			Path:            "./data/sensorhub.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			SlowThreshold:   500 * time.Millisecond,
			AutoMigrate:     true,
		},
		Timezone: "America/Sao_Paulo",
		Aggregation: AggregationConfig{
			MaxRangeDays: 366,
		},
		Queue: QueueConfig{
			Type:        "memory",
			URL:         "nats://localhost:4222",
			Compression: "none",
			Subjects: SubjectsConfig{
				AirReadings:    "sensorhub.air.readings",
				GardenReadings: "sensorhub.garden.readings",
				PumpEvents:     "sensorhub.pump.events",
				Alerts:         "sensorhub.alerts",
			},
			RedisStream:  "sensorhub",
			RedisGroup:   "sensorhub-group",
			KafkaGroupID: "sensorhub-ingestor",
			MQTTClientID: "sensorhub",
			MQTTQoS:      1,
		},
		Ingest: IngestConfig{
			NodeID: "ingestor-1",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
