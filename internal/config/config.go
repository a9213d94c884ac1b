package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Timezone    string            `mapstructure:"timezone"` // IANA name ("America/Sao_Paulo") or offset ("-03:00")
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Ingest      IngestConfig      `mapstructure:"ingest"`
	Auth        AuthConfig        `mapstructure:"auth"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"` // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort     int           `mapstructure:"http_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig represents relational store configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // mysql, postgres, sqlite

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"` // 0 uses the driver default
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"` // postgres only
	Path     string `mapstructure:"path"`     // sqlite only; ":memory:" for an in-process database

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"` // SQL slower than this is logged at warn
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// AggregationConfig bounds the time-bucketed series queries
type AggregationConfig struct {
	MaxRangeDays int `mapstructure:"max_range_days"` // Longest custom range accepted, in days
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, mqtt, memory
	URL      string `mapstructure:"url"`      // e.g. nats://localhost:4222, redis://localhost:6379, tcp://localhost:1883
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Compression applied to message payloads: none, snappy
	Compression string `mapstructure:"compression"`

	// Subjects (topics) carrying each kind of message
	Subjects SubjectsConfig `mapstructure:"subjects"`

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "sensorhub")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "sensorhub-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaGroupID string   `mapstructure:"kafka_group_id"`

	// MQTT-specific options
	MQTTClientID string `mapstructure:"mqtt_client_id"`
	MQTTQoS      byte   `mapstructure:"mqtt_qos"`
}

// SubjectsConfig names the queue subjects used by the API and the ingestor
type SubjectsConfig struct {
	AirReadings    string `mapstructure:"air_readings"`
	GardenReadings string `mapstructure:"garden_readings"`
	PumpEvents     string `mapstructure:"pump_events"`
	Alerts         string `mapstructure:"alerts"`
}

// IngestConfig controls the broker-fed ingestor and alert fan-out
type IngestConfig struct {
	Enabled       bool   `mapstructure:"enabled"`        // Consume readings from the queue
	NodeID        string `mapstructure:"node_id"`        // Durable consumer name
	PublishAlerts bool   `mapstructure:"publish_alerts"` // API publishes stored alerts on the alerts subject
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable API key authentication on write routes
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// RateLimitConfig limits ingest requests per client
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, UnixMs, etc
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if _, err := ParseLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	if c.Aggregation.MaxRangeDays < 1 {
		return fmt.Errorf("aggregation.max_range_days must be at least 1")
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	return nil
}

// Validate validates database configuration
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "mysql", "postgres":
		if c.Host == "" {
			return fmt.Errorf("database.host is required for %s", c.Driver)
		}
		if c.Name == "" {
			return fmt.Errorf("database.name is required for %s", c.Driver)
		}
	case "sqlite":
		if c.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be one of: mysql, postgres, sqlite")
	}

	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return fmt.Errorf("database pool sizes cannot be negative")
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "", "nats", "redis", "kafka", "mqtt", "memory":
	default:
		return fmt.Errorf("queue.type must be one of: nats, redis, kafka, mqtt, memory")
	}

	switch c.Compression {
	case "", "none", "snappy":
	default:
		return fmt.Errorf("queue.compression must be 'none' or 'snappy'")
	}

	if c.MQTTQoS > 2 {
		return fmt.Errorf("queue.mqtt_qos must be 0, 1 or 2")
	}

	return nil
}

// Validate validates rate limit configuration
func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}
	if c.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be at least 1")
	}
	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
