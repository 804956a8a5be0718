package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
	Feed        FeedConfig       `yaml:"feed"`
	Detection   DetectionConfig  `yaml:"detection"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type KafkaConfig struct {
	Brokers      []string            `yaml:"brokers"`
	IngestTopic  string              `yaml:"ingest_topic"`
	ResultsTopic string              `yaml:"results_topic"`
	LogsTopic    string              `yaml:"logs_topic"`
	RequiredAcks int                 `yaml:"required_acks"`
	Compression  string              `yaml:"compression"`
	Producer     KafkaProducerConfig `yaml:"producer"`
	Consumer     KafkaConsumerConfig `yaml:"consumer"`
}

type KafkaProducerConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	Linger       time.Duration `yaml:"linger"`
	BatchBytes   int           `yaml:"batch_bytes"`
	BatchSize    int           `yaml:"batch_size"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	Async        bool          `yaml:"async"`
}

type KafkaConsumerConfig struct {
	GroupID    string        `yaml:"group_id"`
	Workers    int           `yaml:"workers"`
	BufferSize int           `yaml:"buffer_size"`
	RetryMax   int           `yaml:"retry_max"`
	BackoffMin time.Duration `yaml:"backoff_min"`
	BackoffMax time.Duration `yaml:"backoff_max"`
	DLQTopic   string        `yaml:"dlq_topic"`
	MinBytes   int           `yaml:"min_bytes"`
	MaxBytes   int           `yaml:"max_bytes"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Database         string        `yaml:"database"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type FeedConfig struct {
	Enabled        bool          `yaml:"enabled"`
	WebSocketURL   string        `yaml:"websocket_url"`
	Token          string        `yaml:"token"`
	Accounts       []string      `yaml:"accounts"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

type DetectionConfig struct {
	Anomaly   AnomalyConfig   `yaml:"anomaly"`
	Recurring RecurringConfig `yaml:"recurring"`
	CacheTTL  CacheTTLConfig  `yaml:"cache_ttl"`
}

type AnomalyConfig struct {
	AmountStdDevThreshold   float64 `yaml:"amount_stddev_threshold"`
	MinTransactionsForStats int     `yaml:"min_transactions_for_stats"`
	DuplicateSimilarity     float64 `yaml:"duplicate_similarity"`
	DuplicateWindowHours    int     `yaml:"duplicate_window_hours"`
	FrequencyThreshold24h   int     `yaml:"frequency_threshold_24h"`
	FrequencyThreshold7d    int     `yaml:"frequency_threshold_7d"`
}

type RecurringConfig struct {
	MinOccurrences          int     `yaml:"min_occurrences"`
	MinOccurrencesYearly    int     `yaml:"min_occurrences_yearly"`
	AmountVariance          float64 `yaml:"amount_variance"`
	IntervalToleranceDays   int     `yaml:"interval_tolerance_days"`
	MissedPaymentsAllowance int     `yaml:"missed_payments_allowance"`
	ConfidenceThreshold     float64 `yaml:"confidence_threshold"`
	ExcludeVariableAmounts  *bool   `yaml:"exclude_variable_amounts"`
}

type CacheTTLConfig struct {
	Anomalies time.Duration `yaml:"anomalies"`
	Recurring time.Duration `yaml:"recurring"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads the YAML file and applies environment overrides,
// which win over file values in containerized deployments.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	overrides := map[string]func(string){
		"KAFKA_BROKERS":       func(v string) { c.Kafka.Brokers = strings.Split(v, ",") },
		"KAFKA_INGEST_TOPIC":  func(v string) { c.Kafka.IngestTopic = v },
		"KAFKA_RESULTS_TOPIC": func(v string) { c.Kafka.ResultsTopic = v },
		"KAFKA_LOGS_TOPIC":    func(v string) { c.Kafka.LogsTopic = v },
		"REDIS_ADDR":          func(v string) { c.Redis.Addr = v },
		"FEED_TOKEN":          func(v string) { c.Feed.Token = v },
		"FEED_ACCOUNTS":       func(v string) { c.Feed.Accounts = strings.Split(v, ",") },
	}
	for name, apply := range overrides {
		if v := os.Getenv(name); v != "" {
			apply(v)
		}
	}
	return c, nil
}

// Validate rejects configurations that cannot start cleanly.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Kafka.IngestTopic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka.ingest_topic is set")
	}
	if c.Feed.Enabled {
		if c.Feed.WebSocketURL == "" {
			return fmt.Errorf("feed.websocket_url is required when feed is enabled")
		}
		if c.Feed.Token == "" {
			return fmt.Errorf("feed.token is required when feed is enabled")
		}
	}
	if s := c.Detection.Anomaly.DuplicateSimilarity; s < 0 || s > 1 {
		return fmt.Errorf("detection.anomaly.duplicate_similarity must be in [0, 1], got %v", s)
	}
	if ct := c.Detection.Recurring.ConfidenceThreshold; ct < 0 || ct > 1 {
		return fmt.Errorf("detection.recurring.confidence_threshold must be in [0, 1], got %v", ct)
	}
	return nil
}
