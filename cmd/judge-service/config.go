package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"codejudge/internal/common/auth"
	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	"codejudge/internal/common/mq"
	"codejudge/internal/common/storage"
	"codejudge/internal/judge/sandbox/engine"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/internal/judge/sandbox/runner"
	"codejudge/internal/judge/service"
	"codejudge/pkg/utils/logger"

	"github.com/segmentio/kafka-go"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8085"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultStatusTTL       = 24 * time.Hour
	defaultStatusTimeout   = 2 * time.Second
	defaultMetricsPath     = "/metrics"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// KafkaConfig holds Kafka settings. Judging runs in-process when no broker is set.
type KafkaConfig struct {
	Brokers       []string                `yaml:"brokers"`
	ClientID      string                  `yaml:"clientID"`
	MinBytes      int                     `yaml:"minBytes"`
	MaxBytes      int                     `yaml:"maxBytes"`
	MaxWait       time.Duration           `yaml:"maxWait"`
	BatchSize     int                     `yaml:"batchSize"`
	BatchTimeout  time.Duration           `yaml:"batchTimeout"`
	DialTimeout   time.Duration           `yaml:"dialTimeout"`
	RequiredAcks  int                     `yaml:"requiredAcks"`
	Compression   string                  `yaml:"compression"`
	TriggerTopic  string                  `yaml:"triggerTopic"`
	ConsumerGroup string                  `yaml:"consumerGroup"`
	Concurrency   int                     `yaml:"concurrency"`
	MaxRetries    int                     `yaml:"maxRetries"`
	RetryDelay    time.Duration           `yaml:"retryDelay"`
	DeadLetter    string                  `yaml:"deadLetterTopic"`
	MessageTTL    time.Duration           `yaml:"messageTTL"`
	SlotWait      time.Duration           `yaml:"slotWait"`
	PoolRetry     service.PoolRetryConfig `yaml:"poolRetry"`
}

// Enabled reports whether a broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// StatusConfig holds status snapshot and event settings.
type StatusConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	Timeout    time.Duration `yaml:"timeout"`
	FinalTopic string        `yaml:"finalTopic"`
	SkipJudged bool          `yaml:"skipJudged"`
	LockTTL    time.Duration `yaml:"lockTTL"`
}

// JudgeConfig holds judge work settings.
type JudgeConfig struct {
	WorkRoot     string `yaml:"workRoot"`
	ReportBucket string `yaml:"reportBucket"`
	ReportPrefix string `yaml:"reportPrefix"`
}

// GRPCConfig holds the health server address. Empty disables it.
type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

// MetricsConfig exposes Prometheus metrics on the API router.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AppConfig holds judge-service config.
type AppConfig struct {
	Server     ServerConfig                      `yaml:"server"`
	Logger     logger.Config                     `yaml:"logger"`
	Database   db.MySQLConfig                    `yaml:"database"`
	Redis      cache.RedisConfig                 `yaml:"redis"`
	Kafka      KafkaConfig                       `yaml:"kafka"`
	MinIO      storage.MinIOConfig               `yaml:"minio"`
	Dispatcher service.DispatcherConfig          `yaml:"worker"`
	Status     StatusConfig                      `yaml:"status"`
	Judge      JudgeConfig                       `yaml:"judge"`
	Sandbox    engine.Config                     `yaml:"sandbox"`
	Runner     runner.Config                     `yaml:"runner"`
	Language   map[string]profile.LanguageConfig `yaml:"language"`
	Auth       auth.Config                       `yaml:"auth"`
	GRPC       GRPCConfig                        `yaml:"grpc"`
	Metrics    MetricsConfig                     `yaml:"metrics"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *AppConfig) applyDefaults() error {
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth secret is required")
	}
	if cfg.Status.LockTTL > 0 && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when status.lockTTL is set")
	}
	if cfg.Redis.Addr != "" {
		applyRedisDefaults(&cfg.Redis)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Status.TTL == 0 {
		cfg.Status.TTL = defaultStatusTTL
	}
	if cfg.Status.Timeout == 0 {
		cfg.Status.Timeout = defaultStatusTimeout
	}
	if cfg.Status.FinalTopic == "" {
		cfg.Status.FinalTopic = "judge.status.final"
	}
	if cfg.Judge.WorkRoot == "" {
		cfg.Judge.WorkRoot = os.TempDir()
	}
	if cfg.Judge.ReportBucket == "" {
		cfg.Judge.ReportBucket = cfg.MinIO.Bucket
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	if cfg.Kafka.TriggerTopic == "" {
		cfg.Kafka.TriggerTopic = "judge.trigger"
	}
	if cfg.Kafka.ConsumerGroup == "" {
		cfg.Kafka.ConsumerGroup = "judge-service"
	}
	if cfg.Kafka.PoolRetry.Topic == "" {
		cfg.Kafka.PoolRetry.Topic = cfg.Kafka.TriggerTopic
	}
	if cfg.Kafka.PoolRetry.DeadLetterTopic == "" {
		cfg.Kafka.PoolRetry.DeadLetterTopic = cfg.Kafka.DeadLetter
	}
	if cfg.Kafka.PoolRetry.MaxRetries <= 0 {
		cfg.Kafka.PoolRetry.MaxRetries = 5
	}
	if cfg.Kafka.PoolRetry.BaseDelay == 0 {
		cfg.Kafka.PoolRetry.BaseDelay = time.Second
	}
	if cfg.Kafka.PoolRetry.MaxDelay == 0 {
		cfg.Kafka.PoolRetry.MaxDelay = 30 * time.Second
	}
	return nil
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	if cfg == nil {
		return
	}
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.MinRetryBackoff == 0 {
		cfg.MinRetryBackoff = defaults.MinRetryBackoff
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = defaults.MaxRetryBackoff
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
	if cfg.PoolTimeout == 0 {
		cfg.PoolTimeout = defaults.PoolTimeout
	}
}

func (k KafkaConfig) toMQConfig() mq.KafkaConfig {
	return mq.KafkaConfig{
		Brokers:      k.Brokers,
		ClientID:     k.ClientID,
		MinBytes:     k.MinBytes,
		MaxBytes:     k.MaxBytes,
		MaxWait:      k.MaxWait,
		BatchSize:    k.BatchSize,
		BatchTimeout: k.BatchTimeout,
		DialTimeout:  k.DialTimeout,
		RequiredAcks: kafka.RequiredAcks(k.RequiredAcks),
		Compression:  parseCompression(k.Compression),
	}
}

func (k KafkaConfig) subscribeOptions() *mq.SubscribeOptions {
	return &mq.SubscribeOptions{
		ConsumerGroup:   k.ConsumerGroup,
		Concurrency:     k.Concurrency,
		MaxRetries:      k.MaxRetries,
		RetryDelay:      k.RetryDelay,
		DeadLetterTopic: k.DeadLetter,
		MessageTTL:      k.MessageTTL,
	}
}

func parseCompression(raw string) kafka.Compression {
	switch strings.ToLower(raw) {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Compression(0)
	}
}
