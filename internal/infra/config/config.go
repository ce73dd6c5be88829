package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Ingest    IngestSettings    `mapstructure:"ingest"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the current-version cache connection.
type RedisSettings struct {
	Host                 string        `mapstructure:"host"`
	Port                 int           `mapstructure:"port"`
	DB                   int           `mapstructure:"db"`
	Password             string        `mapstructure:"password"`
	TLSEnabled           bool          `mapstructure:"tls_enabled"`
	CurrentVersionPrefix string        `mapstructure:"current_version_prefix"`
	CurrentVersionTTL    time.Duration `mapstructure:"current_version_ttl"`
}

// KafkaSettings configures the Kafka producer and consumer group.
type KafkaSettings struct {
	Brokers       []string `mapstructure:"brokers"`
	TopicPrefix   string   `mapstructure:"topic_prefix"`
	GroupID       string   `mapstructure:"group_id"`
	DocumentTopic string   `mapstructure:"document_topic"`
	Async         bool     `mapstructure:"async"`
}

// IngestSettings bounds mutation retries and per-call timeouts.
type IngestSettings struct {
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// RateLimitSettings throttles mutating API endpoints per client IP.
type RateLimitSettings struct {
	WindowDuration    time.Duration `mapstructure:"window_duration"`
	RevertMaxAttempts int           `mapstructure:"revert_max_attempts"`
}

type TelemetrySettings struct {
	Namespace string `mapstructure:"namespace"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SOP")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.current_version_prefix",
		"redis.current_version_ttl",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.group_id",
		"kafka.document_topic",
		"kafka.async",
		"ingest.max_retries",
		"ingest.retry_backoff",
		"ingest.operation_timeout",
		"rate_limit.window_duration",
		"rate_limit.revert_max_attempts",
		"telemetry.namespace",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "sop-version-core")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "sop")
	v.SetDefault("postgres.password", "sop_password")
	v.SetDefault("postgres.database", "sop")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.current_version_prefix", "sop:current_version")
	v.SetDefault("redis.current_version_ttl", "10m")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "sop")
	v.SetDefault("kafka.group_id", "sop-version-core")
	v.SetDefault("kafka.document_topic", "sop.document.upserted")
	v.SetDefault("kafka.async", true)

	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.retry_backoff", "50ms")
	v.SetDefault("ingest.operation_timeout", "5s")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.revert_max_attempts", 30)

	v.SetDefault("telemetry.namespace", "sop")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "SOP_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
