package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// DSN builds the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig holds the broker settings for the push notification channel.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
	// TopicPrefix is prepended to the per-subscriber push topic,
	// e.g. "rosterwatch/push/" + address.
	TopicPrefix string
}

// Config is the full service configuration, loaded once at startup.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// Scheduler controls the reconciliation cycle.
	Scheduler struct {
		Interval time.Duration // time between cycle starts
		Workers  int           // bounded facility worker pool size
	}

	// Scraper controls the HTTP roster adapters.
	Scraper struct {
		Timeout   time.Duration
		UserAgent string
		Retries   int
	}

	// Persist controls the batched persistence writer.
	Persist struct {
		BatchSize      int           // operations per transaction
		TouchThreshold time.Duration // skip last_seen refresh newer than this
	}

	// Notify controls dispatch and the custody event stream.
	Notify struct {
		EventStream   string // Redis Stream for custody events
		WebhookTimeout time.Duration
	}

	HTTP struct {
		ListenAddr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables with defaults that
// work for a local single-node deployment.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "rosterwatch")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "rosterwatch")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "rosterwatch/push/")

	interval, err := time.ParseDuration(getEnv("CYCLE_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CYCLE_INTERVAL: %w", err)
	}
	cfg.Scheduler.Interval = interval
	cfg.Scheduler.Workers = getEnvInt("CYCLE_WORKERS", 2)

	scraperTimeout, err := time.ParseDuration(getEnv("SCRAPER_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCRAPER_TIMEOUT: %w", err)
	}
	cfg.Scraper.Timeout = scraperTimeout
	cfg.Scraper.UserAgent = getEnv("SCRAPER_USER_AGENT", "rosterwatch/1.0")
	cfg.Scraper.Retries = getEnvInt("SCRAPER_RETRIES", 3)

	cfg.Persist.BatchSize = getEnvInt("PERSIST_BATCH_SIZE", 100)
	touchThreshold, err := time.ParseDuration(getEnv("PERSIST_TOUCH_THRESHOLD", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid PERSIST_TOUCH_THRESHOLD: %w", err)
	}
	cfg.Persist.TouchThreshold = touchThreshold

	cfg.Notify.EventStream = getEnv("EVENT_STREAM", "custody:events:stream")
	webhookTimeout, err := time.ParseDuration(getEnv("WEBHOOK_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}
	cfg.Notify.WebhookTimeout = webhookTimeout

	cfg.HTTP.ListenAddr = getEnv("HTTP_LISTEN_ADDR", ":8080")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
