package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	DatabaseURL       string
	DBMaxIdleConns    int
	DBMaxOpenConns    int
	DBConnMaxLifetime time.Duration
	DBSeed            bool

	KafkaEnabled bool
	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	QueryTimeout       time.Duration
	EventQueueSize     int
	EventBatchSize     int
	EventFlushInterval time.Duration

	SnapshotCacheMB  int
	SnapshotCacheTTL time.Duration

	FeedAdInterval int
	FeedMaxLimit   int

	RateLimitRPS   float64
	RateLimitBurst int

	DefaultCurrency string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:     GetEnv("PORT", "8080"),
		GinMode:  GetEnv("GIN_MODE", "debug"),
		LogLevel: GetEnv("LOG_LEVEL", "info"),

		DatabaseURL:       GetEnv("DATABASE_URL", ""),
		DBMaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		DBConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		DBSeed:            GetBoolEnv("DB_SEED", false),

		KafkaEnabled: GetBoolEnv("KAFKA_ENABLED", false),
		KafkaBroker:  GetEnv("KAFKA_BROKER", "localhost:9092"),
		KafkaTopic:   GetEnv("KAFKA_TOPIC", "ledger-events"),
		KafkaGroupID: GetEnv("KAFKA_GROUP_ID", "monetization-ledger"),

		RedisEnabled:  GetBoolEnv("REDIS_ENABLED", false),
		RedisAddr:     GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       GetIntEnv("REDIS_DB", 0),
		LockTTL:       GetDurationEnv("LOCK_TTL", 30*time.Second),

		QueryTimeout:       GetDurationEnv("QUERY_TIMEOUT", 5*time.Second),
		EventQueueSize:     GetIntEnv("EVENT_QUEUE_SIZE", 10000),
		EventBatchSize:     GetIntEnv("EVENT_BATCH_SIZE", 100),
		EventFlushInterval: GetDurationEnv("EVENT_FLUSH_INTERVAL", 5*time.Second),

		SnapshotCacheMB:  GetIntEnv("SNAPSHOT_CACHE_MB", 16),
		SnapshotCacheTTL: GetDurationEnv("SNAPSHOT_CACHE_TTL", 24*time.Hour),

		FeedAdInterval: GetIntEnv("FEED_AD_INTERVAL", 20),
		FeedMaxLimit:   GetIntEnv("FEED_MAX_LIMIT", 100),

		RateLimitRPS:   GetFloatEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: GetIntEnv("RATE_LIMIT_BURST", 100),

		DefaultCurrency: GetEnv("DEFAULT_CURRENCY", "VND"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.EventQueueSize <= 0 || c.EventBatchSize <= 0 {
		return fmt.Errorf("event queue and batch sizes must be positive")
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT must be positive")
	}
	if c.FeedAdInterval <= 0 || c.FeedMaxLimit <= 0 {
		return fmt.Errorf("feed limits must be positive")
	}
	return nil
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	parsed, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func GetFloatEnv(key string, defaultValue float64) float64 {
	parsed, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func GetBoolEnv(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	parsed, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}
