package config

import (
	"os"
	"strconv"
	"time"
)

// Config aggregates everything the server needs so main stays lean.
type Config struct {
	Server   Server
	Database Database
	Redis    Redis
	Kafka    Kafka
	Ledger   Ledger
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	// BootstrapAdmin seeds each registry's admin on first start. Once seeded,
	// only transfer-admin changes it.
	BootstrapAdmin string
}

// Database holds PostgreSQL connection configuration. An empty URL selects
// the in-memory stores.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Redis holds Redis connection configuration. An empty URL disables Redis.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka holds audit publishing configuration. Empty brokers keep audit events
// in the in-memory store.
type Kafka struct {
	Brokers         string
	AuditTopic      string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// Ledger configures where the current block height comes from.
type Ledger struct {
	// HeightKey is the Redis key the external chain follower writes the
	// latest height to. It is read only when Redis is configured; without
	// Redis the manual in-process counter supplies heights.
	HeightKey string
	// CacheTTL bounds how stale a locally cached height may be.
	CacheTTL time.Duration
}

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           envOr("TRUSTLEDGER_ADDR", ":8080"),
			JWTSigningKey:  envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:      envOr("JWT_ISSUER", "trustledger"),
			BootstrapAdmin: os.Getenv("TRUSTLEDGER_BOOTSTRAP_ADMIN"),
		},
		Database: Database{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envIntOr("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envIntOr("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDurationOr("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			AuditTopic:      envOr("KAFKA_AUDIT_TOPIC", "trustledger.audit"),
			Acks:            envOr("KAFKA_ACKS", "all"),
			Retries:         envIntOr("KAFKA_RETRIES", 3),
			DeliveryTimeout: envDurationOr("KAFKA_DELIVERY_TIMEOUT", 10*time.Second),
		},
		Ledger: Ledger{
			HeightKey: envOr("LEDGER_HEIGHT_KEY", "trustledger:height"),
			CacheTTL:  envDurationOr("LEDGER_HEIGHT_CACHE_TTL", time.Second),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
