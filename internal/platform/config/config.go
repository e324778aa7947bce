package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration. Everything has a development default
// so the server starts with in-memory stores and the log channel.
type Config struct {
	Server   Server
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
	Matching MatchingConfig
	Dispatch DispatchConfig
	LogLevel string
	LogJSON  bool
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	// AdminToken guards the notification routes when set.
	AdminToken string
}

// PostgresConfig enables the Postgres stores when URL is set.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MinPoolConns    int
	MaxPoolConns    int
}

// RedisConfig enables the delivered-key cache when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DeliveredTTL time.Duration
}

// KafkaConfig selects the Kafka channel when Brokers is non-empty.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int
	ReplicationFactor int
}

// SMTPConfig selects the email channel when Host is set and Kafka is not.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type MatchingConfig struct {
	CapPolicy string
}

type DispatchConfig struct {
	Concurrency      int
	DeliveryTimeout  time.Duration
	RatePerSecond    float64
	RateBurst        int
	FailureThreshold int
	SuccessThreshold int
	CircuitCooldown  time.Duration
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envOr("HEMOLINK_ADDR", ":8080"),
			CORSOrigins:     envList("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			AdminToken:      envOr("ADMIN_TOKEN", ""),
		},
		Postgres: PostgresConfig{
			URL:             envOr("DATABASE_URL", ""),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			MinPoolConns:    envInt("DB_POOL_MIN_CONNS", 2),
			MaxPoolConns:    envInt("DB_POOL_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			URL:          envOr("REDIS_URL", ""),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			DeliveredTTL: envDuration("REDIS_DELIVERED_TTL", 7*24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:           envList("KAFKA_BROKERS", nil),
			Topic:             envOr("KAFKA_NOTIFICATION_TOPIC", "donor-notifications"),
			Partitions:        envInt("KAFKA_TOPIC_PARTITIONS", 3),
			ReplicationFactor: envInt("KAFKA_TOPIC_REPLICATION", 1),
		},
		SMTP: SMTPConfig{
			Host:     envOr("SMTP_HOST", ""),
			Port:     envInt("SMTP_PORT", 587),
			Username: envOr("SMTP_USERNAME", ""),
			Password: envOr("SMTP_PASSWORD", ""),
			From:     envOr("SMTP_FROM", "Hemolink <alerts@hemolink.local>"),
		},
		Matching: MatchingConfig{
			CapPolicy: envOr("MATCHING_CAP_POLICY", "one_and_half"),
		},
		Dispatch: DispatchConfig{
			Concurrency:      envInt("DISPATCH_CONCURRENCY", 8),
			DeliveryTimeout:  envDuration("DISPATCH_DELIVERY_TIMEOUT", 10*time.Second),
			RatePerSecond:    envFloat("DISPATCH_RATE_PER_SECOND", 0),
			RateBurst:        envInt("DISPATCH_RATE_BURST", 10),
			FailureThreshold: envInt("DISPATCH_CIRCUIT_FAILURES", 5),
			SuccessThreshold: envInt("DISPATCH_CIRCUIT_SUCCESSES", 3),
			CircuitCooldown:  envDuration("DISPATCH_CIRCUIT_COOLDOWN", 30*time.Second),
		},
		LogLevel: envOr("LOG_LEVEL", "info"),
		LogJSON:  envBool("LOG_JSON", false),
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("1500ms", "30s").
func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
