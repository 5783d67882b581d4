package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Data backends selectable with DATA_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	DataBackend   string
	MemoryGroups  []string // support groups seeded into the memory backend

	JWTSecret        string
	ServiceTokenHash string // bcrypt hash of the x-api-key shared with intake services

	// Ledger transaction tuning
	LedgerLockTimeout  time.Duration
	LedgerMaxRetries   int
	LedgerRetryBackoff time.Duration

	RateLimit          string // ulule formatted rate, e.g. "100-M"
	CORSAllowedOrigins []string

	// Payment status intake; disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Entry notifications; disabled when KafkaBrokers is empty
	KafkaBrokers []string
	KafkaTopic   string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("DATA_BACKEND", BackendPostgres)
	v.SetDefault("MEMORY_GROUPS", "")
	v.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	v.SetDefault("SERVICE_TOKEN_HASH", "")
	v.SetDefault("LEDGER_LOCK_TIMEOUT", "2s")
	v.SetDefault("LEDGER_MAX_RETRIES", 3)
	v.SetDefault("LEDGER_RETRY_BACKOFF", "25ms")
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "payments")
	v.SetDefault("AMQP_QUEUE", "ledger.payment-status")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "ledger.entries")

	v.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = v.GetString("PGSQL_URL")
	cfg.Port = v.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	cfg.IsProduction = v.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = v.GetBool("ENABLE_DB_CHECK")

	cfg.DataBackend = strings.ToLower(strings.TrimSpace(v.GetString("DATA_BACKEND")))
	switch cfg.DataBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			log.Println("Warning: PGSQL_URL environment variable not set.")
		}
	case BackendMemory:
		if cfg.IsProduction {
			return nil, fmt.Errorf("DATA_BACKEND=%s is not allowed in production", BackendMemory)
		}
	default:
		return nil, fmt.Errorf("unknown DATA_BACKEND %q", cfg.DataBackend)
	}

	cfg.MemoryGroups = splitList(v.GetString("MEMORY_GROUPS"))

	cfg.JWTSecret = v.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.ServiceTokenHash = v.GetString("SERVICE_TOKEN_HASH")
	if cfg.ServiceTokenHash == "" {
		log.Println("Warning: SERVICE_TOKEN_HASH not set. Service token authentication is disabled.")
	}

	cfg.LedgerLockTimeout = durationOrDefault(v, "LEDGER_LOCK_TIMEOUT", 2*time.Second)
	cfg.LedgerRetryBackoff = durationOrDefault(v, "LEDGER_RETRY_BACKOFF", 25*time.Millisecond)
	cfg.LedgerMaxRetries = v.GetInt("LEDGER_MAX_RETRIES")
	if cfg.LedgerMaxRetries < 1 {
		log.Printf("Warning: Invalid value for LEDGER_MAX_RETRIES (%d). Defaulting to 1.\n", cfg.LedgerMaxRetries)
		cfg.LedgerMaxRetries = 1
	}

	cfg.RateLimit = v.GetString("RATE_LIMIT")
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))

	cfg.AMQPURL = v.GetString("AMQP_URL")
	cfg.AMQPExchange = v.GetString("AMQP_EXCHANGE")
	cfg.AMQPQueue = v.GetString("AMQP_QUEUE")

	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.KafkaTopic = v.GetString("KAFKA_TOPIC")

	return cfg, nil
}

func durationOrDefault(v *viper.Viper, key string, def time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, def)
		}
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
