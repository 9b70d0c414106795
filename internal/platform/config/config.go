package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures server-level configuration.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	// Processor is the external payment processor account configuration.
	Processor ProcessorConfig

	// FrontendBaseURL is the application origin used to build the
	// payment-confirmation return URL.
	FrontendBaseURL string

	// KafkaBrokers enables the Kafka notification publisher when non-empty.
	KafkaBrokers []string

	Redis RedisConfig

	// OTPTTL bounds how long a withdrawal verification code stays valid.
	OTPTTL time.Duration
	// OTPMaxAttempts bounds failed verifications before a fresh code is required.
	OTPMaxAttempts int
}

// ProcessorConfig holds the payment processor credentials and endpoint.
type ProcessorConfig struct {
	BaseURL        string
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
}

// RedisConfig holds Redis connection settings. An empty URL disables Redis
// and the OTP store falls back to memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("PAMPERMOMMA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	frontend := os.Getenv("FRONTEND_BASE_URL")
	if frontend == "" {
		frontend = "http://localhost:3000"
	}

	processorBase := os.Getenv("PROCESSOR_BASE_URL")
	if processorBase == "" {
		processorBase = "https://api.stripe.com"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Config{
		Addr:            addr,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSigningKey:   jwtSigningKey,
		FrontendBaseURL: frontend,
		KafkaBrokers:    brokers,
		Processor: ProcessorConfig{
			BaseURL:        processorBase,
			SecretKey:      os.Getenv("PROCESSOR_SECRET_KEY"),
			PublishableKey: os.Getenv("PROCESSOR_PUBLISHABLE_KEY"),
			WebhookSecret:  os.Getenv("PROCESSOR_WEBHOOK_SECRET"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		OTPTTL:         envDuration("WITHDRAWAL_OTP_TTL", 10*time.Minute),
		OTPMaxAttempts: envInt("WITHDRAWAL_OTP_MAX_ATTEMPTS", 5),
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	return fallback
}
