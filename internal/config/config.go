package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL    string
	RedisURL       string
	KafkaBrokers   string
	JaegerEndpoint string
	Port           string

	GatewayBaseURL string
	GatewayTimeout time.Duration

	PollInterval    time.Duration
	PollMaxAttempts int
	RedirectDelay   time.Duration

	StrictEntry  bool
	RequireEmail bool
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8084"
	}

	gatewayBaseURL := os.Getenv("GATEWAY_BASE_URL")
	if gatewayBaseURL == "" {
		gatewayBaseURL = "http://localhost:8090"
	}

	return &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		KafkaBrokers:   os.Getenv("KAFKA_BROKERS"),
		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),
		Port:           port,

		GatewayBaseURL: gatewayBaseURL,
		GatewayTimeout: durationEnv("GATEWAY_TIMEOUT", 10*time.Second),

		PollInterval:    durationEnv("POLL_INTERVAL", 3*time.Second),
		PollMaxAttempts: intEnv("POLL_MAX_ATTEMPTS", 15),
		RedirectDelay:   durationEnv("REDIRECT_DELAY", 1*time.Second),

		StrictEntry:  boolEnv("STRICT_ENTRY", false),
		RequireEmail: boolEnv("REQUIRE_EMAIL", true),
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if raw := os.Getenv(key); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return fallback
}
