package config

import (
	"os"
	"strconv"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	// Empty DSN/URL/broker values select the in-memory fallbacks.
	PostgresDSN  string
	RedisURL     string
	KafkaBrokers string
	AuditTopic   string

	// Accord defaults recorded on proposals.
	AccordDeposit      int64
	PropertyFeeRateBps int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("BONDLY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("BONDLY_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default, override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("BONDLY_AUDIT_TOPIC")
	if topic == "" {
		topic = "bondly.audit"
	}

	return Server{
		Addr:               addr,
		JWTSigningKey:      jwtSigningKey,
		PostgresDSN:        os.Getenv("BONDLY_POSTGRES_DSN"),
		RedisURL:           os.Getenv("BONDLY_REDIS_URL"),
		KafkaBrokers:       os.Getenv("BONDLY_KAFKA_BROKERS"),
		AuditTopic:         topic,
		AccordDeposit:      envInt64("BONDLY_ACCORD_DEPOSIT", 100),
		PropertyFeeRateBps: int(envInt64("BONDLY_PROPERTY_FEE_BPS", 4000)),
	}
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
