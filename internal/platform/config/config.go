package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr    string
	Mandate MandateConfig
	DB      DBConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
}

// MandateConfig holds the token-signing surface. Everything except TTL and
// default scopes is required before the issuer can mint tokens; the signer
// constructor enforces that so a misconfigured process fails at startup, not
// on the first privileged call.
type MandateConfig struct {
	SigningAlg            string
	SigningSecret         []byte
	Issuer                string
	Audience              string
	DefaultScopes         []string
	TTL                   time.Duration
	DefaultMaxAmountCents int64
}

// DBConfig holds the PostgreSQL connection surface.
type DBConfig struct {
	URL string
}

// RedisConfig holds the Redis connection surface for the revocation list.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the optional audit fan-out surface. Empty brokers means
// the Kafka publisher is not wired.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

const (
	defaultTTLMinutes     = 1440
	defaultMaxAmountCents = 50000
)

// FromEnv builds a Config from environment variables.
//
// The signing secret may be supplied raw (MANDATE_SIGNING_SECRET) or
// base64-encoded (MANDATE_SIGNING_SECRET_BASE64); both resolve to the same
// key bytes and behave identically.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr: envOr("PROCURA_ADDR", ":8080"),
		Mandate: MandateConfig{
			SigningAlg: envOr("MANDATE_SIGNING_ALG", "HS256"),
			Issuer:     os.Getenv("MANDATE_ISSUER"),
			Audience:   os.Getenv("MANDATE_AUDIENCE"),
		},
		DB: DBConfig{URL: os.Getenv("DATABASE_URL")},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envOrInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envOrInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("AUDIT_TOPIC", "procura.audit.entries"),
		},
	}

	secret, err := signingSecretFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.Mandate.SigningSecret = secret

	if scopes := os.Getenv("MANDATE_DEFAULT_SCOPES"); scopes != "" {
		cfg.Mandate.DefaultScopes = splitNonEmpty(scopes)
	} else {
		cfg.Mandate.DefaultScopes = []string{"scp:login"}
	}

	ttlMinutes := envOrInt("MANDATE_TTL_MINUTES", defaultTTLMinutes)
	cfg.Mandate.TTL = time.Duration(ttlMinutes) * time.Minute

	cfg.Mandate.DefaultMaxAmountCents = int64(envOrInt("MANDATE_DEFAULT_MAX_AMOUNT_CENTS", defaultMaxAmountCents))

	return cfg, nil
}

func signingSecretFromEnv() ([]byte, error) {
	if encoded := os.Getenv("MANDATE_SIGNING_SECRET_BASE64"); encoded != "" {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode MANDATE_SIGNING_SECRET_BASE64: %w", err)
		}
		return decoded, nil
	}
	if raw := os.Getenv("MANDATE_SIGNING_SECRET"); raw != "" {
		return []byte(raw), nil
	}
	return nil, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
