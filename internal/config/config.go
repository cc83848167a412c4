package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the coordination server
// process. Values are loaded from environment variables with defaults that
// let the binary run locally without excessive setup.
type ServerConfig struct {
	ListenAddr  string // TCP protocol listener
	GatewayAddr string // HTTP sidecar (websocket bridge, metrics, health)

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisURL string // optional rating cache

	KafkaBrokers []string // optional ride-event sink
	KafkaTopic   string

	AttachmentInlineLimit int // bytes; larger attachments go to blob storage

	PushBuffer   int // per-client outbound queue before pushes are dropped
	PeerDialWait time.Duration

	LogLevel string
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:            ":5555",
		GatewayAddr:           ":8080",
		DBHost:                "localhost",
		DBUser:                "aubus",
		DBName:                "aubus",
		DBPort:                "5432",
		KafkaTopic:            "ride-events",
		AttachmentInlineLimit: 64 * 1024,
		PushBuffer:            256,
		PeerDialWait:          3 * time.Second,
		LogLevel:              "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.ListenAddr, "LISTEN_ADDR")
	setStringFromEnv(&cfg.GatewayAddr, "GATEWAY_ADDR")

	setStringFromEnv(&cfg.DBHost, "DB_HOST")
	setStringFromEnv(&cfg.DBUser, "DB_USER")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	setStringFromEnv(&cfg.DBName, "DB_NAME")
	setStringFromEnv(&cfg.DBPort, "DB_PORT")

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	setIntFromEnv(&cfg.AttachmentInlineLimit, "ATTACHMENT_INLINE_LIMIT", &errs)
	setIntFromEnv(&cfg.PushBuffer, "PUSH_BUFFER", &errs)
	setDurationFromEnv(&cfg.PeerDialWait, "PEER_DIAL_WAIT", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.PushBuffer <= 0 {
		errs = append(errs, fmt.Errorf("PUSH_BUFFER must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
