package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	ServerPort  int

	DatabaseURL string

	JWTSecret         []byte
	UpdateTokenSecret []byte

	KafkaBrokers       []string
	PaymentEventsTopic string

	ESURL        string
	ESUser       string
	ESPassword   string
	ProjectIndex string

	PublicBaseURL  string
	GatewayTimeout time.Duration
}

func Load() Config {
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "crowdshop"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:         []byte(os.Getenv("JWT_HS256_SECRET")),
		UpdateTokenSecret: []byte(os.Getenv("UPDATE_TOKEN_SECRET")),

		KafkaBrokers:       CSV(os.Getenv("KAFKA_BROKERS")),
		PaymentEventsTopic: EnvDefault("PAYMENT_EVENTS_TOPIC", "payment_events"),

		ESURL:        os.Getenv("ES_URL"),
		ESUser:       os.Getenv("ES_USER"),
		ESPassword:   os.Getenv("ES_PASSWORD"),
		ProjectIndex: EnvDefault("ES_PROJECT_INDEX", "project"),

		PublicBaseURL:  EnvDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		GatewayTimeout: time.Duration(EnvIntDefault("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
