package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	JWTExpiry   time.Duration

	// TURN credential provider; optional. Without it the ICE endpoint
	// serves the static STUN list.
	TurnTokenURL   string
	TurnAccountSID string
	TurnAuthToken  string
	StunServers    []string
}

func LoadConfig() (*Config, error) {
	expiryStr := getEnv("JWT_EXPIRY", "24h")
	expiry, err := time.ParseDuration(expiryStr)
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}

	cfg := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTExpiry:      expiry,
		TurnTokenURL:   os.Getenv("TURN_TOKEN_URL"),
		TurnAccountSID: os.Getenv("TURN_ACCOUNT_SID"),
		TurnAuthToken:  os.Getenv("TURN_AUTH_TOKEN"),
		StunServers:    splitList(getEnv("STUN_SERVERS", "stun:stun.l.google.com:19302")),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
