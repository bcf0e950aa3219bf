package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	GinMode        string
	LogLevel       string
	Storage        string
	DatabaseDSN    string
	JWTSecret      string
	TokenTTL       time.Duration
	RedisAddr      string
	IdempotencyTTL time.Duration
	KafkaBrokers   []string
	KafkaTopic     string
	NotifyWorkers  int
	NotifyBuffer   int
	SlotLocation   *time.Location
	SeedDemo       bool
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:    getEnvOrDefault("HTTP_ADDR", ":9091"),
		GinMode:     getEnvOrDefault("GIN_MODE", "release"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		Storage:     getEnvOrDefault("STORAGE", "memory"),
		DatabaseDSN: getEnvOrDefault("DATABASE_DSN", "autoservice.db"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		KafkaTopic:  getEnvOrDefault("KAFKA_TOPIC", "autoservice.notifications"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var err error
	if cfg.TokenTTL, err = time.ParseDuration(getEnvOrDefault("TOKEN_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	if cfg.IdempotencyTTL, err = time.ParseDuration(getEnvOrDefault("IDEMPOTENCY_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("IDEMPOTENCY_TTL: %w", err)
	}
	if cfg.NotifyWorkers, err = strconv.Atoi(getEnvOrDefault("NOTIFY_WORKERS", "4")); err != nil {
		return nil, fmt.Errorf("NOTIFY_WORKERS: %w", err)
	}
	if cfg.NotifyBuffer, err = strconv.Atoi(getEnvOrDefault("NOTIFY_BUFFER", "256")); err != nil {
		return nil, fmt.Errorf("NOTIFY_BUFFER: %w", err)
	}
	if cfg.SlotLocation, err = time.LoadLocation(getEnvOrDefault("SLOT_TIMEZONE", "UTC")); err != nil {
		return nil, fmt.Errorf("SLOT_TIMEZONE: %w", err)
	}
	cfg.SeedDemo, _ = strconv.ParseBool(getEnvOrDefault("SEED_DEMO", "false"))

	switch cfg.Storage {
	case "memory", "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("STORAGE must be memory, sqlite or postgres, got %q", cfg.Storage)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
