package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORAGE", "")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9091" || cfg.Storage != "memory" || cfg.NotifyWorkers != 4 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("unexpected %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORAGE", "mongo")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown storage")
	}
	t.Setenv("STORAGE", "memory")
	t.Setenv("SLOT_TIMEZONE", "Nowhere/City")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for bad timezone")
	}
}
