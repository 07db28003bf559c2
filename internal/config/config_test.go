package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.GatewayEpoch != -1 {
		t.Fatalf("default epoch mismatch: %d", cfg.GatewayEpoch)
	}
	if cfg.SummaryWindow != 24*time.Hour {
		t.Fatalf("default summary window mismatch: %v", cfg.SummaryWindow)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("default log level mismatch: %q", cfg.LogLevel)
	}
}

func TestValidateMissingRequired(t *testing.T) {
	cfg := Config{GatewayAddr: "http://gateway:8175"}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateComplete(t *testing.T) {
	cfg := Config{
		GatewayAddr:     "http://gateway:8175",
		GatewayPassword: "secret",
		BotToken:        "token",
		ChatID:          "chat",
		DBHost:          "localhost",
		DBUser:          "etl",
		DBPassword:      "pw",
		DBName:          "gateway",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestEpoch(t *testing.T) {
	cfg := Config{GatewayEpoch: -1}
	if cfg.Epoch() != nil {
		t.Fatalf("negative epoch must mean no partitioning")
	}

	cfg.GatewayEpoch = 2
	epoch := cfg.Epoch()
	if epoch == nil || *epoch != 2 {
		t.Fatalf("epoch mismatch: %v", epoch)
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n"}
	want := "host=db user=u password=p dbname=n"
	if got := cfg.DatabaseDSN(); got != want {
		t.Fatalf("dsn mismatch: %q", got)
	}
}
