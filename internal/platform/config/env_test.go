package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Width   int           `env:"FIELD_WIDTH" envDefault:"10"`
	Sizes   []int         `env:"SHIP_SIZES" envDefault:"2,3" envSeparator:","`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"1s"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg, WithEnvironment(map[string]string{})); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Width != 10 {
		t.Fatalf("expected default width 10, got %d", cfg.Width)
	}
	if len(cfg.Sizes) != 2 || cfg.Sizes[0] != 2 || cfg.Sizes[1] != 3 {
		t.Fatalf("expected default sizes [2 3], got %v", cfg.Sizes)
	}
	if cfg.Timeout != time.Second {
		t.Fatalf("expected default timeout 1s, got %v", cfg.Timeout)
	}
}

func TestParseEnvPrefix(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("BROADSIDE_TEST_FIELD_WIDTH", "12")

	if err := ParseEnv(&cfg, WithPrefix("BROADSIDE_TEST_")); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Width != 12 {
		t.Fatalf("expected prefixed width 12, got %d", cfg.Width)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig

	err := ParseEnv(&cfg, WithEnvironment(map[string]string{"FIELD_WIDTH": "wide"}))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
