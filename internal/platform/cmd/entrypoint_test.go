package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type testConfig struct {
	Rounds int    `env:"CMD_TEST_ROUNDS" envDefault:"100"`
	Mode   string `env:"CMD_TEST_MODE" envDefault:"all_rounds"`
}

func TestParseConfigReadsPrefixedEnvAndFlags(t *testing.T) {
	t.Setenv("BROADSIDE_CMD_TEST_ROUNDS", "7")
	t.Setenv("BROADSIDE_CMD_TEST_MODE", "first_to")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "rounds")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "mode")

	if err := ParseArgs(fs, []string{"-rounds", "9"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Rounds != 9 {
		t.Fatalf("expected flag value for rounds, got %d", cfg.Rounds)
	}
	if cfg.Mode != "first_to" {
		t.Fatalf("expected env mode, got %q", cfg.Mode)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	var cfg *testConfig
	if err := ParseConfig(cfg); err == nil {
		t.Fatal("expected nil target to be rejected")
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestRunWithTelemetryRequiresServiceAndRun(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), " ", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected empty service to be rejected")
	}
	if err := RunWithTelemetry(context.Background(), ServiceArena, nil); err == nil {
		t.Fatal("expected nil run to be rejected")
	}
}

func TestRunWithTelemetryPropagatesRunError(t *testing.T) {
	t.Setenv("BROADSIDE_OTEL_ENDPOINT", "")
	want := errors.New("boom")
	err := RunWithTelemetry(context.Background(), ServiceArena, func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}
