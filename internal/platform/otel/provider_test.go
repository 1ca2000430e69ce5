package otel

import (
	"context"
	"testing"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("BROADSIDE_OTEL_ENDPOINT", "")
	t.Setenv("BROADSIDE_OTEL_ENABLED", "")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("BROADSIDE_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("BROADSIDE_OTEL_ENABLED", "false")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so no export happens.
	t.Setenv("BROADSIDE_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("BROADSIDE_OTEL_ENABLED", "")
	t.Setenv("BROADSIDE_OTEL_SAMPLE_RATIO", "0.25")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestParseRatio(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{raw: "", ok: false},
		{raw: "1", want: 1, ok: true},
		{raw: "0.5", want: 0.5, ok: true},
		{raw: "0.25", want: 0.25, ok: true},
		{raw: "2", ok: false},
		{raw: "half", ok: false},
	}
	for _, tt := range tests {
		got, ok := parseRatio(tt.raw)
		if ok != tt.ok {
			t.Fatalf("parseRatio(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Fatalf("parseRatio(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
