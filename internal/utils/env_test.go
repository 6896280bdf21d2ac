package utils

import (
	"testing"
	"time"
)

func TestSafeEnv(t *testing.T) {
	const key = "_MODERN360_TEST_SAFEENV"
	t.Setenv(key, "")
	if got := SafeEnv(key, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv(key, " value ")
	if got := SafeEnv(key, "fallback"); got != "value" {
		t.Fatalf("expected 'value', got %q", got)
	}
}

func TestSafeEnvTyped(t *testing.T) {
	t.Setenv("_M360_PORT", "2525")
	t.Setenv("_M360_TLS", "off")
	t.Setenv("_M360_TIMEOUT", "30")
	t.Setenv("_M360_BAD", "soon")

	if got := SafeEnvInt("_M360_PORT", 587); got != 2525 {
		t.Fatalf("SafeEnvInt = %d", got)
	}
	if got := SafeEnvInt("_M360_BAD", 587); got != 587 {
		t.Fatalf("SafeEnvInt should fall back, got %d", got)
	}
	if SafeEnvBool("_M360_TLS", true) {
		t.Fatalf("off should parse as false")
	}
	if got := SafeEnvDuration("_M360_TIMEOUT", time.Second); got != 30*time.Second {
		t.Fatalf("bare seconds: got %s", got)
	}
	if got := SafeEnvDuration("_M360_BAD", 15*time.Second); got != 15*time.Second {
		t.Fatalf("SafeEnvDuration should fall back, got %s", got)
	}
}
