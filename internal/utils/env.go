package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SafeEnv returns the environment variable value for key, or fallback if empty.
func SafeEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func SafeEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(SafeEnv(key, "")); err == nil {
		return n
	}
	return fallback
}

// SafeEnvBool accepts the strconv.ParseBool forms plus "yes" and "on".
func SafeEnvBool(key string, fallback bool) bool {
	switch v := strings.ToLower(SafeEnv(key, "")); v {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	default:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// SafeEnvDuration reads a Go duration ("15s") or a bare number of seconds.
func SafeEnvDuration(key string, fallback time.Duration) time.Duration {
	v := SafeEnv(key, "")
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
