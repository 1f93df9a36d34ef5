package config

import (
	"os"
	"strconv"
	"time"
)

// GetEnvString returns the environment value or the fallback when unset.
func GetEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt returns the parsed environment value or the fallback when
// unset or unparsable.
func GetEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// GetEnvFloat returns the parsed environment value or the fallback when
// unset or unparsable.
func GetEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

// GetEnvDuration returns the parsed environment value or the fallback
// when unset or unparsable.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// GetEnvBool returns the parsed environment value or the fallback when
// unset or unparsable. Accepts the strconv.ParseBool forms.
func GetEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
