package worker

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the scheduler's operational parameters.
//
// All fields have defaults suitable for production; LoadConfigFromEnv
// overrides them from the environment and falls back to the default on
// any unparsable value rather than refusing to start.
type Config struct {
	// MaxConcurrentFetches bounds source fetch cycles running at once
	// across all sources. Range: 1-64. Default: 8.
	MaxConcurrentFetches int

	// JitterFraction spreads per-source ticks by a random offset of up
	// to this fraction of the interval, so sources configured with the
	// same cadence do not align. Default: 0.1.
	JitterFraction float64

	// BackstopInterval is the cadence of the pending-article sweep that
	// requeues articles whose enrichment signal was lost. Default: 10m.
	BackstopInterval time.Duration

	// BackstopMinAge is how long an article must sit in pending before
	// the sweep picks it up. Default: 10m.
	BackstopMinAge time.Duration

	// SourceResyncInterval is how often the scheduler reloads enabled
	// sources to pick up newly promoted or edited ones. Default: 1m.
	SourceResyncInterval time.Duration

	// DiscoveryScanInterval is the cadence of the discovery scan task.
	// Default: 24h.
	DiscoveryScanInterval time.Duration

	// DiscoveryValidateInterval is the cadence of candidate validation.
	// Default: 2h.
	DiscoveryValidateInterval time.Duration

	// ShutdownDrainTimeout bounds how long Stop waits for in-flight
	// fetch cycles. Default: 30s.
	ShutdownDrainTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentFetches:      8,
		JitterFraction:            0.1,
		BackstopInterval:          10 * time.Minute,
		BackstopMinAge:            10 * time.Minute,
		SourceResyncInterval:      time.Minute,
		DiscoveryScanInterval:     24 * time.Hour,
		DiscoveryValidateInterval: 2 * time.Hour,
		ShutdownDrainTimeout:      30 * time.Second,
	}
}

// Validate checks configuration bounds.
func (c *Config) Validate() error {
	if c.MaxConcurrentFetches < 1 || c.MaxConcurrentFetches > 64 {
		return fmt.Errorf("max concurrent fetches %d out of range [1, 64]", c.MaxConcurrentFetches)
	}
	if c.JitterFraction < 0 || c.JitterFraction > 0.5 {
		return fmt.Errorf("jitter fraction %.2f out of range [0, 0.5]", c.JitterFraction)
	}
	for name, d := range map[string]time.Duration{
		"backstop interval":           c.BackstopInterval,
		"source resync interval":      c.SourceResyncInterval,
		"discovery scan interval":     c.DiscoveryScanInterval,
		"discovery validate interval": c.DiscoveryValidateInterval,
		"shutdown drain timeout":      c.ShutdownDrainTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// LoadConfigFromEnv reads overrides from the environment. Unparsable
// values keep the default; the caller logs the final configuration.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v, err := strconv.Atoi(os.Getenv("SCHEDULER_MAX_CONCURRENT_FETCHES")); err == nil && v > 0 {
		cfg.MaxConcurrentFetches = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("SCHEDULER_JITTER_FRACTION"), 64); err == nil && v >= 0 {
		cfg.JitterFraction = v
	}
	cfg.BackstopInterval = envDuration("SCHEDULER_BACKSTOP_INTERVAL", cfg.BackstopInterval)
	cfg.BackstopMinAge = envDuration("SCHEDULER_BACKSTOP_MIN_AGE", cfg.BackstopMinAge)
	cfg.SourceResyncInterval = envDuration("SCHEDULER_SOURCE_RESYNC_INTERVAL", cfg.SourceResyncInterval)
	cfg.DiscoveryScanInterval = envDuration("DISCOVERY_SCAN_INTERVAL", cfg.DiscoveryScanInterval)
	cfg.DiscoveryValidateInterval = envDuration("DISCOVERY_VALIDATE_INTERVAL", cfg.DiscoveryValidateInterval)
	cfg.ShutdownDrainTimeout = envDuration("SCHEDULER_SHUTDOWN_DRAIN_TIMEOUT", cfg.ShutdownDrainTimeout)
	return cfg
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
