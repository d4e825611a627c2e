package config

import (
	"os"
	"strconv"

	"gofitdiag/internal/errors"
)

// Config represents the complete engine configuration
type Config struct {
	Bootstrap   BootstrapConfig
	Diagnostics DiagnosticsConfig
	Interval    IntervalConfig
}

// BootstrapConfig holds bootstrap ensemble settings
type BootstrapConfig struct {
	// Replicates is the default ensemble size when a request does not
	// choose one.
	Replicates int
	// Workers caps concurrent refits; 0 selects one per logical CPU.
	Workers int
}

// DiagnosticsConfig holds PIT and residual settings
type DiagnosticsConfig struct {
	// NSim is the Monte-Carlo sample count for simulation-estimated PITs.
	NSim int
}

// IntervalConfig holds profile-likelihood settings
type IntervalConfig struct {
	// PenaltyScale is the composite-parameter penalty bandwidth.
	PenaltyScale float64
	// MaxEval caps nuisance re-optimizations per profile side.
	MaxEval int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Bootstrap: BootstrapConfig{
			Replicates: getEnvIntOrDefault("BOOT_REPLICATES", 10000),
			Workers:    getEnvIntOrDefault("BOOT_WORKERS", 0),
		},
		Diagnostics: DiagnosticsConfig{
			NSim: getEnvIntOrDefault("PIT_NSIM", 10000),
		},
		Interval: IntervalConfig{
			PenaltyScale: getEnvFloatOrDefault("PROFILE_PENALTY_SCALE", 1e-3),
			MaxEval:      getEnvIntOrDefault("PROFILE_MAX_EVAL", 200),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Bootstrap.Replicates <= 0 {
		return errors.ConfigInvalid("BOOT_REPLICATES must be positive")
	}
	if config.Bootstrap.Workers < 0 {
		return errors.ConfigInvalid("BOOT_WORKERS must be non-negative")
	}
	if config.Diagnostics.NSim <= 0 {
		return errors.ConfigInvalid("PIT_NSIM must be positive")
	}
	if config.Interval.PenaltyScale <= 0 {
		return errors.ConfigInvalid("PROFILE_PENALTY_SCALE must be positive")
	}
	if config.Interval.MaxEval <= 0 {
		return errors.ConfigInvalid("PROFILE_MAX_EVAL must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
