package config

import (
	"testing"

	"gofitdiag/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	if cfg.Bootstrap.Replicates != 10000 {
		t.Errorf("default replicates = %d, want 10000", cfg.Bootstrap.Replicates)
	}
	if cfg.Diagnostics.NSim != 10000 {
		t.Errorf("default nsim = %d, want 10000", cfg.Diagnostics.NSim)
	}
	if cfg.Interval.PenaltyScale != 1e-3 {
		t.Errorf("default penalty scale = %g, want 1e-3", cfg.Interval.PenaltyScale)
	}
	if cfg.Interval.MaxEval != 200 {
		t.Errorf("default max eval = %d, want 200", cfg.Interval.MaxEval)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BOOT_REPLICATES", "500")
	t.Setenv("BOOT_WORKERS", "4")
	t.Setenv("PIT_NSIM", "2000")
	t.Setenv("PROFILE_PENALTY_SCALE", "0.01")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Bootstrap.Replicates != 500 || cfg.Bootstrap.Workers != 4 {
		t.Errorf("bootstrap config = %+v", cfg.Bootstrap)
	}
	if cfg.Diagnostics.NSim != 2000 {
		t.Errorf("nsim = %d, want 2000", cfg.Diagnostics.NSim)
	}
	if cfg.Interval.PenaltyScale != 0.01 {
		t.Errorf("penalty scale = %g, want 0.01", cfg.Interval.PenaltyScale)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PIT_NSIM", "-5")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if errors.GetCode(err) != errors.CodeConfigInvalid {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.CodeConfigInvalid)
	}
}

func TestMalformedEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("BOOT_REPLICATES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Bootstrap.Replicates != 10000 {
		t.Errorf("replicates = %d, want the default", cfg.Bootstrap.Replicates)
	}
}
