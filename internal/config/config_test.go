package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.TickInterval != 2*time.Second {
		t.Errorf("TickInterval = %v, want 2s", cfg.TickInterval)
	}
	if cfg.Epsilon != 0.1 {
		t.Errorf("Epsilon = %v, want 0.1", cfg.Epsilon)
	}
	if cfg.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", cfg.MaxConcurrent)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RL_EPSILON", "0.25")
	t.Setenv("TICK_INTERVAL_MS", "3000")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Epsilon != 0.25 {
		t.Errorf("Epsilon = %v, want 0.25", cfg.Epsilon)
	}
	if cfg.TickInterval != 3*time.Second {
		t.Errorf("TickInterval = %v, want 3s", cfg.TickInterval)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"epsilon out of range", "RL_EPSILON", "1.5"},
		{"tick too fast", "TICK_INTERVAL_MS", "100"},
		{"tick too slow", "TICK_INTERVAL_MS", "60000"},
		{"zero concurrency", "MAX_CONCURRENT_MESSAGES", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s expected error", tt.key, tt.value)
			}
		})
	}
}
