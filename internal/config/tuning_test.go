package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/helmside/paddlesense/internal/gesture"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestEmptyTuningConfigYieldsDefaults(t *testing.T) {
	cfg, err := EmptyTuningConfig().EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig failed: %v", err)
	}
	if cfg != gesture.DefaultConfig() {
		t.Errorf("empty tuning diverged from defaults: %+v", cfg)
	}
}

func TestLoadTuningConfigPartialOverride(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{
		"smoothing_factor": 0.5,
		"state_change_delay": "400ms",
		"consecutive_threshold": 4,
		"calibration_mode": "single_phase",
		"liveness_timeout": "5s",
		"serial": {"baud_rate": 57600}
	}`)

	tc, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	cfg, err := tc.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig failed: %v", err)
	}
	if cfg.SmoothingFactor != 0.5 {
		t.Errorf("SmoothingFactor = %v, want 0.5", cfg.SmoothingFactor)
	}
	if cfg.StateChangeDelay != 400*time.Millisecond {
		t.Errorf("StateChangeDelay = %v, want 400ms", cfg.StateChangeDelay)
	}
	if cfg.ConsecutiveThreshold != 4 {
		t.Errorf("ConsecutiveThreshold = %d, want 4", cfg.ConsecutiveThreshold)
	}
	if cfg.CalibrationMode != gesture.ModeSinglePhase {
		t.Errorf("CalibrationMode = %q, want single_phase", cfg.CalibrationMode)
	}

	// Untouched fields keep their defaults.
	def := gesture.DefaultConfig()
	if cfg.PatternTimeWindow != def.PatternTimeWindow {
		t.Errorf("PatternTimeWindow = %v, want default %v", cfg.PatternTimeWindow, def.PatternTimeWindow)
	}

	if got := tc.GetLivenessTimeout(); got != 5*time.Second {
		t.Errorf("GetLivenessTimeout = %v, want 5s", got)
	}
	if got := tc.GetSerialOptions().BaudRate; got != 57600 {
		t.Errorf("serial baud = %d, want 57600", got)
	}
}

func TestLoadTuningConfigRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"wrong extension", "tuning.yaml", `{}`},
		{"bad json", "tuning.json", `{not json`},
		{"bad duration", "tuning.json", `{"state_change_delay": "fast"}`},
		{"bad mode", "tuning.json", `{"calibration_mode": "five_phase"}`},
		{"bad range", "tuning.json", `{"smoothing_factor": 2.0}`},
		{"bad serial", "tuning.json", `{"serial": {"data_bits": 3}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.content)
			if _, err := LoadTuningConfig(path); err == nil {
				t.Errorf("LoadTuningConfig accepted %s", tt.name)
			}
		})
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("LoadTuningConfig should fail for a missing file")
	}
}

func TestGetLivenessTimeoutDefault(t *testing.T) {
	if got := EmptyTuningConfig().GetLivenessTimeout(); got != 2*time.Second {
		t.Errorf("default liveness timeout = %v, want 2s", got)
	}
}
