// Package config loads the service's JSON tuning file. Fields are pointers:
// anything absent from the file keeps the engine default, so partial configs
// are safe and the same JSON shape is served back on /api/config.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/wandmux"
)

// TuningConfig is the root configuration for the gesture engine and the
// wand serial link. Duration fields are Go duration strings ("250ms").
type TuningConfig struct {
	// Signal conditioner params
	SmoothingFactor     *float64 `json:"smoothing_factor,omitempty"`
	VelocitySmoothing   *float64 `json:"velocity_smoothing,omitempty"`
	VelocityDeadZoneDPS *float64 `json:"velocity_dead_zone_dps,omitempty"`
	MaxSampleDeltaDeg   *float64 `json:"max_sample_delta_degrees,omitempty"`

	// Classifier params
	DeadZoneDegrees       *float64 `json:"dead_zone_degrees,omitempty"`
	TiltThresholdFraction *float64 `json:"tilt_threshold_fraction,omitempty"`
	StateChangeDelay      *string  `json:"state_change_delay,omitempty"`
	MovementThresholdDPS  *float64 `json:"movement_threshold_dps,omitempty"`

	// Rhythm params
	ConsecutiveThreshold *int     `json:"consecutive_threshold,omitempty"`
	PatternTimeWindow    *string  `json:"pattern_time_window,omitempty"`
	PatternMaxStrokes    *int     `json:"pattern_max_strokes,omitempty"`
	MinStrokesForForward *int     `json:"min_strokes_for_forward,omitempty"`
	ForwardRateThreshold *float64 `json:"forward_rate_threshold,omitempty"`

	// Debounce params
	LeftCooldown  *string `json:"left_cooldown,omitempty"`
	RightCooldown *string `json:"right_cooldown,omitempty"`

	// Calibration params
	CalibrationMode       *string  `json:"calibration_mode,omitempty"`
	RequiredSampleCount   *int     `json:"required_sample_count,omitempty"`
	HoldDuration          *string  `json:"hold_duration,omitempty"`
	StabilityThresholdDPS *float64 `json:"stability_threshold,omitempty"`

	// Idle recenter params (optional drift compensation)
	IdleRecenter        *bool    `json:"idle_recenter,omitempty"`
	IdleRecenterTimeout *string  `json:"idle_recenter_timeout,omitempty"`
	IdleThresholdDPS    *float64 `json:"idle_threshold_dps,omitempty"`
	RecenterRate        *float64 `json:"recenter_rate,omitempty"`

	// Service params
	LivenessTimeout *string              `json:"liveness_timeout,omitempty"`
	Serial          *wandmux.PortOptions `json:"serial,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset; every
// accessor then falls through to the engine defaults.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and be under the max file size; omitted fields retain
// their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the file-level constraints: parseable durations, a known
// calibration mode, and normalizable serial options. Range checks on the
// numeric values happen in gesture.Config.Validate via EngineConfig.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*string{
		"state_change_delay":    c.StateChangeDelay,
		"pattern_time_window":   c.PatternTimeWindow,
		"left_cooldown":         c.LeftCooldown,
		"right_cooldown":        c.RightCooldown,
		"hold_duration":         c.HoldDuration,
		"idle_recenter_timeout": c.IdleRecenterTimeout,
		"liveness_timeout":      c.LivenessTimeout,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, *v, err)
			}
		}
	}

	if c.CalibrationMode != nil {
		switch gesture.CalibrationMode(*c.CalibrationMode) {
		case gesture.ModeThreePhase, gesture.ModeSinglePhase:
		default:
			return fmt.Errorf("calibration_mode must be %q or %q, got %q",
				gesture.ModeThreePhase, gesture.ModeSinglePhase, *c.CalibrationMode)
		}
	}

	if c.Serial != nil {
		if _, err := c.Serial.Normalize(); err != nil {
			return fmt.Errorf("invalid serial options: %w", err)
		}
	}

	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	return nil
}

// duration parses an optional duration field, falling back to def on absence
// or parse error.
func duration(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

// GetLivenessTimeout returns how long the link may be silent before the
// engine is forced Disconnected.
func (c *TuningConfig) GetLivenessTimeout() time.Duration {
	return duration(c.LivenessTimeout, 2*time.Second)
}

// GetSerialOptions returns the serial port options or the wand defaults.
func (c *TuningConfig) GetSerialOptions() wandmux.PortOptions {
	if c.Serial == nil {
		return wandmux.PortOptions{}
	}
	return *c.Serial
}

// EngineConfig produces the core engine tuning: the defaults overlaid with
// whatever the file set, validated as a whole.
func (c *TuningConfig) EngineConfig() (gesture.Config, error) {
	cfg := gesture.DefaultConfig()

	if c.SmoothingFactor != nil {
		cfg.SmoothingFactor = *c.SmoothingFactor
	}
	if c.VelocitySmoothing != nil {
		cfg.VelocitySmoothing = *c.VelocitySmoothing
	}
	if c.VelocityDeadZoneDPS != nil {
		cfg.VelocityDeadZoneDPS = *c.VelocityDeadZoneDPS
	}
	if c.MaxSampleDeltaDeg != nil {
		cfg.MaxSampleDeltaDeg = *c.MaxSampleDeltaDeg
	}
	if c.DeadZoneDegrees != nil {
		cfg.DeadZoneDegrees = *c.DeadZoneDegrees
	}
	if c.TiltThresholdFraction != nil {
		cfg.TiltThresholdFraction = *c.TiltThresholdFraction
	}
	cfg.StateChangeDelay = duration(c.StateChangeDelay, cfg.StateChangeDelay)
	if c.MovementThresholdDPS != nil {
		cfg.MovementThresholdDPS = *c.MovementThresholdDPS
	}
	if c.ConsecutiveThreshold != nil {
		cfg.ConsecutiveThreshold = *c.ConsecutiveThreshold
	}
	cfg.PatternTimeWindow = duration(c.PatternTimeWindow, cfg.PatternTimeWindow)
	if c.PatternMaxStrokes != nil {
		cfg.PatternMaxStrokes = *c.PatternMaxStrokes
	}
	if c.MinStrokesForForward != nil {
		cfg.MinStrokesForForward = *c.MinStrokesForForward
	}
	if c.ForwardRateThreshold != nil {
		cfg.ForwardRateThreshold = *c.ForwardRateThreshold
	}
	cfg.LeftCooldown = duration(c.LeftCooldown, cfg.LeftCooldown)
	cfg.RightCooldown = duration(c.RightCooldown, cfg.RightCooldown)
	if c.CalibrationMode != nil {
		cfg.CalibrationMode = gesture.CalibrationMode(*c.CalibrationMode)
	}
	if c.RequiredSampleCount != nil {
		cfg.RequiredSampleCount = *c.RequiredSampleCount
	}
	cfg.HoldDuration = duration(c.HoldDuration, cfg.HoldDuration)
	if c.StabilityThresholdDPS != nil {
		cfg.StabilityThresholdDPS = *c.StabilityThresholdDPS
	}
	if c.IdleRecenter != nil {
		cfg.IdleRecenter = *c.IdleRecenter
	}
	cfg.IdleRecenterTimeout = duration(c.IdleRecenterTimeout, cfg.IdleRecenterTimeout)
	if c.IdleThresholdDPS != nil {
		cfg.IdleThresholdDPS = *c.IdleThresholdDPS
	}
	if c.RecenterRate != nil {
		cfg.RecenterRate = *c.RecenterRate
	}

	if err := cfg.Validate(); err != nil {
		return gesture.Config{}, err
	}
	return cfg, nil
}
