package gesture

import (
	"math"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero smoothing", func(c *Config) { c.SmoothingFactor = 0 }},
		{"smoothing above one", func(c *Config) { c.SmoothingFactor = 1.5 }},
		{"zero velocity smoothing", func(c *Config) { c.VelocitySmoothing = 0 }},
		{"negative velocity dead zone", func(c *Config) { c.VelocityDeadZoneDPS = -1 }},
		{"negative outlier delta", func(c *Config) { c.MaxSampleDeltaDeg = -1 }},
		{"dead zone at a right angle", func(c *Config) { c.DeadZoneDegrees = 90 }},
		{"zero tilt threshold", func(c *Config) { c.TiltThresholdFraction = 0 }},
		{"tilt threshold above one", func(c *Config) { c.TiltThresholdFraction = 1.1 }},
		{"negative state change delay", func(c *Config) { c.StateChangeDelay = -time.Millisecond }},
		{"zero movement threshold", func(c *Config) { c.MovementThresholdDPS = 0 }},
		{"consecutive threshold of one", func(c *Config) { c.ConsecutiveThreshold = 1 }},
		{"zero pattern window", func(c *Config) { c.PatternTimeWindow = 0 }},
		{"window count below forward minimum", func(c *Config) { c.PatternMaxStrokes = 2 }},
		{"forward minimum of one", func(c *Config) { c.MinStrokesForForward = 1 }},
		{"negative forward rate", func(c *Config) { c.ForwardRateThreshold = -1 }},
		{"negative left cooldown", func(c *Config) { c.LeftCooldown = -time.Millisecond }},
		{"negative right cooldown", func(c *Config) { c.RightCooldown = -time.Millisecond }},
		{"unknown calibration mode", func(c *Config) { c.CalibrationMode = "two_phase" }},
		{"single calibration sample", func(c *Config) { c.RequiredSampleCount = 1 }},
		{"zero hold duration", func(c *Config) { c.HoldDuration = 0 }},
		{"zero stability threshold", func(c *Config) { c.StabilityThresholdDPS = 0 }},
		{"recenter without timeout", func(c *Config) { c.IdleRecenter = true; c.IdleRecenterTimeout = 0 }},
		{"recenter without stillness gate", func(c *Config) { c.IdleRecenter = true; c.IdleThresholdDPS = 0 }},
		{"recenter rate above one", func(c *Config) { c.IdleRecenter = true; c.RecenterRate = 1.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() accepted %s", tc.name)
			}
		})
	}
}

func TestConfigRecenterFieldsIgnoredWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleRecenter = false
	cfg.IdleRecenterTimeout = 0
	cfg.RecenterRate = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v with recentering disabled", err)
	}
}

func TestConfigForwardRateThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinStrokesForForward = 3
	cfg.PatternTimeWindow = 1500 * time.Millisecond
	cfg.ForwardRateThreshold = 0

	// Derived: 3 strokes over 1.5s.
	if got := cfg.forwardRateThreshold(); math.Abs(got-2) > floatTol {
		t.Errorf("derived threshold = %v, want 2", got)
	}

	cfg.ForwardRateThreshold = 5
	if got := cfg.forwardRateThreshold(); got != 5 {
		t.Errorf("explicit threshold = %v, want 5", got)
	}
}

func TestConfigCooldownFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LeftCooldown = 100 * time.Millisecond
	cfg.RightCooldown = 200 * time.Millisecond

	if got := cfg.cooldownFor(SideLeft); got != 100*time.Millisecond {
		t.Errorf("cooldownFor(left) = %v, want 100ms", got)
	}
	if got := cfg.cooldownFor(SideRight); got != 200*time.Millisecond {
		t.Errorf("cooldownFor(right) = %v, want 200ms", got)
	}
}
