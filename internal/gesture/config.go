package gesture

import (
	"fmt"
	"time"
)

// CalibrationMode selects how the calibrator learns the wand's reference
// angles.
type CalibrationMode string

const (
	// ModeThreePhase guides the operator through neutral, right, and left
	// holds and averages each phase. This is the default, higher-precision
	// mode.
	ModeThreePhase CalibrationMode = "three_phase"

	// ModeSinglePhase collects one unguided buffer while the operator
	// sweeps the wand between extremes, then derives the references from
	// the min/max/midpoint. Lower precision, kept as a fallback for wands
	// without a guided calibration UI.
	ModeSinglePhase CalibrationMode = "single_phase"
)

// Config holds every tunable of the gesture engine. Zero values are not
// meaningful; start from DefaultConfig and override.
type Config struct {
	// SmoothingFactor is the exponential low-pass strength applied to the
	// raw angle, in (0,1]. 1 disables smoothing.
	SmoothingFactor float64

	// VelocitySmoothing is a second low-pass applied to the derived
	// angular velocity, in (0,1]. 1 disables smoothing.
	VelocitySmoothing float64

	// VelocityDeadZoneDPS clamps velocity magnitudes below this value
	// (deg/s) to zero to suppress idle tremor.
	VelocityDeadZoneDPS float64

	// MaxSampleDeltaDeg discards a raw sample whose angle differs from the
	// previous smoothed angle by more than this many degrees, guarding
	// against single corrupted packets. 0 disables outlier rejection.
	MaxSampleDeltaDeg float64

	// DeadZoneDegrees is the calibrated-angle band around neutral treated
	// as no input; inside it the classifier reverts toward Idle.
	DeadZoneDegrees float64

	// TiltThresholdFraction is the fraction of the calibrated span toward
	// a side that the angle must cross to enter that Tilt state. Using a
	// fraction rather than the raw extreme spares the operator from
	// reaching the exact calibrated extremum on every stroke.
	TiltThresholdFraction float64

	// StateChangeDelay is the minimum time a candidate state must persist
	// before the classifier commits the transition.
	StateChangeDelay time.Duration

	// MovementThresholdDPS scales the Idle confidence: confidence falls to
	// zero as velocity approaches this value (deg/s).
	MovementThresholdDPS float64

	// ConsecutiveThreshold is the same-side run length that declares a
	// turn rhythm.
	ConsecutiveThreshold int

	// PatternTimeWindow is the rhythm lookback horizon; strokes older than
	// this are pruned from the pattern window.
	PatternTimeWindow time.Duration

	// PatternMaxStrokes bounds the pattern window by count as well as age.
	PatternMaxStrokes int

	// MinStrokesForForward is the minimum stroke count in the window to
	// declare an alternating (forward paddling) rhythm.
	MinStrokesForForward int

	// ForwardRateThreshold is the stroke rate (strokes/s) at which forward
	// confidence saturates. 0 derives it from MinStrokesForForward over
	// PatternTimeWindow.
	ForwardRateThreshold float64

	// LeftCooldown and RightCooldown rate-limit emitted stroke events per
	// direction.
	LeftCooldown  time.Duration
	RightCooldown time.Duration

	// CalibrationMode selects three-phase or single-phase collection.
	CalibrationMode CalibrationMode

	// RequiredSampleCount is the target number of samples per calibration
	// phase. A phase ends early once it is reached; completion requires at
	// least half of it in every phase.
	RequiredSampleCount int

	// HoldDuration is the nominal length of one calibration hold. A phase
	// times out after twice this duration.
	HoldDuration time.Duration

	// StabilityThresholdDPS gates calibration collection: guided phases
	// accept samples only while |velocity| is below this value (deg/s).
	StabilityThresholdDPS float64

	// IdleRecenter enables the slow drift compensation that nudges the
	// effective neutral toward the current angle after a long still idle.
	IdleRecenter bool

	// IdleRecenterTimeout is how long the classifier must sit in Idle,
	// below IdleThresholdDPS, before recentering starts.
	IdleRecenterTimeout time.Duration

	// IdleThresholdDPS is the stillness gate for recentering (deg/s).
	IdleThresholdDPS float64

	// RecenterRate is the per-tick exponential rate at which the neutral
	// bias chases the current angle while recentering.
	RecenterRate float64
}

// DefaultConfig returns the tuning used on the stock wand at its 50 Hz
// sample rate.
func DefaultConfig() Config {
	return Config{
		SmoothingFactor:       0.35,
		VelocitySmoothing:     0.5,
		VelocityDeadZoneDPS:   3,
		MaxSampleDeltaDeg:     60,
		DeadZoneDegrees:       8,
		TiltThresholdFraction: 0.7,
		StateChangeDelay:      250 * time.Millisecond,
		MovementThresholdDPS:  60,
		ConsecutiveThreshold:  3,
		PatternTimeWindow:     1500 * time.Millisecond,
		PatternMaxStrokes:     16,
		MinStrokesForForward:  3,
		ForwardRateThreshold:  0,
		LeftCooldown:          300 * time.Millisecond,
		RightCooldown:         300 * time.Millisecond,
		CalibrationMode:       ModeThreePhase,
		RequiredSampleCount:   30,
		HoldDuration:          1500 * time.Millisecond,
		StabilityThresholdDPS: 15,
		IdleRecenter:          false,
		IdleRecenterTimeout:   5 * time.Second,
		IdleThresholdDPS:      5,
		RecenterRate:          0.02,
	}
}

// Validate checks configuration ranges.
func (c Config) Validate() error {
	if c.SmoothingFactor <= 0 || c.SmoothingFactor > 1 {
		return fmt.Errorf("smoothing_factor must be in (0,1], got %v", c.SmoothingFactor)
	}
	if c.VelocitySmoothing <= 0 || c.VelocitySmoothing > 1 {
		return fmt.Errorf("velocity_smoothing must be in (0,1], got %v", c.VelocitySmoothing)
	}
	if c.VelocityDeadZoneDPS < 0 {
		return fmt.Errorf("velocity_dead_zone_dps must be >= 0, got %v", c.VelocityDeadZoneDPS)
	}
	if c.MaxSampleDeltaDeg < 0 {
		return fmt.Errorf("max_sample_delta_degrees must be >= 0, got %v", c.MaxSampleDeltaDeg)
	}
	if c.DeadZoneDegrees < 0 || c.DeadZoneDegrees >= 90 {
		return fmt.Errorf("dead_zone_degrees must be in [0,90), got %v", c.DeadZoneDegrees)
	}
	if c.TiltThresholdFraction <= 0 || c.TiltThresholdFraction > 1 {
		return fmt.Errorf("tilt_threshold_fraction must be in (0,1], got %v", c.TiltThresholdFraction)
	}
	if c.StateChangeDelay < 0 {
		return fmt.Errorf("state_change_delay must be >= 0, got %v", c.StateChangeDelay)
	}
	if c.MovementThresholdDPS <= 0 {
		return fmt.Errorf("movement_threshold_dps must be > 0, got %v", c.MovementThresholdDPS)
	}
	if c.ConsecutiveThreshold < 2 {
		return fmt.Errorf("consecutive_threshold must be >= 2, got %d", c.ConsecutiveThreshold)
	}
	if c.PatternTimeWindow <= 0 {
		return fmt.Errorf("pattern_time_window must be > 0, got %v", c.PatternTimeWindow)
	}
	if c.PatternMaxStrokes < c.MinStrokesForForward {
		return fmt.Errorf("pattern_max_strokes (%d) must be >= min_strokes_for_forward (%d)",
			c.PatternMaxStrokes, c.MinStrokesForForward)
	}
	if c.MinStrokesForForward < 2 {
		return fmt.Errorf("min_strokes_for_forward must be >= 2, got %d", c.MinStrokesForForward)
	}
	if c.ForwardRateThreshold < 0 {
		return fmt.Errorf("forward_rate_threshold must be >= 0, got %v", c.ForwardRateThreshold)
	}
	if c.LeftCooldown < 0 || c.RightCooldown < 0 {
		return fmt.Errorf("cooldowns must be >= 0, got left %v right %v", c.LeftCooldown, c.RightCooldown)
	}
	switch c.CalibrationMode {
	case ModeThreePhase, ModeSinglePhase:
	default:
		return fmt.Errorf("calibration_mode must be %q or %q, got %q",
			ModeThreePhase, ModeSinglePhase, c.CalibrationMode)
	}
	if c.RequiredSampleCount < 2 {
		return fmt.Errorf("required_sample_count must be >= 2, got %d", c.RequiredSampleCount)
	}
	if c.HoldDuration <= 0 {
		return fmt.Errorf("hold_duration must be > 0, got %v", c.HoldDuration)
	}
	if c.StabilityThresholdDPS <= 0 {
		return fmt.Errorf("stability_threshold must be > 0, got %v", c.StabilityThresholdDPS)
	}
	if c.IdleRecenter {
		if c.IdleRecenterTimeout <= 0 {
			return fmt.Errorf("idle_recenter_timeout must be > 0, got %v", c.IdleRecenterTimeout)
		}
		if c.IdleThresholdDPS <= 0 {
			return fmt.Errorf("idle_threshold_dps must be > 0, got %v", c.IdleThresholdDPS)
		}
		if c.RecenterRate <= 0 || c.RecenterRate > 1 {
			return fmt.Errorf("recenter_rate must be in (0,1], got %v", c.RecenterRate)
		}
	}
	return nil
}

// forwardRateThreshold resolves the configured or derived saturation rate
// for forward confidence.
func (c Config) forwardRateThreshold() float64 {
	if c.ForwardRateThreshold > 0 {
		return c.ForwardRateThreshold
	}
	return float64(c.MinStrokesForForward) / c.PatternTimeWindow.Seconds()
}

// cooldownFor returns the configured cooldown for one side.
func (c Config) cooldownFor(side Side) time.Duration {
	if side == SideLeft {
		return c.LeftCooldown
	}
	return c.RightCooldown
}
