package gesture

import (
	"math"
	"time"
)

// DriftCompensator implements the optional idle re-centering policy. After
// the classifier has sat in Idle for longer than IdleRecenterTimeout with
// velocity below IdleThresholdDPS, the effective neutral is nudged toward
// the current angle by RecenterRate per tick.
//
// The nudge accumulates in a bias applied on top of the calibration profile
// rather than rewriting it: the profile stays frozen as calibrated, and
// ResetCalibration clears the bias along with it.
type DriftCompensator struct {
	cfg Config

	bias      float64
	idleSince time.Time
	tracking  bool
}

// NewDriftCompensator returns a compensator with zero bias.
func NewDriftCompensator(cfg Config) *DriftCompensator {
	return &DriftCompensator{cfg: cfg}
}

// Bias returns the accumulated neutral offset in degrees.
func (d *DriftCompensator) Bias() float64 { return d.bias }

// Observe advances the policy one tick. calibrated is the bias-adjusted
// angle; a nudge moves the bias so the same wand position reads closer to
// zero on the next tick. Returns true when a nudge was applied.
func (d *DriftCompensator) Observe(now time.Time, state State, calibrated, velocity float64) bool {
	if !d.cfg.IdleRecenter {
		return false
	}

	still := state == StateIdle && math.Abs(velocity) < d.cfg.IdleThresholdDPS
	if !still {
		d.tracking = false
		return false
	}

	if !d.tracking {
		d.tracking = true
		d.idleSince = now
		return false
	}
	if now.Sub(d.idleSince) < d.cfg.IdleRecenterTimeout {
		return false
	}

	d.bias += d.cfg.RecenterRate * calibrated
	return true
}

// Reset zeroes the bias and the idle tracking, for calibration resets.
func (d *DriftCompensator) Reset() {
	d.bias = 0
	d.tracking = false
}
