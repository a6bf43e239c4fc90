package gesture

import (
	"math"
	"time"

	"github.com/helmside/paddlesense/internal/units"
)

// Conditioner turns raw wand samples into smoothed angle/velocity pairs.
// It is a pure function of its inputs plus configuration; the engine owns
// the previous sample and the outlier tally.
type Conditioner struct {
	cfg Config
}

// NewConditioner returns a conditioner for the given tuning.
func NewConditioner(cfg Config) Conditioner {
	return Conditioner{cfg: cfg}
}

// Step advances the smoothed view by one raw sample. dt must be positive.
// The second return is true when the sample was rejected as an outlier; the
// previous smoothed value is returned unchanged in that case.
func (c Conditioner) Step(prev SmoothedSample, raw RawSample, dt time.Duration) (SmoothedSample, bool) {
	// All angle arithmetic runs on the normalized delta so smoothing takes
	// the short way around the ±180° wrap.
	delta := units.NormalizeDeg(raw.Angle - prev.Angle)

	// Single corrupted packets show up as impossible jumps. Reuse the
	// previous value rather than letting one bad packet swing the angle.
	if c.cfg.MaxSampleDeltaDeg > 0 && math.Abs(delta) > c.cfg.MaxSampleDeltaDeg {
		return prev, true
	}

	step := delta * c.cfg.SmoothingFactor
	next := SmoothedSample{
		Angle: units.NormalizeDeg(prev.Angle + step),
	}

	v := step / dt.Seconds()
	if f := c.cfg.VelocitySmoothing; f < 1 {
		v = units.Lerp(prev.Velocity, v, f)
	}
	if math.Abs(v) < c.cfg.VelocityDeadZoneDPS {
		v = 0
	}
	next.Velocity = v

	return next, false
}
