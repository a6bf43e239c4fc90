package gesture

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Side identifies which side of the craft a stroke acts on.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// RawSample is one orientation/acceleration reading from the wand, as
// delivered by the transport layer. Samples arrive at irregular intervals
// and are immutable once created.
type RawSample struct {
	// Timestamp is monotonic across the stream. Out-of-order samples are
	// dropped by the engine.
	Timestamp time.Time

	// Angle is the primary paddle axis (roll), in degrees.
	Angle float64

	// Pitch and Yaw are optional secondary axes in degrees; zero when the
	// wand does not report them.
	Pitch float64
	Yaw   float64

	// Accel is an optional acceleration magnitude in g; zero when not
	// reported.
	Accel float64
}

// ErrMalformedSample reports a sample carrying non-finite values.
var ErrMalformedSample = errors.New("malformed sample")

// Validate rejects samples with non-finite fields. The engine drops these
// and tallies them rather than letting NaN poison the smoothing chain.
func (s RawSample) Validate() error {
	for _, v := range [...]float64{s.Angle, s.Pitch, s.Yaw, s.Accel} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value %v", ErrMalformedSample, v)
		}
	}
	return nil
}

// SmoothedSample is the conditioned view of the stream at one instant:
// low-passed angle plus derived angular velocity. It has no lifecycle of its
// own; each tick recomputes it from the previous value and the new raw
// sample.
type SmoothedSample struct {
	Angle    float64 // degrees
	Velocity float64 // degrees per second
}

// StrokeEvent is one discrete classified stroke, recorded in the pattern
// window until it ages out.
type StrokeEvent struct {
	Side      Side
	Timestamp time.Time
	Intensity float64 // [0,1]
}
