package gesture

import (
	"math"
	"time"

	"github.com/helmside/paddlesense/internal/units"
)

// State is the classifier's discrete gesture state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateCalibrating  State = "calibrating"
	StateIdle         State = "idle"
	StateTiltLeft     State = "tilt_left"
	StateTiltRight    State = "tilt_right"
	StateSwingForward State = "swing_forward"
)

// StrokeSide returns the paddle side a tilt state acts on, and whether the
// state is a tilt at all.
func (s State) StrokeSide() (Side, bool) {
	switch s {
	case StateTiltLeft:
		return SideLeft, true
	case StateTiltRight:
		return SideRight, true
	}
	return "", false
}

// Classifier is the gesture state machine:
//
//	Disconnected → Calibrating → Idle ⇄ {TiltLeft, TiltRight, SwingForward}
//
// Candidate states are computed on every tick from the calibrated angle,
// velocity, and the detected rhythm. A candidate differing from the current
// state must persist for StateChangeDelay before it is committed; this dwell
// also guarantees committed changes are at least StateChangeDelay apart.
// Disconnect and calibration entry are forced transitions that bypass the
// dwell.
type Classifier struct {
	cfg Config

	state      State
	confidence float64
	enteredAt  time.Time

	candidate      State
	candidateSince time.Time
}

// NewClassifier returns a classifier in Disconnected; the transport reports
// the first link-up.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{
		cfg:        cfg,
		state:      StateDisconnected,
		confidence: 1,
	}
}

// State returns the current committed state.
func (c *Classifier) State() State { return c.state }

// Confidence returns the [0,1] strength estimate for the current state,
// refreshed every Evaluate.
func (c *Classifier) Confidence() float64 { return c.confidence }

// EnteredAt returns when the current state was committed.
func (c *Classifier) EnteredAt() time.Time { return c.enteredAt }

// Force commits a transition immediately, bypassing the dwell. Used for
// Disconnected, Calibrating, and the resume to Idle; returns false when
// already in the requested state.
func (c *Classifier) Force(now time.Time, s State) bool {
	c.candidate = ""
	if c.state == s {
		return false
	}
	c.state = s
	c.confidence = 1
	c.enteredAt = now
	return true
}

// Evaluate advances the state machine one tick. calibrated is the
// zero-centered angle, rhythm/strokeRate come from the pattern detector, and
// profile supplies the reference spans. Returns whether a transition was
// committed and the state it left.
func (c *Classifier) Evaluate(now time.Time, calibrated, velocity float64, rhythm Rhythm, strokeRate float64, profile CalibrationProfile) (bool, State) {
	cand := c.candidateState(calibrated, rhythm, profile)

	if cand == c.state {
		// Candidate agrees with the committed state; drop any pending
		// change and refresh confidence in place.
		c.candidate = ""
		c.confidence = c.computeConfidence(c.state, calibrated, velocity, strokeRate, profile)
		return false, c.state
	}

	if c.candidate != cand {
		c.candidate = cand
		c.candidateSince = now
	}
	if now.Sub(c.candidateSince) < c.cfg.StateChangeDelay {
		c.confidence = c.computeConfidence(c.state, calibrated, velocity, strokeRate, profile)
		return false, c.state
	}

	from := c.state
	c.state = cand
	c.candidate = ""
	c.enteredAt = now
	c.confidence = c.computeConfidence(cand, calibrated, velocity, strokeRate, profile)
	return true, from
}

// candidateState applies the threshold rules. An alternating rhythm
// overrides a concurrent tilt; the dead zone forces Idle; crossing the
// fractional span toward a side selects that tilt. Between the dead zone and
// the tilt threshold the current state is retained, so a committed tilt
// holds until the wand returns through center.
func (c *Classifier) candidateState(calibrated float64, rhythm Rhythm, profile CalibrationProfile) State {
	switch {
	case rhythm == RhythmAlternating:
		return StateSwingForward
	case math.Abs(calibrated) < c.cfg.DeadZoneDegrees:
		return StateIdle
	case c.towardSide(calibrated, SideRight, profile):
		return StateTiltRight
	case c.towardSide(calibrated, SideLeft, profile):
		return StateTiltLeft
	default:
		return c.state
	}
}

// towardSide reports whether the calibrated angle has crossed the fractional
// threshold toward the given side. Progress is measured against the signed
// span so inverted mounts work unchanged.
func (c *Classifier) towardSide(calibrated float64, side Side, profile CalibrationProfile) bool {
	span := profile.SpanToward(side)
	if span == 0 {
		return false
	}
	return calibrated/span >= c.cfg.TiltThresholdFraction
}

func (c *Classifier) computeConfidence(state State, calibrated, velocity, strokeRate float64, profile CalibrationProfile) float64 {
	switch state {
	case StateTiltLeft:
		return spanConfidence(calibrated, profile.SpanToward(SideLeft))
	case StateTiltRight:
		return spanConfidence(calibrated, profile.SpanToward(SideRight))
	case StateSwingForward:
		return units.Clamp01(strokeRate / c.cfg.forwardRateThreshold())
	case StateIdle:
		return 1 - units.Clamp01(math.Abs(velocity)/c.cfg.MovementThresholdDPS)
	default:
		return 1
	}
}

// spanConfidence is how far along the reference span the angle sits.
func spanConfidence(calibrated, span float64) float64 {
	if span == 0 {
		return 0
	}
	return units.Clamp01(math.Abs(calibrated) / math.Abs(span))
}
