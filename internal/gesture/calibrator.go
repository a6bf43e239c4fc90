package gesture

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/helmside/paddlesense/internal/units"
)

// CalibrationPhase names one collection step of a calibration run.
type CalibrationPhase string

const (
	PhaseNeutral CalibrationPhase = "neutral"
	PhaseRight   CalibrationPhase = "right"
	PhaseLeft    CalibrationPhase = "left"

	// PhaseSweep is the single unguided phase of ModeSinglePhase: the
	// operator sweeps the wand between extremes once.
	PhaseSweep CalibrationPhase = "sweep"
)

// CalibrationState is the calibrator's lifecycle state.
type CalibrationState string

const (
	CalIdle       CalibrationState = "idle"
	CalCollecting CalibrationState = "collecting"
	CalComplete   CalibrationState = "complete"
	CalFailed     CalibrationState = "failed"
)

// minSpanDeg rejects profiles whose reference span is too small to divide
// a tilt threshold out of. A wand that never left neutral during calibration
// produces one of these.
const minSpanDeg = 1.0

// CalibrationProfile is the per-session mapping from raw wand angle to a
// zero-centered calibrated angle. It is populated by a calibration run and
// then frozen until Reset; consumers must check Complete before use.
type CalibrationProfile struct {
	NeutralAngle float64 `json:"neutral_angle"`
	LeftAngle    float64 `json:"left_angle"`
	RightAngle   float64 `json:"right_angle"`

	// SampleCounts and Spread record, per phase, how many samples were
	// accepted and their standard deviation — diagnostics for judging
	// calibration quality.
	SampleCounts map[CalibrationPhase]int     `json:"sample_counts,omitempty"`
	Spread       map[CalibrationPhase]float64 `json:"spread,omitempty"`

	Complete bool `json:"complete"`
}

// Apply maps a raw angle into calibrated space: zero-centered on neutral and
// wrapped to [-180, 180).
func (p CalibrationProfile) Apply(rawAngle float64) float64 {
	return units.NormalizeDeg(rawAngle - p.NeutralAngle)
}

// SpanToward returns the signed calibrated distance from neutral to the
// given side's reference extreme.
func (p CalibrationProfile) SpanToward(side Side) float64 {
	if side == SideLeft {
		return units.NormalizeDeg(p.LeftAngle - p.NeutralAngle)
	}
	return units.NormalizeDeg(p.RightAngle - p.NeutralAngle)
}

// clone deep-copies the profile so callers cannot mutate the frozen maps.
func (p CalibrationProfile) clone() CalibrationProfile {
	out := p
	if p.SampleCounts != nil {
		out.SampleCounts = make(map[CalibrationPhase]int, len(p.SampleCounts))
		for k, v := range p.SampleCounts {
			out.SampleCounts[k] = v
		}
	}
	if p.Spread != nil {
		out.Spread = make(map[CalibrationPhase]float64, len(p.Spread))
		for k, v := range p.Spread {
			out.Spread[k] = v
		}
	}
	return out
}

// CalibrationUpdate reports what one Observe or Tick call did, so the engine
// can translate acceptance into progress events and termination into a
// result event.
type CalibrationUpdate struct {
	Accepted  bool
	Phase     CalibrationPhase
	Collected int
	Required  int
	Finished  bool
}

// Calibrator learns a wand's reference angles from stable sample runs. It is
// explicit resumable state advanced by Observe/Tick; nothing blocks, and
// Reset is always legal.
type Calibrator struct {
	cfg Config

	state      CalibrationState
	phases     []CalibrationPhase
	phaseIdx   int
	phaseStart time.Time
	buffers    map[CalibrationPhase][]float64

	profile    CalibrationProfile
	failReason string
}

// NewCalibrator returns an idle calibrator for the given tuning.
func NewCalibrator(cfg Config) *Calibrator {
	return &Calibrator{
		cfg:   cfg,
		state: CalIdle,
	}
}

// State returns the lifecycle state.
func (c *Calibrator) State() CalibrationState { return c.state }

// Collecting reports whether a run is in progress.
func (c *Calibrator) Collecting() bool { return c.state == CalCollecting }

// Phase returns the phase currently collecting, or "" outside a run.
func (c *Calibrator) Phase() CalibrationPhase {
	if c.state != CalCollecting {
		return ""
	}
	return c.phases[c.phaseIdx]
}

// Profile returns a copy of the current profile. Complete is false until a
// run succeeds.
func (c *Calibrator) Profile() CalibrationProfile { return c.profile.clone() }

// FailReason returns the shortfall description after a failed run.
func (c *Calibrator) FailReason() string { return c.failReason }

// Start resets all phase buffers and enters the first collection phase.
// Restarting during a run is legal and begins over.
func (c *Calibrator) Start(now time.Time) {
	switch c.cfg.CalibrationMode {
	case ModeSinglePhase:
		c.phases = []CalibrationPhase{PhaseSweep}
	default:
		c.phases = []CalibrationPhase{PhaseNeutral, PhaseRight, PhaseLeft}
	}
	c.buffers = make(map[CalibrationPhase][]float64, len(c.phases))
	c.phaseIdx = 0
	c.phaseStart = now
	c.state = CalCollecting
	c.profile = CalibrationProfile{}
	c.failReason = ""
}

// Reset discards the profile and returns to Idle. It has no failure mode.
func (c *Calibrator) Reset() {
	c.state = CalIdle
	c.phases = nil
	c.buffers = nil
	c.phaseIdx = 0
	c.profile = CalibrationProfile{}
	c.failReason = ""
}

// Observe feeds one conditioned sample into the active phase. Guided phases
// accept it only while the wand is held still; the sweep phase accepts
// regardless, since the operator is told to move. Returns what happened so
// the engine can emit progress/result events.
func (c *Calibrator) Observe(now time.Time, s SmoothedSample) CalibrationUpdate {
	if c.state != CalCollecting {
		return CalibrationUpdate{}
	}

	phase := c.phases[c.phaseIdx]
	upd := CalibrationUpdate{
		Phase:    phase,
		Required: c.cfg.RequiredSampleCount,
	}

	stable := math.Abs(s.Velocity) < c.cfg.StabilityThresholdDPS
	if phase == PhaseSweep {
		stable = true
	}

	deadline := c.phaseStart.Add(2 * c.cfg.HoldDuration)
	if stable && now.Before(deadline) && len(c.buffers[phase]) < c.cfg.RequiredSampleCount {
		c.buffers[phase] = append(c.buffers[phase], s.Angle)
		upd.Accepted = true
	}
	upd.Collected = len(c.buffers[phase])

	c.advance(now, &upd)
	return upd
}

// Tick advances phase deadlines without a new sample, so a run still
// terminates if the wand goes quiet mid-calibration.
func (c *Calibrator) Tick(now time.Time) CalibrationUpdate {
	if c.state != CalCollecting {
		return CalibrationUpdate{}
	}
	phase := c.phases[c.phaseIdx]
	upd := CalibrationUpdate{
		Phase:     phase,
		Collected: len(c.buffers[phase]),
		Required:  c.cfg.RequiredSampleCount,
	}
	c.advance(now, &upd)
	return upd
}

// advance moves to the next phase when the current one has enough samples or
// has timed out, finishing the run after the last phase.
func (c *Calibrator) advance(now time.Time, upd *CalibrationUpdate) {
	phase := c.phases[c.phaseIdx]
	deadline := c.phaseStart.Add(2 * c.cfg.HoldDuration)

	done := len(c.buffers[phase]) >= c.cfg.RequiredSampleCount || !now.Before(deadline)
	if !done {
		return
	}

	c.phaseIdx++
	if c.phaseIdx < len(c.phases) {
		c.phaseStart = now
		return
	}

	c.finish()
	upd.Finished = true
}

// finish computes the profile from the phase buffers, or fails with the
// shortfall named.
func (c *Calibrator) finish() {
	var short []string
	for _, phase := range c.phases {
		if len(c.buffers[phase])*2 < c.cfg.RequiredSampleCount {
			short = append(short, fmt.Sprintf("%s %d/%d", phase, len(c.buffers[phase]), c.cfg.RequiredSampleCount))
		}
	}
	if len(short) > 0 {
		c.fail("insufficient samples: " + strings.Join(short, ", "))
		return
	}

	profile := CalibrationProfile{
		SampleCounts: make(map[CalibrationPhase]int, len(c.phases)),
		Spread:       make(map[CalibrationPhase]float64, len(c.phases)),
	}
	for _, phase := range c.phases {
		buf := c.buffers[phase]
		profile.SampleCounts[phase] = len(buf)
		if len(buf) > 1 {
			profile.Spread[phase] = stat.StdDev(buf, nil)
		}
	}

	switch c.cfg.CalibrationMode {
	case ModeSinglePhase:
		buf := c.buffers[PhaseSweep]
		profile.LeftAngle = floats.Min(buf)
		profile.RightAngle = floats.Max(buf)
		profile.NeutralAngle = (profile.LeftAngle + profile.RightAngle) / 2
	default:
		profile.NeutralAngle = stat.Mean(c.buffers[PhaseNeutral], nil)
		profile.RightAngle = stat.Mean(c.buffers[PhaseRight], nil)
		profile.LeftAngle = stat.Mean(c.buffers[PhaseLeft], nil)
	}

	for _, side := range [...]Side{SideLeft, SideRight} {
		if math.Abs(profile.SpanToward(side)) < minSpanDeg {
			c.fail(fmt.Sprintf("%s span too small: %.2f°", side, profile.SpanToward(side)))
			return
		}
	}

	profile.Complete = true
	c.profile = profile
	c.state = CalComplete
}

func (c *Calibrator) fail(reason string) {
	c.state = CalFailed
	c.failReason = reason
	c.profile = CalibrationProfile{}
}
