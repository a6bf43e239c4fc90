// Package gesture converts the wand's noisy orientation stream into
// discrete, debounced control events for the vehicle-control layer.
//
// The pipeline per advance is: raw sample → conditioner → calibrated angle →
// classifier → (on committed stroke) pattern detector → cooldown gate →
// event queue. The engine is single-threaded and tick-driven: it moves only
// when Ingest or Tick is called, all timers are deadline arithmetic on the
// caller-supplied timestamps, and the caller drains the event queue each
// tick. Replaying a recorded sample trace therefore reproduces the exact
// event sequence.
package gesture

import (
	"sync"
	"time"

	"github.com/helmside/paddlesense/internal/monitoring"
	"github.com/helmside/paddlesense/internal/units"
)

// Stats tallies the engine's fail-safe drops and output volume. Degraded
// input never stalls the pipeline; it lands here instead.
type Stats struct {
	SamplesIn         uint64    `json:"samples_in"`
	Malformed         uint64    `json:"malformed"`
	OutOfOrder        uint64    `json:"out_of_order"`
	Outliers          uint64    `json:"outliers"`
	EventsEmitted     uint64    `json:"events_emitted"`
	StrokesSuppressed uint64    `json:"strokes_suppressed"`
	LastSampleAt      time.Time `json:"last_sample_at"`
}

// Snapshot is a point-in-time view of the engine for the monitor surface.
type Snapshot struct {
	Time             time.Time          `json:"time"`
	Connected        bool               `json:"connected"`
	State            State              `json:"state"`
	Confidence       float64            `json:"confidence"`
	EnteredAt        time.Time          `json:"entered_at"`
	Rhythm           Rhythm             `json:"rhythm"`
	Smoothed         SmoothedSample     `json:"smoothed"`
	Calibrated       float64            `json:"calibrated"`
	NeutralBias      float64            `json:"neutral_bias"`
	Calibration      CalibrationState   `json:"calibration"`
	CalibrationPhase CalibrationPhase   `json:"calibration_phase,omitempty"`
	Profile          CalibrationProfile `json:"profile"`
	WindowStrokes    int                `json:"window_strokes"`
	CooldownLeft     time.Duration      `json:"cooldown_left_ns"`
	CooldownRight    time.Duration      `json:"cooldown_right_ns"`
	Stats            Stats              `json:"stats"`
}

// Engine owns one wand's full gesture pipeline. Construct one per device;
// engines share nothing. The mutex only serializes external observation
// (monitor snapshots) against the single ingest goroutine — the pipeline
// itself advances strictly sequentially.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	conditioner Conditioner
	calibrator  *Calibrator
	classifier  *Classifier
	pattern     *PatternDetector
	cooldowns   *CooldownGate
	drift       *DriftCompensator

	connected   bool
	haveSample  bool
	smoothed    SmoothedSample
	lastSample  time.Time
	lastAdvance time.Time

	queue []Event
	stats Stats
}

// NewEngine validates the tuning and returns a ready engine in the
// Disconnected state.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:         cfg,
		conditioner: NewConditioner(cfg),
		calibrator:  NewCalibrator(cfg),
		classifier:  NewClassifier(cfg),
		pattern:     NewPatternDetector(cfg),
		cooldowns:   NewCooldownGate(cfg),
		drift:       NewDriftCompensator(cfg),
	}, nil
}

// Ingest advances the pipeline by one raw sample, using the sample's own
// timestamp as the tick time. Malformed and out-of-order samples are dropped
// and tallied.
func (e *Engine) Ingest(raw RawSample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := raw.Validate(); err != nil {
		e.stats.Malformed++
		monitoring.Debugf("dropped sample: %v", err)
		return
	}
	if e.haveSample && raw.Timestamp.Before(e.lastSample) {
		e.stats.OutOfOrder++
		monitoring.Debugf("dropped out-of-order sample %v < %v", raw.Timestamp, e.lastSample)
		return
	}

	now := raw.Timestamp
	e.stats.SamplesIn++
	e.stats.LastSampleAt = now

	if !e.haveSample {
		e.smoothed = SmoothedSample{Angle: raw.Angle}
		e.haveSample = true
	} else if dt := now.Sub(e.lastSample); dt > 0 {
		next, rejected := e.conditioner.Step(e.smoothed, raw, dt)
		if rejected {
			e.stats.Outliers++
		}
		e.smoothed = next
	}
	e.lastSample = now
	if now.After(e.lastAdvance) {
		e.lastAdvance = now
	}

	e.advance(now, true)
}

// Tick advances timers (calibration deadlines, pattern decay, pending state
// dwell) without a new sample. Ticks earlier than the latest advance are
// ignored.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if now.Before(e.lastAdvance) {
		return
	}
	e.lastAdvance = now
	e.advance(now, false)
}

// advance runs the state machinery at now. withSample marks whether a fresh
// conditioned sample backs this advance; calibration only consumes samples
// on those.
func (e *Engine) advance(now time.Time, withSample bool) {
	if !e.connected {
		return
	}

	if e.calibrator.Collecting() {
		e.forceState(now, StateCalibrating)
		var upd CalibrationUpdate
		if withSample {
			upd = e.calibrator.Observe(now, e.smoothed)
		} else {
			upd = e.calibrator.Tick(now)
		}
		e.handleCalibration(now, upd)
		return
	}

	// A failed run pins the classifier in Calibrating until the caller
	// resets and restarts; no gesture output in the meantime.
	if e.calibrator.State() == CalFailed {
		return
	}

	if !e.haveSample {
		return
	}
	e.classify(now)
}

func (e *Engine) classify(now time.Time) {
	profile := e.calibrator.Profile()
	if !profile.Complete {
		e.forceState(now, StateIdle)
		return
	}

	calibrated := units.NormalizeDeg(e.smoothed.Angle - profile.NeutralAngle - e.drift.Bias())

	e.pattern.Tick(now)
	rhythm := e.pattern.Classify()
	rate := e.pattern.Rate()

	changed, from := e.classifier.Evaluate(now, calibrated, e.smoothed.Velocity, rhythm, rate, profile)
	if changed {
		to := e.classifier.State()
		conf := e.classifier.Confidence()
		e.push(StateChange{Time: now, From: from, To: to, Confidence: conf})

		if side, ok := to.StrokeSide(); ok {
			e.commitStroke(now, side, conf)
		} else if to == StateSwingForward {
			e.commitSwing(now, conf)
		}
	}

	if e.drift.Observe(now, e.classifier.State(), calibrated, e.smoothed.Velocity) {
		monitoring.Debugf("idle recenter: neutral bias %.2f°", e.drift.Bias())
	}
}

// commitStroke records the stroke in the pattern window unconditionally and
// emits the control event only if the side's cooldown allows it.
func (e *Engine) commitStroke(now time.Time, side Side, intensity float64) {
	e.pattern.Record(StrokeEvent{Side: side, Timestamp: now, Intensity: intensity})

	if !e.cooldowns.Allow(side, now) {
		e.stats.StrokesSuppressed++
		monitoring.Debugf("stroke %s suppressed by cooldown", side)
		return
	}
	e.cooldowns.Arm(side, now)
	e.push(PaddleStroke{Time: now, Side: side, Intensity: intensity})
}

// commitSwing emits forward thrust and keeps the alternation alive in the
// window: the swing itself counts as the next stroke of the rhythm.
func (e *Engine) commitSwing(now time.Time, intensity float64) {
	if newest, ok := e.pattern.Newest(); ok {
		e.pattern.Record(StrokeEvent{Side: newest.Side.Opposite(), Timestamp: now, Intensity: intensity})
	}
	e.push(ForwardThrust{Time: now, Intensity: intensity})
}

func (e *Engine) handleCalibration(now time.Time, upd CalibrationUpdate) {
	if upd.Accepted {
		e.push(CalibrationProgress{Time: now, Phase: upd.Phase, Collected: upd.Collected, Required: upd.Required})
	}
	if !upd.Finished {
		return
	}

	switch e.calibrator.State() {
	case CalComplete:
		profile := e.calibrator.Profile()
		e.push(CalibrationResult{Time: now, Success: true, Profile: profile})
		monitoring.Logf("calibration complete: neutral=%.1f° right=%.1f° left=%.1f°",
			profile.NeutralAngle, profile.RightAngle, profile.LeftAngle)
		e.drift.Reset()
		e.forceState(now, StateIdle)
	case CalFailed:
		e.push(CalibrationResult{Time: now, Success: false, Reason: e.calibrator.FailReason()})
		monitoring.Logf("calibration failed: %s", e.calibrator.FailReason())
	}
}

// forceState commits a transition immediately, emitting the diagnostic
// state-change event when it actually changed anything.
func (e *Engine) forceState(now time.Time, s State) {
	from := e.classifier.State()
	if e.classifier.Force(now, s) {
		e.push(StateChange{Time: now, From: from, To: s, Confidence: e.classifier.Confidence()})
	}
}

func (e *Engine) push(ev Event) {
	e.queue = append(e.queue, ev)
	e.stats.EventsEmitted++
}

// Drain returns the queued events in emission order and clears the queue.
func (e *Engine) Drain() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) == 0 {
		return nil
	}
	out := e.queue
	e.queue = nil
	return out
}

// SetConnected reports transport link state. Loss forces Disconnected;
// restoration resumes at Idle (or Calibrating when a run is active or a
// failed run still needs its reset), with the calibration profile preserved
// across the gap — it belongs to the wand, not the link.
func (e *Engine) SetConnected(connected bool, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.connected == connected {
		return
	}
	e.connected = connected

	if !connected {
		monitoring.Logf("wand link down")
		e.forceState(now, StateDisconnected)
		return
	}

	monitoring.Logf("wand link up")
	if e.calibrator.Collecting() || e.calibrator.State() == CalFailed {
		e.forceState(now, StateCalibrating)
	} else {
		e.forceState(now, StateIdle)
	}
}

// StartCalibration begins a calibration run, clearing rhythm and cooldown
// state from the previous reference frame.
func (e *Engine) StartCalibration(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calibrator.Start(now)
	e.pattern.Reset()
	e.cooldowns.Reset()
	e.drift.Reset()
	if e.connected {
		e.forceState(now, StateCalibrating)
	}
	monitoring.Logf("calibration started (%s)", e.cfg.CalibrationMode)
}

// ResetCalibration discards the profile and any active or failed run. Always
// legal; synchronous.
func (e *Engine) ResetCalibration(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calibrator.Reset()
	e.drift.Reset()
	if e.connected {
		e.forceState(now, StateIdle)
	}
}

// Connected reports the last transport link state given to the engine.
func (e *Engine) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

// State returns the current gesture state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.classifier.State()
}

// Confidence returns the current state's confidence.
func (e *Engine) Confidence() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.classifier.Confidence()
}

// Rhythm returns the pattern detector's current classification.
func (e *Engine) Rhythm() Rhythm {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pattern.Classify()
}

// Calibrating reports whether a calibration run is collecting.
func (e *Engine) Calibrating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calibrator.Collecting()
}

// Profile returns a copy of the calibration profile; check Complete.
func (e *Engine) Profile() CalibrationProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calibrator.Profile()
}

// Stats returns the drop/output tallies.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Snapshot captures the whole engine state for the monitor surface.
func (e *Engine) Snapshot(now time.Time) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile := e.calibrator.Profile()
	snap := Snapshot{
		Time:             now,
		Connected:        e.connected,
		State:            e.classifier.State(),
		Confidence:       e.classifier.Confidence(),
		EnteredAt:        e.classifier.EnteredAt(),
		Rhythm:           e.pattern.Classify(),
		Smoothed:         e.smoothed,
		NeutralBias:      e.drift.Bias(),
		Calibration:      e.calibrator.State(),
		CalibrationPhase: e.calibrator.Phase(),
		Profile:          profile,
		WindowStrokes:    len(e.pattern.Strokes()),
		CooldownLeft:     e.cooldowns.Remaining(SideLeft, now),
		CooldownRight:    e.cooldowns.Remaining(SideRight, now),
		Stats:            e.stats,
	}
	if profile.Complete && e.haveSample {
		snap.Calibrated = units.NormalizeDeg(e.smoothed.Angle - profile.NeutralAngle - e.drift.Bias())
	}
	return snap
}
