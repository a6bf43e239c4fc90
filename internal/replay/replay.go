// Package replay runs recorded sample streams through a fresh engine. The
// engine is deterministic for a given config and sample sequence, so a
// replay reproduces the live run's events exactly; running one twice and
// diffing the outputs is the standing determinism check.
package replay

import (
	"fmt"
	"time"

	"github.com/helmside/paddlesense/internal/gesture"
)

// tickInterval matches the live service cadence so replayed dwell and
// cooldown behavior lines up with what the wand produced online.
const tickInterval = 20 * time.Millisecond

// Frame is one per-tick view of the replayed engine, for plotting.
type Frame struct {
	Time       time.Time
	Angle      float64
	Velocity   float64
	State      gesture.State
	Confidence float64
	Rhythm     gesture.Rhythm
}

// Result is the full output of one replay.
type Result struct {
	Events []gesture.Event
	Frames []Frame
}

// Options tweaks a replay run.
type Options struct {
	// Calibrate starts a calibration run at stream start. Use it for
	// traces that open with scripted calibration holds; recorded sessions
	// that calibrated mid-run replay their engine output regardless, since
	// events are stored, not re-derived.
	Calibrate bool
}

// Run streams samples through a fresh engine built from cfg, ticking on the
// live cadence between sample timestamps.
func Run(cfg gesture.Config, samples []gesture.RawSample, opts Options) (*Result, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to replay")
	}

	engine, err := gesture.NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	start := samples[0].Timestamp
	engine.SetConnected(true, start)
	if opts.Calibrate {
		engine.StartCalibration(start)
	}

	res := &Result{}
	nextTick := start
	for _, s := range samples {
		for !nextTick.After(s.Timestamp) {
			engine.Tick(nextTick)
			res.drain(engine, nextTick)
			nextTick = nextTick.Add(tickInterval)
		}
		engine.Ingest(s)
	}
	// Run out one final tick past the last sample so trailing dwell
	// transitions commit.
	engine.Tick(nextTick)
	res.drain(engine, nextTick)

	return res, nil
}

func (r *Result) drain(engine *gesture.Engine, now time.Time) {
	r.Events = append(r.Events, engine.Drain()...)
	snap := engine.Snapshot(now)
	r.Frames = append(r.Frames, Frame{
		Time:       snap.Time,
		Angle:      snap.Smoothed.Angle,
		Velocity:   snap.Smoothed.Velocity,
		State:      snap.State,
		Confidence: snap.Confidence,
		Rhythm:     snap.Rhythm,
	})
}

// Summary tallies a replay's emitted events.
type Summary struct {
	LeftStrokes  int
	RightStrokes int
	Thrusts      int
	StateChanges int
	Calibration  int
	FinalState   gesture.State
	FinalRhythm  gesture.Rhythm
}

// Summarize tallies events and takes the final state from the last frame.
func Summarize(res *Result) Summary {
	var s Summary
	for _, ev := range res.Events {
		switch e := ev.(type) {
		case gesture.PaddleStroke:
			if e.Side == gesture.SideLeft {
				s.LeftStrokes++
			} else {
				s.RightStrokes++
			}
		case gesture.ForwardThrust:
			s.Thrusts++
		case gesture.StateChange:
			s.StateChanges++
		case gesture.CalibrationProgress, gesture.CalibrationResult:
			s.Calibration++
		}
	}
	if n := len(res.Frames); n > 0 {
		s.FinalState = res.Frames[n-1].State
		s.FinalRhythm = res.Frames[n-1].Rhythm
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf(
		"strokes: %d left / %d right, thrusts: %d, state changes: %d, calibration events: %d, final state: %s (rhythm %s)",
		s.LeftStrokes, s.RightStrokes, s.Thrusts, s.StateChanges, s.Calibration, s.FinalState, s.FinalRhythm,
	)
}
