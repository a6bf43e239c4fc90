package replay

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmside/paddlesense/internal/gesture"
)

var t0 = time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC)

// replayConfig disables smoothing and shortens timers so scripted angle
// holds act immediately at the 20ms cadence.
func replayConfig() gesture.Config {
	cfg := gesture.DefaultConfig()
	cfg.SmoothingFactor = 1
	cfg.VelocitySmoothing = 1
	cfg.VelocityDeadZoneDPS = 0
	cfg.MaxSampleDeltaDeg = 0
	cfg.StateChangeDelay = 100 * time.Millisecond
	cfg.LeftCooldown = 0
	cfg.RightCooldown = 0
	cfg.RequiredSampleCount = 4
	cfg.HoldDuration = 200 * time.Millisecond
	return cfg
}

// script builds a sample stream: calibration holds at 0/40/-40, then a
// right-tilt pulse and return to neutral.
func script() []gesture.RawSample {
	var samples []gesture.RawSample
	now := t0
	hold := func(angle float64, n int) {
		for i := 0; i < n; i++ {
			now = now.Add(20 * time.Millisecond)
			samples = append(samples, gesture.RawSample{Timestamp: now, Angle: angle})
		}
	}
	hold(0, 6)
	hold(40, 6)
	hold(-40, 6)
	hold(0, 10)
	hold(38, 12) // right stroke
	hold(0, 12)
	return samples
}

func TestRunEmptyInput(t *testing.T) {
	_, err := Run(replayConfig(), nil, Options{})
	require.Error(t, err)
}

func TestRunCalibratesAndDetectsStroke(t *testing.T) {
	res, err := Run(replayConfig(), script(), Options{Calibrate: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.Events)
	require.NotEmpty(t, res.Frames)

	var calibrated bool
	var strokes []gesture.PaddleStroke
	for _, ev := range res.Events {
		switch e := ev.(type) {
		case gesture.CalibrationResult:
			assert.True(t, e.Success, "calibration failed: %s", e.Reason)
			calibrated = true
		case gesture.PaddleStroke:
			strokes = append(strokes, e)
		}
	}
	require.True(t, calibrated, "no calibration result in replay")
	require.Len(t, strokes, 1)
	assert.Equal(t, gesture.SideRight, strokes[0].Side)
}

func TestRunIsDeterministic(t *testing.T) {
	samples := script()
	first, err := Run(replayConfig(), samples, Options{Calibrate: true})
	require.NoError(t, err)
	second, err := Run(replayConfig(), samples, Options{Calibrate: true})
	require.NoError(t, err)

	if diff := cmp.Diff(first.Events, second.Events); diff != "" {
		t.Errorf("replay not deterministic (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Frames, second.Frames); diff != "" {
		t.Errorf("frames not deterministic (-first +second):\n%s", diff)
	}
}

func TestSummarize(t *testing.T) {
	res := &Result{
		Events: []gesture.Event{
			gesture.PaddleStroke{Side: gesture.SideLeft},
			gesture.PaddleStroke{Side: gesture.SideRight},
			gesture.PaddleStroke{Side: gesture.SideRight},
			gesture.ForwardThrust{},
			gesture.StateChange{},
		},
		Frames: []Frame{{State: gesture.StateIdle, Rhythm: gesture.RhythmNone}},
	}
	s := Summarize(res)
	assert.Equal(t, 1, s.LeftStrokes)
	assert.Equal(t, 2, s.RightStrokes)
	assert.Equal(t, 1, s.Thrusts)
	assert.Equal(t, 1, s.StateChanges)
	assert.Equal(t, gesture.StateIdle, s.FinalState)
	assert.Contains(t, s.String(), "1 left / 2 right")
}
