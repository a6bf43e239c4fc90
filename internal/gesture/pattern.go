package gesture

import "time"

// Rhythm is the higher-level pattern inferred from recent strokes.
type Rhythm string

const (
	RhythmNone             Rhythm = "none"
	RhythmAlternating      Rhythm = "alternating"
	RhythmConsecutiveLeft  Rhythm = "consecutive_left"
	RhythmConsecutiveRight Rhythm = "consecutive_right"
)

// PatternDetector watches the stroke sequence over a sliding time window and
// recognizes turning (consecutive same-side strokes) versus forward paddling
// (alternating strokes). The window is bounded by age and by count.
type PatternDetector struct {
	cfg    Config
	window []StrokeEvent
}

// NewPatternDetector returns an empty detector for the given tuning.
func NewPatternDetector(cfg Config) *PatternDetector {
	return &PatternDetector{cfg: cfg}
}

// Record appends a stroke and prunes the window relative to its timestamp.
func (d *PatternDetector) Record(ev StrokeEvent) {
	d.window = append(d.window, ev)
	d.prune(ev.Timestamp)
	if over := len(d.window) - d.cfg.PatternMaxStrokes; over > 0 {
		d.window = append(d.window[:0], d.window[over:]...)
	}
}

// Tick prunes entries older than the pattern window. When the newest stroke
// itself has aged out the window empties entirely, which is the decay reset:
// Classify returns RhythmNone from then on.
func (d *PatternDetector) Tick(now time.Time) {
	d.prune(now)
}

func (d *PatternDetector) prune(now time.Time) {
	cutoff := 0
	for cutoff < len(d.window) && now.Sub(d.window[cutoff].Timestamp) > d.cfg.PatternTimeWindow {
		cutoff++
	}
	if cutoff > 0 {
		d.window = append(d.window[:0], d.window[cutoff:]...)
	}
}

// Classify inspects the current window. Consecutive is evaluated before
// Alternating: a run that just became consecutive while older history still
// alternates is a turn, since same-side repetition is the stronger intent
// signal.
func (d *PatternDetector) Classify() Rhythm {
	n := len(d.window)
	if n == 0 {
		return RhythmNone
	}

	// Most recent run of same-side strokes, scanning newest backward.
	side := d.window[n-1].Side
	run := 1
	for i := n - 2; i >= 0 && d.window[i].Side == side; i-- {
		run++
	}
	if run >= d.cfg.ConsecutiveThreshold {
		if side == SideLeft {
			return RhythmConsecutiveLeft
		}
		return RhythmConsecutiveRight
	}

	if n >= d.cfg.MinStrokesForForward {
		changes, same := 0, 0
		for i := 1; i < n; i++ {
			if d.window[i].Side != d.window[i-1].Side {
				changes++
			} else {
				same++
			}
		}
		if changes > same {
			return RhythmAlternating
		}
	}

	return RhythmNone
}

// Rate returns the stroke rate over the window in strokes per second.
func (d *PatternDetector) Rate() float64 {
	return float64(len(d.window)) / d.cfg.PatternTimeWindow.Seconds()
}

// Strokes returns a copy of the current window, newest last.
func (d *PatternDetector) Strokes() []StrokeEvent {
	out := make([]StrokeEvent, len(d.window))
	copy(out, d.window)
	return out
}

// Newest returns the most recent stroke, if any.
func (d *PatternDetector) Newest() (StrokeEvent, bool) {
	if len(d.window) == 0 {
		return StrokeEvent{}, false
	}
	return d.window[len(d.window)-1], true
}

// Reset clears the window.
func (d *PatternDetector) Reset() {
	d.window = nil
}
