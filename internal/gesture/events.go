package gesture

import "time"

// EventKind names the event types drained from the engine queue.
type EventKind string

const (
	KindPaddleStroke        EventKind = "paddle_stroke"
	KindForwardThrust       EventKind = "forward_thrust"
	KindCalibrationProgress EventKind = "calibration_progress"
	KindCalibrationResult   EventKind = "calibration_result"
	KindStateChange         EventKind = "state_change"
)

// Event is one entry in the engine's ordered output queue. The caller drains
// the queue each tick; the engine never invokes consumer code itself, so
// event ordering carries no hidden control flow.
type Event interface {
	Kind() EventKind
	At() time.Time
}

// PaddleStroke is a debounced stroke command for the vehicle-control layer.
type PaddleStroke struct {
	Time      time.Time `json:"time"`
	Side      Side      `json:"side"`
	Intensity float64   `json:"intensity"`
}

func (e PaddleStroke) Kind() EventKind { return KindPaddleStroke }
func (e PaddleStroke) At() time.Time   { return e.Time }

// ForwardThrust reports sustained alternating paddling.
type ForwardThrust struct {
	Time      time.Time `json:"time"`
	Intensity float64   `json:"intensity"`
}

func (e ForwardThrust) Kind() EventKind { return KindForwardThrust }
func (e ForwardThrust) At() time.Time   { return e.Time }

// CalibrationProgress is emitted once per accepted calibration sample, for
// the guidance UI.
type CalibrationProgress struct {
	Time      time.Time        `json:"time"`
	Phase     CalibrationPhase `json:"phase"`
	Collected int              `json:"collected"`
	Required  int              `json:"required"`
}

func (e CalibrationProgress) Kind() EventKind { return KindCalibrationProgress }
func (e CalibrationProgress) At() time.Time   { return e.Time }

// CalibrationResult terminates a calibration run. On success Profile is the
// frozen profile now in use; on failure Reason names the shortfall.
type CalibrationResult struct {
	Time    time.Time          `json:"time"`
	Success bool               `json:"success"`
	Profile CalibrationProfile `json:"profile"`
	Reason  string             `json:"reason,omitempty"`
}

func (e CalibrationResult) Kind() EventKind { return KindCalibrationResult }
func (e CalibrationResult) At() time.Time   { return e.Time }

// StateChange is a diagnostic record of every committed classifier
// transition, including forced ones.
type StateChange struct {
	Time       time.Time `json:"time"`
	From       State     `json:"from"`
	To         State     `json:"to"`
	Confidence float64   `json:"confidence"`
}

func (e StateChange) Kind() EventKind { return KindStateChange }
func (e StateChange) At() time.Time   { return e.Time }
