package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/helmside/paddlesense/internal/gesture"
)

func TestEventTopic(t *testing.T) {
	if got := EventTopic(gesture.KindPaddleStroke); got != "paddle/events/paddle_stroke" {
		t.Errorf("topic = %q, want paddle/events/paddle_stroke", got)
	}
	if got := EventTopic(gesture.KindForwardThrust); got != "paddle/events/forward_thrust" {
		t.Errorf("topic = %q, want paddle/events/forward_thrust", got)
	}
}

func TestEventPayloadLiftsKind(t *testing.T) {
	ev := gesture.PaddleStroke{
		Time:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Side:      gesture.SideLeft,
		Intensity: 0.75,
	}
	payload, err := EventPayload(ev)
	if err != nil {
		t.Fatalf("EventPayload: %v", err)
	}

	var out struct {
		Kind  gesture.EventKind `json:"kind"`
		Event struct {
			Side      gesture.Side `json:"side"`
			Intensity float64      `json:"intensity"`
		} `json:"event"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if out.Kind != gesture.KindPaddleStroke {
		t.Errorf("kind = %q, want %q", out.Kind, gesture.KindPaddleStroke)
	}
	if out.Event.Side != gesture.SideLeft || out.Event.Intensity != 0.75 {
		t.Errorf("event body = %+v", out.Event)
	}
}

func TestNilPublisherIsNoOp(t *testing.T) {
	var p *Publisher
	// Must not panic.
	p.PublishEvent(gesture.ForwardThrust{Intensity: 1})
	p.PublishState(gesture.Snapshot{})
	p.Close()
}

func TestNewPublisherDisabledWithoutBroker(t *testing.T) {
	p, err := NewPublisher(Options{})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil publisher when no broker configured")
	}
}
