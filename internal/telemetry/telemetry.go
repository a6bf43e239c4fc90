// Package telemetry publishes gesture events and state snapshots to an
// MQTT broker so game clients and dashboards can subscribe without polling
// the monitor API.
package telemetry

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/monitoring"
)

const (
	// TopicEventPrefix is the root for per-kind event topics, e.g.
	// paddle/events/paddle_stroke.
	TopicEventPrefix = "paddle/events/"

	// TopicState carries the latest engine snapshot, retained so late
	// subscribers see the current state immediately.
	TopicState = "paddle/state"
)

// Publisher mirrors engine output onto MQTT topics. A nil Publisher is safe
// to call; every method is a no-op, so the service loop does not need to
// branch on whether telemetry is configured.
type Publisher struct {
	client mqtt.Client
}

// Options configures the broker connection.
type Options struct {
	// Broker is the MQTT broker URL, e.g. tcp://localhost:1883. Empty
	// disables telemetry (NewPublisher returns nil).
	Broker string

	// ClientID identifies this service instance to the broker.
	ClientID string
}

// NewPublisher connects to the broker. Returns (nil, nil) when no broker is
// configured.
func NewPublisher(o Options) (*Publisher, error) {
	if o.Broker == "" {
		return nil, nil
	}
	clientID := o.ClientID
	if clientID == "" {
		clientID = "paddlesense"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", o.Broker, token.Error())
	}
	monitoring.Logf("telemetry connected to %s as %s", o.Broker, clientID)
	return &Publisher{client: client}, nil
}

// PublishEvent sends one engine event to paddle/events/<kind>, QoS 0,
// not retained. Publish failures are logged, not returned: telemetry is
// best-effort and must never stall the ingest loop.
func (p *Publisher) PublishEvent(ev gesture.Event) {
	if p == nil {
		return
	}
	payload, err := EventPayload(ev)
	if err != nil {
		monitoring.Logf("telemetry: encode event: %v", err)
		return
	}
	p.client.Publish(EventTopic(ev.Kind()), 0, false, payload)
}

// PublishState sends the engine snapshot to paddle/state, retained.
func (p *Publisher) PublishState(snap gesture.Snapshot) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		monitoring.Logf("telemetry: encode snapshot: %v", err)
		return
	}
	p.client.Publish(TopicState, 0, true, payload)
}

// Close disconnects from the broker, allowing in-flight publishes a short
// grace period.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.client.Disconnect(250)
}

// EventTopic returns the topic an event kind is published on.
func EventTopic(kind gesture.EventKind) string {
	return TopicEventPrefix + string(kind)
}

// EventPayload builds the JSON wire form of an event: the kind lifted
// beside the event body so subscribers can route without sniffing fields.
func EventPayload(ev gesture.Event) ([]byte, error) {
	return json.Marshal(struct {
		Kind  gesture.EventKind `json:"kind"`
		Event gesture.Event     `json:"event"`
	}{Kind: ev.Kind(), Event: ev})
}
