package main

import (
	"context"
	"time"

	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/monitor"
	"github.com/helmside/paddlesense/internal/monitoring"
	"github.com/helmside/paddlesense/internal/telemetry"
	"github.com/helmside/paddlesense/internal/timeutil"
	"github.com/helmside/paddlesense/internal/tracestore"
	"github.com/helmside/paddlesense/internal/wandmux"
	"github.com/helmside/paddlesense/internal/wandwire"
)

// service owns the ingest loop: it subscribes to the wand line stream,
// parses sentences, feeds the engine, ticks it at a fixed cadence, and fans
// drained events out to the monitor, telemetry, and the trace writer.
type service struct {
	engine    *gesture.Engine
	mux       wandmux.Muxer
	monitor   *monitor.Server
	publisher *telemetry.Publisher
	writer    *tracestore.SessionWriter
	clock     timeutil.Clock
	liveness  time.Duration

	// anchor maps wand uptime to wall clock; reset when the wand reboots
	// (uptime goes backwards).
	anchor       time.Time
	lastUptimeMS int64

	lastSampleAt  time.Time
	lastStatePubd time.Time
}

func (s *service) run(ctx context.Context) {
	id, lines := s.mux.Subscribe()
	defer s.mux.Unsubscribe(id)

	ticker := s.clock.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case line := <-lines:
			s.handleLine(line)
		case now := <-ticker.C():
			s.tick(now)
		case <-ctx.Done():
			return
		}
	}
}

func (s *service) handleLine(line string) {
	sentence, err := wandwire.ParseLine(line)
	if err != nil {
		monitoring.Debugf("dropping malformed line %q: %v", line, err)
		return
	}

	now := s.clock.Now()
	switch msg := sentence.(type) {
	case wandwire.ORI:
		raw := msg.RawSample(s.rebase(msg.UptimeMS, now))
		s.engine.Ingest(raw)
		s.markAlive(now)
		if s.writer != nil {
			if err := s.writer.AddSample(raw); err != nil {
				monitoring.Logf("failed to record sample: %v", err)
			}
		}
		s.flush(now)
	case wandwire.HBT:
		monitoring.Debugf("heartbeat: uptime=%dms battery=%dmV", msg.UptimeMS, msg.BatteryMV)
		s.markAlive(now)
	default:
		monitoring.Debugf("ignoring sentence %T", sentence)
	}
}

// rebase converts a wand-relative uptime into a wall-clock base for the
// sample timestamp. The anchor is established on the first sample and
// re-established whenever uptime regresses, which means the wand rebooted.
func (s *service) rebase(uptimeMS int64, now time.Time) time.Time {
	if s.anchor.IsZero() || uptimeMS < s.lastUptimeMS {
		s.anchor = now.Add(-time.Duration(uptimeMS) * time.Millisecond)
		monitoring.Debugf("wand time anchored at %s (uptime %dms)", s.anchor.Format(time.RFC3339Nano), uptimeMS)
	}
	s.lastUptimeMS = uptimeMS
	return s.anchor
}

func (s *service) markAlive(now time.Time) {
	s.lastSampleAt = now
	if !s.engine.Connected() {
		s.engine.SetConnected(true, now)
	}
}

func (s *service) tick(now time.Time) {
	if s.engine.Connected() && !s.lastSampleAt.IsZero() && now.Sub(s.lastSampleAt) > s.liveness {
		monitoring.Logf("wand link lost (no data for %s)", now.Sub(s.lastSampleAt).Round(time.Millisecond))
		s.engine.SetConnected(false, now)
	}

	s.engine.Tick(now)
	s.flush(now)

	snap := s.engine.Snapshot(now)
	s.monitor.Record(snap)
	if now.Sub(s.lastStatePubd) >= statePublishInterval {
		s.publisher.PublishState(snap)
		s.lastStatePubd = now
	}
}

// flush drains the engine event queue and fans each event out.
func (s *service) flush(now time.Time) {
	for _, ev := range s.engine.Drain() {
		monitoring.Debugf("event %s: %+v", ev.Kind(), ev)
		s.monitor.RecordEvent(ev)
		s.publisher.PublishEvent(ev)
		if s.writer != nil {
			if err := s.writer.AddEvent(ev); err != nil {
				monitoring.Logf("failed to record event: %v", err)
			}
		}
	}
}
