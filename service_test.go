package main

import (
	"testing"
	"time"

	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/monitor"
	"github.com/helmside/paddlesense/internal/timeutil"
	"github.com/helmside/paddlesense/internal/wandwire"
)

func newTestService(t *testing.T) (*service, *timeutil.MockClock) {
	t.Helper()
	engine, err := gesture.NewEngine(gesture.DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	clock := timeutil.NewMockClock(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	mon := monitor.NewServer(monitor.ServerConfig{
		Listen: ":0",
		Engine: engine,
		Clock:  clock,
	})
	return &service{
		engine:   engine,
		monitor:  mon,
		clock:    clock,
		liveness: 2 * time.Second,
	}, clock
}

func TestHandleLineIngestsOrientation(t *testing.T) {
	s, _ := newTestService(t)

	s.handleLine(wandwire.BuildORI(100, 12.5, 0, 0, 1000))

	if !s.engine.Connected() {
		t.Error("engine not marked connected after sample")
	}
	if got := s.engine.Stats().SamplesIn; got != 1 {
		t.Errorf("samples in = %d, want 1", got)
	}
}

func TestHandleLineIgnoresGarbage(t *testing.T) {
	s, _ := newTestService(t)

	s.handleLine("not a sentence")
	s.handleLine("$PWORI,100,12.50,0.00,0.00,1000*00") // bad checksum

	if s.engine.Connected() {
		t.Error("garbage marked engine connected")
	}
	if got := s.engine.Stats().SamplesIn; got != 0 {
		t.Errorf("samples in = %d, want 0", got)
	}
}

func TestHeartbeatKeepsLinkAlive(t *testing.T) {
	s, clock := newTestService(t)

	s.handleLine(wandwire.BuildHBT(100, 3700))
	if !s.engine.Connected() {
		t.Fatal("heartbeat did not mark engine connected")
	}

	// Heartbeats alone keep the link up past the liveness window.
	clock.Advance(1500 * time.Millisecond)
	s.handleLine(wandwire.BuildHBT(1600, 3700))
	clock.Advance(1500 * time.Millisecond)
	s.tick(clock.Now())
	if !s.engine.Connected() {
		t.Error("link dropped despite recent heartbeat")
	}
}

func TestTickDropsStaleLink(t *testing.T) {
	s, clock := newTestService(t)

	s.handleLine(wandwire.BuildORI(100, 0, 0, 0, 1000))
	if !s.engine.Connected() {
		t.Fatal("engine not connected")
	}

	clock.Advance(3 * time.Second)
	s.tick(clock.Now())
	if s.engine.Connected() {
		t.Error("stale link still connected after liveness timeout")
	}
}

func TestRebaseAnchorsAndDetectsReboot(t *testing.T) {
	s, clock := newTestService(t)
	start := clock.Now()

	base := s.rebase(1000, start)
	if got := base.Add(1000 * time.Millisecond); !got.Equal(start) {
		t.Errorf("anchor+uptime = %v, want %v", got, start)
	}

	// Monotonic uptime keeps the anchor.
	clock.Advance(time.Second)
	if got := s.rebase(2000, clock.Now()); !got.Equal(base) {
		t.Errorf("anchor moved on monotonic uptime: %v != %v", got, base)
	}

	// Uptime regression means the wand rebooted; the anchor follows.
	clock.Advance(time.Second)
	rebased := s.rebase(50, clock.Now())
	if rebased.Equal(base) {
		t.Error("anchor not re-established after uptime regression")
	}
	if got := rebased.Add(50 * time.Millisecond); !got.Equal(clock.Now()) {
		t.Errorf("new anchor+uptime = %v, want %v", got, clock.Now())
	}
}

func TestSampleTimestampsFollowUptime(t *testing.T) {
	s, clock := newTestService(t)

	s.handleLine(wandwire.BuildORI(0, 10, 0, 0, 1000))
	s.handleLine(wandwire.BuildORI(20, 11, 0, 0, 1000))

	snap := s.engine.Snapshot(clock.Now())
	if got, want := snap.Stats.LastSampleAt, clock.Now().Add(20*time.Millisecond); !got.Equal(want) {
		t.Errorf("last sample at %v, want %v", got, want)
	}
}
