package wandmux

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/helmside/paddlesense/internal/wandwire"
)

func TestNewWandMux(t *testing.T) {
	port := NewTestableWandPort()
	mux := NewWandMux(port)

	if mux == nil {
		t.Fatal("NewWandMux returned nil")
	}
	if mux.subscribers == nil {
		t.Error("subscribers map not initialized")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	mux := NewWandMux(NewTestableWandPort())

	id1, ch1 := mux.Subscribe()
	id2, ch2 := mux.Subscribe()

	if id1 == "" || id2 == "" {
		t.Error("subscription returned empty ID")
	}
	if id1 == id2 {
		t.Error("subscription IDs should be unique")
	}
	if ch1 == nil || ch2 == nil {
		t.Error("subscription returned nil channel")
	}

	mux.Unsubscribe(id1)
	if _, ok := <-ch1; ok {
		t.Error("unsubscribed channel should be closed")
	}

	// Unsubscribing an unknown ID is a no-op.
	mux.Unsubscribe("missing")

	select {
	case _, ok := <-ch2:
		if !ok {
			t.Error("remaining channel closed unexpectedly")
		}
	default:
	}
}

func TestSendCommandWrapsAndChecksums(t *testing.T) {
	port := NewTestableWandPort()
	mux := NewWandMux(port)

	if err := mux.SendCommand(wandwire.CmdStreamStart); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}

	written := string(port.GetWrittenData())
	if !strings.HasPrefix(written, "$PWCMD,ST*") {
		t.Errorf("unexpected wire framing: %q", written)
	}
	if !strings.HasSuffix(written, "\r\n") {
		t.Errorf("command should be CRLF terminated: %q", written)
	}

	// The framed line must round-trip the checksum validator.
	if _, err := wandwire.ParseLine(written); err != nil && !strings.Contains(err.Error(), "not supported") {
		// PWCMD has no registered parser; only checksum/framing errors matter.
		if strings.Contains(err.Error(), "checksum") {
			t.Errorf("checksum rejected: %v", err)
		}
	}
}

func TestSendCommandRejectsUnknownCode(t *testing.T) {
	port := NewTestableWandPort()
	mux := NewWandMux(port)

	if err := mux.SendCommand("RM"); err == nil {
		t.Fatal("SendCommand accepted code outside allow-list")
	}
	if port.WriteCalls != 0 {
		t.Error("disallowed command reached the port")
	}
}

func TestSendCommandWriteError(t *testing.T) {
	port := NewTestableWandPort()
	port.WriteError = errors.New("boom")
	mux := NewWandMux(port)

	if err := mux.SendCommand(wandwire.CmdPing); err == nil {
		t.Fatal("SendCommand should surface write errors")
	}
	if got := mux.Stats().SendErrors; got != 1 {
		t.Errorf("SendErrors = %d, want 1", got)
	}
}

func TestMonitorFansOutLines(t *testing.T) {
	port := NewTestableWandPort()
	port.BlockReads = true
	mux := NewWandMux(port)

	id, ch := mux.Subscribe()
	defer mux.Unsubscribe(id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- mux.Monitor(ctx) }()

	line := wandwire.BuildORI(100, 12.5, 0, 0, 1000)
	port.AddReadData([]byte(line + "\r\n"))

	select {
	case got := <-ch:
		if got != line {
			t.Errorf("subscriber got %q, want %q", got, line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fan-out")
	}

	stats := mux.Stats()
	if stats.Lines != 1 {
		t.Errorf("Lines = %d, want 1", stats.Lines)
	}
	if stats.LastLineAt.IsZero() {
		t.Error("LastLineAt not recorded")
	}

	cancel()
	select {
	case err := <-monitorDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Monitor returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not exit on cancel")
	}
}

func TestMonitorDropsWhenSubscriberFull(t *testing.T) {
	port := NewTestableWandPort()
	port.BlockReads = true
	mux := NewWandMux(port)

	// Never read from this subscriber; its buffer fills and further lines
	// must be dropped without stalling the fan-out.
	id, _ := mux.Subscribe()
	defer mux.Unsubscribe(id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	var payload strings.Builder
	for i := 0; i < subscriberBuffer+4; i++ {
		payload.WriteString(wandwire.BuildORI(int64(i*20), 0, 0, 0, 0) + "\r\n")
	}
	port.AddReadData([]byte(payload.String()))

	deadline := time.After(2 * time.Second)
	for mux.Stats().Drops == 0 {
		select {
		case <-deadline:
			t.Fatal("no drops recorded for a full subscriber")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCloseClosesSubscribersAndPort(t *testing.T) {
	port := NewTestableWandPort()
	mux := NewWandMux(port)

	_, ch := mux.Subscribe()

	if err := mux.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel not closed")
	}
	if !port.Closed {
		t.Error("underlying port not closed")
	}
}

func TestMockWandScriptShape(t *testing.T) {
	// Calibration holds sit at the reference angles; stroke passages exceed
	// the 70% threshold of the scripted ±40° range.
	cases := []struct {
		at   time.Duration
		want float64
	}{
		{1 * time.Second, 0},
		{3 * time.Second, 40},
		{5 * time.Second, -40},
		{7 * time.Second, 0},
		{15 * time.Second, 0},
	}
	for _, tc := range cases {
		if got := scriptAngle(tc.at); got != tc.want {
			t.Errorf("scriptAngle(%v) = %v, want %v", tc.at, got, tc.want)
		}
	}

	// The alternating passage must swing past both tilt thresholds.
	var maxA, minA float64
	for ts := 8 * time.Second; ts < 12*time.Second; ts += 10 * time.Millisecond {
		a := scriptAngle(ts)
		if a > maxA {
			maxA = a
		}
		if a < minA {
			minA = a
		}
	}
	if maxA < 28 || minA > -28 {
		t.Errorf("alternating passage range [%v,%v] does not cross ±28°", minA, maxA)
	}

	// The script repeats each cycle.
	if scriptAngle(3*time.Second) != scriptAngle(3*time.Second+scriptCycle) {
		t.Error("script does not repeat across cycles")
	}
}

func TestPortOptionsNormalize(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if opts.BaudRate != 115200 || opts.DataBits != 8 || opts.StopBits != 1 || opts.Parity != "N" {
		t.Errorf("unexpected defaults: %+v", opts)
	}

	if _, err := (PortOptions{DataBits: 9}).Normalize(); err == nil {
		t.Error("Normalize accepted data bits 9")
	}
	if _, err := (PortOptions{StopBits: 3}).Normalize(); err == nil {
		t.Error("Normalize accepted stop bits 3")
	}
	if _, err := (PortOptions{Parity: "X"}).Normalize(); err == nil {
		t.Error("Normalize accepted parity X")
	}

	if !(PortOptions{Parity: "even"}).Equal(PortOptions{Parity: "E"}) {
		t.Error("Equal should normalize before comparing")
	}
}
