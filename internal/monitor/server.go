// Package monitor serves the paddlesense debug/ops surface: engine state
// snapshots, recent events, live websocket frames, an SSE event tail, and
// go-echarts debug charts, plus the tsweb admin routes attached by the
// service binary.
package monitor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/helmside/paddlesense/internal/config"
	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/monitoring"
	"github.com/helmside/paddlesense/internal/timeutil"
	"github.com/helmside/paddlesense/internal/version"
	"github.com/helmside/paddlesense/internal/wandmux"
)

// frameRingSize bounds the in-memory live frame history (~40 s at 50 Hz).
const frameRingSize = 2048

// eventRingSize bounds the in-memory recent event history.
const eventRingSize = 256

// ServerConfig contains the monitor server's dependencies. Mux is optional
// (nil disables /api/command); Tuning may be nil when the service runs on
// pure defaults.
type ServerConfig struct {
	Listen string
	Engine *gesture.Engine
	Mux    wandmux.Muxer
	Tuning *config.TuningConfig
	Clock  timeutil.Clock
}

// Server handles the HTTP monitoring interface for one wand engine.
type Server struct {
	listen string
	engine *gesture.Engine
	mux    wandmux.Muxer
	tuning *config.TuningConfig
	clock  timeutil.Clock

	serveMux *http.ServeMux
	server   *http.Server

	live *liveHub
	ring *eventRing
}

// NewServer creates a monitor server with the provided configuration.
func NewServer(cfg ServerConfig) *Server {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	s := &Server{
		listen: cfg.Listen,
		engine: cfg.Engine,
		mux:    cfg.Mux,
		tuning: cfg.Tuning,
		clock:  clock,
		live:   newLiveHub(),
		ring:   newEventRing(eventRingSize),
	}
	s.serveMux = s.setupRoutes()
	s.server = &http.Server{Addr: s.listen, Handler: s.serveMux}
	return s
}

// ServeMux exposes the underlying mux so the service binary can attach the
// tracestore and wandmux admin routes alongside the monitor's own.
func (s *Server) ServeMux() *http.ServeMux {
	return s.serveMux
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/command", s.handleCommand)
	mux.HandleFunc("/api/calibrate/start", s.handleCalibrateStart)
	mux.HandleFunc("/api/calibrate/reset", s.handleCalibrateReset)
	mux.HandleFunc("/ws/live", s.handleLiveWS)
	mux.HandleFunc("/events/stream", s.handleEventStream)
	mux.HandleFunc("/charts/angle", s.handleAngleChart)
	mux.HandleFunc("/charts/strokes", s.handleStrokesChart)

	return mux
}

// Start begins the HTTP server and blocks until the context is cancelled,
// then shuts the server down.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		monitoring.Logf("monitor listening on %s", s.listen)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("monitor server failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("monitor shutdown error: %v", err)
		return s.server.Close()
	}
	return nil
}

// Record feeds one per-tick engine snapshot into the live frame ring and
// pushes it to connected websocket dashboards. Called by the service loop.
func (s *Server) Record(snap gesture.Snapshot) {
	s.live.record(LiveFrame{
		Time:       snap.Time,
		Angle:      snap.Smoothed.Angle,
		Velocity:   snap.Smoothed.Velocity,
		Calibrated: snap.Calibrated,
		State:      snap.State,
		Confidence: snap.Confidence,
		Rhythm:     snap.Rhythm,
	})
}

// RecordEvent feeds one drained engine event into the recent-event ring and
// the SSE tail. Called by the service loop.
func (s *Server) RecordEvent(ev gesture.Event) {
	s.ring.add(ev)
	s.live.broadcastEvent(ev)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, homeHTML, version.String())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

const homeHTML = `<!DOCTYPE html>
<html>
<head><title>paddlesense</title><style>body{font-family:monospace;margin:2em}li{margin:0.3em}</style></head>
<body>
<h1>paddlesense</h1>
<p>version %s</p>
<ul>
<li><a href="/api/state">/api/state</a> &mdash; engine snapshot</li>
<li><a href="/api/events">/api/events</a> &mdash; recent events</li>
<li><a href="/api/config">/api/config</a> &mdash; active tuning</li>
<li><a href="/events/stream">/events/stream</a> &mdash; SSE event tail</li>
<li><a href="/charts/angle">/charts/angle</a> &mdash; angle/velocity timeline</li>
<li><a href="/charts/strokes">/charts/strokes</a> &mdash; stroke tallies</li>
<li><a href="/debug/">/debug/</a> &mdash; admin routes (tailsql, backup, wand console)</li>
</ul>
</body>
</html>
`
