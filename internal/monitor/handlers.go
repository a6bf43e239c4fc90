package monitor

import (
	"net/http"
	"strings"

	"github.com/helmside/paddlesense/internal/config"
	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/httputil"
)

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.engine.Snapshot(s.clock.Now()))
}

// eventRecord is the /api/events wire shape: the kind lifted beside the
// event payload so clients need not sniff the detail.
type eventRecord struct {
	Kind  gesture.EventKind `json:"kind"`
	Event gesture.Event     `json:"event"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	events := s.ring.recent()
	out := make([]eventRecord, len(events))
	for i, ev := range events {
		out[i] = eventRecord{Kind: ev.Kind(), Event: ev}
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	tuning := s.tuning
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	engineCfg, err := tuning.EngineConfig()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]any{
		"tuning": tuning,
		"engine": engineCfg,
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.mux == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no wand link")
		return
	}
	code := strings.TrimSpace(r.FormValue("command"))
	if code == "" {
		httputil.BadRequest(w, "missing command")
		return
	}
	if err := s.mux.SendCommand(code); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"sent": code})
}

func (s *Server) handleCalibrateStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	now := s.clock.Now()
	s.engine.StartCalibration(now)
	httputil.WriteJSONOK(w, s.engine.Snapshot(now))
}

func (s *Server) handleCalibrateReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	now := s.clock.Now()
	s.engine.ResetCalibration(now)
	httputil.WriteJSONOK(w, s.engine.Snapshot(now))
}
