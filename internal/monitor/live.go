package monitor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/monitoring"
)

// LiveFrame is the per-tick payload pushed over /ws/live.
type LiveFrame struct {
	Time       time.Time      `json:"time"`
	Angle      float64        `json:"angle"`
	Velocity   float64        `json:"velocity"`
	Calibrated float64        `json:"calibrated"`
	State      gesture.State  `json:"state"`
	Confidence float64        `json:"confidence"`
	Rhythm     gesture.Rhythm `json:"rhythm"`
}

var upgrader = websocket.Upgrader{
	// The monitor is a trusted debug surface, so cross-origin dashboards
	// (e.g. a local dev server) may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveHub owns the live frame ring, the websocket clients, and the SSE
// subscribers.
type liveHub struct {
	mu      sync.Mutex
	frames  []LiveFrame
	clients map[*wsClient]struct{}
	sse     map[chan string]struct{}
}

type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newLiveHub() *liveHub {
	return &liveHub{
		clients: make(map[*wsClient]struct{}),
		sse:     make(map[chan string]struct{}),
	}
}

func (h *liveHub) record(f LiveFrame) {
	h.mu.Lock()
	h.frames = append(h.frames, f)
	if len(h.frames) > frameRingSize {
		h.frames = h.frames[len(h.frames)-frameRingSize:]
	}
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.mu.Lock()
		err := c.conn.WriteJSON(f)
		c.mu.Unlock()
		if err != nil {
			h.drop(c)
		}
	}
}

// recentFrames copies the frame ring for the chart handlers.
func (h *liveHub) recentFrames() []LiveFrame {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]LiveFrame, len(h.frames))
	copy(out, h.frames)
	return out
}

func (h *liveHub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *liveHub) drop(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

func (h *liveHub) subscribeSSE() chan string {
	ch := make(chan string, 16)
	h.mu.Lock()
	h.sse[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *liveHub) unsubscribeSSE(ch chan string) {
	h.mu.Lock()
	delete(h.sse, ch)
	h.mu.Unlock()
}

// broadcastEvent fans one emitted event out to the SSE tail subscribers.
func (h *liveHub) broadcastEvent(ev gesture.Event) {
	payload, err := json.Marshal(eventRecord{Kind: ev.Kind(), Event: ev})
	if err != nil {
		monitoring.Logf("failed to encode event for stream: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.sse {
		select {
		case ch <- string(payload):
		default:
			// never block the service loop on a slow tail
		}
	}
}

func (s *Server) handleLiveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("websocket upgrade failed: %v", err)
		return
	}

	c := &wsClient{conn: conn}
	s.live.add(c)

	// Reads only serve to detect the peer going away.
	go func() {
		defer s.live.drop(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch := s.live.subscribeSSE()
	defer s.live.unsubscribeSSE(ch)

	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case payload := <-ch:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// eventRing keeps the most recent engine events for /api/events.
type eventRing struct {
	mu     sync.Mutex
	events []gesture.Event
	max    int
}

func newEventRing(max int) *eventRing {
	return &eventRing{max: max}
}

func (r *eventRing) add(ev gesture.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if len(r.events) > r.max {
		r.events = r.events[len(r.events)-r.max:]
	}
}

func (r *eventRing) recent() []gesture.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]gesture.Event, len(r.events))
	copy(out, r.events)
	return out
}
