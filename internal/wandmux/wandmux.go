// Package wandmux provides an abstraction over the wand's serial link with
// the ability for multiple clients to subscribe to line events and for a
// single writer to send allow-listed commands to the device.
package wandmux

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"tailscale.com/tsweb"

	"github.com/helmside/paddlesense/internal/wandwire"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

//go:embed templates/*
var adminTemplateFS embed.FS

var sendCommandTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/send-command.html.tmpl"))

// Stats counts the mux's line traffic for the monitor surface.
type Stats struct {
	Lines      uint64    `json:"lines"`
	Drops      uint64    `json:"drops"`
	SendErrors uint64    `json:"send_errors"`
	LastLineAt time.Time `json:"last_line_at"`
}

// WandMux is a generic serial multiplexer that fans lines from a single wand
// port out to any number of subscribers.
type WandMux[T WandPorter] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

// Muxer is the surface the service loop and monitor depend on; both real and
// mock muxes satisfy it.
type Muxer interface {
	// Subscribe creates a new channel for receiving line events from the
	// wand. The returned ID identifies the channel when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendCommand wraps an allow-listed command code and writes it to the
	// wand.
	SendCommand(code string) error
	// Monitor reads lines from the port and fans them out until the context
	// is cancelled or the port fails.
	Monitor(context.Context) error
	// Close closes all subscriber channels and the underlying port.
	Close() error
	// Stats returns the traffic counters.
	Stats() Stats

	// AttachAdminRoutes attaches admin debugging endpoints to the given HTTP
	// mux served at /debug/. These routes are accessible only over
	// localhost/via Tailscale and are not publicly accessible.
	AttachAdminRoutes(*http.ServeMux)
}

// NewWandMux creates a WandMux fronting the given port.
func NewWandMux[T WandPorter](port T) *WandMux[T] {
	return &WandMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// subscriberBuffer absorbs short bursts so a slow SSE client does not force
// line drops at 50 Hz.
const subscriberBuffer = 16

func (m *WandMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, subscriberBuffer)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the mux.
func (m *WandMux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// SendCommand validates the code against the wand allow-list, wraps it as a
// checksummed $PWCMD sentence, and writes it to the port. Writes are
// serialized; the wand firmware processes one command per line.
func (m *WandMux[T]) SendCommand(code string) error {
	line, err := wandwire.BuildCMD(code)
	if err != nil {
		return err
	}

	m.commandMu.Lock()
	defer m.commandMu.Unlock()
	payload := []byte(line + "\r\n")
	n, err := m.port.Write(payload)
	if err != nil {
		m.statsMu.Lock()
		m.stats.SendErrors++
		m.statsMu.Unlock()
		return err
	}
	if n != len(payload) {
		m.statsMu.Lock()
		m.stats.SendErrors++
		m.statsMu.Unlock()
		return ErrWriteFailed
	}
	return nil
}

// Stats returns a copy of the traffic counters.
func (m *WandMux[T]) Stats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// LastLineAt returns the arrival time of the most recent line; the service
// loop compares it against the liveness timeout to detect a dead link.
func (m *WandMux[T]) LastLineAt() time.Time {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats.LastLineAt
}

// Monitor reads lines from the wand and sends them to subscribers.
func (m *WandMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(m.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// Read in a goroutine so the blocking scan.Scan cannot stall the outer
	// select on context cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				if err := scan.Err(); err != nil {
					return err
				}
				return nil
			}

			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.statsMu.Lock()
			m.stats.Lines++
			m.stats.LastLineAt = time.Now()
			m.statsMu.Unlock()

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- line:
				default:
					// never block the fan-out on a full subscriber
					m.statsMu.Lock()
					m.stats.Drops++
					m.statsMu.Unlock()
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

func (m *WandMux[T]) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.port.Close()
}

func (m *WandMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// Basic command / live tail monitor interface using the below two API endpoints.
	debug.HandleFunc("send-command", "send a command to the wand", func(w http.ResponseWriter, r *http.Request) {
		buf := bytes.NewBuffer(nil)
		if err := sendCommandTemplate.Execute(buf, wandwire.AllowedCommands); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
			return
		}
		io.Copy(w, buf)
	})

	// API endpoint to write a command to the wand
	debug.HandleSilentFunc("send-command-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		code := strings.TrimSpace(r.FormValue("command"))
		if code == "" {
			http.Error(w, "Missing command", http.StatusBadRequest)
			return
		}
		if err := m.SendCommand(code); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write command: %v", err), http.StatusBadRequest)
			return
		}
		io.WriteString(w, fmt.Sprintf("Wrote command %q to wand", code))
	})

	// API endpoint to issue Server-Sent Events for lines coming from the wand.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := m.Subscribe()
		defer m.Unsubscribe(id)

		// Send initial ping to establish connection
		w.Write([]byte(": ping\n\n"))
		w.(http.Flusher).Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				w.(http.Flusher).Flush()
			case <-r.Context().Done():
				return
			}
		}
	})

	debug.HandleSilentFunc("tail.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Cache-Control", "no-cache")

		f, err := adminTemplateFS.Open("templates/tail.js")
		if err != nil {
			http.Error(w, "Failed to open tail.js", http.StatusInternalServerError)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
}
