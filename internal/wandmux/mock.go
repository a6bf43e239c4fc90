package wandmux

import (
	"bytes"
	"io"
	"math"
	"sync"
	"time"

	"github.com/helmside/paddlesense/internal/timeutil"
	"github.com/helmside/paddlesense/internal/wandwire"
)

// MockWandPort simulates a wand that streams a scripted gesture session:
// calibration holds, an idle rest, alternating strokes, a consecutive-right
// turn passage, and another rest, on a repeating cycle. It is used by dev
// mode and for end-to-end tests without hardware.
type MockWandPort struct {
	r *io.PipeReader
	w *io.PipeWriter

	clock timeutil.Clock

	mu       sync.Mutex
	commands bytes.Buffer
	closed   bool
	done     chan struct{}
}

// sampleStep is the synthetic stream cadence (50 Hz).
const sampleStep = 20 * time.Millisecond

// scriptCycle is the length of one full scripted gesture pass.
const scriptCycle = 16 * time.Second

// scriptAngle returns the wand's roll at an offset into the script.
func scriptAngle(t time.Duration) float64 {
	t = t % scriptCycle
	s := t.Seconds()
	switch {
	case s < 2: // neutral calibration hold
		return 0
	case s < 4: // right calibration hold
		return 40
	case s < 6: // left calibration hold
		return -40
	case s < 8: // rest
		return 0
	case s < 12: // alternating strokes, one per 0.4 s
		return 34 * math.Sin(2*math.Pi*(s-8)/0.8)
	case s < 14: // consecutive right strokes
		return 34 * math.Max(0, math.Sin(2*math.Pi*(s-12)/0.5))
	default: // rest
		return 0
	}
}

// NewMockWandPort starts the synthetic stream. The clock paces emission:
// RealClock gives a live 50 Hz feed for dev mode, MockClock lets tests pull
// lines as fast as they can read them.
func NewMockWandPort(clock timeutil.Clock) *MockWandPort {
	r, w := io.Pipe()
	p := &MockWandPort{
		r:     r,
		w:     w,
		clock: clock,
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *MockWandPort) run() {
	defer p.w.Close()

	var uptime time.Duration
	for {
		select {
		case <-p.done:
			return
		default:
		}

		line := wandwire.BuildORI(uptime.Milliseconds(), scriptAngle(uptime), 0, 0, 1000)
		if _, err := io.WriteString(p.w, line+"\r\n"); err != nil {
			return
		}
		if uptime%time.Second == 0 {
			hbt := wandwire.BuildHBT(uptime.Milliseconds(), 3700)
			if _, err := io.WriteString(p.w, hbt+"\r\n"); err != nil {
				return
			}
		}

		uptime += sampleStep
		p.clock.Sleep(sampleStep)
	}
}

func (p *MockWandPort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Write captures outbound commands so tests can assert on what the service
// sent; the synthetic wand ignores them otherwise.
func (p *MockWandPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	return p.commands.Write(b)
}

// Commands returns everything written to the port so far.
func (p *MockWandPort) Commands() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commands.String()
}

func (p *MockWandPort) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.w.Close()
	return p.r.Close()
}

// NewMockWandMux creates a WandMux backed by the scripted synthetic wand.
func NewMockWandMux(clock timeutil.Clock) *WandMux[*MockWandPort] {
	return NewWandMux(NewMockWandPort(clock))
}
