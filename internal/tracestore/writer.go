package tracestore

import (
	"time"

	"github.com/helmside/paddlesense/internal/gesture"
)

// sampleFlushBatch bounds how many samples buffer in memory before a batched
// transaction; at 50 Hz this commits roughly once per second.
const sampleFlushBatch = 50

// SessionWriter streams one session into the store. It buffers samples into
// batched transactions and numbers events as they arrive. Not safe for
// concurrent use; the single service loop owns it.
type SessionWriter struct {
	store     *Store
	sessionID string

	sampleSeq int
	eventSeq  int
	pending   []gesture.RawSample
}

// NewSessionWriter begins a session and returns a writer bound to it.
func NewSessionWriter(store *Store, now time.Time, note string, cfg gesture.Config) (*SessionWriter, error) {
	id, err := store.BeginSession(now, note, cfg)
	if err != nil {
		return nil, err
	}
	return &SessionWriter{store: store, sessionID: id}, nil
}

// SessionID returns the session being written.
func (w *SessionWriter) SessionID() string { return w.sessionID }

// AddSample buffers one raw sample, flushing when the batch fills.
func (w *SessionWriter) AddSample(raw gesture.RawSample) error {
	w.pending = append(w.pending, raw)
	if len(w.pending) >= sampleFlushBatch {
		return w.Flush()
	}
	return nil
}

// AddEvent records one engine event immediately; events are rare compared to
// samples and batching them would complicate replay verification.
func (w *SessionWriter) AddEvent(ev gesture.Event) error {
	if err := w.store.AppendEvent(w.sessionID, w.eventSeq, ev); err != nil {
		return err
	}
	w.eventSeq++
	return nil
}

// Flush commits any buffered samples.
func (w *SessionWriter) Flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	if err := w.store.AppendSamples(w.sessionID, w.sampleSeq, w.pending); err != nil {
		return err
	}
	w.sampleSeq += len(w.pending)
	w.pending = w.pending[:0]
	return nil
}

// Close flushes remaining samples and stamps the session end.
func (w *SessionWriter) Close(now time.Time) error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.store.EndSession(w.sessionID, now)
}
