package replay

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/tracestore"
	"github.com/helmside/paddlesense/internal/wandwire"
)

// LoadSession pulls a recorded session's samples and the engine config it
// ran with.
func LoadSession(store *tracestore.Store, sessionID string) (gesture.Config, []gesture.RawSample, error) {
	cfg, err := store.SessionConfig(sessionID)
	if err != nil {
		return gesture.Config{}, nil, fmt.Errorf("load session config: %w", err)
	}
	samples, err := store.LoadSamples(sessionID)
	if err != nil {
		return gesture.Config{}, nil, fmt.Errorf("load session samples: %w", err)
	}
	return cfg, samples, nil
}

// LoadTraceFile reads a wire-format trace (one sentence per line, as
// produced by gen-trace or a raw serial capture) into samples. Heartbeats
// and unparseable lines are skipped; timestamps are wand uptime applied to
// a fixed epoch, which replays identically no matter when the file is read.
func LoadTraceFile(path string) ([]gesture.RawSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	base := time.Unix(0, 0).UTC()
	var samples []gesture.RawSample
	var skipped int

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		sentence, err := wandwire.ParseLine(line)
		if err != nil {
			skipped++
			continue
		}
		if ori, ok := sentence.(wandwire.ORI); ok {
			samples = append(samples, ori.RawSample(base))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no orientation sentences in %s (%d lines skipped)", path, skipped)
	}
	return samples, nil
}
