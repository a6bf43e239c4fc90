package replay

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/tracestore"
	"github.com/helmside/paddlesense/internal/wandwire"
)

func TestLoadTraceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.txt")
	lines := []string{
		wandwire.BuildHBT(0, 3700), // skipped: not orientation
		wandwire.BuildORI(20, 10.5, 0, 0, 1000),
		"garbage line", // skipped: unparseable
		wandwire.BuildORI(40, 11.0, 0, 0, 1000),
		"",
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))

	samples, err := LoadTraceFile(path)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 10.5, samples[0].Angle)
	assert.Equal(t, 20*time.Millisecond, samples[1].Timestamp.Sub(samples[0].Timestamp))
}

func TestLoadTraceFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("no sentences here\n"), 0o644))

	_, err := LoadTraceFile(path)
	require.Error(t, err)
}

func TestLoadSessionRoundTrip(t *testing.T) {
	store, err := tracestore.Open(filepath.Join(t.TempDir(), "traces.db"))
	require.NoError(t, err)
	defer store.Close()

	cfg := gesture.DefaultConfig()
	cfg.DeadZoneDegrees = 11

	start := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	id, err := store.BeginSession(start, "replay test", cfg)
	require.NoError(t, err)
	samples := []gesture.RawSample{
		{Timestamp: start, Angle: 1},
		{Timestamp: start.Add(20 * time.Millisecond), Angle: 2},
	}
	require.NoError(t, store.AppendSamples(id, 0, samples))

	gotCfg, gotSamples, err := LoadSession(store, id)
	require.NoError(t, err)
	assert.Equal(t, 11.0, gotCfg.DeadZoneDegrees)
	require.Len(t, gotSamples, 2)
	assert.Equal(t, 2.0, gotSamples[1].Angle)
}
