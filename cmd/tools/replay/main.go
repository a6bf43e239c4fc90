// Command replay streams a recorded trace through a fresh gesture engine at
// full speed and prints the emitted events. With -verify it replays twice
// and diffs the event sequences, which must match: the engine is
// deterministic for a given config and sample stream.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/go-cmp/cmp"

	"github.com/helmside/paddlesense/internal/config"
	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/replay"
	"github.com/helmside/paddlesense/internal/tracestore"
)

var (
	dbPath     = flag.String("db", "traces.db", "trace database path (session replays)")
	sessionID  = flag.String("session", "", "recorded session ID to replay")
	file       = flag.String("file", "", "wire-format trace file to replay")
	tuningPath = flag.String("tuning", "", "tuning config for file replays (sessions use their stored config)")
	calibrate  = flag.Bool("calibrate", false, "start a calibration run at stream start")
	verify     = flag.Bool("verify", false, "replay twice and diff the outputs")
	summarize  = flag.Bool("summarize", false, "print stroke/rhythm tallies instead of every event")
)

func main() {
	flag.Parse()

	cfg, samples, err := loadInput()
	if err != nil {
		log.Fatal(err)
	}
	opts := replay.Options{Calibrate: *calibrate}

	res, err := replay.Run(cfg, samples, opts)
	if err != nil {
		log.Fatalf("replay failed: %v", err)
	}

	if *verify {
		second, err := replay.Run(cfg, samples, opts)
		if err != nil {
			log.Fatalf("second replay failed: %v", err)
		}
		if diff := cmp.Diff(res.Events, second.Events); diff != "" {
			log.Printf("replay diverged (-first +second):\n%s", diff)
			os.Exit(1)
		}
		log.Printf("verified: %d events, both replays identical", len(res.Events))
	}

	if *summarize {
		fmt.Println(replay.Summarize(res))
		return
	}
	for _, ev := range res.Events {
		fmt.Printf("%s %-20s %+v\n", ev.At().Format("15:04:05.000"), ev.Kind(), ev)
	}
	log.Printf("%d samples, %d events", len(samples), len(res.Events))
}

func loadInput() (gesture.Config, []gesture.RawSample, error) {
	switch {
	case *sessionID != "" && *file != "":
		return gesture.Config{}, nil, fmt.Errorf("-session and -file are mutually exclusive")

	case *sessionID != "":
		store, err := tracestore.Open(*dbPath)
		if err != nil {
			return gesture.Config{}, nil, fmt.Errorf("open trace database: %w", err)
		}
		defer store.Close()
		return replay.LoadSession(store, *sessionID)

	case *file != "":
		samples, err := replay.LoadTraceFile(*file)
		if err != nil {
			return gesture.Config{}, nil, err
		}
		tuning := config.EmptyTuningConfig()
		if *tuningPath != "" {
			tuning, err = config.LoadTuningConfig(*tuningPath)
			if err != nil {
				return gesture.Config{}, nil, err
			}
		}
		cfg, err := tuning.EngineConfig()
		if err != nil {
			return gesture.Config{}, nil, err
		}
		return cfg, samples, nil

	default:
		return gesture.Config{}, nil, fmt.Errorf("one of -session or -file is required")
	}
}
