// Command paddlesense reads wand orientation sentences from a serial link,
// runs them through the gesture engine, and serves the resulting state over
// HTTP, MQTT, and an optional SQLite trace recording.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/helmside/paddlesense/internal/config"
	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/monitor"
	"github.com/helmside/paddlesense/internal/monitoring"
	"github.com/helmside/paddlesense/internal/telemetry"
	"github.com/helmside/paddlesense/internal/timeutil"
	"github.com/helmside/paddlesense/internal/tracestore"
	"github.com/helmside/paddlesense/internal/version"
	"github.com/helmside/paddlesense/internal/wandmux"
)

// tickInterval drives the engine's time-based transitions between samples.
// The stock wand streams at 50 Hz; ticking at the same rate keeps dwell and
// cooldown resolution aligned with the sample stream.
const tickInterval = 20 * time.Millisecond

// statePublishInterval throttles retained MQTT state snapshots.
const statePublishInterval = time.Second

var (
	serialPort  = flag.String("serial-port", "/dev/ttyUSB0", "Wand serial port path")
	baud        = flag.Int("baud", 0, "Serial baud rate (0 uses tuning/default)")
	mock        = flag.Bool("mock", false, "Use the scripted mock wand instead of a serial port")
	listen      = flag.String("listen", ":8080", "Monitor HTTP listen address")
	dbPath      = flag.String("db", "traces.db", "Trace database path")
	tuningPath  = flag.String("tuning", "", "Tuning config JSON path (empty uses defaults)")
	mqttBroker  = flag.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (empty disables telemetry)")
	record      = flag.Bool("record", false, "Record this run as a trace session")
	recordNote  = flag.String("record-note", "", "Note attached to the recorded session")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("paddlesense %s\n", version.String())
		return
	}
	monitoring.SetDebug(*verbose)

	if *listen == "" {
		log.Fatal("listen address is required")
	}

	tuning := config.EmptyTuningConfig()
	if *tuningPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*tuningPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		monitoring.Logf("loaded tuning config from %s", *tuningPath)
	}

	engineCfg, err := tuning.EngineConfig()
	if err != nil {
		log.Fatalf("invalid engine config: %v", err)
	}
	engine, err := gesture.NewEngine(engineCfg)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}

	clock := timeutil.RealClock{}

	var mux wandmux.Muxer
	if *mock {
		mux = wandmux.NewMockWandMux(clock)
		monitoring.Logf("using scripted mock wand")
	} else {
		opts := tuning.GetSerialOptions()
		if *baud != 0 {
			opts.BaudRate = *baud
		}
		mux, err = wandmux.NewRealWandMux(*serialPort, opts)
		if err != nil {
			log.Fatalf("failed to open wand port %s: %v", *serialPort, err)
		}
	}
	defer mux.Close()

	store, err := tracestore.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open trace database: %v", err)
	}
	defer store.Close()

	var writer *tracestore.SessionWriter
	if *record {
		writer, err = tracestore.NewSessionWriter(store, clock.Now(), *recordNote, engineCfg)
		if err != nil {
			log.Fatalf("failed to begin trace session: %v", err)
		}
		monitoring.Logf("recording trace session %s", writer.SessionID())
	}

	publisher, err := telemetry.NewPublisher(telemetry.Options{
		Broker:   *mqttBroker,
		ClientID: "paddlesense-" + hostnameOr("local"),
	})
	if err != nil {
		log.Fatalf("failed to connect telemetry: %v", err)
	}
	defer publisher.Close()

	mon := monitor.NewServer(monitor.ServerConfig{
		Listen: *listen,
		Engine: engine,
		Mux:    mux,
		Tuning: tuning,
		Clock:  clock,
	})
	mux.AttachAdminRoutes(mon.ServeMux())
	if err := store.AttachAdminRoutes(mon.ServeMux()); err != nil {
		log.Fatalf("failed to attach trace admin routes: %v", err)
	}

	svc := &service{
		engine:    engine,
		mux:       mux,
		monitor:   mon,
		publisher: publisher,
		writer:    writer,
		clock:     clock,
		liveness:  tuning.GetLivenessTimeout(),
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
			monitoring.Logf("wand monitor failed: %v", err)
			stop()
		}
		monitoring.Logf("wand monitor terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.run(ctx)
		monitoring.Logf("service loop terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mon.Start(ctx); err != nil {
			monitoring.Logf("monitor server stopped: %v", err)
		}
	}()

	wg.Wait()

	if writer != nil {
		if err := writer.Close(clock.Now()); err != nil {
			monitoring.Logf("failed to close trace session: %v", err)
		}
	}
	monitoring.Logf("graceful shutdown complete")
}

func hostnameOr(fallback string) string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return fallback
	}
	return h
}
