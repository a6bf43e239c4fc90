// Command trace-plot renders a recorded trace as PNG timelines: smoothed
// angle with stroke and state-change markers, and angular velocity. The
// trace is replayed through a fresh engine so the plotted series match what
// the live service derived.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/helmside/paddlesense/internal/config"
	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/replay"
	"github.com/helmside/paddlesense/internal/tracestore"
)

var (
	dbPath     = flag.String("db", "traces.db", "trace database path (session plots)")
	sessionID  = flag.String("session", "", "recorded session ID to plot")
	file       = flag.String("file", "", "wire-format trace file to plot")
	tuningPath = flag.String("tuning", "", "tuning config for file plots")
	calibrate  = flag.Bool("calibrate", false, "start a calibration run at stream start")
	outPrefix  = flag.String("o", "trace", "output path prefix; writes <prefix>_angle.png and <prefix>_velocity.png")
)

func main() {
	flag.Parse()

	cfg, samples, err := loadInput()
	if err != nil {
		log.Fatal(err)
	}

	res, err := replay.Run(cfg, samples, replay.Options{Calibrate: *calibrate})
	if err != nil {
		log.Fatalf("replay failed: %v", err)
	}
	if len(res.Frames) == 0 {
		log.Fatal("replay produced no frames")
	}

	start := res.Frames[0].Time
	anglePts := make(plotter.XYs, 0, len(res.Frames))
	velocityPts := make(plotter.XYs, 0, len(res.Frames))
	for _, f := range res.Frames {
		x := f.Time.Sub(start).Seconds()
		anglePts = append(anglePts, plotter.XY{X: x, Y: f.Angle})
		velocityPts = append(velocityPts, plotter.XY{X: x, Y: f.Velocity})
	}

	// Stroke and state-change markers land on the angle value at each
	// event's tick.
	angleAt := func(t float64) float64 {
		for _, p := range anglePts {
			if p.X >= t {
				return p.Y
			}
		}
		return anglePts[len(anglePts)-1].Y
	}
	var strokePts, changePts plotter.XYs
	for _, ev := range res.Events {
		x := ev.At().Sub(start).Seconds()
		switch ev.(type) {
		case gesture.PaddleStroke:
			strokePts = append(strokePts, plotter.XY{X: x, Y: angleAt(x)})
		case gesture.StateChange:
			changePts = append(changePts, plotter.XY{X: x, Y: angleAt(x)})
		}
	}

	if err := plotAngle(anglePts, strokePts, changePts); err != nil {
		log.Fatalf("angle plot: %v", err)
	}
	if err := plotVelocity(velocityPts); err != nil {
		log.Fatalf("velocity plot: %v", err)
	}
	log.Printf("wrote %s_angle.png and %s_velocity.png (%d frames, %d strokes)",
		*outPrefix, *outPrefix, len(res.Frames), len(strokePts))
}

func plotAngle(anglePts, strokePts, changePts plotter.XYs) error {
	p := plot.New()
	p.Title.Text = "Smoothed Angle"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Angle (deg)"

	line, err := plotter.NewLine(anglePts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{B: 200, A: 255}
	p.Add(line)
	p.Legend.Add("angle", line)

	if len(changePts) > 0 {
		s, err := plotter.NewScatter(changePts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = color.RGBA{R: 120, G: 120, B: 120, A: 255}
		s.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(s)
		p.Legend.Add("state change", s)
	}
	if len(strokePts) > 0 {
		s, err := plotter.NewScatter(strokePts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = color.RGBA{R: 220, A: 255}
		s.GlyphStyle.Radius = vg.Points(4)
		p.Add(s)
		p.Legend.Add("stroke", s)
	}

	return p.Save(14*vg.Inch, 6*vg.Inch, *outPrefix+"_angle.png")
}

func plotVelocity(velocityPts plotter.XYs) error {
	p := plot.New()
	p.Title.Text = "Angular Velocity"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Velocity (deg/s)"

	line, err := plotter.NewLine(velocityPts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 200, G: 100, A: 255}
	p.Add(line)
	p.Legend.Add("velocity", line)

	return p.Save(14*vg.Inch, 6*vg.Inch, *outPrefix+"_velocity.png")
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
