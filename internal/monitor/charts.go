package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/helmside/paddlesense/internal/gesture"
	"github.com/helmside/paddlesense/internal/httputil"
)

// handleAngleChart renders the buffered live frames as a line chart of
// smoothed angle and angular velocity. Debugging-only endpoint (no auth);
// useful for eyeballing the conditioning pipeline without a dashboard.
func (s *Server) handleAngleChart(w http.ResponseWriter, r *http.Request) {
	frames := s.live.recentFrames()
	if len(frames) == 0 {
		httputil.NotFound(w, "no live frames buffered yet")
		return
	}

	x := make([]string, 0, len(frames))
	angle := make([]opts.LineData, 0, len(frames))
	velocity := make([]opts.LineData, 0, len(frames))
	for _, f := range frames {
		x = append(x, f.Time.Format("15:04:05.000"))
		angle = append(angle, opts.LineData{Value: f.Angle})
		velocity = append(velocity, opts.LineData{Value: f.Velocity})
	}

	subtitle := fmt.Sprintf("frames=%d span=%s..%s",
		len(frames),
		frames[0].Time.Format(time.RFC3339),
		frames[len(frames)-1].Time.Format(time.RFC3339),
	)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Wand Angle", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Smoothed Angle / Velocity", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "deg / deg/s"}),
	)
	line.SetXAxis(x).
		AddSeries("angle", angle).
		AddSeries("velocity", velocity)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render angle chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleStrokesChart renders a bar chart of recent event tallies, with
// strokes split by side so a lopsided paddler shows up immediately.
func (s *Server) handleStrokesChart(w http.ResponseWriter, r *http.Request) {
	events := s.ring.recent()

	var left, right, thrusts, stateChanges, calibration int
	for _, ev := range events {
		switch e := ev.(type) {
		case gesture.PaddleStroke:
			if e.Side == gesture.SideLeft {
				left++
			} else {
				right++
			}
		case gesture.ForwardThrust:
			thrusts++
		case gesture.StateChange:
			stateChanges++
		case gesture.CalibrationProgress, gesture.CalibrationResult:
			calibration++
		}
	}

	x := []string{"Left strokes", "Right strokes", "Thrusts", "State changes", "Calibration"}
	y := []opts.BarData{
		{Value: left},
		{Value: right},
		{Value: thrusts},
		{Value: stateChanges},
		{Value: calibration},
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Stroke Tallies", Theme: "dark", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Recent Events", Subtitle: fmt.Sprintf("last %d events", len(events))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("events", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render strokes chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
