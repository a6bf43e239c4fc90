// Command gen-trace synthesizes a wire-format wand trace for tests and
// demos: scripted calibration holds, single strokes, an alternating rhythm
// passage, and a consecutive-turn passage, with optional sensor noise and
// outlier corruption.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"
)

const sampleInterval = 20 * time.Millisecond // 50 Hz, the stock wand rate

var (
	output      = flag.String("o", "trace.txt", "output path")
	seconds     = flag.Float64("seconds", 20, "trace duration")
	noise       = flag.Float64("noise", 0.5, "gaussian angle noise stddev (degrees)")
	outlierRate = flag.Float64("outlier-rate", 0, "probability per sample of a wild outlier angle")
	seed        = flag.Int64("seed", 1, "random seed")
)

// scriptAngle is the scripted wand motion over a 20s cycle:
//
//	 0-2s   neutral hold        (calibration phase 1)
//	 2-4s   right hold at 40°   (calibration phase 2)
//	 4-6s   left hold at -40°   (calibration phase 3)
//	 6-8s   neutral
//	 8-12s  alternating strokes (forward rhythm)
//	12-14s  consecutive right strokes (turn rhythm)
//	14-16s  one right stroke, then return
//	16-20s  idle
func scriptAngle(t time.Duration) float64 {
	s := math.Mod(t.Seconds(), 20)
	switch {
	case s < 2:
		return 0
	case s < 4:
		return 40
	case s < 6:
		return -40
	case s < 8:
		return 0
	case s < 12:
		return 34 * math.Sin(2*math.Pi*(s-8)/0.8)
	case s < 14:
		return 34 * math.Max(0, math.Sin(2*math.Pi*(s-12)/0.5))
	case s < 15:
		return 34 * math.Max(0, math.Sin(2*math.Pi*(s-14)/1.0))
	default:
		return 0
	}
}

func main() {
	flag.Parse()

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *output, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	rng := rand.New(rand.NewSource(*seed))
	total := time.Duration(*seconds * float64(time.Second))

	var lines int
	nextHeartbeat := time.Duration(0)
	for t := time.Duration(0); t < total; t += sampleInterval {
		if t >= nextHeartbeat {
			fmt.Fprintln(w, buildHBT(t))
			nextHeartbeat += time.Second
			lines++
		}

		angle := scriptAngle(t) + rng.NormFloat64()*(*noise)
		if *outlierRate > 0 && rng.Float64() < *outlierRate {
			angle += (rng.Float64()*2 - 1) * 170
		}
		fmt.Fprintln(w, buildORI(t, angle))
		lines++
	}

	log.Printf("wrote %d lines (%.0fs at 50 Hz) to %s", lines, *seconds, *output)
}
